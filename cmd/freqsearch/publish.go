package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/kafka"
)

var (
	publishDocID int
	publishWord  string
	publishText  string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish an index update to the index-updates topic",
	Long: `Sends one update to Kafka for the running servers to apply. Either
--word adds a single occurrence of a term, or --text adds every word of
the text, to document --doc-id.`,
	Example: `  freqsearch publish --doc-id 3 --word milk
  freqsearch publish --doc-id 4 --text "milk water sugar"`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	flags := publishCmd.Flags()
	flags.IntVar(&publishDocID, "doc-id", -1, "document the words belong to")
	flags.StringVar(&publishWord, "word", "", "single term to record")
	flags.StringVar(&publishText, "text", "", "text whose words are added")
	_ = publishCmd.MarkFlagRequired("doc-id")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("no kafka brokers configured (set kafka.brokers or SP_KAFKA_BROKERS)")
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexUpdates)
	defer producer.Close()

	docID := publishDocID
	event := ingestion.UpdateEvent{DocID: &docID, Word: publishWord, Text: publishText}
	if err := publisher.New(producer).Publish(cmd.Context(), event); err != nil {
		return err
	}
	cmd.Printf("published update for doc %d to %s\n", docID, cfg.Kafka.Topics.IndexUpdates)
	return nil
}
