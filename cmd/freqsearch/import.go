package main

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/converter"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/database"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy the files listed in config.json into the documents table",
	Long: `Reads every file of config.json and stores it as one row of the
documents table of the configured database, doc_id being the file's
position in the list. Existing rows are replaced.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	conv, err := converter.New(cfg.Corpus.ConfigPath, cfg.Corpus.RequestsPath, cfg.Corpus.AnswersPath)
	if err != nil {
		return err
	}
	docs, err := corpus.NewFileSource(conv).Documents(ctx)
	if err != nil {
		return err
	}

	client, err := database.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := corpus.NewSQLSource(client, cfg.Database.Query, cfg.Database.QueryTimeout).Replace(ctx, docs); err != nil {
		return err
	}
	cmd.Printf("imported %d documents into %s\n", len(docs), cfg.Database.Driver)
	return nil
}
