package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/converter"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Answer requests.json against the corpus and write answers.json",
	Long: `Loads the corpus named by config.json (or the configured database),
builds the index, evaluates every query of requests.json and writes the
ranked answers to answers.json.`,
	Args: cobra.NoArgs,
	RunE: runJob,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runJob(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	conv, err := converter.New(cfg.Corpus.ConfigPath, cfg.Corpus.RequestsPath, cfg.Corpus.AnswersPath)
	if err != nil {
		return err
	}
	src, closeSource, err := corpus.Open(ctx, cfg, conv)
	if err != nil {
		return err
	}
	defer closeSource()

	docs, err := src.Documents(ctx)
	if err != nil {
		return err
	}
	engine := indexer.NewEngine()
	engine.Rebuild(ctx, docs)

	requests, err := conv.Requests()
	if err != nil {
		return err
	}
	server := searcher.New(engine, cfg.Search.MaxConcurrentQueries)
	answers := server.Search(ctx, requests, conv.ResponsesLimit())
	if err := conv.PutAnswers(answers); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s[%s] finish job\n", conv.Name(), conv.Version())
	return nil
}
