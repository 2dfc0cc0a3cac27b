package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/logger"
)

var version = "dev"

var (
	configPath   string
	jobConfig    string
	requestsPath string
	answersPath  string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:          "freqsearch",
	Short:        "Term frequency search engine",
	Long:         `Builds a term frequency index over a document corpus and answers batches of queries ranked by relevance.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to the YAML service config")
	flags.StringVar(&jobConfig, "job-config", "", "path to config.json (overrides corpus.configPath)")
	flags.StringVar(&requestsPath, "requests", "", "path to requests.json (overrides corpus.requestsPath)")
	flags.StringVar(&answersPath, "answers", "", "path to answers.json (overrides corpus.answersPath)")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig reads the service config, applies the command line overrides
// and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if jobConfig != "" {
		cfg.Corpus.ConfigPath = jobConfig
	}
	if requestsPath != "" {
		cfg.Corpus.RequestsPath = requestsPath
	}
	if answersPath != "" {
		cfg.Corpus.AnswersPath = answersPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}
