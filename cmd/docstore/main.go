package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/docstore-mcp/internal/config"
	"github.com/dshills/docstore-mcp/internal/logger"
)

var (
	version   = "dev"
	buildTime = "unknown"

	configPath string
	logLevel   string

	cfg *config.Config
	log *logger.Logger
)

const defaultConfigPath = "docstore.yaml"

func main() {
	root := &cobra.Command{
		Use:   "docstore",
		Short: "Document store and semantic search served over MCP",
		Long: `docstore ingests PDFs and text documents into a vector store, keeps a
data source folder in sync with it, and serves search and ingestion tools
to AI assistants over the Model Context Protocol.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Close()
			}
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: $DOCSTORE_CONFIG or ./docstore.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(serveCmd())
	root.AddCommand(syncCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(listCmd())
	root.AddCommand(infoCmd())
	root.AddCommand(resetCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(categoriesCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if p := os.Getenv("DOCSTORE_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err = logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		File:   cfg.Log.File,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	return nil
}
