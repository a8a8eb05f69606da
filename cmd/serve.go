// Package cmd — serve command.
// Runs the HTTP server: SSE ingestion streaming, chart replanning, and
// vector search.
package cmd

import (
	"fmt"
	"net/http"

	"github.com/gaurav-prasanna/tablepipe/internal/config"
	"github.com/gaurav-prasanna/tablepipe/internal/logging"
	"github.com/gaurav-prasanna/tablepipe/server"
	"github.com/spf13/cobra"
)

var (
	flagServeAddr   string
	flagServeConfig string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ingestion pipeline over HTTP",
	Long: `Serve starts the HTTP server. POST /ingest streams pipeline events as
server-sent events; POST /replan re-plans charts from the session's
schema snapshot; GET /search runs a vector similarity lookup.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "Listen address (default from config, :8787)")
	serveCmd.Flags().StringVar(&flagServeConfig, "config", "", "Config file path (default: tablepipe.toml)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load(flagServeConfig)
	if flagServeAddr != "" {
		cfg.Server.Addr = flagServeAddr
	}

	logger, closeLog := logging.Setup(cfg.Logging.Level, cfg.Logging.SeqURL)
	defer closeLog()

	pipe, store, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	srv := server.New(pipe, server.WithLogger(logger))
	logger.Info("listening", "addr", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, srv.Handler()); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
