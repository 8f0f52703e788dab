package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/junitoor/pkg/api"
	"github.com/ethpandaops/junitoor/pkg/config"
	"github.com/ethpandaops/junitoor/pkg/reportindex"
	"github.com/ethpandaops/junitoor/pkg/upload"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report API server",
	Long:  `Serve the report index and the indexed report files over HTTP.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.ValidateAPI(); err != nil {
		return fmt.Errorf("validating api config: %w", err)
	}

	// Set up context with signal handling.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := reportindex.NewStore(log, &cfg.Index.Database)
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("starting report index: %w", err)
	}

	defer func() {
		if err := store.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close report index")
		}
	}()

	var objects api.ObjectReader
	if cfg.Upload.S3.Bucket != "" {
		objects = upload.NewS3Reader(log, &cfg.Upload.S3)
	}

	srv := api.NewServer(log, &cfg.API, store, objects)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}

	// Wait for shutdown signal.
	<-ctx.Done()
	log.Info("Shutting down API server")

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping api server: %w", err)
	}

	return nil
}
