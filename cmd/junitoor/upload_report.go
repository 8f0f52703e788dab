package main

import (
	"errors"
	"fmt"

	"github.com/ethpandaops/junitoor/pkg/config"
	"github.com/ethpandaops/junitoor/pkg/reportindex"
	"github.com/spf13/cobra"
)

var (
	uploadReportPath   string
	uploadReportMarker string
)

var uploadReportCmd = &cobra.Command{
	Use:   "upload-report",
	Short: "Upload an existing report to remote storage",
	Long: `Upload a previously written JUnit XML report to S3-compatible storage
using the config file settings. When the report index is enabled, the
uploaded location is recorded on the report's index entry.`,
	RunE: runUploadReport,
}

func init() {
	rootCmd.AddCommand(uploadReportCmd)
	uploadReportCmd.Flags().StringVar(&uploadReportPath, "report", "",
		"Path to the report file to upload")
	uploadReportCmd.Flags().StringVar(&uploadReportMarker, "marker", "",
		"Run marker the report belongs to")

	_ = uploadReportCmd.MarkFlagRequired("report")
	_ = uploadReportCmd.MarkFlagRequired("marker")
}

func runUploadReport(cmd *cobra.Command, _ []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cfg.Upload.S3.Enabled {
		return fmt.Errorf("S3 upload is not configured or not enabled in config")
	}

	if err := cfg.Upload.S3.Validate(); err != nil {
		return fmt.Errorf("validating upload.s3 config: %w", err)
	}

	ctx := cmd.Context()

	log.WithField("report", uploadReportPath).Info("Uploading report")

	uri, err := uploadReport(ctx, &cfg.Upload.S3, uploadReportMarker, uploadReportPath)
	if err != nil {
		return err
	}

	if !cfg.Index.Enabled {
		return nil
	}

	store := reportindex.NewStore(log, &cfg.Index.Database)
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("starting report index: %w", err)
	}

	defer func() { _ = store.Stop() }()

	err = store.SetObjectURI(ctx, uploadReportMarker, uri)
	if errors.Is(err, reportindex.ErrNotFound) {
		log.WithField("marker", uploadReportMarker).
			Warn("Report is not in the index, object URI not recorded")

		return nil
	}

	if err != nil {
		return fmt.Errorf("recording object uri: %w", err)
	}

	return nil
}
