package main

import (
	"context"
	"fmt"

	"github.com/ethpandaops/junitoor/pkg/config"
	"github.com/ethpandaops/junitoor/pkg/junit"
	"github.com/ethpandaops/junitoor/pkg/reportindex"
	"github.com/ethpandaops/junitoor/pkg/upload"
	"golang.org/x/sync/errgroup"
)

// publish uploads and indexes a written report, as enabled in cfg. Both
// run concurrently; the object URI is attached to the index entry once
// both have finished.
func publish(ctx context.Context, cfg *config.Config, summary *junit.Summary) error {
	if !cfg.Upload.S3.Enabled && !cfg.Index.Enabled {
		return nil
	}

	var (
		objectURI string
		store     reportindex.Store
	)

	if cfg.Index.Enabled {
		store = reportindex.NewStore(log, &cfg.Index.Database)
		if err := store.Start(ctx); err != nil {
			return fmt.Errorf("starting report index: %w", err)
		}

		defer func() {
			if err := store.Stop(); err != nil {
				log.WithError(err).Warn("Failed to close report index")
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Upload.S3.Enabled {
		g.Go(func() error {
			uri, err := uploadReport(gctx, &cfg.Upload.S3, summary.Marker, summary.Path)
			if err != nil {
				return err
			}

			objectURI = uri

			return nil
		})
	}

	if store != nil {
		g.Go(func() error {
			report, err := store.RecordReport(gctx, summary, "")
			if err != nil {
				return fmt.Errorf("recording report: %w", err)
			}

			log.WithField("id", report.ID).Info("Report indexed")

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if store != nil && objectURI != "" {
		if err := store.SetObjectURI(ctx, summary.Marker, objectURI); err != nil {
			return fmt.Errorf("recording object uri: %w", err)
		}
	}

	return nil
}

// uploadReport runs the uploader preflight, then uploads the report.
func uploadReport(
	ctx context.Context, cfg *config.S3UploadConfig, marker, path string,
) (string, error) {
	uploader, err := upload.NewS3Uploader(log, cfg)
	if err != nil {
		return "", fmt.Errorf("creating S3 uploader: %w", err)
	}

	if err := uploader.Preflight(ctx); err != nil {
		return "", fmt.Errorf("s3 preflight: %w", err)
	}

	uri, err := uploader.Upload(ctx, marker, path)
	if err != nil {
		return "", fmt.Errorf("uploading report: %w", err)
	}

	return uri, nil
}
