// Package reportindex keeps a queryable index of generated reports.
package reportindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/junitoor/pkg/config"
	"github.com/ethpandaops/junitoor/pkg/junit"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a report is not in the index.
var ErrNotFound = errors.New("report not found")

// DefaultListLimit caps ListReports when no limit is given.
const DefaultListLimit = 100

// ListOptions pages through ListReports.
type ListOptions struct {
	Limit  int
	Offset int
}

// Store provides persistence for indexed reports.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// RecordReport inserts or replaces the report identified by the
	// summary's marker, including its suites.
	RecordReport(ctx context.Context, summary *junit.Summary, objectURI string) (*Report, error)
	// SetObjectURI records where the report of marker was uploaded.
	SetObjectURI(ctx context.Context, marker, objectURI string) error
	ListReports(ctx context.Context, opts ListOptions) ([]Report, error)
	GetReport(ctx context.Context, id uint) (*Report, error)
	GetReportByMarker(ctx context.Context, marker string) (*Report, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new index Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "reportindex"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			sslMode(s.cfg.Postgres.SSLMode),
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening index database: %w", err)
	}

	if s.cfg.Driver == "sqlite" {
		// SQLite allows a single writer, and ":memory:" databases are
		// private to their connection.
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("getting underlying db: %w", err)
		}

		sqlDB.SetMaxOpenConns(1)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&Report{},
		&ReportSuite{},
	); err != nil {
		return fmt.Errorf("running index migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).
		Info("Index database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// RecordReport upserts the report keyed by marker and replaces its suites.
func (s *store) RecordReport(
	ctx context.Context, summary *junit.Summary, objectURI string,
) (*Report, error) {
	if summary.Marker == "" {
		return nil, fmt.Errorf("report marker is required")
	}

	report := &Report{
		Marker:     summary.Marker,
		Name:       summary.Name,
		Path:       summary.Path,
		ObjectURI:  objectURI,
		Time:       summary.Time,
		DurationNs: summary.Duration.Nanoseconds(),
		Tests:      summary.Tests,
		Errors:     summary.Errors,
		SuiteCount: len(summary.Suites),
		Bytes:      summary.Bytes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("marker = ?", report.Marker).
			Assign(report).
			FirstOrCreate(report).Error; err != nil {
			return fmt.Errorf("upserting report: %w", err)
		}

		if err := tx.
			Where("report_id = ?", report.ID).
			Delete(&ReportSuite{}).Error; err != nil {
			return fmt.Errorf("deleting previous suites: %w", err)
		}

		if len(summary.Suites) == 0 {
			return nil
		}

		suites := make([]ReportSuite, 0, len(summary.Suites))
		for i, ss := range summary.Suites {
			suites = append(suites, ReportSuite{
				ReportID: report.ID,
				Position: i,
				Name:     ss.Name,
				Tests:    ss.Tests,
				Errors:   ss.Errors,
				Skips:    ss.Skips,
				Time:     ss.Time,
			})
		}

		if err := tx.CreateInBatches(suites, 100).Error; err != nil {
			return fmt.Errorf("inserting suites: %w", err)
		}

		report.Suites = suites

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"marker": report.Marker,
		"id":     report.ID,
	}).Debug("Report indexed")

	return report, nil
}

// SetObjectURI updates the object URI of the report with the given marker.
func (s *store) SetObjectURI(ctx context.Context, marker, objectURI string) error {
	result := s.db.WithContext(ctx).
		Model(&Report{}).
		Where("marker = ?", marker).
		Update("object_uri", objectURI)
	if result.Error != nil {
		return fmt.Errorf("updating object uri: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListReports returns reports newest first, without their suites.
func (s *store) ListReports(ctx context.Context, opts ListOptions) ([]Report, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var reports []Report
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(max(opts.Offset, 0)).
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}

	return reports, nil
}

// GetReport returns a report with its suites.
func (s *store) GetReport(ctx context.Context, id uint) (*Report, error) {
	return s.first(ctx, "id = ?", id)
}

// GetReportByMarker returns the report of a run marker with its suites.
func (s *store) GetReportByMarker(ctx context.Context, marker string) (*Report, error) {
	return s.first(ctx, "marker = ?", marker)
}

func (s *store) first(ctx context.Context, query string, arg any) (*Report, error) {
	var report Report

	err := s.db.WithContext(ctx).
		Preload("Suites", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where(query, arg).
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting report: %w", err)
	}

	return &report, nil
}

func sslMode(mode string) string {
	if mode == "" {
		return "disable"
	}

	return mode
}
