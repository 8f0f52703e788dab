package junit

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/junitoor/pkg/fsutil"
	"github.com/ethpandaops/junitoor/pkg/resulttree"
	"github.com/ethpandaops/junitoor/pkg/selection"
	"github.com/google/uuid"
)

// ErrNoSuites is returned by Generate when the run produced no suites.
var ErrNoSuites = errors.New("no suites given to generate JUnit XML report")

// Options configures a single report generation.
type Options struct {
	// Output is the destination path of the report.
	Output string
	// Criteria builds the default filter when Filter is nil.
	Criteria selection.Criteria
	// Filter overrides Criteria.
	Filter selection.Filter
	// Owner, when set, is applied to the created file and directories.
	Owner *fsutil.OwnerConfig
	// Marker identifies the run. A random UUID is used when empty.
	Marker string
}

// SuiteSummary is the reported outcome of one suite.
type SuiteSummary struct {
	Name   string `json:"name"`
	Tests  int    `json:"tests"`
	Errors int    `json:"errors"`
	Skips  int    `json:"skips"`
	Time   string `json:"time"`
}

// Summary describes a written report.
type Summary struct {
	Marker   string         `json:"marker"`
	Path     string         `json:"path"`
	Name     string         `json:"name"`
	Time     string         `json:"time"`
	Duration time.Duration  `json:"-"`
	Tests    int            `json:"tests"`
	Errors   int            `json:"errors"`
	Bytes    int            `json:"bytes"`
	Suites   []SuiteSummary `json:"suites"`
}

// Generate builds the report for a finished run and writes it to
// opts.Output. It is called once, after the run completed.
func Generate(suites []*resulttree.Suite, opts Options) (*Summary, error) {
	if len(suites) == 0 {
		return nil, ErrNoSuites
	}

	if opts.Output == "" {
		return nil, fmt.Errorf("no report output path configured")
	}

	f := opts.Filter
	if f == nil {
		f = selection.New(opts.Criteria)
	}

	agg := AggregateSuites(suites, f)
	doc := Build(suites, f, agg)

	n, err := WriteFile(opts.Output, doc, opts.Owner)
	if err != nil {
		return nil, err
	}

	marker := opts.Marker
	if marker == "" {
		marker = uuid.NewString()
	}

	summary := &Summary{
		Marker:   marker,
		Path:     opts.Output,
		Name:     doc.Name,
		Time:     doc.Time,
		Duration: agg.Total,
		Tests:    agg.Tests(),
		Errors:   agg.Errors(),
		Bytes:    n,
		Suites:   make([]SuiteSummary, 0, len(doc.Suites)),
	}

	for _, ts := range doc.Suites {
		summary.Suites = append(summary.Suites, SuiteSummary{
			Name:   ts.Name,
			Tests:  ts.Tests,
			Errors: ts.Errors,
			Skips:  ts.Skips,
			Time:   ts.Time,
		})
	}

	return summary, nil
}
