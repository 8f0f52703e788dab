package junit

import (
	"strconv"
	"strings"
	"time"

	"github.com/ethpandaops/junitoor/pkg/resulttree"
	"github.com/ethpandaops/junitoor/pkg/selection"
)

// SuiteAggregate holds the counts and timing reported for one suite.
type SuiteAggregate struct {
	Suite *resulttree.Suite

	// Tests and Errors cover every step of every plain scenario of the
	// suite, whether or not the scenario passed the selection filter.
	Tests  int
	Errors int
	// Skips is always zero; per-step skips are not attributed.
	Skips int

	Duration time.Duration
	Timed    bool
}

// Time returns the suite duration in seconds, or "" if it was not timed.
func (a SuiteAggregate) Time() string {
	return formatOptionalSeconds(a.Duration, a.Timed)
}

// Aggregate is the result of one pass over the suites of a run.
type Aggregate struct {
	// Total is the summed duration of included suites that passed or failed.
	Total time.Duration
	// Suites holds one entry per included suite, in input order.
	Suites []SuiteAggregate

	index map[*resulttree.Suite]int
}

// For returns the aggregate of suite, if it was included.
func (a *Aggregate) For(suite *resulttree.Suite) (SuiteAggregate, bool) {
	i, ok := a.index[suite]
	if !ok {
		return SuiteAggregate{}, false
	}

	return a.Suites[i], true
}

// Tests returns the test count summed over all included suites.
func (a *Aggregate) Tests() int {
	var n int
	for _, s := range a.Suites {
		n += s.Tests
	}

	return n
}

// Errors returns the error count summed over all included suites.
func (a *Aggregate) Errors() int {
	var n int
	for _, s := range a.Suites {
		n += s.Errors
	}

	return n
}

// AggregateSuites walks the suites accepted by f once and computes their counts
// and durations.
func AggregateSuites(suites []*resulttree.Suite, f selection.Filter) *Aggregate {
	agg := &Aggregate{
		Suites: make([]SuiteAggregate, 0, len(suites)),
		index:  make(map[*resulttree.Suite]int, len(suites)),
	}

	for _, suite := range suites {
		if !f.IncludeSuite(suite) {
			continue
		}

		sa := SuiteAggregate{Suite: suite}
		sa.Duration, sa.Timed = suite.Duration()
		sa.Duration = sa.Duration.Truncate(time.Microsecond)

		if sa.Timed && suite.State.Finished() {
			agg.Total += sa.Duration
		}

		for _, sc := range suite.AllScenarios() {
			if sc.IsTemplated() {
				continue
			}

			for _, step := range sc.AllSteps() {
				sa.Tests++

				if step.State == resulttree.StateFailed {
					sa.Errors++
				}
			}
		}

		agg.index[suite] = len(agg.Suites)
		agg.Suites = append(agg.Suites, sa)
	}

	return agg
}

// StepTime returns the step duration in seconds, or "" if it was not timed.
func StepTime(step *resulttree.Step) string {
	d, ok := step.Duration()

	return formatOptionalSeconds(d, ok)
}

// FormatSeconds renders d as fractional seconds with microsecond resolution.
// The result always carries a decimal point: 0.0, 1.5, 2.000123.
func FormatSeconds(d time.Duration) string {
	micros := int64(d / time.Microsecond)
	s := strconv.FormatFloat(float64(micros)/1e6, 'f', -1, 64)

	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}

func formatOptionalSeconds(d time.Duration, ok bool) string {
	if !ok {
		return ""
	}

	return FormatSeconds(d)
}
