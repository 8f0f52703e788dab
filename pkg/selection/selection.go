// Package selection decides which suites and scenarios of a result tree
// belong to the current run's reportable subset.
package selection

import (
	"slices"

	"github.com/ethpandaops/junitoor/pkg/resulttree"
)

// Criteria are the active selection criteria of a run. Empty fields place
// no restriction.
type Criteria struct {
	IDs          []int    `yaml:"ids,omitempty" mapstructure:"ids"`
	SuiteTags    []string `yaml:"suite_tags,omitempty" mapstructure:"suite_tags"`
	ScenarioTags []string `yaml:"scenario_tags,omitempty" mapstructure:"scenario_tags"`
}

// IsEmpty reports whether the criteria select everything.
func (c Criteria) IsEmpty() bool {
	return len(c.IDs) == 0 && len(c.SuiteTags) == 0 && len(c.ScenarioTags) == 0
}

// Filter is the inclusion predicate applied to a result tree. Hosts that
// own richer tag semantics can supply their own implementation.
type Filter interface {
	IncludeSuite(suite *resulttree.Suite) bool
	IncludeScenario(suite *resulttree.Suite, scenario *resulttree.Scenario) bool
}

// Compile-time interface check.
var _ Filter = (*criteriaFilter)(nil)

type criteriaFilter struct {
	criteria Criteria
}

// New returns the default Filter for the given criteria.
func New(c Criteria) Filter {
	return &criteriaFilter{criteria: c}
}

// All returns a Filter that includes every node.
func All() Filter {
	return New(Criteria{})
}

// IncludeSuite includes a suite when the criteria match the suite itself or
// any of its plain scenarios.
func (f *criteriaFilter) IncludeSuite(suite *resulttree.Suite) bool {
	if f.criteria.IsEmpty() {
		return true
	}

	if ShouldRun(suite.ID, suite.Tags, suite.Tags, f.criteria) {
		return true
	}

	for _, sc := range suite.AllScenarios() {
		if sc.IsTemplated() {
			continue
		}

		if f.IncludeScenario(suite, sc) {
			return true
		}
	}

	return false
}

// IncludeScenario matches the scenario's ID and tags, with the owning
// suite's tags as the suite-level tags.
func (f *criteriaFilter) IncludeScenario(
	suite *resulttree.Suite, scenario *resulttree.Scenario,
) bool {
	return ShouldRun(scenario.ID, suite.Tags, scenario.Tags, f.criteria)
}

// ShouldRun applies the selection rule to a single node: every non-empty
// criterion must match. IDs match by membership, tag sets by intersection.
func ShouldRun(id int, suiteTags, nodeTags []string, c Criteria) bool {
	if len(c.IDs) > 0 && !slices.Contains(c.IDs, id) {
		return false
	}

	if len(c.SuiteTags) > 0 && !intersects(suiteTags, c.SuiteTags) {
		return false
	}

	if len(c.ScenarioTags) > 0 && !intersects(nodeTags, c.ScenarioTags) {
		return false
	}

	return true
}

func intersects(tags, wanted []string) bool {
	for _, tag := range tags {
		if slices.Contains(wanted, tag) {
			return true
		}
	}

	return false
}
