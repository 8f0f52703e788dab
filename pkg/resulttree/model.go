// Package resulttree holds the result tree of a finished behaviour-driven
// test run: suites (features) made of scenarios made of steps.
//
// The tree is produced by the execution engine and is read-only for every
// consumer in this module.
package resulttree

import (
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of a suite or step.
type State int

const (
	// StateNotRun is the zero value: the node never started.
	StateNotRun State = iota
	StateSkipped
	StatePassed
	StateFailed
)

var stateNames = map[State]string{
	StateNotRun:  "not_run",
	StateSkipped: "skipped",
	StatePassed:  "passed",
	StateFailed:  "failed",
}

// String returns the tree-file name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// Finished reports whether the node ran to a verdict (passed or failed).
func (s State) Finished() bool {
	return s == StatePassed || s == StateFailed
}

// ParseState parses a state name. Matching is case-insensitive and accepts
// both "not_run" and "not-run" spellings.
func ParseState(name string) (State, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")

	for state, n := range stateNames {
		if n == normalized {
			return state, nil
		}
	}

	if normalized == "" || normalized == "untested" {
		return StateNotRun, nil
	}

	return StateNotRun, fmt.Errorf("unknown state %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	state, err := ParseState(string(text))
	if err != nil {
		return err
	}

	*s = state

	return nil
}

// ScenarioKind distinguishes plain scenarios from templated ones.
type ScenarioKind int

const (
	// KindPlain is an ordinary scenario, including each expansion of a
	// templated scenario.
	KindPlain ScenarioKind = iota
	// KindTemplated is an outline or loop; its expansions are reported in
	// its place.
	KindTemplated
)

// String returns "plain" or "templated".
func (k ScenarioKind) String() string {
	if k == KindTemplated {
		return "templated"
	}

	return "plain"
}

// MarshalText implements encoding.TextMarshaler.
func (k ScenarioKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Outline and loop
// scenarios are both templated.
func (k *ScenarioKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "plain", "scenario", "example", "iteration":
		*k = KindPlain
	case "templated", "outline", "scenario_outline", "loop", "scenario_loop":
		*k = KindTemplated
	default:
		return fmt.Errorf("unknown scenario kind %q", string(text))
	}

	return nil
}

// Run is the root of a tree file.
type Run struct {
	Marker string   `json:"marker,omitempty" yaml:"marker,omitempty"`
	Suites []*Suite `json:"suites" yaml:"suites"`
}

// Suite is a top-level grouping of scenarios, a feature.
type Suite struct {
	ID          int         `json:"id" yaml:"id"`
	Path        string      `json:"path" yaml:"path"`
	Description []string    `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string    `json:"tags,omitempty" yaml:"tags,omitempty"`
	State       State       `json:"state" yaml:"state"`
	StartedAt   *time.Time  `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	EndedAt     *time.Time  `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Scenarios   []*Scenario `json:"scenarios" yaml:"scenarios"`
}

// Scenario is an ordered sequence of steps exercising one behaviour.
type Scenario struct {
	ID         int          `json:"id" yaml:"id"`
	Sentence   string       `json:"sentence" yaml:"sentence"`
	Kind       ScenarioKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Tags       []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
	Background []*Step      `json:"background,omitempty" yaml:"background,omitempty"`
	Steps      []*Step      `json:"steps" yaml:"steps"`
	Expansions []*Scenario  `json:"expansions,omitempty" yaml:"expansions,omitempty"`
}

// Step is the smallest executable unit of a scenario.
type Step struct {
	ID        int        `json:"id" yaml:"id"`
	Sentence  string     `json:"sentence" yaml:"sentence"`
	State     State      `json:"state" yaml:"state"`
	StartedAt *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Failure   *Failure   `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// Failure is the detail attached to a failed step.
type Failure struct {
	Reason    string `json:"reason" yaml:"reason"`
	Traceback string `json:"traceback" yaml:"traceback"`
}

// Duration returns end-start. ok is false unless both timestamps are set.
func Duration(start, end *time.Time) (d time.Duration, ok bool) {
	if start == nil || end == nil {
		return 0, false
	}

	return end.Sub(*start), true
}

// Duration returns how long the suite ran, if it was timed.
func (s *Suite) Duration() (time.Duration, bool) {
	return Duration(s.StartedAt, s.EndedAt)
}

// Duration returns how long the step ran, if it was timed.
func (s *Step) Duration() (time.Duration, bool) {
	return Duration(s.StartedAt, s.EndedAt)
}

// AllScenarios returns every scenario of the suite in order, with each
// templated scenario directly followed by its expansions.
func (s *Suite) AllScenarios() []*Scenario {
	all := make([]*Scenario, 0, len(s.Scenarios))

	for _, sc := range s.Scenarios {
		all = append(all, sc)

		if sc.IsTemplated() {
			all = append(all, sc.Expansions...)
		}
	}

	return all
}

// IsTemplated reports whether the scenario is an outline or loop.
func (s *Scenario) IsTemplated() bool {
	return s.Kind == KindTemplated
}

// AllSteps returns the background steps followed by the scenario's own.
func (s *Scenario) AllSteps() []*Step {
	if len(s.Background) == 0 {
		return s.Steps
	}

	all := make([]*Step, 0, len(s.Background)+len(s.Steps))
	all = append(all, s.Background...)

	return append(all, s.Steps...)
}
