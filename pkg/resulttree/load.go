package resulttree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a tree file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension. Unknown
// extensions are treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads a tree file written by the execution engine.
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result tree: %w", err)
	}

	run, err := Decode(bytes.NewReader(data), FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("parsing result tree %s: %w", path, err)
	}

	return run, nil
}

// Decode parses a tree from r.
func Decode(r io.Reader, format Format) (*Run, error) {
	var run Run

	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&run); err != nil && err != io.EOF {
			return nil, err
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()

		if err := dec.Decode(&run); err != nil && err != io.EOF {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	if err := run.validate(); err != nil {
		return nil, err
	}

	return &run, nil
}

// validate rejects nil nodes, which the engine never produces but a hand
// edited file can.
func (r *Run) validate() error {
	for i, s := range r.Suites {
		if s == nil {
			return fmt.Errorf("suite %d: empty entry", i)
		}

		for j, sc := range s.Scenarios {
			if err := validateScenario(sc); err != nil {
				return fmt.Errorf("suite %q: scenario %d: %w", s.Path, j, err)
			}
		}
	}

	return nil
}

func validateScenario(sc *Scenario) error {
	if sc == nil {
		return fmt.Errorf("empty entry")
	}

	for k, st := range sc.AllSteps() {
		if st == nil {
			return fmt.Errorf("step %d: empty entry", k)
		}
	}

	for k, ex := range sc.Expansions {
		if err := validateScenario(ex); err != nil {
			return fmt.Errorf("expansion %d: %w", k, err)
		}
	}

	return nil
}
