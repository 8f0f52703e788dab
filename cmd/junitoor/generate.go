package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/docker/go-units"
	"github.com/ethpandaops/junitoor/pkg/config"
	"github.com/ethpandaops/junitoor/pkg/fsutil"
	"github.com/ethpandaops/junitoor/pkg/junit"
	"github.com/ethpandaops/junitoor/pkg/resulttree"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a JUnit XML report from a result tree",
	Long: `Read the result tree dumped by a finished run (JSON or YAML) and write
a JUnit XML report. Optionally upload the report to S3 and record it in the
report index.`,
	RunE: runGenerate,
}

var (
	genInput        string
	genOutput       string
	genOwner        string
	genMarker       string
	genSummary      string
	genScenarioIDs  []int
	genFeatureTags  []string
	genScenarioTags []string
	genUpload       bool
	genIndex        bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	flags := generateCmd.Flags()
	flags.StringVar(&genInput, "input", "", "Path to the result tree file (.json, .yaml)")
	flags.StringVar(&genOutput, "output", "", "Report output path (default from config or junit.xml)")
	flags.StringVar(&genOwner, "owner", "", "UID:GID owner for the written report")
	flags.StringVar(&genMarker, "marker", "", "Run marker (default from the result tree, else random)")
	flags.StringVar(&genSummary, "summary", "", "Also write the report summary as JSON to this path")
	flags.IntSliceVar(&genScenarioIDs, "scenarios", nil, "Only report these suite/scenario IDs")
	flags.StringSliceVar(&genFeatureTags, "feature-tags", nil, "Only report suites with these tags")
	flags.StringSliceVar(&genScenarioTags, "scenario-tags", nil, "Only report scenarios with these tags")
	flags.BoolVar(&genUpload, "upload", false, "Upload the report to S3 (requires upload.s3 config)")
	flags.BoolVar(&genIndex, "index", false, "Record the report in the report index")

	if err := generateCmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	applyGenerateFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	owner, err := fsutil.ParseOwner(cfg.Report.Owner)
	if err != nil {
		return fmt.Errorf("parsing owner: %w", err)
	}

	run, err := resulttree.Load(genInput)
	if err != nil {
		return err
	}

	marker := genMarker
	if marker == "" {
		marker = run.Marker
	}

	log.WithFields(logrus.Fields{
		"input":  genInput,
		"suites": len(run.Suites),
	}).Info("Generating JUnit XML report")

	summary, err := junit.Generate(run.Suites, junit.Options{
		Output:   cfg.Report.Output,
		Criteria: cfg.Selection,
		Owner:    owner,
		Marker:   marker,
	})
	if errors.Is(err, junit.ErrNoSuites) {
		return fmt.Errorf("result tree %s has no suites: %w", genInput, err)
	}

	if err != nil {
		return fmt.Errorf("generating report: %w", err)
	}

	log.WithFields(logrus.Fields{
		"output": summary.Path,
		"marker": summary.Marker,
		"suites": len(summary.Suites),
		"tests":  summary.Tests,
		"errors": summary.Errors,
		"time":   summary.Duration,
		"size":   units.HumanSize(float64(summary.Bytes)),
	}).Info("Report written")

	if genSummary != "" {
		if err := writeSummary(genSummary, summary, owner); err != nil {
			return err
		}
	}

	return publish(cmd.Context(), cfg, summary)
}

// applyGenerateFlags overrides config values with the flags that were set.
func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("output") {
		cfg.Report.Output = genOutput
	}

	if flags.Changed("owner") {
		cfg.Report.Owner = genOwner
	}

	if flags.Changed("scenarios") {
		cfg.Selection.IDs = genScenarioIDs
	}

	if flags.Changed("feature-tags") {
		cfg.Selection.SuiteTags = genFeatureTags
	}

	if flags.Changed("scenario-tags") {
		cfg.Selection.ScenarioTags = genScenarioTags
	}

	if flags.Changed("upload") {
		cfg.Upload.S3.Enabled = genUpload
	}

	if flags.Changed("index") {
		cfg.Index.Enabled = genIndex
	}
}

func writeSummary(path string, summary *junit.Summary, owner *fsutil.OwnerConfig) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}

	f, err := fsutil.Create(path, 0o644, owner)
	if err != nil {
		return fmt.Errorf("creating summary file: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()

		return fmt.Errorf("writing summary file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing summary file: %w", err)
	}

	log.WithField("path", path).Info("Summary written")

	return nil
}
