// Package junit turns a result tree into a JUnit XML report.
package junit

import (
	"encoding/xml"
	"strings"
	"unicode/utf8"

	"github.com/ethpandaops/junitoor/pkg/ansi"
	"github.com/ethpandaops/junitoor/pkg/resulttree"
	"github.com/ethpandaops/junitoor/pkg/selection"
)

// Document is the root <testsuites> element of a report.
type Document struct {
	XMLName xml.Name    `xml:"testsuites"`
	Time    string      `xml:"time,attr"`
	Name    string      `xml:"name,attr"`
	Suites  []TestSuite `xml:"testsuite"`
}

// TestSuite is one <testsuite> element, a reported suite.
type TestSuite struct {
	Name   string     `xml:"name,attr"`
	Tests  int        `xml:"tests,attr"`
	Errors int        `xml:"errors,attr"`
	Skips  int        `xml:"skips,attr"`
	Time   string     `xml:"time,attr"`
	Cases  []TestCase `xml:"testcase"`
}

// TestCase is one <testcase> element, a reported step.
type TestCase struct {
	Name      string   `xml:"name,attr"`
	ClassName string   `xml:"classname,attr"`
	Time      string   `xml:"time,attr"`
	Failure   *Failure `xml:"failure,omitempty"`
}

// Failure is the <failure> element of a failed step. Trace is written as
// CDATA, never entity-escaped, so it must only hold XML characters.
type Failure struct {
	Message string `xml:"message,attr"`
	Trace   string `xml:",cdata"`
}

// Build maps the included suites to a Document. Only scenarios accepted by
// f contribute testcases, while the suite counts come from agg.
func Build(suites []*resulttree.Suite, f selection.Filter, agg *Aggregate) *Document {
	doc := &Document{
		Time:   FormatSeconds(agg.Total),
		Suites: make([]TestSuite, 0, len(agg.Suites)),
	}

	for _, suite := range suites {
		sa, ok := agg.For(suite)
		if !ok {
			continue
		}

		if len(doc.Suites) == 0 {
			doc.Name = suite.Path
		}

		doc.Suites = append(doc.Suites, buildSuite(suite, f, sa))
	}

	return doc
}

func buildSuite(suite *resulttree.Suite, f selection.Filter, sa SuiteAggregate) TestSuite {
	ts := TestSuite{
		Name:   suite.Path,
		Tests:  sa.Tests,
		Errors: sa.Errors,
		Skips:  sa.Skips,
		Time:   sa.Time(),
	}

	for _, sc := range suite.AllScenarios() {
		if sc.IsTemplated() || !f.IncludeScenario(suite, sc) {
			continue
		}

		className := suite.Path + "." + sc.Sentence

		for _, step := range sc.AllSteps() {
			ts.Cases = append(ts.Cases, buildCase(step, className))
		}
	}

	return ts
}

func buildCase(step *resulttree.Step, className string) TestCase {
	tc := TestCase{
		Name:      step.Sentence,
		ClassName: className,
		Time:      StepTime(step),
	}

	if step.State == resulttree.StateFailed {
		tc.Failure = &Failure{}

		if step.Failure != nil {
			tc.Failure.Message = step.Failure.Reason
			tc.Failure.Trace = xmlChars(ansi.Strip(step.Failure.Traceback))
		}
	}

	return tc
}

// xmlChars replaces invalid UTF-8 and every rune outside the XML 1.0 Char
// production with U+FFFD, as xml.EscapeText does for attribute values.
// Control sequences left behind by ansi.Strip (ESC[K, ESC[m) end up here.
func xmlChars(text string) string {
	if strings.IndexFunc(text, func(r rune) bool { return !isXMLChar(r) }) < 0 &&
		utf8.ValidString(text) {
		return text
	}

	var b strings.Builder

	b.Grow(len(text))

	// Ranging yields utf8.RuneError for each invalid byte.
	for _, r := range text {
		if !isXMLChar(r) {
			r = utf8.RuneError
		}

		b.WriteRune(r)
	}

	return b.String()
}

func isXMLChar(r rune) bool {
	switch {
	case r == 0x09, r == 0x0A, r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}

	return false
}
