package ansi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text untouched",
			input:    "AssertionError: expected 1",
			expected: "AssertionError: expected 1",
		},
		{
			name:     "single colour",
			input:    "\x1b[31mred\x1b[0m",
			expected: "red",
		},
		{
			name:     "compound parameters",
			input:    "\x1b[1;31;40mbold red\x1b[0m tail",
			expected: "bold red tail",
		},
		{
			name:     "multi-byte text preserved",
			input:    "\x1b[33mschöne Grüße ✓\x1b[39m",
			expected: "schöne Grüße ✓",
		},
		{
			name:     "non-sgr escape preserved",
			input:    "\x1b[2Kline\x1b[1A",
			expected: "\x1b[2Kline\x1b[1A",
		},
		{
			name:     "parameterless sgr preserved",
			input:    "\x1b[mreset",
			expected: "\x1b[mreset",
		},
		{
			name:     "malformed sequences preserved",
			input:    "\x1b[31;m \x1b[;1m [31m",
			expected: "\x1b[31;m \x1b[;1m [31m",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Strip(tt.input))
		})
	}
}

func TestStrip_Idempotent(t *testing.T) {
	inputs := []string{
		"\x1b[31mfailed\x1b[0m",
		"\x1b[1m\x1b[31mnested\x1b[0m\x1b[0m",
		"\x1b[\x1b[31m31m",
		"Traceback (most recent call last):\n  \x1b[33mFile \"steps.py\"\x1b[0m",
	}

	for _, in := range inputs {
		once := Strip(in)
		assert.Equal(t, once, Strip(once), "input %q", in)
		assert.NotRegexp(t, sgrPattern, once)
	}
}
