// Package ansi removes terminal colour and style sequences from text.
package ansi

import "regexp"

// sgrPattern matches SGR sequences only: ESC [ <digits> (; <digits>)* m.
var sgrPattern = regexp.MustCompile("\x1b\\[[0-9]+(?:;[0-9]+)*m")

// Strip returns text with every SGR escape sequence removed. Any other
// byte, including other escape sequences, is left as is.
//
// Removal is repeated until nothing matches, so sequences that only form
// once an inner one is removed (ESC [ ESC[0m 1m) are removed as well and
// Strip(Strip(s)) == Strip(s) holds for every input.
func Strip(text string) string {
	for {
		out := sgrPattern.ReplaceAllLiteralString(text, "")
		if len(out) == len(text) {
			return out
		}

		text = out
	}
}
