// Package sanitize cleans text fields read from spreadsheet exports.
package sanitize

import "strings"

// invisible lists characters spreadsheets and editors leave in exported
// text that never belong in an identifier or a SMILES string.
var invisible = strings.NewReplacer(
	"\u200b", "",  // zero-width space
	"\u200c", "",  // zero-width non-joiner
	"\u200d", "",  // zero-width joiner
	"\ufeff", "",  // byte order mark
	"\u00ad", "",  // soft hyphen
	"\u2060", "",  // word joiner
	"\u180e", "",  // Mongolian vowel separator
	"\u00a0", " ", // no-break space
)

// Field removes invisible characters, turns no-break spaces into spaces and
// trims surrounding whitespace including stray carriage returns.
func Field(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(invisible.Replace(s))
}
