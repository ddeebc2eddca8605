// Package table provides the value semantics of text-encoded reflection
// tables and the sources that supply blocks to the conversion driver.
// The source grammar itself is an external concern; this package only
// interprets individual string tokens.
package table

import (
	"strconv"
	"strings"
)

// IsMissing reports whether the token is one of the explicit
// missing-value markers: '?' (unknown) or '.' (inapplicable).
func IsMissing(tok string) bool {
	return tok == "?" || tok == "."
}

// StripQuotes removes one layer of surrounding single or double quotes.
// Unbalanced or absent quotes leave the token untouched.
func StripQuotes(tok string) string {
	if len(tok) >= 2 {
		if (tok[0] == '\'' || tok[0] == '"') && tok[len(tok)-1] == tok[0] {
			return tok[1 : len(tok)-1]
		}
	}
	return tok
}

// AsInt parses the token as a decimal integer.
func AsInt(tok string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(tok))
}

// AsNumber parses the token as a floating-point number. A trailing
// parenthesized standard uncertainty, as in "12.53(8)", is stripped
// before parsing.
func AsNumber(tok string) (float64, error) {
	s := strings.TrimSpace(tok)
	if i := strings.IndexByte(s, '('); i > 0 && strings.HasSuffix(s, ")") {
		s = s[:i]
	}
	return strconv.ParseFloat(s, 64)
}

// IsNumeric reports whether the token parses as a number.
func IsNumeric(tok string) bool {
	_, err := AsNumber(tok)
	return err == nil
}
