package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Checks for single values taken from paths and form fields. Whole forms go
// through Struct.

const (
	MinPasswordLen = 6
	MaxQty         = 50
)

var reProductID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ID validates a product id as it appears in paths and forms.
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reProductID.MatchString(s)
}

// Qty parses an add-to-cart quantity. Anything unparseable counts as one.
func Qty(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	switch {
	case err != nil || n < 1:
		return 1
	case n > MaxQty:
		return MaxQty
	}
	return n
}

// Password only enforces the minimum length, counted in characters.
func Password(s string) bool {
	return utf8.RuneCountInString(s) >= MinPasswordLen
}
