package listing

import (
	"strings"

	"golang.org/x/text/cases"
)

// Matches reports whether term occurs, ignoring case, in any of fields.
// The empty term matches everything.
func Matches(term string, fields []string) bool {
	if term == "" {
		return true
	}
	fold := cases.Fold()
	needle := fold.String(term)
	for _, field := range fields {
		if strings.Contains(fold.String(field), needle) {
			return true
		}
	}
	return false
}
