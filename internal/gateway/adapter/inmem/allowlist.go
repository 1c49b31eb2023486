package inmem

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// AllowList holds origin patterns in memory. Patterns use SQL LIKE syntax.
type AllowList struct {
	mu       sync.RWMutex
	patterns []string
}

// NewAllowList creates an allow list holding patterns.
func NewAllowList(patterns ...string) *AllowList {
	return &AllowList{patterns: slices.Clone(patterns)}
}

// Add appends pattern unless it is already present.
func (a *AllowList) Add(pattern string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !slices.Contains(a.patterns, pattern) {
		a.patterns = append(a.patterns, pattern)
	}
}

// Allowed reports whether origin matches any pattern.
func (a *AllowList) Allowed(_ context.Context, origin string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, p := range a.patterns {
		if Like(origin, p) {
			return true, nil
		}
	}
	return false, nil
}

// Like reports whether s matches the SQL LIKE pattern: % matches any run of
// characters, _ matches exactly one, a backslash escapes the next character.
func Like(s, pattern string) bool {
	var b strings.Builder
	b.WriteString("^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile("(?s)" + b.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
