// Package extmatch matches file names against shell-style extension filters.
//
// Patterns follow fnmatch(3) without FNM_PATHNAME, applied to the base name of
// a file rather than its full path:
//   - * matches any run of characters
//   - ? matches exactly one character
//   - [...] matches one character from the set
//   - \ escapes the next character
//
// The filters "*" and "*.*" are treated as match-all, mirroring the convention
// of directory listing APIs. Matching is case-insensitive, so "*.txt" also
// selects "NOTES.TXT".
package extmatch

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Match reports whether the file name matches the filter pattern.
func Match(pattern, name string) (bool, error) {
	if isMatchAll(pattern) {
		return true, nil
	}

	re, err := compile(pattern)
	if err != nil {
		return false, err
	}

	return re.MatchString(name), nil
}

// Matcher pre-compiles filter patterns for reuse across a directory walk.
type Matcher struct {
	patterns []*regexp.Regexp
	matchAll bool
}

// NewMatcher compiles the given filter patterns into a reusable matcher.
// An empty pattern list matches everything.
func NewMatcher(patterns []string) (*Matcher, error) {
	matcher := &Matcher{}

	if len(patterns) == 0 {
		matcher.matchAll = true

		return matcher, nil
	}

	for _, p := range patterns {
		if isMatchAll(p) {
			matcher.matchAll = true

			continue
		}

		re, err := compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}

		matcher.patterns = append(matcher.patterns, re)
	}

	return matcher, nil
}

// Match reports whether the file name passes the filter.
func (m *Matcher) Match(name string) bool {
	if m.matchAll {
		return true
	}

	for _, re := range m.patterns {
		if re.MatchString(name) {
			return true
		}
	}

	return false
}

// isMatchAll reports whether the pattern selects every file name.
func isMatchAll(pattern string) bool {
	return pattern == "" || pattern == "*" || pattern == "*.*"
}

var cache sync.Map //nolint:gochecknoglobals // package-level cache is appropriate for compiled regexps

// compile converts a filter glob to a compiled regexp, caching the result.
func compile(pattern string) (*regexp.Regexp, error) {
	if v, ok := cache.Load(pattern); ok {
		cached, _ := v.(*regexp.Regexp) //nolint:errcheck // type is guaranteed by cache.Store below

		return cached, nil
	}

	re, err := toRegexp(pattern)
	if err != nil {
		return nil, err
	}

	compiled, err := regexp.Compile(re)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}

	cache.Store(pattern, compiled)

	return compiled, nil
}

// toRegexp converts a filter glob to an anchored, case-insensitive regex string.
func toRegexp(pattern string) (string, error) {
	var buf strings.Builder

	buf.WriteString("(?i)^")

	pos := 0
	for pos < len(pattern) {
		switch pattern[pos] {
		case '*':
			buf.WriteString(".*")

			pos++

		case '?':
			buf.WriteString(".")

			pos++

		case '[':
			end, err := findClosingBracket(pattern, pos)
			if err != nil {
				return "", err
			}

			class := pattern[pos : end+1]
			// Convert [!...] to [^...] for regex negation
			if len(class) > 2 && class[1] == '!' {
				class = "[^" + class[2:]
			}

			buf.WriteString(class)

			pos = end + 1

		case '\\':
			if pos+1 >= len(pattern) {
				return "", fmt.Errorf("trailing backslash in pattern %q", pattern)
			}

			buf.WriteString(regexp.QuoteMeta(string(pattern[pos+1])))

			pos += 2

		default:
			buf.WriteString(regexp.QuoteMeta(string(pattern[pos])))

			pos++
		}
	}

	buf.WriteString("$")

	return buf.String(), nil
}

// findClosingBracket finds the index of the closing ] for a character class starting at pos.
func findClosingBracket(pattern string, pos int) (int, error) {
	idx := pos + 1

	// Skip leading ! (negation)
	if idx < len(pattern) && pattern[idx] == '!' {
		idx++
	}

	// Skip leading ] (literal)
	if idx < len(pattern) && pattern[idx] == ']' {
		idx++
	}

	for idx < len(pattern) {
		if pattern[idx] == ']' {
			return idx, nil
		}

		idx++
	}

	return 0, fmt.Errorf("unclosed character class in pattern %q", pattern)
}
