package ir

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Separator joins the parts of an instruction name.
const Separator = "_"

// Wildcard is the marker accepted by ExecuteOne patterns.
const Wildcard = "*"

var (
	nonNameChars  = regexp.MustCompile(`[^a-z0-9_]+`)
	versionSuffix = regexp.MustCompile(`_\d+$`)
)

// Prefix derives the instruction prefix from an owner display name.
//
// Only ASCII A-Z is lowercased. Every run of characters outside [a-z0-9_],
// including all non-ASCII text, collapses to a single "_", and
// leading/trailing "_" are trimmed. No Unicode case mapping or
// normalization is applied, so a non-ASCII letter never turns into an
// ASCII one.
//
//	Prefix("My Cool Plugin!!") == "my_cool_plugin"
func Prefix(displayName string) string {
	s := nonNameChars.ReplaceAllString(asciiLower(displayName), Separator)
	return strings.Trim(s, Separator)
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// HasVersionSuffix reports whether name ends in "_<digits>".
// This is a cheap prefilter only. NamePattern.Match is authoritative.
func HasVersionSuffix(name string) bool {
	return versionSuffix.MatchString(name)
}

// NamePattern matches instruction names belonging to one owner prefix.
//
// The accepted form is "<anything><prefix>[_<anything>]_ri_<version>".
// The left side is unanchored, so names carrying an extra leading namespace
// still match, as do names with a qualifier between prefix and "_ri_".
type NamePattern struct {
	prefix string
	re     *regexp.Regexp
}

// NewNamePattern compiles the pattern for prefix.
func NewNamePattern(prefix string) NamePattern {
	expr := `^.*` + regexp.QuoteMeta(prefix) + `(?:_.*)?_ri_(?P<version>\d+)$`
	return NamePattern{prefix: prefix, re: regexp.MustCompile(expr)}
}

// Prefix returns the owner prefix the pattern was built from.
func (p NamePattern) Prefix() string {
	return p.prefix
}

// Match reports whether name belongs to the pattern and returns the embedded
// version. Names whose version does not fit an int64 never match.
func (p NamePattern) Match(name string) (int64, bool) {
	if p.re == nil || p.prefix == "" {
		return 0, false
	}
	m := p.re.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseInt(m[p.re.SubexpIndex("version")], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IsWildcard reports whether pattern contains the wildcard marker.
func IsWildcard(pattern string) bool {
	return strings.Contains(pattern, Wildcard)
}

// CompileWildcard turns a user pattern into a fully anchored regexp where
// every "*" means "zero or more characters". Other characters are literal.
func CompileWildcard(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, Wildcard)
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	re, err := regexp.Compile(`^` + strings.Join(parts, `.*`) + `$`)
	if err != nil {
		return nil, fmt.Errorf("compile wildcard %q: %w", pattern, err)
	}
	return re, nil
}
