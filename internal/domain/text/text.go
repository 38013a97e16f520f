// Package text normalizes free-text labels and addresses for comparison.
package text

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type replacement struct {
	re   *regexp.Regexp
	repl string
}

func rule(abbr, full string) replacement {
	// optional trailing period: "St." -> "street"
	return replacement{re: regexp.MustCompile(`\b` + abbr + `\b\.?`), repl: full}
}

// Directions run before street types; "\bn\b" never matches inside "nw".
var abbreviations = []replacement{
	rule("n", "north"),
	rule("s", "south"),
	rule("e", "east"),
	rule("w", "west"),
	rule("nw", "northwest"),
	rule("ne", "northeast"),
	rule("sw", "southwest"),
	rule("se", "southeast"),

	rule("st", "street"),
	rule("ave", "avenue"),
	rule("av", "avenue"),
	rule("aven", "avenue"),
	rule("blvd", "boulevard"),
	rule("rd", "road"),
	rule("dr", "drive"),
	rule("ln", "lane"),
	rule("ct", "court"),
	rule("cir", "circle"),
	rule("hwy", "highway"),
	rule("pl", "place"),
	rule("ter", "terrace"),
	rule("pkwy", "parkway"),
}

var spaces = regexp.MustCompile(`\s+`)

// NormalizeAddress expands directional and street-type abbreviations,
// collapses whitespace and title-cases the result.
//
//	NormalizeAddress("123 SW Main St.") == "123 Southwest Main Street"
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return ""
	}

	for _, r := range abbreviations {
		addr = r.re.ReplaceAllString(addr, r.repl)
	}

	addr = strings.TrimSpace(spaces.ReplaceAllString(addr, " "))

	// Casers are stateful, so one per call.
	return cases.Title(language.Und).String(addr)
}

// JustChars lowercases s and drops spaces, for whitespace-insensitive matching.
func JustChars(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "")
}

// StripSpace removes every whitespace rune from s.
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Digits returns only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Append joins b onto a with sep, unless b is empty or already part of a.
func Append(a, b, sep string) string {
	switch {
	case a == "":
		return b
	case b == "" || strings.Contains(a, b):
		return a
	default:
		return a + sep + b
	}
}

// Append3 is Append applied twice.
func Append3(a, b, c, sep string) string {
	return Append(Append(a, b, sep), c, sep)
}
