package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/opentransittools/pelias-refine/internal/domain/text"
)

// stopPrefixes are matched against lowercased text; "stop" already covers the rest.
var stopPrefixes = []string{"stop", "stopid", "stop_id", "stop id"}

var (
	separator = regexp.MustCompile(`(?i)\s*&\s*|\s+and\s+`)

	bareNumber      = regexp.MustCompile(`^\d{1,6}$`)
	numberFirst     = regexp.MustCompile(`\b\d{1,6}\s+\w+(?:\s+\w+)*\b`)
	nameThenSuffix  = regexp.MustCompile(`\b\w+(?:\s+\w+)*\s+(st|street|ave|avenue|rd|road|blvd|boulevard|dr|drive|ln|lane|ct|court)\b`)
	directionPrefix = regexp.MustCompile(`^(n|s|e|w|ne|nw|se|sw)\s+\w+(?:\s+\w+)*$`)
)

// Classify maps raw input text to a query type and, for stop and number
// queries, the numeric identifier. Classification is case-insensitive and
// stateless; id is NoID when the type carries none.
func Classify(raw string) (Type, int) {
	q := strings.ToLower(strings.TrimSpace(raw))
	if q == "" {
		return Unknown, NoID
	}

	if isStopRequest(q) {
		return StopRequest, digitsToID(q)
	}

	if n, err := strconv.Atoi(q); err == nil && n > 0 && text.Digits(q) == q {
		return JustANumber, n
	}

	if ok, _, _ := IsIntersection(q); ok {
		return Intersection, NoID
	}

	if IsAddress(q) {
		return StreetAddress, NoID
	}

	return Unknown, NoID
}

func isStopRequest(q string) bool {
	last := q[len(q)-1]
	if last < '0' || last > '9' {
		return false
	}
	for _, p := range stopPrefixes {
		if strings.HasPrefix(q, p) {
			return true
		}
	}
	return false
}

func digitsToID(q string) int {
	d := text.Digits(q)
	if d == "" {
		return NoID
	}
	n, err := strconv.Atoi(d)
	if err != nil {
		return NoID
	}
	return n
}

// IntersectionParts splits q at the first "&" or "and" separator.
// ok is false unless both sides are non-empty after trimming.
func IntersectionParts(q string) (left, right string, ok bool) {
	loc := separator.FindStringIndex(q)
	if loc == nil {
		return "", "", false
	}
	left = strings.TrimSpace(q[:loc[0]])
	right = strings.TrimSpace(q[loc[1]:])
	if left == "" || right == "" {
		return "", "", false
	}
	return left, right, true
}

// IsIntersection reports whether q names two crossing streets.
func IsIntersection(q string) (bool, string, string) {
	lower := strings.ToLower(q)
	if !strings.Contains(lower, " and ") && !strings.Contains(lower, "&") {
		return false, "", ""
	}
	left, right, ok := IntersectionParts(strings.TrimSpace(q))
	return ok, left, right
}

// IsAddress reports whether q looks like a street address: a house number
// followed by street tokens, street tokens followed by a street-type suffix,
// or a directional prefix followed by street tokens. A bare run of up to six
// digits is a stop id, never an address.
func IsAddress(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if bareNumber.MatchString(q) {
		return false
	}
	return numberFirst.MatchString(q) || nameThenSuffix.MatchString(q) || directionPrefix.MatchString(q)
}
