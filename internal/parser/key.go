package parser

import (
	"regexp"
	"strings"
)

// keyPattern splits a key-shaped token into letter, accidental and quality.
var keyPattern = regexp.MustCompile(`^([A-Ga-g])([#b]?)([A-Za-z]*)$`)

const (
	qualityMinor = "minor"
	qualityMajor = "major"
)

// quality maps a suffix to "minor" or "major". "M" alone is major, every
// other suffix is matched case-insensitively.
func quality(suffix string) (string, bool) {
	if suffix == "M" {
		return qualityMajor, true
	}
	switch strings.ToLower(suffix) {
	case "m", "min", "minor":
		return qualityMinor, true
	case "maj", "major":
		return qualityMajor, true
	}
	return "", false
}

// isQualityWord reports whether tok is a standalone quality word that may
// follow a bare note letter, e.g. the "minor" in "C minor".
func isQualityWord(tok string) bool {
	switch strings.ToLower(tok) {
	case "min", "minor", "maj", "major":
		return true
	}
	return false
}

// matchKey parses a single token. hasQuality is false when the token carried
// no suffix and the quality was defaulted to minor.
func matchKey(tok string) (key string, hasQuality bool, ok bool) {
	m := keyPattern.FindStringSubmatch(tok)
	if m == nil {
		return "", false, false
	}
	q := qualityMinor
	if m[3] != "" {
		var known bool
		q, known = quality(m[3])
		if !known {
			return "", false, false
		}
		hasQuality = true
	}
	return strings.ToUpper(m[1]) + m[2] + " " + q, hasQuality, true
}

// ambiguousKey reports whether tok is a lowercase note with no accidental
// and at most an "m" suffix. Such tokens are usually words ("a", "am"), so the
// filename scan only takes them as keys when a quality word follows.
func ambiguousKey(tok string) bool {
	if tok == "" || tok[0] < 'a' || tok[0] > 'g' {
		return false
	}
	return tok[1:] == "" || tok[1:] == "m"
}

// NormalizeKey returns the canonical "<Letter><accidental> <minor|major>"
// form of a key string. It accepts the forms found in filenames as well as
// its own output, so NormalizeKey(NormalizeKey(k)) == NormalizeKey(k).
func NormalizeKey(s string) (string, bool) {
	fields := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(s))
	switch len(fields) {
	case 1:
		key, _, ok := matchKey(fields[0])
		return key, ok
	case 2:
		key, hasQuality, ok := matchKey(fields[0])
		if !ok || hasQuality || !isQualityWord(fields[1]) {
			return "", false
		}
		q, _ := quality(fields[1])
		return key[:strings.IndexByte(key, ' ')] + " " + q, true
	}
	return "", false
}
