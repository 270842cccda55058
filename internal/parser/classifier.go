package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// state is the working set for a single Parse call
type state struct {
	bpm  *int
	key  *string
	name []string
}

// TokenClassifier claims tokens for one metadata field. Classify looks at
// tokens[i] (and may look ahead) and returns how many tokens it consumed;
// zero means the token is not its concern.
type TokenClassifier interface {
	Classify(tokens []string, i int, st *state) int
}

var bpmPattern = regexp.MustCompile(`(?i)^(\d{2,3})(bpm)?$`)

// BPMClassifier accepts "120", "120bpm" and "120 bpm" within [Min, Max].
// Only the first match is recorded.
type BPMClassifier struct {
	Min, Max int
}

func (c BPMClassifier) Classify(tokens []string, i int, st *state) int {
	if st.bpm != nil {
		return 0
	}
	m := bpmPattern.FindStringSubmatch(tokens[i])
	if m == nil {
		return 0
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v < c.Min || v > c.Max {
		return 0
	}
	st.bpm = &v
	if m[2] == "" && i+1 < len(tokens) && strings.EqualFold(tokens[i+1], "bpm") {
		return 2
	}
	return 1
}

// KeyClassifier accepts note names with an optional accidental and quality.
// A bare note followed by a quality word ("C minor") consumes both tokens.
// Lowercase "a" or "am" on their own are left to the name.
type KeyClassifier struct{}

func (KeyClassifier) Classify(tokens []string, i int, st *state) int {
	if st.key != nil {
		return 0
	}
	key, hasQuality, ok := matchKey(tokens[i])
	if !ok {
		return 0
	}
	qualityNext := !hasQuality && i+1 < len(tokens) && isQualityWord(tokens[i+1])
	if ambiguousKey(tokens[i]) && !qualityNext {
		return 0
	}
	consumed := 1
	if qualityNext {
		q, _ := quality(tokens[i+1])
		key = key[:strings.IndexByte(key, ' ')] + " " + q
		consumed = 2
	}
	st.key = &key
	return consumed
}

// NameFallback takes anything left over
type NameFallback struct{}

func (NameFallback) Classify(tokens []string, i int, st *state) int {
	st.name = append(st.name, tokens[i])
	return 1
}
