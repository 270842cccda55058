package parser

import "strings"

type keyword struct {
	match []string
	tag   string
}

// genreKeywords infer a base genre when the caller supplies none. The first
// entry with a matching substring wins.
var genreKeywords = []keyword{
	{match: []string{"drill"}, tag: "drill"},
	{match: []string{"trap"}, tag: "trap"},
	{match: []string{"boom bap", "boombap", "boom_bap"}, tag: "boom bap"},
	{match: []string{"lofi", "lo-fi", "lo fi"}, tag: "lofi"},
	{match: []string{"hip hop", "hiphop", "hip-hop"}, tag: "hip hop"},
	{match: []string{"rnb", "r&b"}, tag: "rnb"},
	{match: []string{"afro"}, tag: "afrobeats"},
	{match: []string{"reggaeton"}, tag: "reggaeton"},
	{match: []string{"house"}, tag: "house"},
	{match: []string{"techno"}, tag: "techno"},
	{match: []string{"dnb", "drum and bass", "jungle"}, tag: "drum and bass"},
	{match: []string{"jazz"}, tag: "jazz"},
	{match: []string{"soul"}, tag: "soul"},
	{match: []string{"ambient"}, tag: "ambient"},
}

// moodKeywords add descriptive tags in table order
var moodKeywords = []keyword{
	{match: []string{"dark"}, tag: "dark"},
	{match: []string{"smooth"}, tag: "smooth"},
	{match: []string{"aggressive", "aggro"}, tag: "aggressive"},
	{match: []string{"chill"}, tag: "chill"},
	{match: []string{"sad"}, tag: "sad"},
	{match: []string{"happy"}, tag: "happy"},
	{match: []string{"melodic", "melody"}, tag: "melodic"},
	{match: []string{"hard"}, tag: "hard"},
	{match: []string{"vintage"}, tag: "vintage"},
	{match: []string{"ethereal", "dreamy"}, tag: "dreamy"},
}

const fallbackTag = "original"

func (k keyword) matches(lower string) bool {
	for _, m := range k.match {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// InferGenre returns the first genre keyword found in the filename, or "".
func InferGenre(filename string) string {
	lower := strings.ToLower(filename)
	for _, k := range genreKeywords {
		if k.matches(lower) {
			return k.tag
		}
	}
	return ""
}

// SynthesizeTags builds the tag list for a file: the genre first, then any
// mood keywords found in the filename, de-duplicated in first-seen order and
// padded with "original" when fewer than two remain.
func SynthesizeTags(filename, genre string) []string {
	lower := strings.ToLower(filename)

	var tags []string
	if g := strings.ToLower(strings.TrimSpace(genre)); g != "" {
		tags = append(tags, g)
	}
	for _, k := range moodKeywords {
		if k.matches(lower) {
			tags = append(tags, k.tag)
		}
	}
	tags = dedupe(tags)
	if len(tags) < 2 {
		tags = append(tags, fallbackTag)
	}
	return tags
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
