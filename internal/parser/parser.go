package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/makeasinger/samples/internal/model"
)

// Options tune the parser. Zero values fall back to DefaultOptions.
type Options struct {
	BPMMin          int
	BPMMax          int
	DefaultProducer string
	Extensions      []string
}

func DefaultOptions() Options {
	return Options{
		BPMMin:          60,
		BPMMax:          200,
		DefaultProducer: "Samples",
		Extensions:      []string{".mp3", ".wav", ".m4a", ".flac", ".aif", ".aiff", ".ogg"},
	}
}

// Parser derives display metadata from free-form sample filenames
type Parser struct {
	opts        Options
	classifiers []TokenClassifier
}

func New(opts Options) *Parser {
	def := DefaultOptions()
	if opts.BPMMin <= 0 {
		opts.BPMMin = def.BPMMin
	}
	if opts.BPMMax <= 0 {
		opts.BPMMax = def.BPMMax
	}
	if opts.DefaultProducer == "" {
		opts.DefaultProducer = def.DefaultProducer
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = def.Extensions
	}
	return &Parser{
		opts: opts,
		classifiers: []TokenClassifier{
			BPMClassifier{Min: opts.BPMMin, Max: opts.BPMMax},
			KeyClassifier{},
			NameFallback{},
		},
	}
}

var defaultParser = New(DefaultOptions())

// Parse runs the default parser
func Parse(filename string) model.ParsedMetadata {
	return defaultParser.Parse(filename)
}

// Parse never fails; the worst case is a best-effort name with no bpm or key.
func (p *Parser) Parse(filename string) model.ParsedMetadata {
	return p.ParseWithGenre(filename, "")
}

var separators = regexp.MustCompile(`[_\-\s]+`)

// ParseWithGenre is Parse with a caller supplied genre. An empty genre is
// inferred from keywords in the filename.
func (p *Parser) ParseWithGenre(filename, genre string) model.ParsedMetadata {
	base := p.stripExtension(filename)

	producer := p.opts.DefaultProducer
	if at := strings.IndexByte(base, '@'); at >= 0 {
		if tag := strings.TrimSpace(base[at+1:]); tag != "" {
			producer = tag
		}
		base = base[:at]
	}

	cleaned := strings.TrimSpace(separators.ReplaceAllString(base, " "))
	tokens := strings.Fields(cleaned)

	st := &state{}
	for i := 0; i < len(tokens); {
		for _, c := range p.classifiers {
			if n := c.Classify(tokens, i, st); n > 0 {
				i += n
				break
			}
		}
	}

	name := titleCase(strings.Join(st.name, " "))
	if name == "" {
		name = fallbackName(cleaned)
	}

	if strings.TrimSpace(genre) == "" {
		genre = InferGenre(filename)
	}

	return model.ParsedMetadata{
		Name:     name,
		BPM:      st.bpm,
		Key:      st.key,
		Genre:    strings.ToLower(strings.TrimSpace(genre)),
		Producer: producer,
		Tags:     SynthesizeTags(filename, genre),
	}
}

func (p *Parser) stripExtension(filename string) string {
	lower := strings.ToLower(filename)
	for _, ext := range p.opts.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return filename[:len(filename)-len(ext)]
		}
	}
	return filename
}

const untitled = "Untitled"

func fallbackName(cleaned string) string {
	if fields := strings.Fields(cleaned); len(fields) > 0 {
		return fields[0]
	}
	return untitled
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
