package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		filename     string
		wantName     string
		wantBPM      *int
		wantKey      *string
		wantProducer string
	}{
		{
			name:         "word bpm key with producer tag",
			filename:     "moonshine_138 bmin @looplib.mp3",
			wantName:     "Moonshine",
			wantBPM:      intPtr(138),
			wantKey:      strPtr("B minor"),
			wantProducer: "looplib",
		},
		{
			name:         "plain word",
			filename:     "timeless.mp3",
			wantName:     "Timeless",
			wantProducer: "Samples",
		},
		{
			name:         "bpm suffix and sharp major",
			filename:     "Night-Drive_120bpm_F#maj.wav",
			wantName:     "Night Drive",
			wantBPM:      intPtr(120),
			wantKey:      strPtr("F# major"),
			wantProducer: "Samples",
		},
		{
			name:         "standalone bpm token is consumed",
			filename:     "glass 95 BPM Ebm.flac",
			wantName:     "Glass",
			wantBPM:      intPtr(95),
			wantKey:      strPtr("Eb minor"),
			wantProducer: "Samples",
		},
		{
			name:         "bare note followed by quality word",
			filename:     "velvet_C_major_100.aiff",
			wantName:     "Velvet",
			wantBPM:      intPtr(100),
			wantKey:      strPtr("C major"),
			wantProducer: "Samples",
		},
		{
			name:         "bare note defaults to minor",
			filename:     "haze 88 G.ogg",
			wantName:     "Haze",
			wantBPM:      intPtr(88),
			wantKey:      strPtr("G minor"),
			wantProducer: "Samples",
		},
		{
			name:         "only the first bpm is kept",
			filename:     "loop 140 150.wav",
			wantName:     "Loop 150",
			wantBPM:      intPtr(140),
			wantProducer: "Samples",
		},
		{
			name:         "out of range number is name text",
			filename:     "room 42 Am.wav",
			wantName:     "Room 42",
			wantKey:      strPtr("A minor"),
			wantProducer: "Samples",
		},
		{
			name:         "all tokens classified falls back to first cleaned token",
			filename:     "128_Am.wav",
			wantName:     "128",
			wantBPM:      intPtr(128),
			wantKey:      strPtr("A minor"),
			wantProducer: "Samples",
		},
		{
			name:         "mixed case collapses separators",
			filename:     "SUMMER__vibes--LOOP.M4A",
			wantName:     "Summer Vibes Loop",
			wantProducer: "Samples",
		},
		{
			name:         "empty producer tag uses default",
			filename:     "echo 90 Dm @ .mp3",
			wantName:     "Echo",
			wantBPM:      intPtr(90),
			wantKey:      strPtr("D minor"),
			wantProducer: "Samples",
		},
		{
			name:         "lowercase a and am are words",
			filename:     "i_am_here.wav",
			wantName:     "I Am Here",
			wantProducer: "Samples",
		},
		{
			name:         "leading article is not a key",
			filename:     "a_new_day 90 Fm.wav",
			wantName:     "A New Day",
			wantBPM:      intPtr(90),
			wantKey:      strPtr("F minor"),
			wantProducer: "Samples",
		},
		{
			name:         "lowercase note with quality word",
			filename:     "drift_c_major.wav",
			wantName:     "Drift",
			wantKey:      strPtr("C major"),
			wantProducer: "Samples",
		},
		{
			name:         "nothing left",
			filename:     ".wav",
			wantName:     "Untitled",
			wantProducer: "Samples",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.filename)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantBPM, got.BPM)
			assert.Equal(t, tt.wantKey, got.Key)
			assert.Equal(t, tt.wantProducer, got.Producer)
			assert.NotEmpty(t, got.Tags)
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	a := Parse("dark_trap_140_Cm @prod.wav")
	b := Parse("dark_trap_140_Cm @prod.wav")
	assert.Equal(t, a, b)
}

func TestParseCustomBounds(t *testing.T) {
	p := New(Options{BPMMin: 100, BPMMax: 180})

	got := p.Parse("pad 90 Am.wav")
	assert.Nil(t, got.BPM)
	assert.Equal(t, "Pad 90", got.Name)

	got = p.Parse("pad 170 Am.wav")
	require.NotNil(t, got.BPM)
	assert.Equal(t, 170, *got.BPM)
}

func TestParseWithGenre(t *testing.T) {
	p := New(DefaultOptions())

	got := p.ParseWithGenre("dark_smooth_keys_90_Am.wav", "Soul")
	assert.Equal(t, "soul", got.Genre)
	assert.Equal(t, []string{"soul", "dark", "smooth"}, got.Tags)

	got = p.ParseWithGenre("dark_trap_loop_140.wav", "")
	assert.Equal(t, "trap", got.Genre)
	assert.Equal(t, []string{"trap", "dark"}, got.Tags)

	got = p.ParseWithGenre("keys_90.wav", "")
	assert.Equal(t, "", got.Genre)
	assert.Equal(t, []string{"original"}, got.Tags)

	got = p.ParseWithGenre("keys_90.wav", "house")
	assert.Equal(t, []string{"house", "original"}, got.Tags)
}

func TestSynthesizeTagsDeduplicates(t *testing.T) {
	got := SynthesizeTags("dark_dark_loop.wav", "dark")
	assert.Equal(t, []string{"dark", "original"}, got)
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Cm", "C minor", true},
		{"C min", "C minor", true},
		{"Cminor", "C minor", true},
		{"C minor", "C minor", true},
		{"c", "C minor", true},
		{"CM", "C major", true},
		{"Cmaj", "C major", true},
		{"C major", "C major", true},
		{"f#m", "F# minor", true},
		{"Bb", "Bb minor", true},
		{"Bbmaj", "Bb major", true},
		{"H", "", false},
		{"Cx", "", false},
		{"C minor major", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeKey(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			if ok {
				again, ok2 := NormalizeKey(got)
				assert.True(t, ok2)
				assert.Equal(t, got, again, "normalization must be idempotent")
			}
		})
	}
}
