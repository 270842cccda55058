package transcode

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/makeasinger/samples/internal/model"
)

const (
	DefaultPreviewMax    = 25 * time.Second
	DefaultLongThreshold = 60 * time.Second
	DefaultOffsetRatio   = 0.15
)

// PlanPreview picks where the preview starts and how long it runs. Short
// sources are previewed whole, long ones skip their intro. The offset never
// pushes the preview past the end of the source, so the duration is always
// min(source, maxDur).
func PlanPreview(source, maxDur, longThreshold time.Duration, offsetRatio float64) (offset, dur time.Duration) {
	if source <= 0 || maxDur <= 0 {
		return 0, 0
	}
	if source <= maxDur {
		return 0, source
	}
	if source > longThreshold {
		offset = time.Duration(math.Round(offsetRatio * float64(source)))
		offset = min(offset, source-maxDur)
		offset = max(offset, 0)
	}
	return offset, maxDur
}

// CutRequest asks for one preview cut starting at Offset
type CutRequest struct {
	Source         string
	SourceDuration time.Duration // 0 when unknown
	Offset         time.Duration
	MaxDuration    time.Duration
	Params         model.CodecParams
	OutputPath     string
}

// Previewer probes sources and cuts previews through the injected Transcoder.
type Previewer struct {
	Transcoder    Transcoder
	Prober        Prober
	Params        model.CodecParams
	MaxDuration   time.Duration
	LongThreshold time.Duration
	OffsetRatio   float64
}

func NewPreviewer(t Transcoder, p Prober, params model.CodecParams, maxDur time.Duration) *Previewer {
	if maxDur <= 0 {
		maxDur = DefaultPreviewMax
	}
	return &Previewer{
		Transcoder:    t,
		Prober:        p,
		Params:        params,
		MaxDuration:   maxDur,
		LongThreshold: DefaultLongThreshold,
		OffsetRatio:   DefaultOffsetRatio,
	}
}

// Cut encodes at most MaxDuration of Source starting at Offset. Failures are
// returned as-is; nothing is retried.
func (p *Previewer) Cut(ctx context.Context, req CutRequest) (*model.PreviewClip, error) {
	if req.MaxDuration <= 0 {
		return nil, fmt.Errorf("invalid max duration %s", req.MaxDuration)
	}
	if req.Offset < 0 {
		return nil, fmt.Errorf("invalid offset %s", req.Offset)
	}
	if err := validParams(req.Params); err != nil {
		return nil, err
	}

	dur := req.MaxDuration
	if req.SourceDuration > 0 {
		if req.Offset >= req.SourceDuration {
			return nil, fmt.Errorf("offset %s is past the end of the source (%s)", req.Offset, req.SourceDuration)
		}
		dur = min(dur, req.SourceDuration-req.Offset)
	}

	out, err := p.Transcoder.Transcode(ctx, Request{
		Source:   req.Source,
		Output:   req.OutputPath,
		Offset:   req.Offset,
		Duration: dur,
		Params:   req.Params,
	})
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(out.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preview: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("preview is empty")
	}

	return &model.PreviewClip{
		Data:     data,
		Offset:   req.Offset,
		Duration: dur,
		Params:   req.Params,
	}, nil
}

// MakePreview probes source, plans the cut and writes the preview into outDir.
// It also returns the probed source duration.
func (p *Previewer) MakePreview(ctx context.Context, source, outDir string) (*model.PreviewClip, time.Duration, error) {
	srcDur, err := p.Prober.Probe(ctx, source)
	if err != nil {
		return nil, 0, fmt.Errorf("probe: %w", err)
	}

	offset, _ := PlanPreview(srcDur, p.MaxDuration, p.LongThreshold, p.OffsetRatio)
	clip, err := p.Cut(ctx, CutRequest{
		Source:         source,
		SourceDuration: srcDur,
		Offset:         offset,
		MaxDuration:    p.MaxDuration,
		Params:         p.Params,
		OutputPath:     filepath.Join(outDir, "preview"+p.Params.Extension),
	})
	if err != nil {
		return nil, srcDur, err
	}
	return clip, srcDur, nil
}
