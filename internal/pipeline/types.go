package pipeline

import (
	"context"

	"github.com/kmurray/spotreel/internal/ffmpeg"
	"github.com/kmurray/spotreel/internal/segment"
	"github.com/kmurray/spotreel/internal/spotlight"
)

// ClipState tracks a clip through the assembly pipeline. States advance
// strictly in order; a clip never moves backwards or skips ahead.
type ClipState int

const (
	StateNeedsProxy ClipState = iota
	StateProxyReady
	StateSegmentsBuilt
	StateClipAssembled
)

func (s ClipState) String() string {
	switch s {
	case StateNeedsProxy:
		return "needs_proxy"
	case StateProxyReady:
		return "proxy_ready"
	case StateSegmentsBuilt:
		return "segments_built"
	case StateClipAssembled:
		return "clip_assembled"
	default:
		return "unknown"
	}
}

// ProxyEnsurer guarantees a canonical proxy exists for a source clip
type ProxyEnsurer interface {
	Ensure(ctx context.Context, source, proxyPath string) error
}

// Prober reads canonical metadata from a video file
type Prober interface {
	Probe(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
}

// StillMaker produces the composited spotlight still for a clip
type StillMaker interface {
	Still(ctx context.Context, proxyPath string, frameIndex int, marker spotlight.Marker, radius int, outPath string) error
}

// SegmentMaker materializes the ordered segment files for a plan
type SegmentMaker interface {
	Build(ctx context.Context, proxy *ffmpeg.VideoInfo, plan segment.Plan, stillPath, dir, baseName string) ([]string, error)
}

// Concatenator joins compatible video segments preserving order
type Concatenator interface {
	Concat(ctx context.Context, inputs []string, output string) error
}

// Options configures one render invocation
type Options struct {
	OutputPath        string
	StillDurationSec  float64
	KeepIntermediates bool
	StrictDegenerate  bool
}
