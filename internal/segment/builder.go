package segment

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/kmurray/spotreel/internal/ffmpeg"
	"github.com/kmurray/spotreel/internal/logging"
)

// Encoder materializes segment files at canonical settings
type Encoder interface {
	TrimFrames(ctx context.Context, input string, startFrame, endFrameExcl int, output string, settings ffmpeg.EncodeSettings) error
	StillToVideo(ctx context.Context, image string, frames int, fps float64, output string, settings ffmpeg.EncodeSettings) error
	BlackFrame(ctx context.Context, width, height int, fps float64, output string, settings ffmpeg.EncodeSettings) error
}

// Builder produces the ordered segment files for one clip
type Builder struct {
	logger   zerolog.Logger
	tool     Encoder
	settings ffmpeg.EncodeSettings
}

// NewBuilder creates a segment builder
func NewBuilder(logger zerolog.Logger, tool Encoder, settings ffmpeg.EncodeSettings) *Builder {
	return &Builder{
		logger:   logging.WithComponent(logger, "segment"),
		tool:     tool,
		settings: settings,
	}
}

// Build writes the segments of plan into dir, named after baseName, and
// returns their paths in concatenation order: pre (when present), still,
// post (real or placeholder).
func (b *Builder) Build(ctx context.Context, proxy *ffmpeg.VideoInfo, plan Plan, stillPath, dir, baseName string) ([]string, error) {
	var segments []string

	if plan.HasPre() {
		prePath := filepath.Join(dir, baseName+".pre.mp4")
		if err := b.tool.TrimFrames(ctx, proxy.FilePath, plan.StartFrame, plan.SpotFrame, prePath, b.settings); err != nil {
			return nil, fmt.Errorf("building pre segment: %w", err)
		}
		segments = append(segments, prePath)
	}

	stillSeg := filepath.Join(dir, baseName+".still.mp4")
	if err := b.tool.StillToVideo(ctx, stillPath, plan.StillFrames, proxy.FPS, stillSeg, b.settings); err != nil {
		return nil, fmt.Errorf("building still segment: %w", err)
	}
	segments = append(segments, stillSeg)

	postPath := filepath.Join(dir, baseName+".post.mp4")
	if plan.Degenerate {
		// Near-zero placeholder instead of a hard failure; the warning is
		// the only trace of the malformed trim/spot combination
		b.logger.Warn().
			Str("clip", baseName).
			Int("spot_frame", plan.SpotFrame).
			Int("end_frame", plan.EndFrame).
			Msg("no frames after spot, substituting placeholder")
		if err := b.tool.BlackFrame(ctx, proxy.Width, proxy.Height, proxy.FPS, postPath, b.settings); err != nil {
			return nil, fmt.Errorf("building placeholder segment: %w", err)
		}
	} else {
		if err := b.tool.TrimFrames(ctx, proxy.FilePath, plan.SpotFrame, plan.EndFrame+1, postPath, b.settings); err != nil {
			return nil, fmt.Errorf("building post segment: %w", err)
		}
	}
	segments = append(segments, postPath)

	b.logger.Debug().
		Str("clip", baseName).
		Int("segments", len(segments)).
		Int("frames", plan.TotalFrames()).
		Msg("segments built")

	return segments, nil
}
