package ffmpeg

import (
	"context"
	"fmt"
)

// Transcode rewrites a source clip into canonical form: fixed width with
// aspect-preserving even height, constant frame rate, square pixels, no
// audio. Rotation metadata in the source is ignored so pixel coordinates
// recorded against the output stay valid.
func (e *Executor) Transcode(ctx context.Context, input, output string, settings EncodeSettings) error {
	if input == "" || output == "" {
		return fmt.Errorf("input and output paths are required")
	}

	vf := NewFilterBuilder().
		ScaleWidth(settings.Width).
		FPS(settings.FPS).
		SquarePixels().
		Format(DefaultPixelFormat).
		Build()

	args := []string{
		"-noautorotate",
		"-i", input,
		"-vf", vf,
		"-an",
		"-c:v", DefaultVideoCodec,
		"-crf", fmt.Sprintf("%d", settings.crf()),
		"-preset", settings.preset(),
	}

	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Msg("transcoding to canonical form")

	return e.Run(ctx, RunOptions{Op: "transcode", Args: args, Output: output})
}

// ExtractFrame decodes exactly one frame, selected by frame number, and
// writes it as a PNG
func (e *Executor) ExtractFrame(ctx context.Context, input string, frameIndex int, output string) error {
	if frameIndex < 0 {
		return fmt.Errorf("frame index cannot be negative: %d", frameIndex)
	}

	vf := NewFilterBuilder().SelectFrame(frameIndex).Build()

	args := []string{
		"-i", input,
		"-vf", vf,
		"-frames:v", "1",
	}

	e.logger.Debug().
		Str("input", input).
		Int("frame", frameIndex).
		Msg("extracting frame")

	return e.Run(ctx, RunOptions{Op: "extract_frame", Args: args, Output: output})
}

// TrimFrames re-encodes the frame range [startFrame, endFrameExcl) at
// canonical settings
func (e *Executor) TrimFrames(ctx context.Context, input string, startFrame, endFrameExcl int, output string, settings EncodeSettings) error {
	if endFrameExcl <= startFrame {
		return fmt.Errorf("empty frame range [%d, %d)", startFrame, endFrameExcl)
	}

	vf := NewFilterBuilder().
		TrimFrames(startFrame, endFrameExcl).
		Format(DefaultPixelFormat).
		SquarePixels().
		Build()

	args := []string{
		"-i", input,
		"-vf", vf,
		"-an",
		"-c:v", DefaultVideoCodec,
		"-crf", fmt.Sprintf("%d", settings.crf()),
		"-preset", settings.preset(),
	}

	e.logger.Debug().
		Str("input", input).
		Int("start_frame", startFrame).
		Int("end_frame", endFrameExcl).
		Msg("trimming frame range")

	return e.Run(ctx, RunOptions{Op: "trim_frames", Args: args, Output: output})
}

// StillToVideo repeats a single image for an exact number of frames at the
// given rate
func (e *Executor) StillToVideo(ctx context.Context, image string, frames int, fps float64, output string, settings EncodeSettings) error {
	if frames <= 0 {
		return fmt.Errorf("frame count must be positive: %d", frames)
	}

	vf := NewFilterBuilder().
		FPS(fps).
		Format(DefaultPixelFormat).
		SquarePixels().
		Build()

	args := []string{
		"-loop", "1",
		"-i", image,
		"-frames:v", fmt.Sprintf("%d", frames),
		"-vf", vf,
		"-an",
		"-c:v", DefaultVideoCodec,
		"-crf", fmt.Sprintf("%d", settings.crf()),
		"-preset", settings.preset(),
	}

	e.logger.Debug().
		Str("image", image).
		Int("frames", frames).
		Msg("encoding still segment")

	return e.Run(ctx, RunOptions{Op: "still_to_video", Args: args, Output: output})
}

// BlackFrame produces a single black frame of the given geometry
func (e *Executor) BlackFrame(ctx context.Context, width, height int, fps float64, output string, settings EncodeSettings) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid geometry %dx%d", width, height)
	}

	args := []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:r=%g", width, height, fps),
		"-frames:v", "1",
		"-an",
		"-c:v", DefaultVideoCodec,
		"-crf", fmt.Sprintf("%d", settings.crf()),
		"-preset", settings.preset(),
		"-pix_fmt", DefaultPixelFormat,
	}

	e.logger.Debug().
		Int("width", width).
		Int("height", height).
		Msg("encoding placeholder frame")

	return e.Run(ctx, RunOptions{Op: "black_frame", Args: args, Output: output})
}
