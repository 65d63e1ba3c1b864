package ffmpeg

import (
	"fmt"
	"strings"
)

// FilterBuilder helps construct ffmpeg video filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// ScaleWidth scales to a fixed width, computing an even height that
// preserves the aspect ratio
func (fb *FilterBuilder) ScaleWidth(width int) *FilterBuilder {
	if width <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:-2", width))
	return fb
}

// FPS resamples to a constant frame rate
func (fb *FilterBuilder) FPS(fps float64) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%g", fps))
	return fb
}

// SquarePixels forces a 1:1 sample aspect ratio
func (fb *FilterBuilder) SquarePixels() *FilterBuilder {
	fb.filters = append(fb.filters, "setsar=1")
	return fb
}

// TrimFrames keeps frames [startFrame, endFrame) and rebases timestamps so
// the output starts at t=0
func (fb *FilterBuilder) TrimFrames(startFrame, endFrame int) *FilterBuilder {
	fb.filters = append(fb.filters,
		fmt.Sprintf("trim=start_frame=%d:end_frame=%d", startFrame, endFrame),
		"setpts=PTS-STARTPTS")
	return fb
}

// SelectFrame keeps exactly the frame with the given index. Selection is by
// frame number, not timestamp, so there is no seek rounding drift.
func (fb *FilterBuilder) SelectFrame(index int) *FilterBuilder {
	fb.filters = append(fb.filters, fmt.Sprintf(`select=eq(n\,%d)`, index))
	return fb
}

// Format forces a pixel format
func (fb *FilterBuilder) Format(pixFmt string) *FilterBuilder {
	if pixFmt == "" {
		return fb
	}
	fb.filters = append(fb.filters, "format="+pixFmt)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}
