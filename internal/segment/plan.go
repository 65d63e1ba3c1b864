// Package segment turns a clip's trim and spot metadata into exact frame
// ranges and materializes the pre/still/post segment files.
package segment

import (
	"errors"
	"fmt"
	"math"

	"github.com/kmurray/spotreel/internal/ffmpeg"
	"github.com/kmurray/spotreel/internal/frameindex"
	"github.com/kmurray/spotreel/internal/project"
)

// ErrDegenerateTrim indicates the trims and spot leave no frames after the
// spot. In strict mode this aborts the render; otherwise a one-frame black
// placeholder stands in for the post segment.
var ErrDegenerateTrim = errors.New("no frames remain after spot")

// Plan is the resolved frame layout for one clip. All indices are inclusive
// and relative to the proxy.
type Plan struct {
	StartFrame  int
	EndFrame    int
	SpotFrame   int // clamped to [StartFrame, EndFrame]; single source of truth
	StillFrames int
	Degenerate  bool // post range was empty; placeholder substituted
}

// HasPre reports whether a pre segment exists. No zero-length segment is
// ever produced when the spot lands on the first usable frame.
func (p Plan) HasPre() bool {
	return p.SpotFrame > p.StartFrame
}

// PreFrames is the frame count of the pre segment (0 when omitted)
func (p Plan) PreFrames() int {
	if !p.HasPre() {
		return 0
	}
	return p.SpotFrame - p.StartFrame
}

// PostFrames is the frame count of the post segment. The degenerate
// placeholder counts as one frame.
func (p Plan) PostFrames() int {
	if p.Degenerate {
		return 1
	}
	return p.EndFrame - p.SpotFrame + 1
}

// TotalFrames is the frame count of the assembled clip output
func (p Plan) TotalFrames() int {
	return p.PreFrames() + p.StillFrames + p.PostFrames()
}

// BuildPlan resolves a clip's trims and spot into frame ranges against its
// proxy. strict turns the degenerate post-range case into an error instead
// of a placeholder.
func BuildPlan(info *ffmpeg.VideoInfo, clip project.Clip, stillDurationSec float64, strict bool) (Plan, error) {
	fps := info.FPS
	if fps <= 0 {
		return Plan{}, fmt.Errorf("proxy %s reports no frame rate", info.FilePath)
	}

	total := frameindex.TotalFrames(info.NBFrames, fps, info.Duration.Seconds())
	if total <= 0 {
		return Plan{}, fmt.Errorf("proxy %s has no frames", info.FilePath)
	}

	startFrame := frameindex.TimeToFrame(clip.StartTrim, fps)
	endFrame := (total - 1) - frameindex.TimeToFrame(clip.EndTrim, fps)

	var spot int
	if clip.SpotFrame != nil {
		spot = *clip.SpotFrame
	} else if clip.SpotTime != nil {
		spot = frameindex.TimeToFrame(*clip.SpotTime, fps)
	}

	// Spot values from the descriptor can land outside the trimmed range.
	// The upper bound applies first so that when the trims cross, the spot
	// resolves to startFrame and trips the degenerate check below no matter
	// how large the stored value is.
	if spot > endFrame {
		spot = endFrame
	}
	resolved := frameindex.Clamp(spot, startFrame, endFrame)

	plan := Plan{
		StartFrame:  startFrame,
		EndFrame:    endFrame,
		SpotFrame:   resolved,
		StillFrames: int(math.Round(stillDurationSec * fps)),
	}

	if endFrame < resolved {
		if strict {
			return Plan{}, fmt.Errorf("%w: spot frame %d, last usable frame %d", ErrDegenerateTrim, resolved, endFrame)
		}
		plan.Degenerate = true
	}

	return plan, nil
}
