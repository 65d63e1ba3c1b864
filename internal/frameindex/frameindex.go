// Package frameindex holds the time-to-frame arithmetic the whole pipeline
// depends on. Everything here is pure arithmetic with no I/O. Results are
// only meaningful against constant-frame-rate material.
package frameindex

import "math"

// TimeToFrame converts a timestamp in seconds to a frame index at the given
// rate, rounding to the nearest frame and flooring at zero.
func TimeToFrame(seconds, fps float64) int {
	if seconds <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Round(seconds * fps))
}

// TotalFrames returns the frame count of a clip. An exact probed count wins;
// otherwise the count is derived from duration, which is valid only for
// constant-frame-rate input.
func TotalFrames(probedFrames int64, fps, durationSec float64) int {
	if probedFrames > 0 {
		return int(probedFrames)
	}
	if fps <= 0 || durationSec <= 0 {
		return 0
	}
	return int(math.Round(fps * durationSec))
}

// Clamp restricts n to [lo, hi]
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
