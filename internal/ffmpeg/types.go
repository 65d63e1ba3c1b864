package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	NBFrames   int64 // 0 when the container does not report a frame count
	VideoCodec string
	HasAudio   bool
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame int
	FPS   float64
	Speed string
}

// ProgressFunc is a callback invoked periodically while an operation runs
type ProgressFunc func(*Progress)

// RunOptions configures a single ffmpeg invocation. Output, when set, is
// written via a temp file and renamed into place only on success.
type RunOptions struct {
	Op              string
	Args            []string
	Output          string
	ProgressHandler ProgressFunc
}

// EncodeSettings are the canonical encode parameters shared by every segment
// the pipeline produces. Concatenation without re-encoding relies on all
// segments using identical settings.
type EncodeSettings struct {
	Width  int
	FPS    float64
	CRF    int
	Preset string
}

// Default encode settings
const (
	DefaultCRF         = 23
	DefaultPreset      = "medium"
	DefaultVideoCodec  = "libx264"
	DefaultPixelFormat = "yuv420p"
)

func (s EncodeSettings) crf() int {
	if s.CRF == 0 {
		return DefaultCRF
	}
	return s.CRF
}

func (s EncodeSettings) preset() string {
	if s.Preset == "" {
		return DefaultPreset
	}
	return s.Preset
}
