package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

// makeTestVideo generates a short synthetic clip with lavfi testsrc
func makeTestVideo(t *testing.T, dir string, seconds int) string {
	t.Helper()
	out := filepath.Join(dir, "source.mp4")
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", fmt.Sprintf("testsrc=duration=%d:size=320x240:rate=25", seconds),
		"-pix_fmt", "yuv420p", out)
	if err := cmd.Run(); err != nil {
		t.Skipf("could not generate test video: %v", err)
	}
	return out
}

func TestExecutorCreation(t *testing.T) {
	skipIfNoFFmpeg(t)

	logger := zerolog.New(os.Stderr)
	e, err := New(logger, 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	if e.ffmpegPath == "" {
		t.Error("ffmpeg path is empty")
	}
	if e.ffprobePath == "" {
		t.Error("ffprobe path is empty")
	}
}

func TestProbeAndTranscode(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	src := makeTestVideo(t, dir, 2)

	logger := zerolog.New(os.Stderr)
	e, err := New(logger, 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	ctx := context.Background()

	info, err := e.Probe(ctx, src)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if info.Width != 320 || info.Height != 240 {
		t.Errorf("expected 320x240, got %dx%d", info.Width, info.Height)
	}

	proxy := filepath.Join(dir, "proxy.mp4")
	settings := EncodeSettings{Width: 160, FPS: 30}
	if err := e.Transcode(ctx, src, proxy, settings); err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}

	pinfo, err := e.Probe(ctx, proxy)
	if err != nil {
		t.Fatalf("Probe of proxy failed: %v", err)
	}
	if pinfo.Width != 160 {
		t.Errorf("proxy width = %d, want 160", pinfo.Width)
	}
	if pinfo.FPS != 30 {
		t.Errorf("proxy fps = %v, want 30", pinfo.FPS)
	}
	if pinfo.HasAudio {
		t.Error("proxy should have no audio stream")
	}
}

func TestTranscodeFailureLeavesNoOutput(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	bad := filepath.Join(dir, "corrupt.mp4")
	if err := os.WriteFile(bad, []byte("not a video"), 0644); err != nil {
		t.Fatal(err)
	}

	logger := zerolog.New(os.Stderr)
	e, err := New(logger, 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	out := filepath.Join(dir, "proxy.mp4")
	err = e.Transcode(context.Background(), bad, out, EncodeSettings{Width: 160, FPS: 30})
	if err == nil {
		t.Fatal("Transcode of corrupt input should fail")
	}

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %T: %v", err, err)
	}

	if _, statErr := os.Stat(out); statErr == nil {
		t.Error("failed transcode left a file at the output path")
	}
}
