package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kmurray/spotreel/internal/ffmpeg"
	"github.com/kmurray/spotreel/internal/project"
	"github.com/kmurray/spotreel/internal/proxy"
	"github.com/kmurray/spotreel/internal/segment"
	"github.com/kmurray/spotreel/internal/spotlight"
)

// fakeTool implements every collaborator interface, recording the order of
// operations and writing marker files in place of real encodes
type fakeTool struct {
	ops      []string
	failOn   string
	concats  [][]string
	slateGen int
}

func (f *fakeTool) step(op string) error {
	f.ops = append(f.ops, op)
	if f.failOn == op {
		return &ffmpeg.ToolError{Op: op, Stderr: "synthetic stderr", Err: errors.New("exit status 1")}
	}
	return nil
}

func (f *fakeTool) Ensure(ctx context.Context, source, proxyPath string) error {
	if strings.Contains(source, "missing") {
		return fmt.Errorf("%w: %s", proxy.ErrMissingSource, source)
	}
	return f.step("ensure:" + filepath.Base(source))
}

func (f *fakeTool) Probe(ctx context.Context, path string) (*ffmpeg.VideoInfo, error) {
	if err := f.step("probe"); err != nil {
		return nil, err
	}
	return &ffmpeg.VideoInfo{
		FilePath: path,
		Width:    1280,
		Height:   720,
		FPS:      30,
		NBFrames: 300,
		Duration: 10 * time.Second,
	}, nil
}

func (f *fakeTool) Still(ctx context.Context, proxyPath string, frameIndex int, marker spotlight.Marker, radius int, outPath string) error {
	if err := f.step("still"); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte("still"), 0644)
}

func (f *fakeTool) Build(ctx context.Context, info *ffmpeg.VideoInfo, plan segment.Plan, stillPath, dir, baseName string) ([]string, error) {
	if err := f.step("segments:" + baseName); err != nil {
		return nil, err
	}
	var out []string
	names := []string{".pre.mp4", ".still.mp4", ".post.mp4"}
	if !plan.HasPre() {
		names = names[1:]
	}
	for _, n := range names {
		p := filepath.Join(dir, baseName+n)
		if err := os.WriteFile(p, []byte(baseName+n+"|"), 0644); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeTool) Concat(ctx context.Context, inputs []string, output string) error {
	if err := f.step("concat:" + filepath.Base(output)); err != nil {
		return err
	}
	f.concats = append(f.concats, append([]string(nil), inputs...))

	var joined []byte
	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		joined = append(joined, data...)
	}
	return os.WriteFile(output, joined, 0644)
}

func (f *fakeTool) Generate(ctx context.Context, p *project.Project, width, height int, fps float64, output string) error {
	f.slateGen++
	if err := f.step("slate"); err != nil {
		return err
	}
	return os.WriteFile(output, []byte("slate|"), 0644)
}

func testProject(slateOn bool, sources ...string) *project.Project {
	p := &project.Project{Title: "Test", Slate: slateOn}
	for _, s := range sources {
		spot := 5.0
		p.Clips = append(p.Clips, project.Clip{
			Source:   s,
			MarkerX:  640,
			MarkerY:  360,
			Radius:   72,
			SpotTime: &spot,
		})
	}
	return p
}

func newTestAssembler(t *testing.T, tool *fakeTool) (*Assembler, string) {
	t.Helper()
	workRoot := t.TempDir()
	a := NewAssembler(zerolog.Nop(), workRoot, filepath.Join(workRoot, "proxies"),
		tool, tool, tool, tool, tool, tool)
	return a, workRoot
}

func defaultOpts(t *testing.T) Options {
	return Options{
		OutputPath:       filepath.Join(t.TempDir(), "final.mp4"),
		StillDurationSec: 1.25,
	}
}

func TestRunSingleClipNoSlate(t *testing.T) {
	tool := &fakeTool{}
	a, _ := newTestAssembler(t, tool)
	opts := defaultOpts(t)

	out, err := a.Run(context.Background(), testProject(false, "a.mp4"), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != opts.OutputPath {
		t.Errorf("returned path %q, want %q", out, opts.OutputPath)
	}

	data, err := os.ReadFile(opts.OutputPath)
	if err != nil {
		t.Fatalf("no artifact at output path: %v", err)
	}
	want := "clip000.pre.mp4|clip000.still.mp4|clip000.post.mp4|"
	if string(data) != want {
		t.Errorf("final content = %q, want %q", data, want)
	}

	if tool.slateGen != 0 {
		t.Error("slate generated despite disabled flag")
	}
}

func TestRunClipStateOrder(t *testing.T) {
	tool := &fakeTool{}
	a, _ := newTestAssembler(t, tool)

	_, err := a.Run(context.Background(), testProject(false, "a.mp4", "b.mp4"), defaultOpts(t))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{
		"ensure:a.mp4", "probe", "still", "segments:clip000", "concat:clip000.mp4",
		"ensure:b.mp4", "probe", "still", "segments:clip001", "concat:clip001.mp4",
		"concat:body.mp4",
	}
	if len(tool.ops) != len(want) {
		t.Fatalf("ops = %v", tool.ops)
	}
	for i := range want {
		if tool.ops[i] != want[i] {
			t.Errorf("op %d = %s, want %s", i, tool.ops[i], want[i])
		}
	}
}

func TestRunSlateOrdering(t *testing.T) {
	tool := &fakeTool{}
	a, _ := newTestAssembler(t, tool)
	opts := defaultOpts(t)

	_, err := a.Run(context.Background(), testProject(true, "a.mp4", "b.mp4"), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(opts.OutputPath)
	if err != nil {
		t.Fatal(err)
	}

	want := "slate|" +
		"clip000.pre.mp4|clip000.still.mp4|clip000.post.mp4|" +
		"clip001.pre.mp4|clip001.still.mp4|clip001.post.mp4|"
	if string(data) != want {
		t.Errorf("final content = %q, want %q", data, want)
	}

	// Final concat receives exactly [slate, body]
	last := tool.concats[len(tool.concats)-1]
	if len(last) != 2 ||
		filepath.Base(last[0]) != "slate.mp4" ||
		filepath.Base(last[1]) != "body.mp4" {
		t.Errorf("final concat inputs = %v", last)
	}
}

func TestRunMissingSourceAbortsEverything(t *testing.T) {
	tool := &fakeTool{}
	a, _ := newTestAssembler(t, tool)
	opts := defaultOpts(t)

	// Second clip has a missing source; the whole render must fail
	_, err := a.Run(context.Background(), testProject(false, "a.mp4", "missing.mp4"), opts)
	if !errors.Is(err, proxy.ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
	if !strings.Contains(err.Error(), "clip 1") {
		t.Errorf("error does not identify failing clip: %v", err)
	}

	if _, statErr := os.Stat(opts.OutputPath); statErr == nil {
		t.Error("failed render left an artifact at the output path")
	}
}

func TestRunToolFailureSurfacesStderr(t *testing.T) {
	tool := &fakeTool{failOn: "segments:clip000"}
	a, _ := newTestAssembler(t, tool)

	_, err := a.Run(context.Background(), testProject(false, "a.mp4"), defaultOpts(t))
	var toolErr *ffmpeg.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if toolErr.Stderr != "synthetic stderr" {
		t.Errorf("stderr not preserved verbatim: %q", toolErr.Stderr)
	}
}

func TestRunCleansWorkspaceOnSuccess(t *testing.T) {
	tool := &fakeTool{}
	a, workRoot := newTestAssembler(t, tool)

	_, err := a.Run(context.Background(), testProject(false, "a.mp4"), defaultOpts(t))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	entries, err := os.ReadDir(workRoot)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "render-") {
			t.Errorf("working directory %s not cleaned up", e.Name())
		}
	}
}

func TestRunKeepsWorkspaceOnFailure(t *testing.T) {
	tool := &fakeTool{failOn: "concat:body.mp4"}
	a, workRoot := newTestAssembler(t, tool)

	_, err := a.Run(context.Background(), testProject(false, "a.mp4"), defaultOpts(t))
	if err == nil {
		t.Fatal("expected failure")
	}

	// Intermediates stay for inspection after a mid-pipeline failure
	found := false
	entries, _ := os.ReadDir(workRoot)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "render-") {
			found = true
		}
	}
	if !found {
		t.Error("working directory removed despite failure")
	}
}

func TestRunKeepIntermediatesFlag(t *testing.T) {
	tool := &fakeTool{}
	a, workRoot := newTestAssembler(t, tool)
	opts := defaultOpts(t)
	opts.KeepIntermediates = true

	_, err := a.Run(context.Background(), testProject(false, "a.mp4"), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	found := false
	entries, _ := os.ReadDir(workRoot)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "render-") {
			found = true
		}
	}
	if !found {
		t.Error("intermediates removed despite retention request")
	}
}

func TestRunRejectsMissingOutputPath(t *testing.T) {
	tool := &fakeTool{}
	a, _ := newTestAssembler(t, tool)

	_, err := a.Run(context.Background(), testProject(false, "a.mp4"), Options{StillDurationSec: 1.25})
	if err == nil {
		t.Error("expected error for empty output path")
	}
}

func TestClipStateString(t *testing.T) {
	states := map[ClipState]string{
		StateNeedsProxy:    "needs_proxy",
		StateProxyReady:    "proxy_ready",
		StateSegmentsBuilt: "segments_built",
		StateClipAssembled: "clip_assembled",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("%d.String() = %s, want %s", s, s.String(), want)
		}
	}
}
