package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kmurray/spotreel/internal/logging"
)

// Executor handles all ffmpeg/ffprobe invocations. Exit status is the sole
// success signal; on failure the tool's stderr is preserved verbatim in the
// returned ToolError.
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
	progress    ProgressFunc
}

// New creates a new ffmpeg executor
func New(logger zerolog.Logger, threads int) (*Executor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Executor{
		logger:      logging.WithComponent(logger, "ffmpeg"),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     threads,
	}, nil
}

// OnProgress installs a handler invoked with parsed progress lines for
// every subsequent invocation that does not set its own.
func (e *Executor) OnProgress(fn ProgressFunc) {
	e.progress = fn
}

// ToolError reports a failed external tool invocation. Stderr carries the
// tool's diagnostic output untouched.
type ToolError struct {
	Op     string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed: %v\n%s", e.Op, e.Err, e.Stderr)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Run executes ffmpeg with the given arguments. Output is written to a
// temporary file and renamed into place on success, so a failed invocation
// never leaves behind something that looks like a finished artifact.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	baseArgs := []string{"-y", "-hide_banner", "-loglevel", "info"}
	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", fmt.Sprintf("%d", e.threads))
	}

	args := append(baseArgs, opts.Args...)

	output := opts.Output
	var tmpOutput string
	if output != "" {
		tmpOutput = partialPath(output)
		args = append(args, tmpOutput)
	}

	e.logger.Debug().
		Str("op", opts.Op).
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	handler := opts.ProgressHandler
	if handler == nil {
		handler = e.progress
	}

	var wg sync.WaitGroup
	var captured strings.Builder
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.streamStderr(stderr, &captured, handler)
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if tmpOutput != "" {
			_ = os.Remove(tmpOutput)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ToolError{Op: opts.Op, Args: opts.Args, Stderr: captured.String(), Err: err}
	}

	if tmpOutput != "" {
		if err := os.Rename(tmpOutput, output); err != nil {
			return fmt.Errorf("failed to finalize %s: %w", output, err)
		}
	}

	e.logger.Debug().Str("op", opts.Op).Msg("ffmpeg execution completed")
	return nil
}

// streamStderr tees stderr into the capture buffer, parsing progress lines
// along the way.
func (e *Executor) streamStderr(r io.Reader, captured *strings.Builder, progress ProgressFunc) {
	scanner := bufio.NewScanner(r)
	cur := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()
		captured.WriteString(line)
		captured.WriteByte('\n')
		e.logger.Debug().Str("ffmpeg", line).Msg("tool output")

		if !strings.HasPrefix(line, "frame=") {
			continue
		}
		// Progress lines look like: frame=  120 fps= 60 ... speed=2.1x
		fmt.Sscanf(strings.ReplaceAll(line, "= ", "="), "frame=%d fps=%f", &cur.Frame, &cur.FPS)
		if i := strings.Index(line, "speed="); i >= 0 {
			cur.Speed = strings.TrimSpace(line[i+len("speed="):])
		}
		if progress != nil && cur.Frame > 0 {
			progress(cur)
			cur = &Progress{}
		}
	}
}

// partialPath returns a sibling temp path for in-flight encodes. The suffix
// is placed before the extension so ffmpeg still infers the output format.
func partialPath(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + ".partial" + ext
}
