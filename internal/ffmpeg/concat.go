package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Concat joins video files stream-copy, preserving input order. Inputs must
// already share resolution, frame rate and pixel format; compatibility is
// not checked here.
func (e *Executor) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Int("inputs", len(inputs)).
		Str("output", output).
		Msg("concatenating segments")

	listFile, err := writeConcatList(inputs)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	defer os.Remove(listFile)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
	}

	return e.Run(ctx, RunOptions{Op: "concat", Args: args, Output: output})
}

// writeConcatList generates the temporary file list the concat demuxer
// reads. A half-written list never survives; on failure the temp file is
// removed before returning.
func writeConcatList(inputs []string) (string, error) {
	tmpFile, err := os.CreateTemp("", "spotreel-concat-*.txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	if err := writeConcatEntries(tmpFile, inputs); err != nil {
		os.Remove(tmpFile.Name())
		return "", err
	}

	return tmpFile.Name(), nil
}

func writeConcatEntries(w io.Writer, inputs []string) error {
	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "file '%s'\n", absPath); err != nil {
			return err
		}
	}
	return nil
}
