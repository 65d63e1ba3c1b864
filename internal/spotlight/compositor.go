// Package spotlight produces the annotated freeze-frame for a clip: one
// frame extracted by index from the proxy with a ring composited over the
// marked position.
package spotlight

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"

	"github.com/kmurray/spotreel/internal/logging"
	"github.com/kmurray/spotreel/pkg/util"
)

// FrameExtractor pulls a single frame out of a video by frame number
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, input string, frameIndex int, output string) error
}

// Marker is a position in proxy pixel space
type Marker struct {
	X int
	Y int
}

// Compositor builds spotlight stills
type Compositor struct {
	logger zerolog.Logger
	tool   FrameExtractor
}

// NewCompositor creates a spotlight compositor
func NewCompositor(logger zerolog.Logger, tool FrameExtractor) *Compositor {
	return &Compositor{
		logger: logging.WithComponent(logger, "spotlight"),
		tool:   tool,
	}
}

// Still extracts the frame at frameIndex from proxyPath, composites the ring
// centered at marker, and writes the result to outPath as PNG. The same
// inputs always produce byte-identical output.
func (c *Compositor) Still(ctx context.Context, proxyPath string, frameIndex int, marker Marker, radius int, outPath string) error {
	framePath := outPath + ".frame.png"
	defer util.CleanupFiles(framePath)

	if err := c.tool.ExtractFrame(ctx, proxyPath, frameIndex, framePath); err != nil {
		return fmt.Errorf("extracting spot frame %d: %w", frameIndex, err)
	}

	frame, err := loadImage(framePath)
	if err != nil {
		return fmt.Errorf("decoding spot frame: %w", err)
	}

	composited := Composite(frame, marker, radius)

	c.logger.Debug().
		Int("frame", frameIndex).
		Int("x", marker.X).
		Int("y", marker.Y).
		Int("radius", radius).
		Msg("composited spotlight still")

	return writePNG(outPath, composited)
}

// Composite alpha-blends the ring for radius onto frame, centered at marker.
// A ring overhanging the frame edge is clipped, never an error.
func Composite(frame image.Image, marker Marker, radius int) *image.NRGBA {
	bounds := frame.Bounds()
	dst := image.NewNRGBA(bounds)
	xdraw.Draw(dst, bounds, frame, bounds.Min, xdraw.Src)

	ring := Ring(radius)
	side := ring.Bounds().Dx()
	target := image.Rect(
		marker.X-side/2,
		marker.Y-side/2,
		marker.X-side/2+side,
		marker.Y-side/2+side,
	)

	// Draw clips target against dst bounds, which handles edge overflow
	xdraw.Draw(dst, target, ring, ring.Bounds().Min, xdraw.Over)
	return dst
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(f, img); err != nil {
		return fmt.Errorf("encoding still: %w", err)
	}
	return nil
}
