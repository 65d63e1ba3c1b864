// Package slate generates the optional intro segment prepended to the
// assembled clip body.
package slate

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kmurray/spotreel/internal/ffmpeg"
	"github.com/kmurray/spotreel/internal/logging"
	"github.com/kmurray/spotreel/internal/project"
	"github.com/kmurray/spotreel/pkg/util"
)

// Provider supplies a slate video segment for a project
type Provider interface {
	Generate(ctx context.Context, p *project.Project, width, height int, fps float64, output string) error
}

// StillEncoder turns a single image into a video segment
type StillEncoder interface {
	StillToVideo(ctx context.Context, image string, frames int, fps float64, output string, settings ffmpeg.EncodeSettings) error
}

var (
	cardBackground = color.NRGBA{R: 16, G: 22, B: 34, A: 255}
	titleColor     = color.NRGBA{R: 240, G: 240, B: 245, A: 255}
	subtitleColor  = color.NRGBA{R: 150, G: 160, B: 180, A: 255}
)

// Generator renders a single dark title-card slate
type Generator struct {
	logger      zerolog.Logger
	tool        StillEncoder
	durationSec float64
	settings    ffmpeg.EncodeSettings
}

// NewGenerator creates a slate generator
func NewGenerator(logger zerolog.Logger, tool StillEncoder, durationSec float64, settings ffmpeg.EncodeSettings) *Generator {
	return &Generator{
		logger:      logging.WithComponent(logger, "slate"),
		tool:        tool,
		durationSec: durationSec,
		settings:    settings,
	}
}

// Generate renders the title card at the given geometry and encodes it as a
// video segment at output. Title comes from the project; a "subtitle" key in
// the metadata blob is honored, everything else in it is ignored here.
func (g *Generator) Generate(ctx context.Context, p *project.Project, width, height int, fps float64, output string) error {
	card := Card(p, width, height)

	cardPath := output + ".card.png"
	defer util.CleanupFiles(cardPath)

	f, err := os.Create(cardPath)
	if err != nil {
		return fmt.Errorf("creating slate card: %w", err)
	}
	if err := png.Encode(f, card); err != nil {
		f.Close()
		return fmt.Errorf("encoding slate card: %w", err)
	}
	f.Close()

	frames := int(math.Round(g.durationSec * fps))
	if frames < 1 {
		frames = 1
	}

	g.logger.Info().
		Str("title", p.Title).
		Int("frames", frames).
		Msg("generating slate")

	if err := g.tool.StillToVideo(ctx, cardPath, frames, fps, output, g.settings); err != nil {
		return fmt.Errorf("encoding slate segment: %w", err)
	}
	return nil
}

// Card renders the slate image. Pure function of the project metadata and
// geometry.
func Card(p *project.Project, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = cardBackground.R
		img.Pix[i+1] = cardBackground.G
		img.Pix[i+2] = cardBackground.B
		img.Pix[i+3] = cardBackground.A
	}

	title := p.Title
	if title == "" {
		title = "Highlights"
	}

	drawTextCentered(img, title, titleColor, height/2-height/10, height/90)

	if sub, ok := p.Meta["subtitle"].(string); ok && sub != "" {
		drawTextCentered(img, sub, subtitleColor, height/2+height/20, height/160)
	}

	return img
}

// drawTextCentered rasterizes text at basicfont size and scales it up with
// nearest-neighbour so output stays deterministic across platforms.
func drawTextCentered(dst *image.NRGBA, text string, col color.NRGBA, centerY, scale int) {
	if scale < 1 {
		scale = 1
	}

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	if textWidth == 0 {
		return
	}

	small := image.NewNRGBA(image.Rect(0, 0, textWidth, face.Height+face.Descent))
	d := font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)

	w := textWidth * scale
	h := small.Bounds().Dy() * scale
	x := (dst.Bounds().Dx() - w) / 2
	y := centerY - h/2
	target := image.Rect(x, y, x+w, y+h)

	xdraw.NearestNeighbor.Scale(dst, target, small, small.Bounds(), xdraw.Over, nil)
}
