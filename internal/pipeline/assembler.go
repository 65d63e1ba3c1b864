// Package pipeline orchestrates the end-to-end assembly of a highlight
// video: proxies, spotlight stills, segments, concatenation, slate.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kmurray/spotreel/internal/logging"
	"github.com/kmurray/spotreel/internal/project"
	"github.com/kmurray/spotreel/internal/proxy"
	"github.com/kmurray/spotreel/internal/segment"
	"github.com/kmurray/spotreel/internal/slate"
	"github.com/kmurray/spotreel/internal/spotlight"
	"github.com/kmurray/spotreel/pkg/util"
)

// Assembler drives the per-clip state machine and produces the final
// artifact. One Assembler invocation owns its working directory exclusively;
// concurrent renders of the same project must be serialized by the caller.
type Assembler struct {
	logger   zerolog.Logger
	workRoot string
	proxyDir string

	proxies  ProxyEnsurer
	prober   Prober
	stills   StillMaker
	segments SegmentMaker
	concat   Concatenator
	slates   slate.Provider
}

// NewAssembler creates an assembler from its collaborators
func NewAssembler(logger zerolog.Logger, workRoot, proxyDir string, proxies ProxyEnsurer, prober Prober, stills StillMaker, segments SegmentMaker, concat Concatenator, slates slate.Provider) *Assembler {
	return &Assembler{
		logger:   logging.WithComponent(logger, "assembler"),
		workRoot: workRoot,
		proxyDir: proxyDir,
		proxies:  proxies,
		prober:   prober,
		stills:   stills,
		segments: segments,
		concat:   concat,
		slates:   slates,
	}
}

// Run renders a project to opts.OutputPath. On success exactly one artifact
// exists at that path; on failure nothing is written there and the working
// directory is left in place for inspection.
func (a *Assembler) Run(ctx context.Context, p *project.Project, opts Options) (string, error) {
	if opts.OutputPath == "" {
		return "", fmt.Errorf("output path is required")
	}
	if err := p.Validate(); err != nil {
		return "", err
	}

	// Workspace scoped to this invocation; never shared between renders
	workDir := filepath.Join(a.workRoot, "render-"+uuid.NewString()[:8])
	if err := util.EnsureDir(workDir); err != nil {
		return "", fmt.Errorf("creating working directory: %w", err)
	}

	a.logger.Info().
		Str("workdir", workDir).
		Int("clips", len(p.Clips)).
		Bool("slate", p.Slate).
		Msg("starting render")

	var clipOutputs []string
	var firstProxy *videoGeometry

	// Clips are processed strictly in project order, one at a time
	for i, clip := range p.Clips {
		out, geo, err := a.assembleClip(ctx, workDir, i, clip, opts)
		if err != nil {
			return "", fmt.Errorf("clip %d (%s): %w", i, clip.Source, err)
		}
		clipOutputs = append(clipOutputs, out)
		if firstProxy == nil {
			firstProxy = geo
		}
	}

	bodyPath := filepath.Join(workDir, "body.mp4")
	if err := a.concat.Concat(ctx, clipOutputs, bodyPath); err != nil {
		return "", fmt.Errorf("concatenating body: %w", err)
	}

	if err := util.EnsureDir(filepath.Dir(opts.OutputPath)); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	if p.Slate {
		slatePath := filepath.Join(workDir, "slate.mp4")
		if err := a.slates.Generate(ctx, p, firstProxy.width, firstProxy.height, firstProxy.fps, slatePath); err != nil {
			return "", fmt.Errorf("generating slate: %w", err)
		}
		if err := a.concat.Concat(ctx, []string{slatePath, bodyPath}, opts.OutputPath); err != nil {
			return "", fmt.Errorf("concatenating final: %w", err)
		}
	} else {
		if err := moveFile(bodyPath, opts.OutputPath); err != nil {
			return "", fmt.Errorf("finalizing output: %w", err)
		}
	}

	// Intermediates are removed only now, after the final artifact exists
	if !opts.KeepIntermediates {
		if err := os.RemoveAll(workDir); err != nil {
			a.logger.Warn().Err(err).Str("workdir", workDir).Msg("failed to remove working directory")
		}
	}

	a.logger.Info().Str("output", opts.OutputPath).Msg("render complete")
	return opts.OutputPath, nil
}

type videoGeometry struct {
	width  int
	height int
	fps    float64
}

// assembleClip advances one clip through the full state machine and returns
// the path of its assembled output
func (a *Assembler) assembleClip(ctx context.Context, workDir string, index int, clip project.Clip, opts Options) (string, *videoGeometry, error) {
	baseName := fmt.Sprintf("clip%03d", index)
	state := StateNeedsProxy
	log := a.logger.With().Int("clip", index).Logger()

	proxyPath := clip.Proxy
	if proxyPath == "" {
		proxyPath = proxy.PathFor(a.proxyDir, clip.Source)
	}

	if err := a.proxies.Ensure(ctx, clip.Source, proxyPath); err != nil {
		return "", nil, err
	}
	state = StateProxyReady
	log.Debug().Stringer("state", state).Str("proxy", proxyPath).Msg("state advanced")

	info, err := a.prober.Probe(ctx, proxyPath)
	if err != nil {
		return "", nil, fmt.Errorf("probing proxy: %w", err)
	}

	plan, err := segment.BuildPlan(info, clip, opts.StillDurationSec, opts.StrictDegenerate)
	if err != nil {
		return "", nil, err
	}

	stillPath := filepath.Join(workDir, baseName+".still.png")
	marker := spotlight.Marker{X: clip.MarkerX, Y: clip.MarkerY}
	if err := a.stills.Still(ctx, proxyPath, plan.SpotFrame, marker, clip.Radius, stillPath); err != nil {
		return "", nil, err
	}

	segments, err := a.segments.Build(ctx, info, plan, stillPath, workDir, baseName)
	if err != nil {
		return "", nil, err
	}
	state = StateSegmentsBuilt
	log.Debug().Stringer("state", state).Int("segments", len(segments)).Msg("state advanced")

	clipOut := filepath.Join(workDir, baseName+".mp4")
	if err := a.concat.Concat(ctx, segments, clipOut); err != nil {
		return "", nil, fmt.Errorf("concatenating clip segments: %w", err)
	}
	state = StateClipAssembled
	log.Debug().Stringer("state", state).Str("output", clipOut).Msg("state advanced")

	return clipOut, &videoGeometry{width: info.Width, height: info.Height, fps: info.FPS}, nil
}

// moveFile moves src to dst, finalizing with a rename so a partial copy is
// never visible at dst
func moveFile(src, dst string) error {
	if err := util.EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// Cross-device fallback
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, dst)
}
