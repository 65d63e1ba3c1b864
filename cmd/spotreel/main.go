package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kmurray/spotreel/internal/config"
	"github.com/kmurray/spotreel/internal/ffmpeg"
	"github.com/kmurray/spotreel/internal/logging"
	"github.com/kmurray/spotreel/internal/pipeline"
	"github.com/kmurray/spotreel/internal/project"
	"github.com/kmurray/spotreel/internal/proxy"
	"github.com/kmurray/spotreel/internal/segment"
	"github.com/kmurray/spotreel/internal/slate"
	"github.com/kmurray/spotreel/internal/spotlight"
	"github.com/kmurray/spotreel/pkg/util"
)

var Version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "spotreel",
	Short: "spotreel - spotlight highlight video assembler",
	Long: `spotreel assembles annotated clips into one continuous highlight video:
each clip is trimmed, frozen at a marked moment with a spotlight ring drawn
over a position, and concatenated with its neighbors and an optional slate.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./spotreel.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	renderCmd.Flags().StringP("output", "o", "", "output video path")
	renderCmd.Flags().Bool("keep", false, "keep intermediate segment files")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(proxyCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("spotreel version %s\n", Version)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <project.yaml>",
	Short: "Render a project descriptor into a highlight video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		p, err := project.Load(args[0])
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = filepath.Join(cfg.OutputDir, util.Stem(args[0])+".mp4")
		}
		keep, _ := cmd.Flags().GetBool("keep")

		assembler, cleanup, err := buildAssembler(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		opts := pipeline.Options{
			OutputPath:        output,
			StillDurationSec:  cfg.Still.DurationSec,
			KeepIntermediates: keep || cfg.Render.KeepIntermediates,
			StrictDegenerate:  cfg.Render.StrictDegenerate,
		}

		final, err := assembler.Run(cmd.Context(), p, opts)
		if err != nil {
			return err
		}

		log.Info().Str("output", final).Msg("render complete")
		return nil
	},
}

var proxyCmd = &cobra.Command{
	Use:   "proxy <source video>",
	Short: "Build the canonical proxy for a source clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		tool, err := ffmpeg.New(log.Logger, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}
		tool.OnProgress(func(p *ffmpeg.Progress) {
			log.Debug().Int("frame", p.Frame).Str("speed", p.Speed).Msg("encoding")
		})

		cache, err := openCache(cfg)
		if err != nil {
			return err
		}
		defer cache.Close()

		std := proxy.NewStandardizer(log.Logger, tool, cache, encodeSettings(cfg))
		proxyPath := proxy.PathFor(cfg.ProxyDir, args[0])
		if err := std.Ensure(cmd.Context(), args[0], proxyPath); err != nil {
			return err
		}

		log.Info().Str("proxy", proxyPath).Msg("proxy ready")
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe <video file>",
	Short: "Print canonical metadata for a video file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		tool, err := ffmpeg.New(log.Logger, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		info, err := tool.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", info.FilePath)
		fmt.Printf("  resolution: %dx%d\n", info.Width, info.Height)
		fmt.Printf("  fps:        %.3f\n", info.FPS)
		fmt.Printf("  duration:   %s\n", util.FormatDuration(info.Duration))
		fmt.Printf("  frames:     %d\n", info.NBFrames)
		fmt.Printf("  codec:      %s\n", info.VideoCodec)
		fmt.Printf("  audio:      %v\n", info.HasAudio)
		return nil
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that required external tools are available",
	RunE: func(cmd *cobra.Command, args []string) error {
		ok := true
		for _, tool := range []string{"ffmpeg", "ffprobe"} {
			path, err := exec.LookPath(tool)
			if err != nil {
				fmt.Printf("✗ %s not found in PATH\n", tool)
				ok = false
				continue
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			probe := exec.CommandContext(ctx, path, "-version")
			err = probe.Run()
			cancel()
			if err != nil {
				fmt.Printf("✗ %s found but not runnable: %v\n", tool, err)
				ok = false
				continue
			}
			fmt.Printf("✓ %s (%s)\n", tool, path)
		}

		if !ok {
			return fmt.Errorf("missing required tools")
		}
		return nil
	},
}

func encodeSettings(cfg *config.Config) ffmpeg.EncodeSettings {
	return ffmpeg.EncodeSettings{
		Width:  cfg.Proxy.Width,
		FPS:    cfg.Proxy.FPS,
		CRF:    cfg.Proxy.CRF,
		Preset: cfg.Proxy.Preset,
	}
}

func openCache(cfg *config.Config) (*proxy.Cache, error) {
	if err := util.EnsureDir(filepath.Dir(cfg.CacheDB)); err != nil {
		return nil, err
	}
	return proxy.OpenCache(cfg.CacheDB)
}

// buildAssembler wires the pipeline from configuration. The returned cleanup
// closes the proxy cache.
func buildAssembler(cfg *config.Config) (*pipeline.Assembler, func(), error) {
	tool, err := ffmpeg.New(log.Logger, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, nil, err
	}
	tool.OnProgress(func(p *ffmpeg.Progress) {
		log.Debug().
			Int("frame", p.Frame).
			Float64("fps", p.FPS).
			Str("speed", p.Speed).
			Msg("encoding")
	})

	cache, err := openCache(cfg)
	if err != nil {
		return nil, nil, err
	}

	settings := encodeSettings(cfg)
	std := proxy.NewStandardizer(log.Logger, tool, cache, settings)
	stills := spotlight.NewCompositor(log.Logger, tool)
	segments := segment.NewBuilder(log.Logger, tool, settings)
	slates := slate.NewGenerator(log.Logger, tool, cfg.Slate.DurationSec, settings)

	assembler := pipeline.NewAssembler(log.Logger, cfg.WorkDir, cfg.ProxyDir,
		std, tool, stills, segments, tool, slates)

	return assembler, func() { cache.Close() }, nil
}
