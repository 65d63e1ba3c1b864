// Package proxy normalizes arbitrary source clips into canonical proxies:
// fixed width, even aspect-preserving height, constant frame rate, square
// pixels, no audio. All frame arithmetic downstream is defined against these
// proxies.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/kmurray/spotreel/internal/ffmpeg"
	"github.com/kmurray/spotreel/internal/logging"
	"github.com/kmurray/spotreel/pkg/util"
)

// ErrMissingSource indicates a source clip file does not exist. This aborts
// the whole render; there is no per-clip skip.
var ErrMissingSource = errors.New("source file missing")

// Transcoder runs the canonical normalizing encode
type Transcoder interface {
	Transcode(ctx context.Context, input, output string, settings ffmpeg.EncodeSettings) error
}

// Standardizer ensures canonical proxies exist for source clips
type Standardizer struct {
	logger   zerolog.Logger
	tool     Transcoder
	cache    *Cache // optional; nil falls back to path-keyed existence checks
	settings ffmpeg.EncodeSettings
}

// NewStandardizer creates a proxy standardizer. cache may be nil, in which
// case an existing file at the proxy path is trusted as-is.
func NewStandardizer(logger zerolog.Logger, tool Transcoder, cache *Cache, settings ffmpeg.EncodeSettings) *Standardizer {
	return &Standardizer{
		logger:   logging.WithComponent(logger, "proxy"),
		tool:     tool,
		cache:    cache,
		settings: settings,
	}
}

// Ensure guarantees a canonical proxy for source exists at proxyPath. The
// encode runs at most once per source content; repeat calls are no-ops.
func (s *Standardizer) Ensure(ctx context.Context, source, proxyPath string) error {
	if _, err := os.Stat(source); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingSource, source)
		}
		return fmt.Errorf("stat source %s: %w", source, err)
	}

	if s.cache == nil {
		if util.FileExists(proxyPath) {
			s.logger.Debug().Str("proxy", proxyPath).Msg("proxy exists, skipping")
			return nil
		}
		return s.build(ctx, source, proxyPath)
	}

	fp, err := FingerprintFile(source)
	if err != nil {
		return fmt.Errorf("fingerprinting %s: %w", source, err)
	}

	cached, fresh, err := s.cache.Lookup(source, fp)
	if err != nil {
		return err
	}
	if fresh && cached == proxyPath && util.FileExists(proxyPath) {
		s.logger.Debug().Str("proxy", proxyPath).Msg("proxy cache hit")
		return nil
	}

	if err := s.build(ctx, source, proxyPath); err != nil {
		return err
	}

	return s.cache.Record(source, fp, proxyPath)
}

func (s *Standardizer) build(ctx context.Context, source, proxyPath string) error {
	if err := util.EnsureDir(filepath.Dir(proxyPath)); err != nil {
		return fmt.Errorf("creating proxy directory: %w", err)
	}

	s.logger.Info().
		Str("source", source).
		Str("proxy", proxyPath).
		Msg("building proxy")

	return s.tool.Transcode(ctx, source, proxyPath, s.settings)
}

// PathFor derives the fixed proxy path for a source file
func PathFor(proxyDir, source string) string {
	return filepath.Join(proxyDir, util.Stem(source)+".proxy.mp4")
}
