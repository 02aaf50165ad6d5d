package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/DigitalPiranesi/scalarpull/internal/artifact"
	"github.com/DigitalPiranesi/scalarpull/internal/cache"
	"github.com/DigitalPiranesi/scalarpull/internal/fetch"
	"github.com/DigitalPiranesi/scalarpull/internal/harvest"
	"github.com/DigitalPiranesi/scalarpull/internal/scalar"
)

// App wires the fetch client, the Scalar source, the artifact sink, and the
// harvest loop for one run.
type App struct {
	cfg       Config
	httpCache *cache.HTTPCache
}

func New(cfg Config) (*App, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("endpoint is required")
	}
	a := &App{cfg: cfg}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err == nil && n > 0 {
				log.Debug().Int("removed", n).Msg("purged expired cache entries")
			}
		}
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir}
	}
	return a, nil
}

// Run executes the harvest and writes the artifact plus its sidecar manifest.
// The artifact path is fixed from the run start time before the first fetch;
// every flush during the run appends to that same path.
func (a *App) Run(ctx context.Context) error {
	start := time.Now()

	out := artifact.New(a.cfg.OutDir, start)
	if a.cfg.OutputPath != "" {
		out = artifact.AtPath(a.cfg.OutputPath)
	}

	src := &scalar.Client{
		BaseURL: a.cfg.Endpoint,
		Fetch: &fetch.Client{
			UserAgent:         a.cfg.UserAgent,
			PerRequestTimeout: a.cfg.RequestTimeout,
			Cache:             a.httpCache,
			RedirectMaxHops:   5,
		},
		Exclusions: a.cfg.Exclusions,
	}

	h := &harvest.Harvester{
		Source: src,
		Sink:   out,
		Plan: harvest.Plan{
			UpperBound: a.cfg.UpperBound,
			Step:       a.cfg.Step,
			WindowSize: a.cfg.WindowSize,
		},
		Retry: harvest.RetryPolicy{
			Pause:    a.cfg.Pause,
			Backoff:  a.cfg.Backoff,
			MaxPause: a.cfg.MaxPause,
		},
	}

	if a.cfg.DryRun {
		windows := h.Plan.Windows()
		for _, w := range windows {
			u, err := src.WindowURL(w)
			if err != nil {
				return fmt.Errorf("dry run: %w", err)
			}
			log.Info().Int("start", w.Start).Int("size", w.Size).Str("url", u).Msg("would fetch")
		}
		log.Info().Int("windows", len(windows)).Str("artifact", out.Path()).Msg("dry run complete; nothing fetched")
		return nil
	}

	log.Info().
		Str("endpoint", a.cfg.Endpoint).
		Int("upperBound", a.cfg.UpperBound).
		Int("step", a.cfg.Step).
		Int("windowSize", a.cfg.WindowSize).
		Str("artifact", out.Path()).
		Msg("starting harvest")

	stats, runErr := h.Run(ctx)

	if stats.Flushes > 0 {
		m := runManifest{
			Endpoint:    a.cfg.Endpoint,
			UpperBound:  a.cfg.UpperBound,
			Step:        a.cfg.Step,
			WindowSize:  a.cfg.WindowSize,
			Artifact:    out.Path(),
			Stats:       stats,
			HTTPCache:   a.httpCache != nil,
			GeneratedAt: time.Now().UTC(),
		}
		if sum, err := fileSHA256(out.Path()); err == nil {
			m.SHA256 = sum
		}
		if err := writeManifest(out.Path(), m); err != nil {
			log.Warn().Err(err).Msg("manifest write failed")
		}
	}

	if runErr != nil {
		return fmt.Errorf("harvest: %w", runErr)
	}
	log.Info().
		Int("windows", stats.Windows).
		Int("transientFailures", stats.TransientFailures).
		Int("flushes", stats.Flushes).
		Int("bytes", stats.FlushedBytes).
		Str("artifact", out.Path()).
		Msg("harvest complete")
	return nil
}
