package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/DigitalPiranesi/scalarpull/internal/app"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Best-effort dotenv so SCALAR_* variables can live next to the binary.
	_ = app.LoadEnvFiles(".env")

	var (
		configPath string
		endpoint   string
		outDir     string
		outputPath string
		upperBound int
		step       int
		windowSize int
		pause      time.Duration
		backoff    bool
		maxPause   time.Duration
		exclude    string
		userAgent  string
		timeout    time.Duration
		cacheDir   string
		cacheAge   time.Duration
		cacheClear bool
		dryRun     bool
		verbose    bool
	)

	flag.StringVar(&configPath, "config", os.Getenv("SCALARPULL_CONFIG"), "Path to YAML or JSON config file")
	flag.StringVar(&endpoint, "endpoint", envOr("SCALAR_ENDPOINT", app.DefaultEndpoint), "Scalar content API base URL")
	flag.StringVar(&outDir, "out", envOr("SCALAR_OUT_DIR", app.DefaultOutDir), "Directory for the timestamp-named artifact")
	flag.StringVar(&outputPath, "output", os.Getenv("SCALAR_OUTPUT"), "Explicit artifact path (overrides -out naming)")
	flag.IntVar(&upperBound, "window.upperBound", app.DefaultUpperBound, "Stop once the start offset reaches this bound")
	flag.IntVar(&step, "window.step", app.DefaultStep, "Offset advance per successful window")
	flag.IntVar(&windowSize, "window.size", app.DefaultWindowSize, "Records requested per window")
	flag.DurationVar(&pause, "retry.pause", app.DefaultPause, "Pause before retrying a failed window")
	flag.BoolVar(&backoff, "retry.backoff", false, "Grow the retry pause exponentially (bounded by retry.maxPause)")
	flag.DurationVar(&maxPause, "retry.maxPause", 0, "Upper bound on the grown retry pause; 0 means 10x retry.pause")
	flag.StringVar(&exclude, "exclude", os.Getenv("SCALAR_EXCLUDE"), "Comma-separated container elements to drop during extraction (default html,head,style)")
	flag.StringVar(&userAgent, "http.ua", app.DefaultUserAgent, "User-Agent for archive requests")
	flag.DurationVar(&timeout, "http.timeout", app.DefaultRequestTimeout, "Per-request timeout")
	flag.StringVar(&cacheDir, "cache.dir", os.Getenv("SCALAR_CACHE_DIR"), "On-disk HTTP cache directory; empty disables caching")
	flag.DurationVar(&cacheAge, "cache.maxAge", 0, "Max age for cache entries before purge; 0 disables")
	flag.BoolVar(&cacheClear, "cache.clear", false, "Clear cache directory before run")
	flag.BoolVar(&dryRun, "dry-run", false, "List the planned windows without fetching")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := app.Config{
		Endpoint:       endpoint,
		OutDir:         outDir,
		OutputPath:     outputPath,
		UpperBound:     upperBound,
		Step:           step,
		WindowSize:     windowSize,
		Pause:          pause,
		Backoff:        backoff,
		MaxPause:       maxPause,
		UserAgent:      userAgent,
		RequestTimeout: timeout,
		CacheDir:       cacheDir,
		CacheMaxAge:    cacheAge,
		CacheClear:     cacheClear,
		DryRun:         dryRun,
		Verbose:        verbose,
	}
	if s := strings.TrimSpace(exclude); s != "" {
		parts := strings.Split(s, ",")
		list := make([]string, 0, len(parts))
		for _, p := range parts {
			if v := strings.TrimSpace(p); v != "" {
				list = append(list, v)
			}
		}
		cfg.Exclusions = list
	}

	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("load config file")
		}
		app.ApplyFileConfig(&cfg, fc)
	}

	if err := run(cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			// Interrupted: the accumulator was flushed on the way out.
			log.Warn().Msg("interrupted; partial artifact kept")
			os.Exit(130)
		}
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
