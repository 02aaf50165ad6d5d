package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/DigitalPiranesi/scalarpull/internal/fetch"
)

// Window identifies one contiguous range of remote records requested in a
// single call: a start offset and the number of records to ask for.
type Window struct {
	Start int
	Size  int
}

// Plan bounds a run. The start offset walks from 0 to UpperBound in
// increments of Step, requesting WindowSize records each time.
type Plan struct {
	UpperBound int
	Step       int
	WindowSize int
}

func (p Plan) validate() error {
	if p.UpperBound < 0 {
		return fmt.Errorf("upper bound must be non-negative, got %d", p.UpperBound)
	}
	if p.Step <= 0 {
		return fmt.Errorf("step must be positive, got %d", p.Step)
	}
	if p.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %d", p.WindowSize)
	}
	return nil
}

// Windows enumerates every window the plan will visit, in fetch order.
func (p Plan) Windows() []Window {
	if p.Step <= 0 {
		return nil
	}
	var out []Window
	for start := 0; start < p.UpperBound; start += p.Step {
		out = append(out, Window{Start: start, Size: p.WindowSize})
	}
	return out
}

// RetryPolicy controls the pause between a transient failure and the retry of
// the same window. The default is a flat pause; Backoff grows it up to
// MaxPause but never changes which offset is retried.
type RetryPolicy struct {
	Pause    time.Duration
	Backoff  bool
	MaxPause time.Duration
}

func (r RetryPolicy) pause(consecutive int) time.Duration {
	if !r.Backoff || consecutive <= 1 {
		return r.Pause
	}
	max := r.MaxPause
	if max <= 0 {
		max = 10 * r.Pause
	}
	d := r.Pause
	for i := 1; i < consecutive; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return d
}

// Source retrieves and pre-cleans the text for one window. Failures that are
// wrapped in fetch.ErrTransient trigger the flush-and-retry protocol; any
// other error aborts the run.
type Source interface {
	FetchWindow(ctx context.Context, w Window) (string, error)
}

// Sink receives accumulator contents on each flush. Appends must be durable
// before Append returns.
type Sink interface {
	Append(text string) error
}

// Stats summarizes one run for logging and the run manifest.
type Stats struct {
	Windows           int `json:"windows"`
	TransientFailures int `json:"transient_failures"`
	Flushes           int `json:"flushes"`
	FlushedBytes      int `json:"flushed_bytes"`
}

// Harvester drives the fetch-accumulate-flush loop: fetch each window in
// order, accumulate extracted text in memory, and on transient failure flush
// what has been gathered, clear the accumulator, pause, and retry the same
// offset. Retries are unbounded; a window is never skipped. All state lives
// in locals with run lifetime.
type Harvester struct {
	Source Source
	Sink   Sink
	Plan   Plan
	Retry  RetryPolicy
}

// Run executes the plan and returns run statistics. On any exit path, the
// accumulator is flushed first: a clean finish flushes the tail (even when
// empty), and cancellation or a fatal source error flushes whatever had been
// gathered so nothing already fetched is lost.
func (h *Harvester) Run(ctx context.Context) (Stats, error) {
	if err := h.Plan.validate(); err != nil {
		return Stats{}, err
	}

	var buf strings.Builder
	var st Stats
	flush := func() error {
		n := buf.Len()
		if err := h.Sink.Append(buf.String()); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		buf.Reset()
		st.Flushes++
		st.FlushedBytes += n
		return nil
	}

	consecutive := 0
	for start := 0; start < h.Plan.UpperBound; {
		if err := ctx.Err(); err != nil {
			if ferr := flush(); ferr != nil {
				return st, ferr
			}
			return st, err
		}

		w := Window{Start: start, Size: h.Plan.WindowSize}
		text, err := h.Source.FetchWindow(ctx, w)
		switch {
		case err == nil:
			buf.WriteString(text)
			st.Windows++
			if consecutive > 0 {
				log.Info().Int("start", start).Msg("resumed after transient failure")
				consecutive = 0
			}
			start += h.Plan.Step

		case errors.Is(err, fetch.ErrTransient):
			st.TransientFailures++
			consecutive++
			log.Warn().Err(err).Int("start", start).Int("attempt", consecutive).
				Msg("transient failure; flushing and retrying same window")
			if ferr := flush(); ferr != nil {
				return st, ferr
			}
			if werr := wait(ctx, h.Retry.pause(consecutive)); werr != nil {
				// Canceled mid-pause; the accumulator was already flushed.
				return st, werr
			}
			// same start: the failed window is refetched, never skipped

		default:
			if ferr := flush(); ferr != nil {
				return st, ferr
			}
			return st, fmt.Errorf("fetch window start=%d: %w", start, err)
		}
	}

	if err := flush(); err != nil {
		return st, err
	}
	return st, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
