// Package tasks fetches de-duplicated task batches from the provider and
// verifies their completion.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/subgate/core/logger"
	"github.com/m3rciful/subgate/core/netutil"
	"github.com/m3rciful/subgate/gate/provider"
)

// Fetcher defaults.
const (
	DefaultMaxAttempts = 4
	DefaultMargin      = 5
	DefaultRetryDelay  = 500 * time.Millisecond
)

// FetcherOptions tunes Fetcher. Zero values select defaults; a negative
// RetryDelay disables the pause between failed attempts.
type FetcherOptions struct {
	MaxAttempts int
	Margin      int
	RetryDelay  time.Duration
}

// Fetcher collects tasks across several provider calls until it has enough
// fresh ones.
type Fetcher struct {
	provider    provider.Provider
	maxAttempts int
	margin      int
	retryDelay  time.Duration
}

// NewFetcher builds a Fetcher on top of p.
func NewFetcher(p provider.Provider, opts FetcherOptions) *Fetcher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Margin < 0 {
		opts.Margin = 0
	} else if opts.Margin == 0 {
		opts.Margin = DefaultMargin
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Fetcher{
		provider:    p,
		maxAttempts: opts.MaxAttempts,
		margin:      opts.Margin,
		retryDelay:  opts.RetryDelay,
	}
}

// FetchUnique returns up to limit tasks whose signatures are pairwise
// distinct and absent from exclude. Fewer than limit means the provider did
// not have enough fresh tasks; provider failures are logged, never returned.
func (f *Fetcher) FetchUnique(ctx context.Context, userID int64, locale string, exclude map[string]struct{}, limit int) []provider.Task {
	if limit <= 0 {
		return nil
	}
	chain := LocaleChain(locale)
	seen := make(map[string]struct{}, len(exclude)+limit)
	for sig := range exclude {
		seen[sig] = struct{}{}
	}
	out := make([]provider.Task, 0, limit)

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		loc := chain[min(attempt, len(chain)-1)]
		batch, err := f.provider.GetTasks(ctx, userID, loc, limit+f.margin)
		if err != nil {
			logger.Warn(ctx, logger.CompTasks, "fetch.attempt",
				slog.String("status", "fail"),
				slog.Int("attempt", attempt+1),
				slog.String("locale", loc),
				slog.String("reason", provider.Reason(err)),
				logger.Err(err),
			)
			if attempt+1 < f.maxAttempts && f.retryDelay > 0 {
				if netutil.Sleep(ctx, f.retryDelay) != nil {
					break
				}
			}
			continue
		}

		fresh := 0
		for _, t := range batch {
			if t.Signature == "" {
				continue
			}
			if _, dup := seen[t.Signature]; dup {
				continue
			}
			seen[t.Signature] = struct{}{}
			out = append(out, t)
			fresh++
			if len(out) >= limit {
				break
			}
		}
		logger.Debug(ctx, logger.CompTasks, "fetch.attempt",
			slog.String("status", "ok"),
			slog.Int("attempt", attempt+1),
			slog.String("locale", loc),
			slog.Int("fetched", len(batch)),
			slog.Int("unique", fresh),
		)
		if len(out) >= limit {
			break
		}
	}

	if len(out) < limit {
		logger.Info(ctx, logger.CompTasks, "fetch.short",
			slog.Int("unique", len(out)),
			slog.Int("batch", limit),
			slog.Int("excluded", len(exclude)),
		)
	}
	return out
}
