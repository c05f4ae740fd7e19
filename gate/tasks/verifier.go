package tasks

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/subgate/core/logger"
	"github.com/m3rciful/subgate/gate/provider"

	"golang.org/x/sync/errgroup"
)

// DefaultVerifyConcurrency bounds parallel check_task calls per verify.
const DefaultVerifyConcurrency = 4

// Verifier counts how many tasks of a batch the user completed.
type Verifier struct {
	provider    provider.Provider
	concurrency int
}

// NewVerifier builds a Verifier; concurrency <= 0 selects the default.
func NewVerifier(p provider.Provider, concurrency int) *Verifier {
	if concurrency <= 0 {
		concurrency = DefaultVerifyConcurrency
	}
	return &Verifier{provider: p, concurrency: concurrency}
}

// Verify checks every signature independently and returns the number
// confirmed completed. A failed check counts as not completed. The result
// never exceeds len(batch).
func (v *Verifier) Verify(ctx context.Context, userID int64, batch []string) int {
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for _, sig := range batch {
		g.Go(func() error {
			ok, err := v.provider.CheckTask(gctx, userID, sig)
			if err != nil {
				logger.Warn(ctx, logger.CompTasks, "verify.check",
					slog.String("status", "fail"),
					slog.String("signature", sig),
					slog.String("reason", provider.Reason(err)),
					logger.Err(err),
				)
				return nil
			}
			if ok {
				done.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(done.Load())
	logger.Debug(ctx, logger.CompTasks, "verify.done",
		slog.Int("completed", n),
		slog.Int("total", len(batch)),
	)
	return n
}
