// Package flow drives the two-stage gate: NONE -> STAGE_1 -> STAGE_2 -> NONE.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/subgate/core/logger"
	"github.com/m3rciful/subgate/gate/metrics"
	"github.com/m3rciful/subgate/gate/provider"
	"github.com/m3rciful/subgate/gate/session"

	"github.com/google/uuid"
)

// Defaults applied by New.
const (
	DefaultBatchSize = 5
	DefaultRewardURL = "https://t.me/your_bot"
)

// TaskFetcher returns up to limit fresh tasks; see tasks.Fetcher.
type TaskFetcher interface {
	FetchUnique(ctx context.Context, userID int64, locale string, exclude map[string]struct{}, limit int) []provider.Task
}

// TaskVerifier counts completed tasks; see tasks.Verifier.
type TaskVerifier interface {
	Verify(ctx context.Context, userID int64, batch []string) int
}

// User identifies who triggered an event.
type User struct {
	ID     int64
	Locale string
}

// Options configures New.
type Options struct {
	BatchSize int
	RewardURL string

	Store    session.Store
	Fetcher  TaskFetcher
	Verifier TaskVerifier
	Metrics  *metrics.Recorder

	Now       func() time.Time
	NewFlowID func() string
}

// Stats is a snapshot for the admin command.
type Stats struct {
	ActiveSessions int
	BatchSize      int
	Started        uint64
	Completed      uint64
}

// Controller owns session transitions. Events of the same user run one at
// a time; different users never wait on each other.
type Controller struct {
	batchSize int
	rewardURL string
	store     session.Store
	fetcher   TaskFetcher
	verifier  TaskVerifier
	metrics   *metrics.Recorder
	now       func() time.Time
	newFlowID func() string
	locks     *userLocks

	started   atomic.Uint64
	completed atomic.Uint64
}

// New validates opts and builds a Controller.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil || opts.Fetcher == nil || opts.Verifier == nil {
		return nil, fmt.Errorf("flow: store, fetcher and verifier are required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.RewardURL == "" {
		opts.RewardURL = DefaultRewardURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewFlowID == nil {
		opts.NewFlowID = func() string { return uuid.NewString() }
	}
	return &Controller{
		batchSize: opts.BatchSize,
		rewardURL: opts.RewardURL,
		store:     opts.Store,
		fetcher:   opts.Fetcher,
		verifier:  opts.Verifier,
		metrics:   opts.Metrics,
		now:       opts.Now,
		newFlowID: opts.NewFlowID,
		locks:     newUserLocks(),
	}, nil
}

// BatchSize returns the configured tasks per stage.
func (c *Controller) BatchSize() int { return c.batchSize }

// Start begins a new flow, discarding any previous one. When the provider
// cannot supply a full batch no session is kept.
func (c *Controller) Start(ctx context.Context, u User) Result {
	defer c.locks.lock(u.ID)()

	c.store.Delete(ctx, u.ID)

	flowID := c.newFlowID()
	ctx = logger.WithFlowID(ctx, flowID)

	batch := c.fetcher.FetchUnique(ctx, u.ID, u.Locale, nil, c.batchSize)
	if len(batch) < c.batchSize {
		logger.Info(ctx, logger.CompFlow, "start",
			slog.String("outcome", OutcomeUnavailable.String()),
			slog.Int("fetched", len(batch)),
			slog.Int("batch", c.batchSize),
		)
		return Result{Outcome: OutcomeUnavailable, Stage: session.StageNone}
	}

	s := session.New(u.ID, flowID, u.Locale, signatures(batch), c.now())
	c.store.Put(ctx, s)
	c.started.Add(1)
	c.metrics.FlowStarted(ctx)

	logger.Info(ctx, logger.CompFlow, "start",
		slog.String("outcome", OutcomeStarted.String()),
		slog.Int("stage", int(session.StageOne)),
		slog.String("locale", u.Locale),
	)
	return Result{Outcome: OutcomeStarted, Stage: session.StageOne, Tasks: batch}
}

// Verify handles a "check completion" press for the given stage.
func (c *Controller) Verify(ctx context.Context, u User, stage session.Stage) Result {
	defer c.locks.lock(u.ID)()

	res := c.verify(ctx, u, stage)
	c.metrics.VerifyEvent(ctx, res.Outcome.String())
	return res
}

func (c *Controller) verify(ctx context.Context, u User, stage session.Stage) Result {
	s, ok := c.store.Get(ctx, u.ID)
	if !ok {
		logger.Info(ctx, logger.CompFlow, "verify",
			slog.String("outcome", OutcomeNoSession.String()),
			slog.Int("stage", int(stage)),
		)
		return Result{Outcome: OutcomeNoSession, Stage: session.StageNone}
	}
	ctx = logger.WithFlowID(ctx, s.FlowID)

	if stage != s.Stage {
		logger.Info(ctx, logger.CompFlow, "verify",
			slog.String("outcome", OutcomeStale.String()),
			slog.Int("stage", int(stage)),
			slog.Int("current", int(s.Stage)),
		)
		c.touch(ctx, s)
		return Result{Outcome: OutcomeStale, Stage: s.Stage}
	}

	total := len(s.Batch)
	done := c.verifier.Verify(ctx, u.ID, s.Batch)
	if done < total {
		logger.Info(ctx, logger.CompFlow, "verify",
			slog.String("outcome", OutcomePartial.String()),
			slog.Int("stage", int(s.Stage)),
			slog.Int("completed", done),
			slog.Int("total", total),
		)
		c.touch(ctx, s)
		return Result{Outcome: OutcomePartial, Stage: s.Stage, Completed: done, Total: total}
	}

	if s.Stage == session.StageTwo {
		c.store.Delete(ctx, u.ID)
		c.completed.Add(1)
		c.metrics.FlowCompleted(ctx)
		logger.Info(ctx, logger.CompFlow, "verify",
			slog.String("outcome", OutcomeCompleted.String()),
			slog.Duration("took", logger.RoundMS(c.now().Sub(s.StartedAt))),
		)
		return Result{Outcome: OutcomeCompleted, Stage: session.StageNone, RewardURL: c.rewardURL}
	}

	locale := s.Locale
	if u.Locale != "" {
		locale = u.Locale
	}
	next := c.fetcher.FetchUnique(ctx, u.ID, locale, s.KnownSet(), c.batchSize)
	if len(next) < c.batchSize || !s.Advance(signatures(next), c.now()) {
		logger.Info(ctx, logger.CompFlow, "verify",
			slog.String("outcome", OutcomeAdvanceUnavailable.String()),
			slog.Int("stage", int(s.Stage)),
			slog.Int("fetched", len(next)),
		)
		c.touch(ctx, s)
		return Result{Outcome: OutcomeAdvanceUnavailable, Stage: s.Stage}
	}
	c.store.Put(ctx, s)

	logger.Info(ctx, logger.CompFlow, "verify",
		slog.String("outcome", OutcomeAdvanced.String()),
		slog.Int("stage", int(s.Stage)),
	)
	return Result{Outcome: OutcomeAdvanced, Stage: s.Stage, Tasks: next}
}

// Stats returns a snapshot of controller counters.
func (c *Controller) Stats() Stats {
	return Stats{
		ActiveSessions: c.store.Len(),
		BatchSize:      c.batchSize,
		Started:        c.started.Load(),
		Completed:      c.completed.Load(),
	}
}

// touch keeps a session that saw activity but no transition from idling out.
func (c *Controller) touch(ctx context.Context, s *session.Session) {
	s.Touch(c.now())
	c.store.Put(ctx, s)
}

func signatures(ts []provider.Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Signature
	}
	return out
}
