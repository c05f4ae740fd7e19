package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/subgate/core/logger"
	tghelpers "github.com/m3rciful/subgate/core/telegram/helpers"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

const limiterIdleTTL = 10 * time.Minute

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

type userLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// userLimiters keeps one token bucket per user and forgets idle users.
type userLimiters struct {
	mu      sync.Mutex
	every   rate.Limit
	byUser  map[int64]*userLimiter
	lastGC  time.Time
	idleTTL time.Duration
}

func newUserLimiters(interval time.Duration) *userLimiters {
	return &userLimiters{
		every:   rate.Every(interval),
		byUser:  make(map[int64]*userLimiter),
		idleTTL: limiterIdleTTL,
	}
}

func (l *userLimiters) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > l.idleTTL {
		for id, ul := range l.byUser {
			if now.Sub(ul.lastSeen) > l.idleTTL {
				delete(l.byUser, id)
			}
		}
		l.lastGC = now
	}

	ul, ok := l.byUser[userID]
	if !ok {
		ul = &userLimiter{lim: rate.NewLimiter(l.every, 1)}
		l.byUser[userID] = ul
	}
	ul.lastSeen = now
	return ul.lim.AllowN(now, 1)
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware returns a middleware that enforces a minimum interval
// between updates from the same user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	limiters := newUserLimiters(opts.Interval)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}

			kind := updateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			if limiters.allow(user.ID, time.Now()) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), logger.CompTG, "rate_limit",
				slog.String("kind", kind),
				slog.Int64("user_id", user.ID),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
