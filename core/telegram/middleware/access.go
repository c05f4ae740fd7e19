package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// IsAdmin reports whether the sender of c is the configured admin.
// A zero AdminID means no one is admin.
func IsAdmin(c tele.Context, adminID int64) bool {
	if adminID == 0 {
		return false
	}
	sender := c.Sender()
	return sender != nil && sender.ID == adminID
}

// AdminOnlyMiddleware ensures that only the admin user can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if !IsAdmin(c, opts.AdminID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
