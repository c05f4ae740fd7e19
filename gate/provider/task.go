// Package provider talks to the external task provider that hands out
// "subscribe to a channel" tasks and confirms whether a user completed them.
package provider

import (
	"context"
	"strings"
)

// FallbackURL is where a task button points when the provider sent no link.
const FallbackURL = "https://t.me/FlyerServiceBot"

// Task is one provider-issued task. Only Signature is mandatory; the other
// fields are whatever the provider chose to send.
type Task struct {
	Signature string `json:"signature"`
	Title     string `json:"title,omitempty"`
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
	Link      string `json:"link,omitempty"`
	TGLink    string `json:"tg_link,omitempty"`
	ButtonURL string `json:"button_url,omitempty"`
}

// DisplayTitle returns title, then text. Empty means the caller should fall
// back to a numbered label.
func (t Task) DisplayTitle() string {
	if s := strings.TrimSpace(t.Title); s != "" {
		return s
	}
	return strings.TrimSpace(t.Text)
}

// Destination returns the first non-empty link field, or FallbackURL.
func (t Task) Destination() string {
	for _, u := range []string{t.URL, t.Link, t.TGLink, t.ButtonURL} {
		if s := strings.TrimSpace(u); s != "" {
			return s
		}
	}
	return FallbackURL
}

// Provider is the task provider API surface the gate depends on.
type Provider interface {
	// GetTasks asks for up to limit tasks for the user. An empty locale
	// means no language filter.
	GetTasks(ctx context.Context, userID int64, locale string, limit int) ([]Task, error)
	// CheckTask reports whether the user completed the task.
	CheckTask(ctx context.Context, userID int64, signature string) (bool, error)
}
