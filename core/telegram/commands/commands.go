package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
// Hidden commands are left out of the Telegram command menu; AdminOnly
// commands are also hidden and rejected for everyone but the configured admin.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}
