// Package commands describes slash commands kept in the telegram registry.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// Usage is an argument hint such as "<назва або номер>", shown in help only.
	Usage     string
	AdminOnly bool
	Hidden    bool
	Aliases   []string
}

// HelpLine renders "/name usage — description".
func (c Command) HelpLine(name string) string {
	line := name
	if c.Usage != "" {
		line += " " + c.Usage
	}
	return line + " — " + c.Description
}
