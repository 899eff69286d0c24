// Package state keeps per-user conversation sessions for Telegram bots and
// routes updates of users in a non-idle state to the handler bound to it.
package state
