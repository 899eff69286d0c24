// Package ui holds reply building blocks shared by bot handlers.
package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider supplies the replies for updates that match no command,
// callback or active dialog, and for rate-limited updates.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
	RateLimited() tele.HandlerFunc
}
