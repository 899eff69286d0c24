package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData splits callback data into unique key and payload.
// It understands Telebot's "\f<unique>|<payload>" encoding and plain
// "<unique>::<payload>" data produced by other clients.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := cb.Data
	if strings.HasPrefix(raw, "\f") {
		raw = strings.TrimPrefix(raw, "\f")
		unique, payload, _ := strings.Cut(raw, "|")
		return strings.TrimSpace(unique), payload
	}
	if unique, payload, ok := strings.Cut(raw, "::"); ok {
		return strings.TrimSpace(unique), payload
	}
	return strings.TrimSpace(raw), ""
}

// CallbackKey returns the unique key of the current callback.
func CallbackKey(c tele.Context) string {
	k, _ := ParseCallbackData(c.Callback())
	return k
}

// CallbackPayload returns the payload of the current callback.
func CallbackPayload(c tele.Context) string {
	_, p := ParseCallbackData(c.Callback())
	return p
}
