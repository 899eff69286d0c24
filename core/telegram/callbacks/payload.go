package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// PayloadInt64 parses callback payload as int64.
func PayloadInt64(c tele.Context) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(CallbackPayload(c)), 10, 64)
}

// Data builds callback data in the "<unique>::<payload>" form.
func Data(unique, payload string) string {
	if payload == "" {
		return unique
	}
	return unique + "::" + payload
}
