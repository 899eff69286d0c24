package logger

import "strings"

// vocab maps accepted spellings of an enumerated field onto its canonical value.
type vocab map[string]string

func (v vocab) lookup(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	canonical, ok := v[s]
	if !ok {
		return s, false
	}
	return canonical, true
}

var (
	levels = vocab{
		"debug":   "DEBUG",
		"info":    "INFO",
		"warn":    "WARN",
		"warning": "WARN",
		"error":   "ERROR",
		"fatal":   "FATAL",
	}
	statuses = vocab{
		"ok":           "ok",
		"fail":         "fail",
		"failed":       "fail",
		"skip":         "skip",
		"retry":        "retry",
		"rate_limited": "rate_limited",
		"cancelled":    "cancelled",
		"canceled":     "cancelled",
		"ignored":      "ignored",
	}
	outcomes = vocab{
		"ok":           "ok",
		"fail":         "fail",
		"cancelled":    "cancelled",
		"rate_limited": "rate_limited",
	}
)

// normalizeLevel returns the canonical level name; unknown levels are upper-cased.
func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if canonical, ok := levels.lookup(level); ok {
		return canonical
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) (string, bool) {
	return statuses.lookup(status)
}

func normalizeOutcome(outcome string) (string, bool) {
	return outcomes.lookup(outcome)
}

// defaultKeyOrder puts the envelope first, then update metadata, then catalog and
// transport fields. Keys not listed follow in alphabetical order.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"trace_id",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"cb_key",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"backend",
	"state",
	"from_state",
	"book_id",
	"books",
	"count",
	"filename",
	"pages",
	"size_bytes",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"driver",
	"db",
	"host",
	"port",
	"path",
	"sessions",
	"expired",
	"err",
	"err_code",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
	"rate_limited",
}
