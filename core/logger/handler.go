package logger

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as one line each, keys ordered by keyOrder
// and the rest sorted.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	groups []string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = slices.Clone(defaultKeyOrder)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return fmt.Errorf("logger: writer not initialized")
	}

	e := make(entry, 16)
	ts := r.Time.UTC()
	e["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	e["level"] = normalizeLevel(r.Level.String())
	if h.cfg.format == formatJSON {
		e["ts_unix_nano"] = ts.UnixNano()
	}

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		e.collect(prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		e.collect(prefix, a)
		return true
	})
	e.fromContext(ctx)

	if rid := e.str("rid"); rid != "" {
		if compact := CompactRID(rid); compact != "" && compact != rid {
			if h.cfg.format == formatJSON {
				e.setDefault("rid_full", rid)
			}
			e["rid"] = compact
		}
	}
	if e.str("event") == "" {
		e["event"] = cmp.Or(r.Message, "unknown")
	}
	if e.str("component") == "" {
		e["component"] = "app"
	}
	e.normalize()

	line, err := h.encode(e)
	if err != nil {
		return err
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(slices.Clip(h.attrs), attrs...)
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(slices.Clip(h.groups), name)
	return &clone
}

func (h *structuredHandler) encode(e entry) ([]byte, error) {
	keys := e.keys(h.cfg.keyOrder)
	if h.cfg.format == formatJSON {
		return encodeJSON(e, keys)
	}
	return encodeKV(e, keys), nil
}

// entry holds the fields of a single log line.
type entry map[string]any

func (e entry) collect(prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" {
		key = strings.TrimSuffix(prefix+"."+key, ".")
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			e.collect(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	val, isDuration, ok := plainValue(v)
	if !ok {
		return
	}
	if isDuration {
		key = durationKey(key)
	}
	e[key] = val
}

func (e entry) setDefault(key string, val any) {
	if _, ok := e[key]; !ok {
		e[key] = val
	}
}

func (e entry) str(key string) string {
	switch v := e[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// fromContext adds request metadata the record did not set explicitly.
func (e entry) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	if rid := RIDFrom(ctx); rid != "" {
		e.setDefault("rid", rid)
	}
	if trace := TraceIDFrom(ctx); trace != "" {
		e.setDefault("trace_id", trace)
	}
	if id := UserIDFrom(ctx); id != 0 {
		e.setDefault("user_id", id)
	}
	if id := UpdateIDFrom(ctx); id != 0 {
		e.setDefault("update_id", id)
	}
	if id := ChatIDFrom(ctx); id != 0 {
		e.setDefault("chat_id", id)
	}
	if name := HandlerFrom(ctx); name != "" {
		e.setDefault("handler", name)
	}
}

// normalize maps enumerated fields onto the schema and drops empty values.
// Unknown statuses are kept lowercased; unknown outcomes are dropped.
func (e entry) normalize() {
	e["level"] = normalizeLevel(e.str("level"))
	if s := e.str("status"); s != "" {
		e["status"], _ = normalizeStatus(s)
	}
	if o := e.str("outcome"); o != "" {
		if v, ok := normalizeOutcome(o); ok {
			e["outcome"] = v
		} else {
			delete(e, "outcome")
		}
	}
	maps.DeleteFunc(e, func(_ string, v any) bool {
		switch x := v.(type) {
		case nil:
			return true
		case string:
			return x == ""
		case fmt.Stringer:
			return x.String() == ""
		}
		return false
	})
}

func (e entry) keys(order []string) []string {
	out := make([]string, 0, len(e))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := e[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	rest := slices.Sorted(maps.Keys(e))
	for _, k := range rest {
		if !seen[k] {
			out = append(out, k)
		}
	}
	return out
}

// plainValue converts v to a JSON-friendly value and reports whether it is a duration.
func plainValue(v slog.Value) (any, bool, bool) {
	switch v.Kind() {
	case slog.KindString:
		return strings.TrimSpace(v.String()), false, true
	case slog.KindBool:
		return v.Bool(), false, true
	case slog.KindInt64:
		return v.Int64(), false, true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return int64(u), false, true
		}
		return v.Uint64(), false, true
	case slog.KindFloat64:
		return v.Float64(), false, true
	case slog.KindDuration:
		return RoundMS(v.Duration()).Milliseconds(), true, true
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano), false, true
	}
	switch x := v.Any().(type) {
	case nil:
		return nil, false, false
	case error:
		return x.Error(), false, true
	case string:
		return strings.TrimSpace(x), false, true
	case time.Duration:
		return RoundMS(x).Milliseconds(), true, true
	case fmt.Stringer:
		return x.String(), false, true
	default:
		return fmt.Sprint(x), false, true
	}
}

// durationKey gives every duration attribute an _ms suffix.
func durationKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func encodeJSON(e entry, keys []string) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = append(buf, '{')
	for i, k := range keys {
		data, err := json.Marshal(e[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %q: %w", k, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = append(buf, data...)
	}
	return append(buf, '}'), nil
}

func encodeKV(e entry, keys []string) []byte {
	buf := make([]byte, 0, 256)
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, k...)
		buf = append(buf, '=')
		buf = appendKVValue(buf, e[k])
	}
	return buf
}

func appendKVValue(buf []byte, v any) []byte {
	var s string
	switch x := v.(type) {
	case bool:
		return strconv.AppendBool(buf, x)
	case int64:
		return strconv.AppendInt(buf, x, 10)
	case int:
		return strconv.AppendInt(buf, int64(x), 10)
	case string:
		s = x
	default:
		s = fmt.Sprint(x)
	}
	if strings.IndexFunc(s, needsQuote) >= 0 {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
