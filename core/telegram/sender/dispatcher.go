package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is shared evenly between workers.
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
// Jobs for the same chat go to the same worker, so a chat sees its replies in order.
type Dispatcher struct {
	opts   Options
	shards []chan job
	wg     sync.WaitGroup
	errs   atomic.Uint64
	next   atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{opts: opts, shards: make([]chan job, opts.Workers)}
	perShard := max(1, opts.QueueSize/opts.Workers)
	d.wg.Add(opts.Workers)
	for i := range d.shards {
		d.shards[i] = make(chan job, perShard)
		go d.worker(d.shards[i])
	}
	return d
}

// Enqueue schedules run on the worker owning the chat found in ctx.
// Jobs without a chat are spread round-robin. run must be idempotent if retries are desired.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	j := job{ctx: ctx, action: action, endpoint: endpoint, run: run}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.shardFor(ctx) <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) shardFor(ctx context.Context) chan job {
	var key uint64
	if chatID := logger.ChatIDFrom(ctx); chatID != 0 {
		key = uint64(chatID)
	} else {
		key = d.next.Add(1)
	}
	return d.shards[key%uint64(len(d.shards))]
}

// ErrorCount returns the number of failed jobs.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close rejects new jobs and waits for the queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.shards {
			close(ch)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(jobs <-chan job) {
	defer d.wg.Done()
	for j := range jobs {
		d.handleJob(j)
	}
}

// backoff grows linearly with the attempt number. Flood errors wait as long as Telegram asks.
func (d *Dispatcher) backoff(n uint, err error) time.Duration {
	if wait, ok := netutil.RetryAfter(err); ok && wait > 0 {
		return wait
	}
	return d.opts.RetryBackoff * time.Duration(n)
}

func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	logger.Debug(ctx, "tg.sender", "send.start", j.attrs()...)

	attempts := d.opts.MaxRetries + 1
	attempt := 0
	err := retry.Do(
		func() error {
			attempt++
			return j.run()
		},
		retry.Context(deadlineCtx),
		retry.Attempts(uint(attempts)),
		retry.RetryIf(func(err error) bool {
			_, flood := netutil.RetryAfter(err)
			return flood || netutil.ShouldRetry(err)
		}),
		retry.DelayType(func(n uint, err error, _ *retry.Config) time.Duration {
			return d.backoff(n, err)
		}),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if int(n)+1 >= attempts {
				return
			}
			logger.Debug(ctx, "tg.sender", "send.retry.backoff",
				j.attrs(
					slog.Int("attempt", int(n)+1),
					slog.Duration("delay", d.backoff(n+1, err)),
					slog.String("err", sanitizeErrorMessage(err)),
				)...,
			)
		}),
	)
	if err != nil {
		d.errs.Add(1)
		logSendFailure(ctx, j, err, attempt, time.Since(start))
		return
	}

	if attempt > 1 {
		logger.Info(ctx, "tg.sender", "send.retry.success",
			j.attrs(
				slog.Int("attempt", attempt),
				slog.Duration("elapsed", time.Since(start)),
			)...,
		)
	}
	logSendSuccess(ctx, j, attempt, time.Since(start))
}

func (j job) attrs(extra ...slog.Attr) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return append(attrs, extra...)
}

func logSendSuccess(ctx context.Context, j job, attempt int, elapsed time.Duration) {
	attrs := j.attrs(slog.Duration("elapsed", elapsed))
	if attempt > 1 {
		attrs = append(attrs, slog.Int("attempt", attempt))
	}
	logger.Debug(ctx, "tg.sender", "send.success", attrs...)
}

func logSendFailure(ctx context.Context, j job, err error, attempts int, elapsed time.Duration) {
	logger.Error(ctx, "tg.sender", "send.fail", j.attrs(
		slog.String("error", sanitizeErrorMessage(err)),
		slog.String("error_kind", classifyError(err)),
		slog.Duration("elapsed", elapsed),
		slog.Int("attempts", attempts),
	)...)
}

// classifyError buckets a send failure for the error_kind log field.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if isTimeout(err) {
		return "timeout"
	}
	if _, ok := netutil.RetryAfter(err); ok {
		return "flood"
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	var alertErr tls.AlertError
	switch {
	case errors.As(err, &dnsErr):
		return "dns"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	case errors.As(err, &alertErr):
		return "tls"
	}

	switch status := httpStatus(err); {
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// sanitizeErrorMessage hides bot tokens that net/http embeds in request URLs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// httpStatus reads the Bot API status from telebot errors, or from a trailing "(NNN)".
func httpStatus(err error) int {
	var apiErr *tele.Error
	var groupErr tele.GroupError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.As(err, &groupErr):
		return http.StatusBadRequest
	}

	msg := err.Error()
	open, end := strings.LastIndexByte(msg, '('), strings.LastIndexByte(msg, ')')
	if open < 0 || end <= open+1 {
		return 0
	}
	code, convErr := strconv.Atoi(strings.TrimSpace(msg[open+1 : end]))
	if convErr != nil {
		return 0
	}
	return code
}
