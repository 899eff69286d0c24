package logger

import (
	"bufio"
	"io"
	"sync"
)

const (
	defaultSinkBuffer = 64 * 1024
	writerQueueDepth  = 256
)

// asyncWriter fans log lines out to its sinks from a single goroutine.
// Sinks are flushed each time the queue drains, so a burst shares one flush.
type asyncWriter struct {
	queue     chan []byte
	flushReq  chan chan error
	done      chan struct{}
	closeOnce sync.Once

	// sinks are touched only by loop.
	sinks []*bufio.Writer

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = defaultSinkBuffer
	}
	w := &asyncWriter{
		queue:    make(chan []byte, writerQueueDepth),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case data, ok := <-w.queue:
			if !ok {
				w.fail(w.flush())
				return
			}
			w.fail(w.write(data))
			if len(w.queue) == 0 {
				w.fail(w.flush())
			}
		case ack := <-w.flushReq:
			ack <- w.drain()
		}
	}
}

// drain writes whatever is already queued and flushes the sinks.
func (w *asyncWriter) drain() error {
	for {
		select {
		case data, ok := <-w.queue:
			if !ok {
				return w.flush()
			}
			w.fail(w.write(data))
		default:
			err := w.flush()
			w.fail(err)
			return err
		}
	}
}

// Write copies p and queues it. A full queue blocks the caller rather than dropping lines.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.queue <- append([]byte(nil), p...)
	return nil
}

// Flush blocks until every line queued before the call reached the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.firstErr(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	select {
	case w.flushReq <- ack:
		return <-ack
	case <-w.done:
		return w.firstErr()
	}
}

// Close drains the queue and reports the first write error seen.
func (w *asyncWriter) Close() error {
	w.closeOnce.Do(func() { close(w.queue) })
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) write(p []byte) error {
	for _, sink := range w.sinks {
		if _, err := sink.Write(p); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flush() error {
	var first error
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (w *asyncWriter) firstErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
