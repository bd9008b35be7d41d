// Package transport moves CLI and log bytes between the node and a serial
// style byte stream.
package transport

import (
	"context"
	"io"
	"sync"
	"time"

	"codeberg.org/mutker/sensornode/internal/errors"
)

const (
	// DefaultRxBuffer is the number of received bytes held until polled.
	DefaultRxBuffer = 256
	// DefaultTxQueue is the number of sends that may wait for the writer.
	DefaultTxQueue = 64
	// DefaultSendTimeout bounds how long Send waits for the writer.
	DefaultSendTimeout = time.Second
)

// Transport is a byte-oriented duplex link. Send blocks for at most the
// transport's send timeout; TryRecv never blocks.
type Transport interface {
	io.Writer
	Send(p []byte) error
	TryRecv() (byte, bool)
}

// Option configures a Stdio transport.
type Option func(*Stdio)

// WithSendTimeout overrides DefaultSendTimeout.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Stdio) {
		s.timeout = d
	}
}

// WithTxQueue overrides DefaultTxQueue.
func WithTxQueue(n int) Option {
	return func(s *Stdio) {
		s.txSize = n
	}
}

type sendReq struct {
	p      []byte
	result chan error
}

// Stdio adapts a reader/writer pair (stdin/stdout, a pty, a serial device)
// into a Transport. A reader goroutine feeds a bounded receive queue and a
// single writer goroutine drains a bounded send queue.
type Stdio struct {
	w       io.Writer
	rx      chan byte
	tx      chan sendReq
	txSize  int
	timeout time.Duration
	done    chan struct{}
	stop    chan struct{}
	wdone   chan struct{}
	once    sync.Once
}

// NewStdio starts reading from r until ctx is cancelled or r returns an
// error. Bytes that arrive while the queue is full are dropped. The writer
// runs until Close.
func NewStdio(ctx context.Context, r io.Reader, w io.Writer, opts ...Option) *Stdio {
	s := &Stdio{
		w:       w,
		rx:      make(chan byte, DefaultRxBuffer),
		txSize:  DefaultTxQueue,
		timeout: DefaultSendTimeout,
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
		wdone:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tx = make(chan sendReq, s.txSize)

	go s.readLoop(ctx, r)
	go s.writeLoop()

	return s
}

// Done is closed once the reader goroutine has exited.
func (s *Stdio) Done() <-chan struct{} {
	return s.done
}

// Close stops the writer and waits for it to exit. Sends still queued are
// discarded.
func (s *Stdio) Close() error {
	s.once.Do(func() {
		close(s.stop)
	})
	<-s.wdone
	return nil
}

func (s *Stdio) readLoop(ctx context.Context, r io.Reader) {
	defer close(s.done)

	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			select {
			case <-ctx.Done():
				return
			case s.rx <- b:
			default:
			}
		}
		if err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (s *Stdio) writeLoop() {
	defer close(s.wdone)

	for {
		select {
		case <-s.stop:
			return
		case req := <-s.tx:
			_, err := s.w.Write(req.p)
			req.result <- err
		}
	}
}

func (s *Stdio) TryRecv() (byte, bool) {
	select {
	case b := <-s.rx:
		return b, true
	default:
		return 0, false
	}
}

// Send queues p for the writer and waits for the write, giving up after the
// send timeout. A timed out send stays queued and is written in order once
// the writer catches up; while the queue is full further sends time out.
func (s *Stdio) Send(p []byte) error {
	if len(p) == 0 {
		return nil
	}

	select {
	case <-s.stop:
		return errors.New().WithData(errors.ErrTransportClosed, "transport send")
	default:
	}

	req := sendReq{
		p:      append([]byte(nil), p...),
		result: make(chan error, 1),
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case <-s.stop:
		return errors.New().WithData(errors.ErrTransportClosed, "transport send")
	case s.tx <- req:
	case <-timer.C:
		return errors.New().WithData(errors.ErrTimeout, "transport send")
	}

	select {
	case err := <-req.result:
		return err
	case <-s.stop:
		return errors.New().WithData(errors.ErrTransportClosed, "transport send")
	case <-timer.C:
		return errors.New().WithData(errors.ErrTimeout, "transport send")
	}
}

func (s *Stdio) Write(p []byte) (int, error) {
	if err := s.Send(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Loopback is an in-memory Transport. Input queues bytes for TryRecv and
// everything sent is kept for inspection.
type Loopback struct {
	mu  sync.Mutex
	in  []byte
	out []byte
}

func NewLoopback() *Loopback {
	return &Loopback{}
}

// Input queues bytes to be received.
func (l *Loopback) Input(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.in = append(l.in, s...)
}

func (l *Loopback) TryRecv() (byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.in) == 0 {
		return 0, false
	}
	b := l.in[0]
	l.in = l.in[1:]

	return b, true
}

func (l *Loopback) Send(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = append(l.out, p...)
	return nil
}

func (l *Loopback) Write(p []byte) (int, error) {
	_ = l.Send(p)
	return len(p), nil
}

// Output returns everything sent so far.
func (l *Loopback) Output() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return string(l.out)
}

// Reset discards captured output.
func (l *Loopback) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = l.out[:0]
}
