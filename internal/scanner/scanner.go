package scanner

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"
)

var (
	// ErrTimeout is returned when no reading arrives within the wait bound.
	ErrTimeout = errors.New("no reading received before timeout")

	// ErrWaitInFlight is returned when a second wait is attempted while one
	// is already outstanding. At most one wait per reader.
	ErrWaitInFlight = errors.New("an acquisition wait is already outstanding")

	// ErrClosed is returned after the peripheral link was torn down.
	ErrClosed = errors.New("scanner closed")
)

// DefaultAcquireTimeout bounds a single acquisition wait.
const DefaultAcquireTimeout = 5 * time.Second

// Peripheral is the wireless link that pushes raw tag payloads. The channel
// closing signals a spontaneous disconnect.
type Peripheral interface {
	Notifications() <-chan []byte
	Close() error
}

// Reader normalizes the peripheral's asynchronous, possibly-duplicate
// notification stream into clean tag readings: payloads are decoded as text
// with a hex fallback, consecutive duplicates are suppressed, and AcquireOnce
// hands out one reading with a hard timeout.
type Reader struct {
	peripheral Peripheral
	timeout    time.Duration
	onTag      func(string)

	mu       sync.Mutex
	last     string      // last forwarded value, duplicate suppression
	buffered string      // reading waiting for the next AcquireOnce
	waiter   chan string // non-nil while a wait is outstanding
	closed   bool

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Reader.
type Option func(*Reader)

// WithAcquireTimeout overrides the 5-second acquisition bound.
func WithAcquireTimeout(d time.Duration) Option {
	return func(r *Reader) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithTagSink forwards every accepted reading to fn as it arrives,
// independent of AcquireOnce.
func WithTagSink(fn func(string)) Option {
	return func(r *Reader) { r.onTag = fn }
}

// NewReader subscribes to the peripheral and starts consuming notifications.
func NewReader(p Peripheral, opts ...Option) *Reader {
	r := &Reader{
		peripheral: p,
		timeout:    DefaultAcquireTimeout,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

func (r *Reader) run() {
	for {
		select {
		case payload, ok := <-r.peripheral.Notifications():
			if !ok {
				// Spontaneous disconnect is handled exactly like Close.
				r.teardown()
				return
			}
			r.handle(payload)
		case <-r.done:
			return
		}
	}
}

func (r *Reader) handle(payload []byte) {
	val := DecodePayload(payload)
	if val == "" {
		return
	}
	r.mu.Lock()
	if val == r.last {
		r.mu.Unlock()
		return
	}
	r.last = val
	if r.waiter != nil {
		// Buffered channel, the send cannot block; delivering under the lock
		// keeps cancelWait from draining before the value lands.
		r.waiter <- val
		r.waiter = nil
		r.buffered = ""
		r.mu.Unlock()
	} else {
		r.buffered = val
		r.mu.Unlock()
	}
	if r.onTag != nil {
		r.onTag(val)
	}
}

// AcquireOnce consumes the buffered reading if one is present, otherwise
// waits for the next notification up to the acquisition timeout. Only one
// wait may be outstanding at a time.
func (r *Reader) AcquireOnce(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrClosed
	}
	if r.buffered != "" {
		val := r.buffered
		r.buffered = ""
		r.mu.Unlock()
		return val, nil
	}
	if r.waiter != nil {
		r.mu.Unlock()
		return "", ErrWaitInFlight
	}
	w := make(chan string, 1)
	r.waiter = w
	r.mu.Unlock()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case val := <-w:
		return val, nil
	case <-timer.C:
		r.cancelWait(w)
		return "", ErrTimeout
	case <-ctx.Done():
		r.cancelWait(w)
		return "", ctx.Err()
	case <-r.done:
		return "", ErrClosed
	}
}

// cancelWait removes the waiter; a reading that raced the timeout is kept
// buffered for the next call instead of being dropped.
func (r *Reader) cancelWait(w chan string) {
	r.mu.Lock()
	if r.waiter == w {
		r.waiter = nil
	}
	r.mu.Unlock()
	select {
	case val := <-w:
		r.mu.Lock()
		r.buffered = val
		r.mu.Unlock()
	default:
	}
}

// Connected reports whether the peripheral link is still up.
func (r *Reader) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

// Close unsubscribes and resets all state unconditionally.
func (r *Reader) Close() error {
	r.teardown()
	return nil
}

func (r *Reader) teardown() {
	r.closeOnce.Do(func() {
		close(r.done)
		_ = r.peripheral.Close()
		r.mu.Lock()
		r.closed = true
		r.last = ""
		r.buffered = ""
		r.waiter = nil
		r.mu.Unlock()
	})
}

// DecodePayload turns a raw notification into a tag reading: text when the
// payload is printable, a hex rendering otherwise, empty for empty input.
func DecodePayload(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	s := strings.TrimSpace(string(b))
	if s != "" && printable(s) {
		return s
	}
	return hex.EncodeToString(b)
}

func printable(s string) bool {
	for _, r := range s {
		if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
