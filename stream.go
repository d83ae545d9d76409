// Package asyncstream implements an uninterrupted, seekable-when-possible,
// byte-addressable stream layered over heterogeneous block devices
// (files, network sockets, in-memory regions).
package asyncstream

import (
	"context"
	"sync"

	"github.com/ehrlich-b/asyncstream/internal/constants"
)

// Logger is the logging surface a Stream accepts at open time. The
// internal/logging.Logger type satisfies it directly.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Options configures a Stream at open time.
type Options struct {
	// Context for cancellation of the open handshake (if nil, uses
	// context.Background()).
	Context context.Context

	Logger   Logger
	Observer Observer

	// ExpandingMemory marks an EXPANDING_MEMORY_STREAM: an in-memory
	// stream whose byte extent grows on write. Set for memory:// devices
	// opened with growth enabled. The stream records the flag but does not
	// change its behavior for it: Flush still writes every dirty buffer
	// through to the device.
	ExpandingMemory bool
}

// Stream is the handle applications hold: one per open device, wrapping
// its buffer pool, cursors, and async listen/flush state machine.
type Stream struct {
	mu sync.Mutex

	device  Device
	handler EventHandler
	logger  Logger
	metrics *Metrics
	obs     Observer

	pool *bufferPool

	in  cursor // foreground input buffer cursor
	out cursor // foreground output buffer cursor (non-seekable only)

	totalAvailable int64

	expandingMemory bool
	allInBuffers    bool

	state State

	listenType    listenKind
	listenStop    int64 // absolute stop position; -1 for to-eof
	nextLoadStart int64 // monotonic "next load start" marker
	nextAsyncPos  int64 // next_asynch_buffer_position

	flushing       bool
	waitingOnFlush bool
	numFlushWrites int
	flushErr       error
}

// cursor is the (buffer, offsets) pair the read or write path is
// currently positioned against.
type cursor struct {
	buf                            *IOBuffer
	first, next, end, lastPossible int64
}

func (c *cursor) isSet() bool { return c.buf != nil }
func (c *cursor) clear()      { *c = cursor{} }

// Open opens a Stream against an already-constructed Device. Most callers
// use a package device helper (device.OpenURL) instead of calling this
// directly; Open is the low-level entry point those helpers build on.
func Open(ctx context.Context, dev Device, handler EventHandler, opts *Options) (*Stream, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts == nil {
		opts = &Options{}
	}
	if opts.Context != nil {
		ctx = opts.Context
	}
	if handler == nil {
		handler = BaseEventHandler{}
	}
	obs := opts.Observer
	if obs == nil {
		obs = NoOpObserver{}
	}

	s := &Stream{
		device:          dev,
		handler:         handler,
		logger:          opts.Logger,
		metrics:         NewMetrics(),
		obs:             obs,
		expandingMemory: opts.ExpandingMemory,
		state:           StateOpening,
		listenType:      listenNone,
	}

	cap := constants.DefaultInputListCap
	if !dev.IsSeekable() {
		cap = 0
	}
	s.pool = newBufferPool(dev, cap, obs)
	s.totalAvailable = dev.MediaSize()
	s.allInBuffers = dev.MediaType() == MediaMemory && !s.expandingMemory

	if err := dev.Open(ctx, s); err != nil {
		s.state = StateClosed
		return nil, WrapError("Open", err)
	}
	return s, nil
}

// IsOpen reports whether the stream still has a live backing device.
func (s *Stream) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device != nil && s.state != StateClosed
}

// GetLock exposes the stream's critical-section lock, mirroring
// CAsyncIOStream::GetLock in the original: a caller
// coordinating several streams against shared external state can take
// this lock to serialize with the stream's own operations.
func (s *Stream) GetLock() *sync.Mutex { return &s.mu }

// Metrics returns the stream's metrics instance.
func (s *Stream) Metrics() *Metrics { return s.metrics }

// MetricsSnapshot returns a point-in-time metrics snapshot.
func (s *Stream) MetricsSnapshot() MetricsSnapshot { return s.metrics.Snapshot() }

// Close tears down the buffer lists, releases the backing device, and
// nulls all cursors. Idempotent.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosing
	// Any buffer still mid-read/mid-write has a goroutine (network
	// devices) or already-issued call (seekable devices never leave this
	// state, so this only ever matters for non-seekable ones) that will
	// still call back into OnBlockIOEvent after we unlock below. Flag
	// those buffers so that callback just releases them instead of
	// touching the now-nil device or already-cleared cursors.
	s.pool.markInFlightDiscard()
	s.in.clear()
	s.out.clear()
	dev := s.device
	s.device = nil
	s.state = StateClosed
	s.metrics.Stop()
	s.mu.Unlock()

	if dev != nil {
		return dev.Close()
	}
	return nil
}

// GetDataLength returns the total number of bytes known to be available
// in the stream.
func (s *Stream) GetDataLength() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalAvailable
}

// deliver invokes fn against the registered EventHandler without holding
// the stream lock. Call sites
// capture what they need from locked state first, then call deliver after
// unlocking — deliver itself never touches s.mu.
func (s *Stream) deliver(fn func(EventHandler)) {
	fn(s.handler)
}
