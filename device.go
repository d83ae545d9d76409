package asyncstream

import "context"

// MediaType discriminates the kind of backing store behind a Device.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaFile
	MediaMemory
	MediaNetwork
)

func (t MediaType) String() string {
	switch t {
	case MediaFile:
		return "file"
	case MediaMemory:
		return "memory"
	case MediaNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// TimeoutKind identifies which outstanding operation a device timeout
// applies to. Only non-seekable (network) reads arm a timeout.
type TimeoutKind int

const (
	TimeoutRead TimeoutKind = iota
	TimeoutWrite
)

// Device is the block-I/O provider interface the stream core consumes.
// Concrete providers live in package device: file, memory, and network
// backed streams.
//
// Seekable devices (file, memory) are synchronous: ReadBlockAsync and
// WriteBlockAsync perform the I/O before returning, and the stream does
// its own completion bookkeeping inline without going through
// BlockIOCallback. Non-seekable devices (network) are asynchronous:
// ReadBlockAsync/WriteBlockAsync submit the operation and return
// immediately; completion arrives later, from a different goroutine,
// through BlockIOCallback.OnBlockIOEvent. This split is what lets the
// stream avoid a re-entrant lock (see DESIGN.md).
type Device interface {
	// Open establishes the backing connection or file handle and reports
	// the outcome through cb.OnBlockIOOpen. Synchronous providers call
	// back before Open returns; asynchronous providers may call back
	// later, from their own goroutine.
	Open(ctx context.Context, cb BlockIOCallback) error

	// ReadBlockAsync reads into buf starting at buf.Pos().
	ReadBlockAsync(buf *IOBuffer) error

	// WriteBlockAsync writes buf's valid bytes to the device starting at
	// the byte offset startOffset within the buffer.
	WriteBlockAsync(buf *IOBuffer, startOffset int64) error

	StartTimeout(kind TimeoutKind)
	CancelTimeout(kind TimeoutKind)

	// MediaSize reports the device's currently known extent. Non-seekable
	// devices report 0 (their extent is discovered as data arrives).
	MediaSize() int64

	// IOStartPosition rounds rawPos down to the device's preferred I/O
	// start (sector/packet alignment); devices with no alignment
	// requirement return rawPos unchanged.
	IOStartPosition(rawPos int64) int64

	// AllocIOBuffer returns a fresh buffer sized per hint (<=0 means "use
	// the device's default"). physicalBacking requests memory obtained
	// directly from the device's own allocator when that matters (it
	// never does for these providers; kept for interface parity with
	// providers that do care).
	AllocIOBuffer(hint int64, physicalBacking bool) (*IOBuffer, error)

	IsSeekable() bool
	MediaType() MediaType

	// RemoveNBytes asks the device to shorten itself in place by n bytes
	// starting at start, if it supports doing so. Returns ErrNotSupported
	// otherwise.
	RemoveNBytes(start, n int64) error

	Close() error
}

// BlockIOCallback is implemented by Stream; devices invoke it to report
// completions. Synchronous devices never call
// this directly — see the Device doc comment.
type BlockIOCallback interface {
	OnBlockIOEvent(buf *IOBuffer)
	OnBlockIOOpen(err error, dev Device)
	OnBlockIOAccept(err error, dev Device)
}

// EventHandler is the application-level callback target. Exactly one is registered per stream, at Open or inherited on
// accept. All methods are invoked outside the stream's lock.
type EventHandler interface {
	OnOpen(err error, s *Stream)
	OnAccept(newStream *Stream)
	OnReadyToRead(err error, totalAvailable int64, s *Stream)
	OnFlush(err error, s *Stream)
	OnStreamDisconnect(err error, s *Stream)
}

// BaseEventHandler is a no-op EventHandler; embed it to override only the
// callbacks a caller cares about, mirroring NoOpObserver below.
type BaseEventHandler struct{}

func (BaseEventHandler) OnOpen(error, *Stream)                    {}
func (BaseEventHandler) OnAccept(*Stream)                         {}
func (BaseEventHandler) OnReadyToRead(error, int64, *Stream)      {}
func (BaseEventHandler) OnFlush(error, *Stream)                   {}
func (BaseEventHandler) OnStreamDisconnect(error, *Stream)        {}

var _ EventHandler = BaseEventHandler{}
