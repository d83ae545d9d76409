package asyncstream

import "container/list"

// OpState is a buffer's outstanding-I/O state.
type OpState int32

const (
	OpIdle OpState = iota
	OpReadInFlight
	OpWriteInFlight
)

func (s OpState) String() string {
	switch s {
	case OpReadInFlight:
		return "read-in-flight"
	case OpWriteInFlight:
		return "write-in-flight"
	default:
		return "idle"
	}
}

// Flags is a bitmask of per-buffer flags.
type Flags uint32

const (
	FlagValidData Flags = 1 << iota
	FlagUnsavedChanges
	FlagIsInput
	FlagIsOutput
	FlagDiscardWhenIdle
	FlagError
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// IOBuffer is a fixed-capacity block-aligned buffer drawn from a device's
// allocator. Positions it tracks are absolute: Pos is
// the byte offset of LogicalBase within the stream's overall byte space.
type IOBuffer struct {
	data []byte // physical base..capacity, owned outright by this buffer

	logicalBase int64 // index into data where valid bytes start
	validBytes  int64 // number of valid bytes starting at logicalBase
	posInMedia  int64 // absolute stream position of logicalBase

	state OpState
	flags Flags
	err   error // error stamped at issuance time, if any

	elem *list.Element // this buffer's node in the owning list, nil if detached
	list *list.List    // which list (input or output), nil if detached
}

// NewIOBuffer allocates a buffer with the given physical capacity.
func NewIOBuffer(capacity int) *IOBuffer {
	return &IOBuffer{data: make([]byte, capacity)}
}

// Capacity returns the buffer's fixed physical capacity.
func (b *IOBuffer) Capacity() int64 { return int64(len(b.data)) }

// Pos returns the absolute stream position of the buffer's first valid byte.
func (b *IOBuffer) Pos() int64 { return b.posInMedia }

// ValidBytes returns the number of valid bytes currently held.
func (b *IOBuffer) ValidBytes() int64 { return b.validBytes }

// End returns the absolute stream position one past the buffer's last
// valid byte.
func (b *IOBuffer) End() int64 { return b.posInMedia + b.validBytes }

// Contains reports whether the absolute position pos falls within this
// buffer's valid range, including its end position (used by the cursor
// engine's "seek to end" special cases).
func (b *IOBuffer) Contains(pos int64) bool {
	return pos >= b.posInMedia && pos <= b.End()
}

// ContainsExclusive reports whether pos falls strictly within the
// buffer's valid byte range (used by the read/write path).
func (b *IOBuffer) ContainsExclusive(pos int64) bool {
	return pos >= b.posInMedia && pos < b.End()
}

// RoomAtEnd returns how many more bytes can be appended to the buffer's
// valid range before its physical capacity is exhausted.
func (b *IOBuffer) RoomAtEnd() int64 {
	return int64(len(b.data)) - (b.logicalBase + b.validBytes)
}

// CapacityEnd returns the absolute stream position one past the buffer's
// physical capacity, i.e. the furthest position a write into this buffer
// could ever extend to without reallocating.
func (b *IOBuffer) CapacityEnd() int64 {
	return b.posInMedia + int64(len(b.data)) - b.logicalBase
}

// CapacityContains reports whether pos falls within the buffer's
// physical capacity, even past its current valid range (used by the
// write path to decide whether an in-place extend is possible).
func (b *IOBuffer) CapacityContains(pos int64) bool {
	return pos >= b.posInMedia && pos < b.CapacityEnd()
}

// byteAt returns the slice index for absolute stream position pos. Caller
// must have checked ContainsExclusive(pos) first.
func (b *IOBuffer) byteAt(pos int64) int64 {
	return b.logicalBase + (pos - b.posInMedia)
}

// Slice returns the backing bytes for [from, from+n) in absolute stream
// coordinates. Caller must ensure the range lies within [Pos(), End()].
func (b *IOBuffer) Slice(from, n int64) []byte {
	start := b.byteAt(from)
	return b.data[start : start+n]
}

// Reset clears a buffer back to its just-allocated state, ready to be
// reused for a new position. The underlying capacity is kept.
func (b *IOBuffer) Reset(posInMedia int64) {
	b.logicalBase = 0
	b.validBytes = 0
	b.posInMedia = posInMedia
	b.state = OpIdle
	b.flags = 0
	b.err = nil
}

// ExtendValid grows the buffer's valid range to cover up to newEnd
// (absolute position), never shrinking it.
func (b *IOBuffer) ExtendValid(newEnd int64) {
	if newEnd > b.End() {
		b.validBytes = newEnd - b.posInMedia
	}
}

// HasFlag reports whether the given flag bit is set.
func (b *IOBuffer) HasFlag(f Flags) bool { return b.flags.has(f) }

// SetFlag sets the given flag bit.
func (b *IOBuffer) SetFlag(f Flags) { b.flags |= f }

// ClearFlag clears the given flag bit.
func (b *IOBuffer) ClearFlag(f Flags) { b.flags &^= f }

// State returns the buffer's current op-state.
func (b *IOBuffer) State() OpState { return b.state }

// Bytes returns the buffer's full physical backing slice, for device
// implementations filling it via ReadAt/WriteAt. Devices write into this
// slice directly and then call ExtendValid to publish how much of it
// became valid.
func (b *IOBuffer) Bytes() []byte { return b.data }

// Err returns the error stamped on this buffer at issuance time, if any.
func (b *IOBuffer) Err() error { return b.err }

// SetErr stamps an error on this buffer, for device implementations to
// report a failed read or write back to the stream.
func (b *IOBuffer) SetErr(err error) { b.err = err }
