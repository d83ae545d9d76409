package device

import (
	"context"

	"github.com/ehrlich-b/asyncstream"
	"github.com/ehrlich-b/asyncstream/internal/constants"
)

// Memory is a seekable Device backed by an in-memory byte slice. It
// carries no internal lock: every asyncstream.Device call already
// arrives serialized under the owning Stream's lock, so a device-local
// lock would only add overhead with nothing left to protect against.
type Memory struct {
	data     []byte
	validLen int64

	// expanding, when true, lets writes past the current valid length
	// grow the region. There is no backing store to write through to, so
	// the "flush" for this device is simply a no-op once the bytes are
	// in data.
	expanding bool
}

// NewMemory creates an in-memory device with the given fixed capacity
// and initialValid bytes already considered valid (e.g. pre-seeded
// content). If expanding is true, capacity is only a starting
// allocation size; the region grows on write instead of rejecting
// writes past it.
func NewMemory(capacity, initialValid int64, expanding bool) *Memory {
	if initialValid > capacity {
		initialValid = capacity
	}
	return &Memory{
		data:      make([]byte, capacity),
		validLen:  initialValid,
		expanding: expanding,
	}
}

func (d *Memory) Open(_ context.Context, cb asyncstream.BlockIOCallback) error {
	cb.OnBlockIOOpen(nil, d)
	return nil
}

func (d *Memory) ReadBlockAsync(buf *asyncstream.IOBuffer) error {
	pos := buf.Pos()
	if pos >= d.validLen {
		buf.ExtendValid(pos)
		return nil
	}
	avail := d.validLen - pos
	dst := buf.Bytes()
	if int64(len(dst)) > avail {
		dst = dst[:avail]
	}
	n := copy(dst, d.data[pos:])
	buf.ExtendValid(pos + int64(n))
	return nil
}

func (d *Memory) WriteBlockAsync(buf *asyncstream.IOBuffer, startOffset int64) error {
	pos := buf.Pos() + startOffset
	data := buf.Slice(pos, buf.ValidBytes()-startOffset)
	end := pos + int64(len(data))

	if end > int64(len(d.data)) {
		if !d.expanding {
			return asyncstream.ErrNotSupported
		}
		grown := make([]byte, end)
		copy(grown, d.data)
		d.data = grown
	}
	copy(d.data[pos:end], data)
	if end > d.validLen {
		d.validLen = end
	}
	return nil
}

func (d *Memory) StartTimeout(asyncstream.TimeoutKind)  {}
func (d *Memory) CancelTimeout(asyncstream.TimeoutKind) {}

func (d *Memory) MediaSize() int64 { return d.validLen }

func (d *Memory) IOStartPosition(rawPos int64) int64 { return rawPos }

func (d *Memory) AllocIOBuffer(hint int64, _ bool) (*asyncstream.IOBuffer, error) {
	size := hint
	if size <= 0 {
		size = constants.DefaultBufferSize
	}
	return asyncstream.NewIOBuffer(int(size)), nil
}

func (d *Memory) IsSeekable() bool                 { return true }
func (d *Memory) MediaType() asyncstream.MediaType { return asyncstream.MediaMemory }

func (d *Memory) RemoveNBytes(start, n int64) error {
	end := start + n
	if end >= d.validLen {
		d.validLen = start
		return nil
	}
	copy(d.data[start:], d.data[end:d.validLen])
	d.validLen -= n
	return nil
}

func (d *Memory) Close() error {
	d.data = nil
	return nil
}

var _ asyncstream.Device = (*Memory)(nil)
