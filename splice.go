package asyncstream

import "errors"

// This file implements the stream-shaping operations built on top of the
// cursor/buffer machinery: RemoveNBytes (an in-place splice that deletes
// a byte range and shifts everything after it down) and CopyStream (bulk
// transfer between two streams, optionally moving rather than copying
// the source range).

// RemoveNBytes deletes the n bytes starting at the absolute position
// start, shifting every byte after that range down by n. Only supported on seekable devices.
//
// Every cached input buffer falls into one of five cases relative to the
// removed range [start, start+n):
//  1. Entirely before it — untouched.
//  2. Entirely after it — its position shifts down by n.
//  3. Entirely inside it — discarded outright.
//  4. Straddles only the trailing edge (starts before, ends inside) —
//     truncated to the surviving prefix.
//  5. Straddles the leading edge, or spans the whole range (starts
//     before, ends after, or starts inside and ends after) — the
//     surviving suffix is shifted left within the same buffer.
//
// Any buffer that would otherwise fall into case 2-5 but currently has a
// read or write in flight is left untouched and flagged
// FlagDiscardWhenIdle instead: its data isn't safe to mutate or detach
// while an operation is still writing into (or reading out of) it.
func (s *Stream) RemoveNBytes(start, n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return NewError("RemoveNBytes", CodeInvalidState, "stream is closed")
	}
	if !s.device.IsSeekable() {
		return NewError("RemoveNBytes", CodeInvalidState, "stream is not seekable")
	}
	if n <= 0 {
		return NewError("RemoveNBytes", CodeInvalidArgument, "n must be positive")
	}
	if start < 0 || start+n > s.totalAvailable {
		return NewError("RemoveNBytes", CodeInvalidArgument, "range out of bounds")
	}
	cut := start + n

	for _, buf := range s.pool.inputBuffers() {
		switch {
		case buf.End() <= start:
			// Case 1: untouched.

		case buf.state != OpIdle:
			// This buffer is still being filled by an in-flight read or
			// drained by an in-flight write (seekable devices complete
			// their own I/O synchronously, so in practice this only
			// fires if a future Device implementation completes
			// asynchronously). Its data isn't safe to mutate or detach
			// while that's outstanding; mark it instead and let the
			// completion handler release it once idle.
			buf.SetFlag(FlagDiscardWhenIdle)

		case buf.Pos() >= cut:
			// Case 2: shift down.
			buf.posInMedia -= n

		case buf.Pos() >= start && buf.End() <= cut:
			// Case 3: fully inside the removed range.
			s.pool.detach(buf)

		case buf.Pos() < start && buf.End() <= cut:
			// Case 4: trailing edge only; keep the surviving prefix.
			buf.validBytes = start - buf.Pos()
			buf.SetFlag(FlagUnsavedChanges)

		default:
			// Case 5: a surviving suffix needs to shift left within the
			// buffer. The suffix always begins at cut and now lands at
			// start: right after the kept prefix if the buffer began
			// before start, or at the buffer's logical base otherwise.
			prefixLen := int64(0)
			if buf.Pos() < start {
				prefixLen = start - buf.Pos()
			}
			tailLen := buf.End() - cut
			srcOff := buf.byteAt(cut)
			dstOff := buf.logicalBase + prefixLen
			copy(buf.data[dstOff:dstOff+tailLen], buf.data[srcOff:srcOff+tailLen])
			buf.posInMedia = start - prefixLen
			buf.validBytes = prefixLen + tailLen
			buf.SetFlag(FlagUnsavedChanges)
		}
	}

	s.totalAvailable -= n
	s.in.clear()
	s.out.clear()

	if err := s.device.RemoveNBytes(start, n); err != nil && !errors.Is(err, ErrNotSupported) {
		return WrapError("RemoveNBytes", err)
	}
	return nil
}

// CopyStream copies n bytes from src, starting at its current read
// cursor, into dst at dst's current write cursor, advancing both
// cursors by the number of bytes copied. When transferOwnership is true,
// the copied range is also spliced out of src via RemoveNBytes once the
// copy completes, so the bytes end up moved rather than duplicated.
func CopyStream(dst, src *Stream, n int64, transferOwnership bool) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	startPos := src.GetPosition()
	var copied int64
	for copied < n {
		want := n - copied
		chunk, err := src.GetPtrRef(want)
		if len(chunk) > 0 {
			wrote, werr := dst.Write(chunk)
			copied += int64(wrote)
			src.mu.Lock()
			src.in.next += int64(wrote)
			src.mu.Unlock()
			if werr != nil {
				return copied, WrapError("CopyStream", werr)
			}
			if wrote < len(chunk) {
				return copied, NewError("CopyStream", CodeIOError, "short write to destination stream")
			}
		}
		if err != nil {
			if IsCode(err, CodeEndOfStream) {
				break
			}
			return copied, WrapError("CopyStream", err)
		}
		if len(chunk) == 0 {
			break
		}
	}

	if transferOwnership && copied > 0 {
		if err := src.RemoveNBytes(startPos, copied); err != nil {
			return copied, WrapError("CopyStream", err)
		}
	}
	return copied, nil
}
