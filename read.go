package asyncstream

import "github.com/ehrlich-b/asyncstream/internal/queue"

// Read copies up to len(p) bytes starting at the current read cursor into
// p, advancing the cursor by the number of bytes copied. Returns
// ErrEndOfStream (errors.Is(err, io.EOF) also holds) once the cursor reaches the end of
// currently available data on a stream with no more data coming.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(p)
}

func (s *Stream) readLocked(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !s.in.isSet() {
		if err := s.resolveInputLocked(s.positionLocked()); err != nil {
			return 0, err
		}
	}

	total := 0
	for total < len(p) {
		if s.in.next >= s.totalAvailable {
			break
		}
		if !s.in.buf.ContainsExclusive(s.in.next) {
			if err := s.resolveInputLocked(s.in.next); err != nil {
				if total > 0 {
					return total, nil
				}
				return 0, err
			}
		}
		avail := s.in.buf.End() - s.in.next
		want := int64(len(p) - total)
		if want > avail {
			want = avail
		}
		copy(p[total:], s.in.buf.Slice(s.in.next, want))
		s.in.next += want
		total += int(want)
	}

	if total == 0 {
		s.metrics.RecordRead(0, 0, false)
		s.obs.ObserveRead(0, 0, false)
		return 0, ErrEndOfStream
	}
	s.metrics.RecordRead(uint64(total), 0, true)
	s.obs.ObserveRead(uint64(total), 0, true)
	return total, nil
}

// GetByte reads a single byte at the current cursor and advances it.
func (s *Stream) GetByte() (byte, error) {
	var b [1]byte
	n, err := s.Read(b[:])
	if n == 0 {
		return 0, err
	}
	return b[0], nil
}

// PeekByte returns the byte at the current cursor without advancing it.
func (s *Stream) PeekByte() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.in.isSet() {
		if err := s.resolveInputLocked(s.positionLocked()); err != nil {
			return 0, err
		}
	}
	if s.in.next >= s.totalAvailable {
		return 0, ErrEndOfStream
	}
	if !s.in.buf.ContainsExclusive(s.in.next) {
		if err := s.resolveInputLocked(s.in.next); err != nil {
			return 0, err
		}
	}
	return s.in.buf.Slice(s.in.next, 1)[0], nil
}

// UnGetByte steps the read cursor back by one byte.
// Returns ErrInvalidState if already at position 0.
func (s *Stream) UnGetByte() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.positionLocked()
	if pos <= 0 {
		return NewError("UnGetByte", CodeInvalidState, "already at start of stream")
	}
	return s.resolveInputLocked(pos - 1)
}

// GetPtr returns a direct slice into an internal buffer covering up to n
// bytes starting at the current cursor, without copying, when the
// requested range lies entirely within one cached buffer. A returned
// slice always covers exactly n bytes, and advanced reports how far the
// cursor moved: n on success, or, when fewer than n bytes could be read,
// the number consumed, with p nil and err set. When the
// requested range crosses a buffer boundary, GetPtr falls back to a
// pooled scratch copy (internal/queue.GetBuffer) assembled from one or
// more Reads; callers that get a copy must not assume mutations are
// visible to the stream.
func (s *Stream) GetPtr(n int64) (p []byte, advanced int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.in.isSet() {
		if err := s.resolveInputLocked(s.positionLocked()); err != nil {
			return nil, 0, err
		}
	}
	if s.in.next >= s.totalAvailable {
		return nil, 0, ErrEndOfStream
	}
	if !s.in.buf.ContainsExclusive(s.in.next) {
		if err := s.resolveInputLocked(s.in.next); err != nil {
			return nil, 0, err
		}
	}

	avail := s.in.buf.End() - s.in.next
	if avail >= n {
		out := s.in.buf.Slice(s.in.next, n)
		s.in.next += n
		return out, n, nil
	}

	// Crosses a buffer boundary: assemble a scratch copy.
	if n > 1<<20 {
		return nil, 0, NewError("GetPtr", CodeInvalidArgument, "requested range too large for scratch copy")
	}
	scratch := queue.GetBuffer(uint32(n))
	got, rerr := s.readLocked(scratch)
	if got < len(scratch) {
		queue.PutBuffer(scratch)
		if rerr == nil {
			rerr = ErrEndOfStream
		}
		return nil, int64(got), rerr
	}
	return scratch, int64(got), nil
}

// GetPtrRef is a looser form of GetPtr for callers that accept a
// best-effort view: it returns whatever contiguous span is available in
// the current buffer (which may be shorter than n, including zero; n <= 0
// means no limit) and
// never falls back to a scratch copy, so it never blocks on a cross-
// buffer reassembly. Intended for bulk zero-copy consumers (splice/copy)
// that can loop themselves across buffer boundaries.
func (s *Stream) GetPtrRef(n int64) (p []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.in.isSet() {
		if err := s.resolveInputLocked(s.positionLocked()); err != nil {
			return nil, err
		}
	}
	if s.in.next >= s.totalAvailable {
		return nil, ErrEndOfStream
	}
	if !s.in.buf.ContainsExclusive(s.in.next) {
		if err := s.resolveInputLocked(s.in.next); err != nil {
			return nil, err
		}
	}
	avail := s.in.buf.End() - s.in.next
	if n > 0 && avail > n {
		avail = n
	}
	return s.in.buf.Slice(s.in.next, avail), nil
}
