package asyncstream

// This file implements the position engine: SetPosition/GetPosition and
// the foreground-cursor bookkeeping shared by the read and write paths.
//
// SetPosition (an explicit caller-driven seek) resolves an absolute
// stream position to a usable input cursor in up to eight steps:
//  1. Reject non-seekable devices outright (stream-mode has no concept
//     of seeking backward).
//  2. Reject positions outside [0, totalAvailable].
//  3. If the current cursor's buffer holds pos (or pos is the end of the
//     stream and that buffer ends there), just re-point it — no buffer
//     lookup needed.
//  4. Otherwise look for a cached input buffer covering pos.
//  5. If found, touch it (move to MRU front) and point the cursor at it.
//  6. If not found, acquire a buffer anchored at pos from the pool.
//  7. Issue a synchronous read to fill it (seekable devices always
//     complete ReadBlockAsync inline; see Device's doc comment).
//  8. Point the cursor at the freshly loaded buffer.
//
// The read path (read.go) never calls setPositionLocked directly. It
// goes through resolveInputLocked instead, which runs all of these steps
// for seekable devices but, for non-seekable ones, looks up whatever input
// buffer the listen protocol has already received (pool.cap == 0 keeps
// every arrived buffer resident for exactly this lookup) rather than
// rejecting the call outright or issuing a competing read of its own.

// SetPosition repositions the stream's read cursor to the absolute byte
// offset pos.
func (s *Stream) SetPosition(pos int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPositionLocked(pos)
}

func (s *Stream) setPositionLocked(pos int64) error {
	if s.device == nil {
		return NewError("SetPosition", CodeInvalidState, "stream is closed")
	}
	if !s.device.IsSeekable() {
		return NewError("SetPosition", CodeInvalidState, "stream is not seekable")
	}
	if pos < 0 || pos > s.totalAvailable {
		return NewError("SetPosition", CodeInvalidArgument, "position out of range")
	}

	if s.in.isSet() && (s.in.buf.ContainsExclusive(pos) || pos == s.in.buf.End() && pos == s.totalAvailable) {
		s.in.next = pos
		return nil
	}

	if buf := s.pool.findInputContaining(pos, s.totalAvailable); buf != nil {
		s.pool.touch(buf)
		s.makeForegroundInput(buf, pos)
		return nil
	}

	buf, err := s.pool.acquire(pos, true)
	if err != nil {
		return WrapError("SetPosition", err)
	}
	buf.state = OpReadInFlight
	if err := s.device.ReadBlockAsync(buf); err != nil {
		buf.state = OpIdle
		buf.err = err
		s.pool.detach(buf)
		return WrapError("SetPosition", err)
	}
	// Seekable devices complete inline (see Device's doc comment): by the
	// time ReadBlockAsync returns, buf already holds valid data.
	buf.state = OpIdle
	buf.SetFlag(FlagValidData)
	s.makeForegroundInput(buf, pos)
	return nil
}

// resolveInputLocked points the foreground input cursor at whatever
// buffer covers pos, for the read path's buffer-boundary crossings.
//
// Seekable devices behave exactly like an explicit SetPosition: this is
// just setPositionLocked. Non-seekable devices never seek — the listen
// protocol (listen.go) is the only thing allowed to issue a read, and it
// keeps every arrived buffer resident in the input list (pool.cap == 0
// for a non-seekable stream; see Open). So here we only ever look up
// data that has already arrived; we never acquire a buffer or call
// ReadBlockAsync ourselves, since doing so would race a second read
// against the listen state machine's single-outstanding-load invariant.
// If nothing covers pos yet, the caller hasn't been told about enough
// data (more may still be in flight), and we report CodeEndOfStream so
// readLocked's loop surfaces it the same way it surfaces a real EOF.
func (s *Stream) resolveInputLocked(pos int64) error {
	if s.device == nil {
		return NewError("Read", CodeInvalidState, "stream is closed")
	}
	if s.device.IsSeekable() {
		return s.setPositionLocked(pos)
	}
	if pos < 0 || pos > s.totalAvailable {
		return NewError("Read", CodeInvalidArgument, "position out of range")
	}

	if s.in.isSet() && (s.in.buf.ContainsExclusive(pos) || pos == s.in.buf.End() && pos == s.totalAvailable) {
		s.in.next = pos
		return nil
	}

	if buf := s.pool.findInputContaining(pos, s.totalAvailable); buf != nil {
		s.pool.touch(buf)
		s.makeForegroundInput(buf, pos)
		return nil
	}

	return NewError("Read", CodeEndOfStream, "no more data has arrived yet")
}

// GetPosition returns the stream's current absolute read position.
func (s *Stream) GetPosition() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

// positionLocked is GetPosition's body for callers that already hold mu.
func (s *Stream) positionLocked() int64 {
	if s.in.isSet() {
		return s.in.next
	}
	return 0
}

// makeForegroundInput points the foreground input cursor at buf, with the
// logical read position set to pos.
func (s *Stream) makeForegroundInput(buf *IOBuffer, pos int64) {
	s.in.buf = buf
	s.in.first = buf.Pos()
	s.in.next = pos
	s.in.end = buf.End()
	s.in.lastPossible = s.totalAvailable
}

// advanceInput moves the foreground input cursor forward by n bytes,
// re-resolving to a new buffer via setPositionLocked once it runs off the
// end of the current one.
func (s *Stream) advanceInput(n int64) error {
	if !s.in.isSet() {
		return NewError("advanceInput", CodeInvalidState, "no input cursor")
	}
	next := s.in.next + n
	if s.in.buf.Contains(next) {
		s.in.next = next
		return nil
	}
	return s.setPositionLocked(next)
}
