package asyncstream

// This file implements the write path, split along the same seekable /
// non-seekable line as the Device interface:
//
//   - Seekable devices share their buffer set between reads and writes.
//     Write extends or overwrites the input cursor's current buffer in
//     place, marks it dirty, and leaves the actual write-back to Flush.
//   - Non-seekable devices accumulate writes into a foreground output
//     buffer that is never shared with the input cache; once it fills,
//     or Flush is called, it moves to the background output queue and a
//     write is issued asynchronously. Completion (via OnBlockIOEvent)
//     discards the buffer — it is never read back.

// Write copies p into the stream starting at the current write cursor.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return 0, NewError("Write", CodeInvalidState, "stream is closed")
	}

	var n int
	var err error
	if s.device.IsSeekable() {
		n, err = s.writeSeekedLocked(p)
	} else {
		n, err = s.writeStreamLocked(p)
	}
	if err == nil {
		s.metrics.RecordWrite(uint64(n), 0, true)
		s.obs.ObserveWrite(uint64(n), 0, true)
	}
	return n, err
}

// PutByte writes a single byte at the current write cursor.
func (s *Stream) PutByte(b byte) error {
	_, err := s.Write([]byte{b})
	return err
}

func (s *Stream) writeSeekedLocked(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	total := 0
	for total < len(p) {
		pos := s.in.next
		if !s.in.isSet() || !s.in.buf.Contains(pos) {
			if err := s.setPositionLocked(pos); err != nil {
				if pos == s.totalAvailable {
					// Writing exactly at EOF: no existing buffer covers
					// it yet. Acquire one anchored here instead of
					// treating this as a seek failure.
					buf, aerr := s.pool.acquire(pos, true)
					if aerr != nil {
						if total > 0 {
							return total, nil
						}
						return 0, WrapError("Write", aerr)
					}
					s.makeForegroundInput(buf, pos)
				} else if total > 0 {
					return total, nil
				} else {
					return 0, err
				}
			}
		}

		buf := s.in.buf
		if !buf.CapacityContains(pos) {
			// Buffer is physically full at this position; force a fresh
			// buffer on the next loop iteration. At EOF no other buffer
			// can cover pos, so one is acquired directly.
			if pos == s.totalAvailable {
				nb, aerr := s.pool.acquire(pos, true)
				if aerr != nil {
					return total, nil
				}
				s.makeForegroundInput(nb, pos)
			} else if err := s.setPositionLocked(pos); err != nil {
				return total, nil
			}
			continue
		}

		room := buf.CapacityEnd() - pos
		n := int64(len(p) - total)
		if n > room {
			n = room
		}
		off := buf.byteAt(pos)
		copy(buf.data[off:off+n], p[total:total+int(n)])

		newEnd := pos + n
		buf.ExtendValid(newEnd)
		buf.SetFlag(FlagUnsavedChanges)
		buf.SetFlag(FlagValidData)
		s.in.next = newEnd
		s.in.end = buf.End()
		if newEnd > s.totalAvailable {
			s.totalAvailable = newEnd
		}
		s.pool.touch(buf)
		total += int(n)
	}
	return total, nil
}

func (s *Stream) writeStreamLocked(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		if !s.out.isSet() {
			buf, err := s.device.AllocIOBuffer(0, false)
			if err != nil {
				if total > 0 {
					return total, nil
				}
				return 0, WrapError("Write", err)
			}
			buf.Reset(s.nextAsyncPos)
			buf.SetFlag(FlagIsOutput)
			s.out.buf = buf
			s.out.first = buf.Pos()
			s.out.next = buf.Pos()
		}

		room := s.out.buf.RoomAtEnd()
		if room <= 0 {
			if err := s.moveOutputToBackgroundLocked(); err != nil {
				if total > 0 {
					return total, nil
				}
				return 0, err
			}
			continue
		}

		n := int64(len(p) - total)
		if n > room {
			n = room
		}
		off := s.out.buf.logicalBase + s.out.buf.validBytes
		copy(s.out.buf.data[off:off+n], p[total:total+int(n)])
		s.out.buf.validBytes += n
		s.out.buf.SetFlag(FlagUnsavedChanges)
		s.out.buf.SetFlag(FlagValidData)
		s.out.next += n
		s.nextAsyncPos += n
		s.totalAvailable += n
		total += int(n)
	}
	return total, nil
}

// moveOutputToBackgroundLocked dispatches the current foreground output
// buffer for writing and clears the foreground output cursor so the next
// Write call starts a fresh one.
func (s *Stream) moveOutputToBackgroundLocked() error {
	if !s.out.isSet() {
		return nil
	}
	buf := s.out.buf
	s.out.clear()

	buf.state = OpWriteInFlight
	s.pool.pushOutputBack(buf)
	if err := s.device.WriteBlockAsync(buf, 0); err != nil {
		buf.state = OpIdle
		buf.err = err
		s.pool.detach(buf)
		return WrapError("Write", err)
	}
	// Seekable devices never take this path (writeStreamLocked is
	// non-seekable only), so completion always arrives later via
	// OnBlockIOEvent from the device's own goroutine.
	s.numFlushWrites++
	return nil
}
