package asyncstream

import (
	"context"

	"github.com/ehrlich-b/asyncstream/internal/constants"
)

// This file implements the async readiness/listen protocol and the
// write-back flush protocol, along with Stream's BlockIOCallback
// implementation that ties device completions back into both.
//
// Seekable devices already know their full extent at open time, so any
// listen request resolves the instant it's issued. Non-seekable devices
// resolve asynchronously: issueNextLoadLocked arms one background read;
// its completion arrives later through OnBlockIOEvent, which re-arms
// another read if the listen isn't satisfied yet or resolves it and
// reports up once it is (see onReadCompleteLocked).

// ListenForNBytes requests notification once at least n more bytes than
// are currently available have arrived, or the stream ends/errors first.
func (s *Stream) ListenForNBytes(n int64) error {
	if n <= 0 {
		return NewError("ListenForNBytes", CodeInvalidArgument, "n must be positive")
	}
	return s.listenStart(listenNBytes, n)
}

// ListenForMoreBytes requests notification the next time any new data
// arrives at all.
func (s *Stream) ListenForMoreBytes() error {
	return s.listenStart(listenAnyMoreBytes, 0)
}

// ListenForAllBytesToEOF requests notification once the stream reaches
// its natural end.
func (s *Stream) ListenForAllBytesToEOF() error {
	return s.listenStart(listenToEOF, 0)
}

func (s *Stream) listenStart(kind listenKind, n int64) error {
	s.mu.Lock()
	if s.device == nil {
		s.mu.Unlock()
		return NewError("Listen", CodeInvalidState, "stream is closed")
	}
	if s.listenType != listenNone {
		s.mu.Unlock()
		return NewError("Listen", CodeInvalidState, "a listen request is already outstanding")
	}

	base := s.totalAvailable
	switch kind {
	case listenNBytes:
		s.listenStop = base + n
	case listenAnyMoreBytes:
		s.listenStop = base + 1
	case listenToEOF:
		s.listenStop = -1
	}
	s.listenType = kind

	if s.device.IsSeekable() {
		avail := s.totalAvailable
		s.listenType = listenNone
		s.mu.Unlock()
		s.deliver(func(h EventHandler) { h.OnReadyToRead(nil, avail, s) })
		return nil
	}

	s.state = StateListening
	err := s.issueNextLoadLocked()
	s.mu.Unlock()
	return err
}

// issueNextLoadLocked arms one background read starting at
// nextLoadStart. Caller holds s.mu.
func (s *Stream) issueNextLoadLocked() error {
	buf, err := s.pool.acquire(s.nextLoadStart, true)
	if err != nil {
		return WrapError("Listen", err)
	}
	buf.state = OpReadInFlight
	s.device.StartTimeout(TimeoutRead)
	if err := s.device.ReadBlockAsync(buf); err != nil {
		buf.state = OpIdle
		s.pool.detach(buf)
		s.device.CancelTimeout(TimeoutRead)
		return WrapError("Listen", err)
	}
	return nil
}

// Flush writes back every dirty buffer. On
// seekable devices this happens inline and OnFlush fires before Flush
// returns. On non-seekable devices, pending writes are dispatched and
// OnFlush fires later, from OnBlockIOEvent, once they all complete.
func (s *Stream) Flush() error {
	s.mu.Lock()
	if s.device == nil {
		s.mu.Unlock()
		return NewError("Flush", CodeInvalidState, "stream is closed")
	}
	if s.flushing {
		s.mu.Unlock()
		return NewError("Flush", CodeInvalidState, "a flush is already outstanding")
	}

	if s.device.IsSeekable() {
		err := s.flushSeekedLocked()
		s.mu.Unlock()
		s.metrics.RecordFlush(0, err == nil)
		s.obs.ObserveFlush(0, err == nil)
		s.deliver(func(h EventHandler) { h.OnFlush(err, s) })
		return err
	}

	if s.out.isSet() {
		if err := s.moveOutputToBackgroundLocked(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	if s.numFlushWrites == 0 {
		s.mu.Unlock()
		s.metrics.RecordFlush(0, true)
		s.obs.ObserveFlush(0, true)
		s.deliver(func(h EventHandler) { h.OnFlush(nil, s) })
		return nil
	}
	s.flushing = true
	s.state = StateFlushing
	s.mu.Unlock()
	return nil
}

func (s *Stream) flushSeekedLocked() error {
	var firstErr error
	for _, buf := range s.pool.inputBuffers() {
		if !buf.HasFlag(FlagUnsavedChanges) {
			continue
		}
		buf.state = OpWriteInFlight
		err := s.device.WriteBlockAsync(buf, 0)
		buf.state = OpIdle
		if err != nil {
			buf.SetFlag(FlagError)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		buf.ClearFlag(FlagUnsavedChanges)
	}
	return firstErr
}

// OnBlockIOOpen implements BlockIOCallback. It is invoked once the
// device's open handshake resolves, synchronously for file/memory
// devices and from the device's own goroutine for network devices.
func (s *Stream) OnBlockIOOpen(err error, dev Device) {
	s.mu.Lock()
	if err != nil {
		s.state = StateClosed
		s.mu.Unlock()
		s.deliver(func(h EventHandler) { h.OnOpen(err, s) })
		return
	}
	s.state = StateOpen
	s.totalAvailable = dev.MediaSize()
	s.mu.Unlock()
	s.deliver(func(h EventHandler) { h.OnOpen(nil, s) })
}

// OnBlockIOAccept implements BlockIOCallback for listening devices: dev
// is the newly accepted connection, wrapped in its own Stream and handed
// to the registered EventHandler.
func (s *Stream) OnBlockIOAccept(err error, dev Device) {
	if err != nil {
		return
	}
	child, oerr := Open(context.Background(), dev, s.handler, &Options{Observer: s.obs, Logger: s.logger})
	if oerr != nil {
		return
	}
	s.deliver(func(h EventHandler) { h.OnAccept(child) })
}

// OnBlockIOEvent implements BlockIOCallback. Only non-seekable devices
// ever call this (seekable devices complete inline; see Device's doc
// comment) and always from a goroutine distinct from the one that issued
// the operation, so acquiring s.mu here is never re-entrant.
func (s *Stream) OnBlockIOEvent(buf *IOBuffer) {
	s.mu.Lock()
	// A buffer marked discard-when-idle (by Close or RemoveNBytes while
	// the operation below was already in flight) is never reported
	// anywhere; it's just released now that it has gone idle. Checked
	// before the s.device nil check below, since this path must stay
	// safe even when the stream has already fully closed.
	if buf.HasFlag(FlagDiscardWhenIdle) {
		buf.state = OpIdle
		s.pool.detach(buf)
		s.mu.Unlock()
		return
	}
	if s.device == nil {
		// The stream closed while this operation was in flight; its
		// completion arrived too late to matter. Drop it silently.
		s.mu.Unlock()
		return
	}
	if buf.HasFlag(FlagIsOutput) {
		notifyFlush, ferr := s.onWriteCompleteLocked(buf)
		s.mu.Unlock()
		if notifyFlush {
			s.metrics.RecordFlush(0, ferr == nil)
			s.obs.ObserveFlush(0, ferr == nil)
			s.deliver(func(h EventHandler) { h.OnFlush(ferr, s) })
		}
		return
	}

	notify, disconnect, rerr, avail := s.onReadCompleteLocked(buf)
	s.mu.Unlock()
	if disconnect {
		s.deliver(func(h EventHandler) { h.OnStreamDisconnect(rerr, s) })
	}
	if notify {
		s.deliver(func(h EventHandler) { h.OnReadyToRead(rerr, avail, s) })
	}
}

// onWriteCompleteLocked discards a completed background write buffer
// and
// reports whether this was the last outstanding write of an active
// flush.
func (s *Stream) onWriteCompleteLocked(buf *IOBuffer) (notifyFlush bool, ferr error) {
	s.pool.detach(buf)
	if buf.err != nil && s.flushErr == nil {
		s.flushErr = buf.err
	}
	if s.numFlushWrites > 0 {
		s.numFlushWrites--
	}
	if s.flushing && s.numFlushWrites == 0 {
		s.flushing = false
		s.state = StateOpen
		ferr = s.flushErr
		s.flushErr = nil
		return true, ferr
	}
	return false, nil
}

// onReadCompleteLocked processes one background read completion: it
// folds small arrivals into their predecessor buffer (coalescing), grows
// totalAvailable, and either re-arms another read or resolves the
// outstanding listen. A transport error always reports disconnect=true
// (the connection is gone regardless of whether a listen was
// outstanding); notify additionally reports true when a listen needs to
// be woken up with that same error.
func (s *Stream) onReadCompleteLocked(buf *IOBuffer) (notify, disconnect bool, err error, avail int64) {
	s.device.CancelTimeout(TimeoutRead)
	buf.state = OpIdle

	if buf.err != nil {
		kind := s.listenType
		s.listenType = listenNone
		s.state = StateOpen
		return kind != listenNone, true, buf.err, s.totalAvailable
	}

	buf.SetFlag(FlagValidData)

	if buf.ValidBytes() < constants.MinReasonableNetworkPacket {
		if pred := s.pool.predecessorOf(buf); pred != nil && pred.RoomAtEnd() >= buf.ValidBytes() {
			s.pool.combine(pred, buf)
			s.metrics.RecordCoalesce()
			buf = pred
		}
	}

	s.nextLoadStart = buf.End()
	if buf.End() > s.totalAvailable {
		s.totalAvailable = buf.End()
	}

	if s.listenType == listenNone {
		return false, false, nil, s.totalAvailable
	}

	satisfied := s.listenType != listenToEOF && s.totalAvailable >= s.listenStop
	if satisfied {
		s.listenType = listenNone
		s.state = StateOpen
		return true, false, nil, s.totalAvailable
	}

	if err := s.issueNextLoadLocked(); err != nil {
		s.listenType = listenNone
		s.state = StateOpen
		return true, false, err, s.totalAvailable
	}
	return false, false, nil, 0
}
