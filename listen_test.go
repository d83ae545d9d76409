package asyncstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeAsyncDevice is a non-seekable Device whose ReadBlockAsync just
// records the pending buffer; the test drives completion explicitly by
// calling deliverRead, simulating the separate goroutine a real network
// device would use.
type fakeAsyncDevice struct {
	cb      BlockIOCallback
	pending *IOBuffer
	chunks  [][]byte
}

func (d *fakeAsyncDevice) Open(_ context.Context, cb BlockIOCallback) error {
	d.cb = cb
	cb.OnBlockIOOpen(nil, d)
	return nil
}

func (d *fakeAsyncDevice) ReadBlockAsync(buf *IOBuffer) error {
	d.pending = buf
	return nil
}

func (d *fakeAsyncDevice) WriteBlockAsync(buf *IOBuffer, _ int64) error {
	d.pending = buf
	return nil
}

func (d *fakeAsyncDevice) StartTimeout(TimeoutKind)      {}
func (d *fakeAsyncDevice) CancelTimeout(TimeoutKind)     {}
func (d *fakeAsyncDevice) MediaSize() int64              { return 0 }
func (d *fakeAsyncDevice) IOStartPosition(p int64) int64 { return p }

func (d *fakeAsyncDevice) AllocIOBuffer(hint int64, _ bool) (*IOBuffer, error) {
	size := hint
	if size <= 0 {
		size = 64
	}
	return NewIOBuffer(int(size)), nil
}

func (d *fakeAsyncDevice) IsSeekable() bool     { return false }
func (d *fakeAsyncDevice) MediaType() MediaType { return MediaNetwork }

func (d *fakeAsyncDevice) RemoveNBytes(int64, int64) error { return ErrNotSupported }

func (d *fakeAsyncDevice) Close() error { return nil }

// deliverRead pushes chunk into the currently pending read buffer and
// invokes OnBlockIOEvent, as a real device's background goroutine would.
func (d *fakeAsyncDevice) deliverRead(chunk []byte) {
	buf := d.pending
	n := copy(buf.Bytes(), chunk)
	buf.ExtendValid(buf.Pos() + int64(n))
	d.cb.OnBlockIOEvent(buf)
}

var _ Device = (*fakeAsyncDevice)(nil)

type capturingHandler struct {
	BaseEventHandler
	readyErr   error
	readyAvail int64
	readyCalls int

	disconnectErr   error
	disconnectCalls int
}

func (h *capturingHandler) OnReadyToRead(err error, avail int64, _ *Stream) {
	h.readyErr = err
	h.readyAvail = avail
	h.readyCalls++
}

func (h *capturingHandler) OnStreamDisconnect(err error, _ *Stream) {
	h.disconnectErr = err
	h.disconnectCalls++
}

func TestListenForNBytesSeekableResolvesImmediately(t *testing.T) {
	dev := newFakeDevice(0)
	dev.data = []byte("hello")
	h := &capturingHandler{}
	s, err := Open(context.Background(), dev, h, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ListenForNBytes(1))
	require.Equal(t, 1, h.readyCalls)
	require.NoError(t, h.readyErr)
	require.EqualValues(t, 5, h.readyAvail)
}

func TestListenForNBytesAsyncWaitsForEnoughData(t *testing.T) {
	dev := &fakeAsyncDevice{}
	h := &capturingHandler{}
	s, err := Open(context.Background(), dev, h, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ListenForNBytes(10))
	require.Equal(t, 0, h.readyCalls, "10 bytes requested but none arrived yet")

	dev.deliverRead([]byte("1234"))
	require.Equal(t, 0, h.readyCalls, "only 4 bytes arrived so far")

	dev.deliverRead([]byte("567890"))
	require.Equal(t, 1, h.readyCalls)
	require.NoError(t, h.readyErr)
	require.EqualValues(t, 10, h.readyAvail)
}

func TestListenForMoreBytesAsyncResolvesOnFirstArrival(t *testing.T) {
	dev := &fakeAsyncDevice{}
	h := &capturingHandler{}
	s, err := Open(context.Background(), dev, h, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ListenForMoreBytes())
	dev.deliverRead([]byte("x"))
	require.Equal(t, 1, h.readyCalls)
}

func TestSecondListenWhileOutstandingFails(t *testing.T) {
	dev := &fakeAsyncDevice{}
	s, err := Open(context.Background(), dev, &capturingHandler{}, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ListenForMoreBytes())
	err = s.ListenForMoreBytes()
	require.Error(t, err)
	require.True(t, IsCode(err, CodeInvalidState))
}

// TestReadAfterListenOnNonSeekableDevice exercises the same path
// device/network_test.go's dial/exchange test depends on: once a listen
// resolves over a non-seekable device, Read must find the buffer the
// listen protocol already populated instead of rejecting the stream as
// unseekable.
func TestReadAfterListenOnNonSeekableDevice(t *testing.T) {
	dev := &fakeAsyncDevice{}
	h := &capturingHandler{}
	s, err := Open(context.Background(), dev, h, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ListenForNBytes(5))
	dev.deliverRead([]byte("hello"))
	require.Equal(t, 1, h.readyCalls)

	got := make([]byte, 5)
	n, err := s.Read(got)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(got))
}

// TestReadPastArrivedDataOnNonSeekableDeviceReportsEndOfStream covers the
// "caller asked for more than has arrived yet" case: resolveInputLocked
// must not try to issue its own read (that's the listen protocol's job
// alone), it just reports there's nothing more buffered right now.
func TestReadPastArrivedDataOnNonSeekableDeviceReportsEndOfStream(t *testing.T) {
	dev := &fakeAsyncDevice{}
	h := &capturingHandler{}
	s, err := Open(context.Background(), dev, h, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ListenForNBytes(3))
	dev.deliverRead([]byte("ab"))

	got := make([]byte, 3)
	n, err := s.Read(got)
	require.Equal(t, 2, n)
	require.NoError(t, err)

	n, err = s.Read(got)
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, ErrEndOfStream)
}

// TestReadCompleteWithTransportErrorDisconnects covers listen.go's
// onReadCompleteLocked/device.go's OnStreamDisconnect wiring: a read
// completion carrying a transport error must notify via
// OnStreamDisconnect, not just silently fail the outstanding listen.
func TestReadCompleteWithTransportErrorDisconnects(t *testing.T) {
	dev := &fakeAsyncDevice{}
	h := &capturingHandler{}
	s, err := Open(context.Background(), dev, h, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ListenForMoreBytes())

	buf := dev.pending
	buf.SetErr(NewError("Read", CodeIOError, "connection reset"))
	dev.cb.OnBlockIOEvent(buf)

	require.Equal(t, 1, h.disconnectCalls)
	require.Error(t, h.disconnectErr)
	require.Equal(t, 1, h.readyCalls, "the outstanding listen must also be woken with the error")
}

// TestCloseDuringInFlightReadDoesNotPanic covers stream.go's Close racing
// against listen.go's OnBlockIOEvent: a completion that arrives after
// Close has already nulled the device must be dropped, not panic.
func TestCloseDuringInFlightReadDoesNotPanic(t *testing.T) {
	dev := &fakeAsyncDevice{}
	s, err := Open(context.Background(), dev, &capturingHandler{}, nil)
	require.NoError(t, err)

	require.NoError(t, s.ListenForMoreBytes())
	buf := dev.pending

	require.NoError(t, s.Close())

	require.NotPanics(t, func() {
		n := copy(buf.Bytes(), []byte("x"))
		buf.ExtendValid(buf.Pos() + int64(n))
		dev.cb.OnBlockIOEvent(buf)
	})
}
