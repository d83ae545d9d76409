package asyncstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoveNBytesMiddle(t *testing.T) {
	dev := newFakeDevice(0)
	dev.data = []byte("0123456789")
	s, err := Open(context.Background(), dev, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RemoveNBytes(3, 4)) // remove "3456"
	require.EqualValues(t, 6, s.GetDataLength())

	buf := make([]byte, 6)
	require.NoError(t, s.SetPosition(0))
	n, err := s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, "012789", string(buf))
}

func TestRemoveNBytesSuffix(t *testing.T) {
	dev := newFakeDevice(0)
	dev.data = []byte("0123456789")
	s, err := Open(context.Background(), dev, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RemoveNBytes(7, 3))
	require.EqualValues(t, 7, s.GetDataLength())
}

// TestRemoveNBytesSkipsBufferStillInFlight covers the FlagDiscardWhenIdle
// wiring: a buffer that overlaps the removed range but is still mid-I/O
// must not be mutated or detached in place; it's flagged instead and left
// for the completion handler to release.
func TestRemoveNBytesSkipsBufferStillInFlight(t *testing.T) {
	dev := newFakeDevice(0)
	dev.data = []byte("0123456789")
	s, err := Open(context.Background(), dev, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetPosition(3))
	_, err = s.GetByte()
	require.NoError(t, err)

	buf := s.in.buf
	require.NotNil(t, buf)
	buf.state = OpReadInFlight

	require.NoError(t, s.RemoveNBytes(3, 4))

	require.True(t, buf.HasFlag(FlagDiscardWhenIdle))
	found := false
	for _, b := range s.pool.inputBuffers() {
		if b == buf {
			found = true
		}
	}
	require.True(t, found, "an in-flight buffer must stay in the pool until its operation completes")
}

func TestCopyStreamWithoutOwnershipTransfer(t *testing.T) {
	srcDev := newFakeDevice(0)
	srcDev.data = []byte("hello world")
	src, err := Open(context.Background(), srcDev, nil, nil)
	require.NoError(t, err)
	defer src.Close()

	dstDev := newFakeDevice(0)
	dst, err := Open(context.Background(), dstDev, nil, nil)
	require.NoError(t, err)
	defer dst.Close()

	n, err := CopyStream(dst, src, 11, false)
	require.NoError(t, err)
	require.EqualValues(t, 11, n)
	require.NoError(t, dst.Flush())
	require.Equal(t, "hello world", string(dstDev.data))

	// Source is untouched: still readable from the start.
	require.EqualValues(t, 11, src.GetDataLength())
}

func TestCopyStreamWithOwnershipTransfer(t *testing.T) {
	srcDev := newFakeDevice(0)
	srcDev.data = []byte("hello world")
	src, err := Open(context.Background(), srcDev, nil, nil)
	require.NoError(t, err)
	defer src.Close()

	dstDev := newFakeDevice(0)
	dst, err := Open(context.Background(), dstDev, nil, nil)
	require.NoError(t, err)
	defer dst.Close()

	n, err := CopyStream(dst, src, 11, true)
	require.NoError(t, err)
	require.EqualValues(t, 11, n)
	require.NoError(t, dst.Flush())
	require.Equal(t, "hello world", string(dstDev.data))

	require.EqualValues(t, 0, src.GetDataLength(), "ownership transfer must remove copied bytes from source")
}
