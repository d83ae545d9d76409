package device

import (
	"context"
	"testing"

	"github.com/ehrlich-b/asyncstream"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeviceFixedCapacityRejectsOverflowOnFlush(t *testing.T) {
	dev := NewMemory(8, 0, false)
	s, err := asyncstream.Open(context.Background(), dev, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.Equal(t, 10, n)

	require.Error(t, s.Flush(), "flushing past the device's fixed capacity must fail")
}

func TestMemoryDeviceExpandingGrowsOnWrite(t *testing.T) {
	dev := NewMemory(2, 0, true)
	s, err := asyncstream.Open(context.Background(), dev, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Write([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.NoError(t, s.Flush())
	require.EqualValues(t, 11, s.GetDataLength())
}

func TestMemoryDeviceReadWriteRoundTrip(t *testing.T) {
	dev := NewMemory(32, 0, true)
	s, err := asyncstream.Open(context.Background(), dev, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	require.NoError(t, s.SetPosition(0))
	buf := make([]byte, 6)
	n, err := s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, "abcdef", string(buf))
}
