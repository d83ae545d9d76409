package asyncstream

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindStringWithinSingleBuffer(t *testing.T) {
	dev := newFakeDevice(0)
	dev.data = []byte("the quick brown fox")
	s, err := Open(context.Background(), dev, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	pos, err := s.FindString("quick")
	require.NoError(t, err)
	require.EqualValues(t, 4, pos)
	require.EqualValues(t, 0, s.GetPosition(), "FindString must not disturb the cursor")
}

func TestFindStringAcrossBufferBoundary(t *testing.T) {
	dev := newFakeDevice(0)
	dev.data = []byte(strings.Repeat("a", 60) + "needle" + strings.Repeat("a", 20))
	s, err := Open(context.Background(), dev, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	// The fake device hands out 64-byte buffers. Cache the window at 64
	// first, then go back to the start: the needle (60..65) spans the
	// two separately-acquired buffers anchored at 0 and 64.
	require.NoError(t, s.SetPosition(64))
	_, err = s.PeekByte()
	require.NoError(t, err)
	require.NoError(t, s.SetPosition(0))

	pos, err := s.FindString("needle")
	require.NoError(t, err)
	require.EqualValues(t, 60, pos)
}

func TestFindStringNotFound(t *testing.T) {
	dev := newFakeDevice(0)
	dev.data = []byte("hello")
	s, err := Open(context.Background(), dev, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	pos, err := s.FindString("zzz")
	require.NoError(t, err)
	require.Equal(t, NotFound, pos)
}

func TestFindStringEmptyNeedleReturnsCurrentPosition(t *testing.T) {
	dev := newFakeDevice(0)
	dev.data = []byte("hello")
	s, err := Open(context.Background(), dev, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetPosition(2))
	pos, err := s.FindString("")
	require.NoError(t, err)
	require.EqualValues(t, 2, pos)
}
