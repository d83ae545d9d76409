package device

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ehrlich-b/asyncstream"
	"github.com/stretchr/testify/require"
)

func TestFileDeviceWriteFlushReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	f, err := NewFile(path, false, false, false)
	require.NoError(t, err)
	s, err := asyncstream.Open(context.Background(), f, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetPosition(3))
	_, err = s.Write([]byte("def"))
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	on, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "abcdef", string(on))
}

func TestFileDeviceReadOnlyRejectsWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	f, err := NewFile(path, true, false, false)
	require.NoError(t, err)
	s, err := asyncstream.Open(context.Background(), f, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetPosition(0))
	_, err = s.Write([]byte("X"))
	require.NoError(t, err, "in-place buffer write itself succeeds")
	require.Error(t, s.Flush(), "flushing a read-only file must fail")
}

func TestFileDeviceRemoveNBytesSuffixTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.bin")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	f, err := NewFile(path, false, false, false)
	require.NoError(t, err)
	s, err := asyncstream.Open(context.Background(), f, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RemoveNBytes(7, 3))
	on, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "0123456", string(on))
}

func TestFileDeviceRemoveNBytesMiddleShifts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.bin")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	f, err := NewFile(path, false, false, false)
	require.NoError(t, err)
	s, err := asyncstream.Open(context.Background(), f, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RemoveNBytes(3, 4))
	on, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "012789", string(on))
}
