package device

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ehrlich-b/asyncstream"
	"github.com/stretchr/testify/require"
)

func TestOpenURLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	s, err := OpenURL(context.Background(), "file://"+path, nil, nil)
	require.NoError(t, err)
	defer s.Close()
	require.EqualValues(t, 5, s.GetDataLength())
}

func TestOpenURLMemory(t *testing.T) {
	s, err := OpenURL(context.Background(), "memory://1024/0?expand=1", nil, nil)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Write([]byte("abc"))
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestOpenURLMemoryRequiresBothSegments(t *testing.T) {
	_, err := OpenURL(context.Background(), "memory://1024", nil, nil)
	require.Error(t, err)
	require.True(t, asyncstream.IsCode(err, asyncstream.CodeInvalidArgument))
}

func TestOpenURLUnsupportedScheme(t *testing.T) {
	_, err := OpenURL(context.Background(), "http://example.com/resource", nil, nil)
	require.ErrorIs(t, err, asyncstream.ErrNotSupported)
}

func TestOpenURLEmptyScheme(t *testing.T) {
	_, err := OpenURL(context.Background(), "empty://", nil, nil)
	require.Error(t, err)
	require.True(t, asyncstream.IsCode(err, asyncstream.CodeInvalidArgument))
}

func TestOpenURLUnrecognizedScheme(t *testing.T) {
	_, err := OpenURL(context.Background(), "gopher://example.com/resource", nil, nil)
	require.Error(t, err)
	require.True(t, asyncstream.IsCode(err, asyncstream.CodeInvalidArgument))
}
