// Package device provides concrete asyncstream.Device implementations:
// local files, in-memory regions, and network sockets, plus a URL-scheme
// dispatcher (OpenURL) that constructs the right one.
package device

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/ehrlich-b/asyncstream"
	"github.com/ehrlich-b/asyncstream/internal/constants"
)

// File is a seekable Device backed by a local *os.File. Reads and writes
// are synchronous pread/pwrite-style calls: the
// device never calls BlockIOCallback.OnBlockIOEvent itself, matching the
// contract documented on asyncstream.Device.
type File struct {
	f        *os.File
	size     int64
	readOnly bool
}

// NewFile opens path for a seekable stream. When create is true, the
// file is created if it doesn't already exist; when truncate is true, an
// existing file is truncated to zero length. Both are ignored if readOnly.
func NewFile(path string, readOnly, create, truncate bool) (*File, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	if create && !readOnly {
		flag |= os.O_CREATE
	}
	if truncate && !readOnly {
		flag |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{f: f, size: fi.Size(), readOnly: readOnly}, nil
}

func (d *File) Open(_ context.Context, cb asyncstream.BlockIOCallback) error {
	cb.OnBlockIOOpen(nil, d)
	return nil
}

func (d *File) ReadBlockAsync(buf *asyncstream.IOBuffer) error {
	n, err := d.f.ReadAt(buf.Bytes(), buf.Pos())
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	buf.ExtendValid(buf.Pos() + int64(n))
	return nil
}

func (d *File) WriteBlockAsync(buf *asyncstream.IOBuffer, startOffset int64) error {
	if d.readOnly {
		return asyncstream.ErrNotSupported
	}
	data := buf.Slice(buf.Pos()+startOffset, buf.ValidBytes()-startOffset)
	n, err := d.f.WriteAt(data, buf.Pos()+startOffset)
	if err != nil {
		return err
	}
	if end := buf.Pos() + startOffset + int64(n); end > d.size {
		d.size = end
	}
	return nil
}

func (d *File) StartTimeout(asyncstream.TimeoutKind)  {}
func (d *File) CancelTimeout(asyncstream.TimeoutKind) {}

func (d *File) MediaSize() int64 { return d.size }

func (d *File) IOStartPosition(rawPos int64) int64 { return rawPos }

func (d *File) AllocIOBuffer(hint int64, _ bool) (*asyncstream.IOBuffer, error) {
	size := hint
	if size <= 0 {
		size = constants.DefaultBufferSize
	}
	return asyncstream.NewIOBuffer(int(size)), nil
}

func (d *File) IsSeekable() bool               { return true }
func (d *File) MediaType() asyncstream.MediaType { return asyncstream.MediaFile }

func (d *File) RemoveNBytes(start, n int64) error {
	if d.readOnly {
		return asyncstream.ErrNotSupported
	}
	end := start + n
	if end >= d.size {
		if err := d.f.Truncate(start); err != nil {
			return err
		}
		d.size = start
		return nil
	}

	buf := make([]byte, constants.DefaultBufferSize)
	readPos, writePos := end, start
	for readPos < d.size {
		want := int64(len(buf))
		if readPos+want > d.size {
			want = d.size - readPos
		}
		got, err := d.f.ReadAt(buf[:want], readPos)
		if got > 0 {
			if _, werr := d.f.WriteAt(buf[:got], writePos); werr != nil {
				return werr
			}
			writePos += int64(got)
			readPos += int64(got)
		}
		if err != nil {
			break
		}
	}
	if err := d.f.Truncate(writePos); err != nil {
		return err
	}
	d.size = writePos
	return nil
}

func (d *File) Close() error { return d.f.Close() }

var _ asyncstream.Device = (*File)(nil)
