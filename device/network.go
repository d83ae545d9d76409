package device

import (
	"context"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/asyncstream"
	"github.com/ehrlich-b/asyncstream/internal/constants"
)

// Network is a non-seekable Device backed by a TCP connection. Unlike File and Memory, every
// operation here genuinely completes on a separate goroutine and
// reports back through BlockIOCallback.OnBlockIOEvent, which is what
// exercises the asynchronous half of the Device contract documented on
// asyncstream.Device.
type Network struct {
	conn        net.Conn
	listener    net.Listener
	addr        string
	readTimeout time.Duration
	cb          asyncstream.BlockIOCallback
}

// NewNetworkDial creates a client-side Network device that dials addr
// once Open is called.
func NewNetworkDial(addr string) *Network {
	return &Network{addr: addr, readTimeout: constants.DefaultReadTimeout}
}

// NewNetworkListen creates a server-side Network device: Open starts an
// accept loop and each accepted connection is reported through
// BlockIOCallback.OnBlockIOAccept.
func NewNetworkListen(addr string) (*Network, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Network{listener: ln, readTimeout: constants.DefaultReadTimeout}, nil
}

func (d *Network) Open(ctx context.Context, cb asyncstream.BlockIOCallback) error {
	d.cb = cb
	if d.listener != nil {
		go d.acceptLoop()
		cb.OnBlockIOOpen(nil, d)
		return nil
	}
	if d.conn != nil {
		// Already holds an accepted connection handed in by acceptLoop.
		cb.OnBlockIOOpen(nil, d)
		return nil
	}

	go func() {
		conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", d.addr)
		if err != nil {
			cb.OnBlockIOOpen(err, d)
			return
		}
		d.conn = conn
		tuneTCPSocket(conn)
		cb.OnBlockIOOpen(nil, d)
	}()
	return nil
}

func (d *Network) acceptLoop() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			return
		}
		tuneTCPSocket(conn)
		child := &Network{conn: conn, readTimeout: d.readTimeout}
		d.cb.OnBlockIOAccept(nil, child)
	}
}

func (d *Network) ReadBlockAsync(buf *asyncstream.IOBuffer) error {
	go func() {
		if d.readTimeout > 0 {
			d.conn.SetReadDeadline(time.Now().Add(d.readTimeout))
		}
		n, err := d.conn.Read(buf.Bytes())
		if err != nil {
			buf.SetErr(err)
		} else {
			buf.ExtendValid(buf.Pos() + int64(n))
		}
		d.cb.OnBlockIOEvent(buf)
	}()
	return nil
}

func (d *Network) WriteBlockAsync(buf *asyncstream.IOBuffer, startOffset int64) error {
	go func() {
		data := buf.Slice(buf.Pos()+startOffset, buf.ValidBytes()-startOffset)
		if _, err := d.conn.Write(data); err != nil {
			buf.SetErr(err)
		}
		d.cb.OnBlockIOEvent(buf)
	}()
	return nil
}

// StartTimeout/CancelTimeout are no-ops: the read deadline is armed
// directly on the connection by ReadBlockAsync before each read, so
// there's no separate timer to start or cancel here.
func (d *Network) StartTimeout(asyncstream.TimeoutKind)  {}
func (d *Network) CancelTimeout(asyncstream.TimeoutKind) {}

func (d *Network) MediaSize() int64 { return 0 }

func (d *Network) IOStartPosition(rawPos int64) int64 { return rawPos }

func (d *Network) AllocIOBuffer(hint int64, _ bool) (*asyncstream.IOBuffer, error) {
	size := hint
	if size <= 0 {
		size = constants.DefaultBufferSize
	}
	return asyncstream.NewIOBuffer(int(size)), nil
}

func (d *Network) IsSeekable() bool                 { return false }
func (d *Network) MediaType() asyncstream.MediaType { return asyncstream.MediaNetwork }

func (d *Network) RemoveNBytes(int64, int64) error { return asyncstream.ErrNotSupported }

func (d *Network) Close() error {
	if d.listener != nil {
		d.listener.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// tuneTCPSocket disables Nagle's algorithm via a raw setsockopt call
// through the connection's SyscallConn, using golang.org/x/sys/unix for
// the setsockopt constant net/* doesn't expose directly.
func tuneTCPSocket(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
}

var _ asyncstream.Device = (*Network)(nil)
