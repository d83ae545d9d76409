package device

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/ehrlich-b/asyncstream"
)

// OpenURL constructs the right Device for rawURL and opens a Stream
// against it. It lives
// in this package rather than the root one so device construction can
// import asyncstream without creating an import cycle.
//
// Recognized schemes:
//
//	file://path[?readonly=1&create=1&truncate=1]
//	memory://<capacity>/<initialValid>[?expand=1]
//	ip://host:port (client dial)
//
// http://, https://, urn://, and ftp:// parse but report
// asyncstream.ErrNotSupported: this library models block-I/O streams,
// not those higher-level protocols.
// empty:// is rejected outright as an invalid argument.
func OpenURL(ctx context.Context, rawURL string, handler asyncstream.EventHandler, opts *asyncstream.Options) (*asyncstream.Stream, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, asyncstream.WrapError("OpenURL", err)
	}

	switch u.Scheme {
	case "file":
		return openFileURL(ctx, u, handler, opts)
	case "memory":
		return openMemoryURL(ctx, u, handler, opts)
	case "ip", "tcp":
		return openNetworkURL(ctx, u, handler, opts)
	case "http", "https", "urn", "ftp":
		return nil, asyncstream.ErrNotSupported
	case "empty":
		return nil, asyncstream.NewError("OpenURL", asyncstream.CodeInvalidArgument, "empty:// is not a valid stream source")
	default:
		return nil, asyncstream.NewError("OpenURL", asyncstream.CodeInvalidArgument, "unrecognized scheme: "+u.Scheme)
	}
}

func openFileURL(ctx context.Context, u *url.URL, handler asyncstream.EventHandler, opts *asyncstream.Options) (*asyncstream.Stream, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	q := u.Query()
	readOnly := q.Get("readonly") == "1"
	create := q.Get("create") == "1"
	truncate := q.Get("truncate") == "1"

	f, err := NewFile(path, readOnly, create, truncate)
	if err != nil {
		return nil, asyncstream.WrapError("OpenURL", err)
	}
	return asyncstream.Open(ctx, f, handler, opts)
}

// openMemoryURL decodes memory://<capacity>/<initialValid>: a region with
// no filesystem path of its own is addressed by two plain decimal byte
// counts, never a raw pointer.
func openMemoryURL(ctx context.Context, u *url.URL, handler asyncstream.EventHandler, opts *asyncstream.Options) (*asyncstream.Stream, error) {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if u.Host != "" {
		parts = append([]string{u.Host}, parts...)
	}
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, asyncstream.NewError("OpenURL", asyncstream.CodeInvalidArgument, "memory:// requires <capacity>/<initialValid>")
	}
	capacity, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, asyncstream.NewError("OpenURL", asyncstream.CodeInvalidArgument, "invalid memory capacity")
	}
	initialValid, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, asyncstream.NewError("OpenURL", asyncstream.CodeInvalidArgument, "invalid memory initialValid")
	}

	expand := u.Query().Get("expand") == "1"
	if opts == nil {
		opts = &asyncstream.Options{}
	}
	opts.ExpandingMemory = expand

	m := NewMemory(capacity, initialValid, expand)
	return asyncstream.Open(ctx, m, handler, opts)
}

func openNetworkURL(ctx context.Context, u *url.URL, handler asyncstream.EventHandler, opts *asyncstream.Options) (*asyncstream.Stream, error) {
	addr := u.Host
	n := NewNetworkDial(addr)
	return asyncstream.Open(ctx, n, handler, opts)
}

// OpenListenURL starts a server-side Network device listening on addr
// (host:port, no scheme) and opens a Stream against it; accepted
// connections surface through the registered EventHandler's OnAccept.
func OpenListenURL(ctx context.Context, addr string, handler asyncstream.EventHandler, opts *asyncstream.Options) (*asyncstream.Stream, error) {
	n, err := NewNetworkListen(addr)
	if err != nil {
		return nil, asyncstream.WrapError("OpenListenURL", err)
	}
	return asyncstream.Open(ctx, n, handler, opts)
}
