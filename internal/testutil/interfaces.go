package testutil

import (
	"io"
	"net"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/transfer"
)

// The interfaces below are the seams mocked in internal/testutil/mocks.

// WriteCloser wraps io.WriteCloser for mock generation
type WriteCloser interface {
	io.WriteCloser
}

// PacketConn wraps net.PacketConn for mock generation
type PacketConn interface {
	net.PacketConn
}

// Listener wraps net.Listener for mock generation
type Listener interface {
	net.Listener
}

// Conn wraps net.Conn for mock generation
type Conn interface {
	net.Conn
}

// HTTPDoer matches the HTTP client used by the push emitters
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// BulkIndexer wraps esutil.BulkIndexer for mock generation
type BulkIndexer interface {
	esutil.BulkIndexer
}

// Host wraps transfer.Host for mock generation
type Host interface {
	transfer.Host
}
