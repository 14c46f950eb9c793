package listener

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// IsTimeout reports whether err is the expected result of a bounded read with no traffic.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// PacketTransport reads datagrams with a per-read deadline.
type PacketTransport struct {
	conn    net.PacketConn
	timeout time.Duration
}

// NewPacketTransport wraps an already bound connection.
func NewPacketTransport(conn net.PacketConn, timeout time.Duration) *PacketTransport {
	return &PacketTransport{conn: conn, timeout: timeout}
}

// ListenUDP binds addr and returns a transport reading with the given timeout.
func ListenUDP(network, addr string, timeout time.Duration) (*PacketTransport, error) {
	conn, err := net.ListenPacket(network, addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	return NewPacketTransport(conn, timeout), nil
}

func (t *PacketTransport) Receive(buf []byte) (int, string, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return 0, "", err
	}
	n, addr, err := t.conn.ReadFrom(buf)
	if err != nil {
		return 0, "", err
	}
	return n, addr.String(), nil
}

// LocalAddr returns the bound address.
func (t *PacketTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

func (t *PacketTransport) Close() error {
	return t.conn.Close()
}
