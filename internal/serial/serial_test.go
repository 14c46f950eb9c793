package serial

import (
	"errors"
	"testing"
	"time"

	"fluxviewer/internal/listener"
	"fluxviewer/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

type fakePort struct {
	chunks  [][]byte
	timeout time.Duration
	closed  bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.chunks) == 0 {
		return 0, nil
	}
	n := copy(b, p.chunks[0])
	p.chunks = p.chunks[1:]
	return n, nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestOpenAppliesModeAndTimeout(t *testing.T) {
	fp := &fakePort{}
	var gotName string
	var gotMode *serial.Mode
	d := &driver{
		timeout: 100 * time.Millisecond,
		open: func(name string, mode *serial.Mode) (port, error) {
			gotName, gotMode = name, mode
			return fp, nil
		},
	}

	tr, err := d.Open(Start{Port: "/dev/ttyUSB0"})
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", gotName)
	assert.Equal(t, DefaultBaudRate, gotMode.BaudRate)
	assert.Equal(t, 100*time.Millisecond, fp.timeout)

	require.NoError(t, tr.Close())
	assert.True(t, fp.closed)
}

func TestOpenFailures(t *testing.T) {
	d := &driver{open: func(string, *serial.Mode) (port, error) {
		return nil, errors.New("no such device")
	}}

	_, err := d.Open(Start{Port: "/dev/missing", BaudRate: 9600})
	assert.Error(t, err)

	_, err = d.Open(Start{})
	assert.Error(t, err)
}

func TestReceiveTimeoutIsZeroBytes(t *testing.T) {
	tr := &transport{name: "/dev/ttyS0", port: &fakePort{chunks: [][]byte{[]byte("AB")}}}
	buf := make([]byte, ReadBuffer)

	n, source, err := tr.Receive(buf)
	require.NoError(t, err)
	assert.Equal(t, "AB", string(buf[:n]))
	assert.Equal(t, "/dev/ttyS0", source)

	n, _, err = tr.Receive(buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDecodeRendersBytes(t *testing.T) {
	d := &driver{}
	at := time.Date(2024, 1, 2, 3, 4, 5, 678_000_000, time.Local)

	events, err := d.Decode(listener.Frame{Payload: []byte{0x48, 0x69, 0x0A}, Source: "/dev/ttyS0", At: at})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, records.SerialEvent{
		Timestamp: "03:04:05.678",
		Bytes:     []byte{0x48, 0x69, 0x0A},
		Hex:       "48 69 0A",
		ASCII:     "Hi.",
	}, events[0])
}

func TestDescribePorts(t *testing.T) {
	infos := describe([]*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", Product: "FT232R", SerialNumber: "A1"},
		{Name: "COM3", IsUSB: true, VID: "2341", PID: "0043"},
	})

	assert.Equal(t, []records.SerialPortInfo{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", Description: "FT232R (USB 0403:6001) S/N A1"},
		{Name: "COM3", Description: "USB 2341:0043"},
	}, infos)
}
