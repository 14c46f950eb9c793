package sacn

import (
	"testing"
	"time"

	"fluxviewer/internal/listener"
	"fluxviewer/internal/logger"
	"fluxviewer/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/patopest/go-sacn/packet"
)

var receivedAt = time.Date(2024, 5, 17, 21, 4, 5, 250_000_000, time.Local)

func dataPacket(t *testing.T, universe uint16, values []byte) []byte {
	t.Helper()
	p := packet.NewDataPacket()
	p.Universe = universe
	p.SetData(values)
	b, err := p.MarshalBinary()
	require.NoError(t, err)
	return b
}

func newTestDriver() *driver {
	return newDriver(logger.Discard(), 0, time.Millisecond)
}

func TestUniverseAddress(t *testing.T) {
	tests := []struct {
		universe uint16
		expected string
	}{
		{universe: 1, expected: "239.255.0.1"},
		{universe: 255, expected: "239.255.0.255"},
		{universe: 64214, expected: "239.255.250.214"},
	}

	for _, tt := range tests {
		addr := UniverseAddress(tt.universe, DefaultPort)
		assert.Equal(t, DefaultPort, addr.Port)
		assert.True(t, addr.IP.IsMulticast())
		assert.Equal(t, tt.expected, addr.IP.String())
	}
}

func TestFrameStripsStartCode(t *testing.T) {
	p := packet.NewDataPacket()
	p.Universe = 7
	p.SetData([]byte{10, 20, 30})

	frame := Frame(p, "10.0.0.9:5568", receivedAt)

	assert.Equal(t, uint16(7), frame.Universe)
	assert.Equal(t, byte(10), frame.Channels[0])
	assert.Equal(t, byte(20), frame.Channels[1])
	assert.Equal(t, byte(30), frame.Channels[2])
	assert.Equal(t, records.NormalizeChannels([]byte{10, 20, 30}), frame.Channels)
	assert.Equal(t, "2024-05-17 21:04:05.250", frame.Timestamp)
	assert.Equal(t, "10.0.0.9:5568", frame.Source)
}

func TestFrameFullUniverse(t *testing.T) {
	values := make([]byte, 512)
	for i := range values {
		values[i] = byte(i + 1)
	}
	p := packet.NewDataPacket()
	p.SetData(values)

	frame := Frame(p, "", receivedAt)
	assert.Equal(t, records.NormalizeChannels(values), frame.Channels)
}

func TestDecodeFiltersBySubscription(t *testing.T) {
	d := newTestDriver()
	require.NoError(t, d.Configure(SubscribeUniverse{Universe: 1}, nil))

	frames, err := d.Decode(listener.Frame{Payload: dataPacket(t, 1, []byte{1, 2, 3, 4}), Source: "src", At: receivedAt})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, uint16(1), frames[0].Universe)
	assert.Equal(t, records.NormalizeChannels([]byte{1, 2, 3, 4}), frames[0].Channels)

	frames, err = d.Decode(listener.Frame{Payload: dataPacket(t, 2, []byte{1}), At: receivedAt})
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestDecodeSkipsTerminatedStream(t *testing.T) {
	d := newTestDriver()
	require.NoError(t, d.Configure(SubscribeUniverse{Universe: 1}, nil))

	p := packet.NewDataPacket()
	p.Universe = 1
	p.SetData([]byte{1})
	p.SetStreamTerminated(true)
	b, err := p.MarshalBinary()
	require.NoError(t, err)

	frames, err := d.Decode(listener.Frame{Payload: b, At: receivedAt})
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestDecodeMalformed(t *testing.T) {
	d := newTestDriver()
	require.NoError(t, d.Configure(SubscribeUniverse{Universe: 1}, nil))

	full := dataPacket(t, 1, []byte{1, 2, 3})
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "tiny", payload: []byte{0x00, 0x10}},
		{name: "truncated data packet", payload: full[:100]},
		{name: "zeros", payload: make([]byte, 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, err := d.Decode(listener.Frame{Payload: tt.payload, At: receivedAt})
			assert.Error(t, err)
			assert.Empty(t, frames)
		})
	}
}

func TestSubscriptionsAreIdempotent(t *testing.T) {
	d := newTestDriver()

	require.NoError(t, d.Configure(SubscribeUniverse{Universe: 3}, nil))
	require.NoError(t, d.Configure(SubscribeUniverse{Universe: 3}, nil))
	require.NoError(t, d.Configure(SubscribeUniverse{Universe: 1}, nil))
	assert.Equal(t, []uint16{1, 3}, d.Universes())

	require.NoError(t, d.Configure(UnsubscribeUniverse{Universe: 9}, nil))
	require.NoError(t, d.Configure(UnsubscribeUniverse{Universe: 3}, nil))
	assert.Equal(t, []uint16{1}, d.Universes())

	assert.Error(t, d.Configure(SubscribeUniverse{Universe: 0}, nil))
	assert.Error(t, d.Configure(SubscribeUniverse{Universe: 64000}, nil))
	assert.Equal(t, []uint16{1}, d.Universes())
}

func TestResetClearsSubscriptions(t *testing.T) {
	d := newTestDriver()
	require.NoError(t, d.Configure(SubscribeUniverse{Universe: 5}, nil))

	d.Reset()

	assert.Empty(t, d.Universes())
	frames, err := d.Decode(listener.Frame{Payload: dataPacket(t, 5, []byte{1}), At: receivedAt})
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestOpenRejectsBadInterfaceAddress(t *testing.T) {
	d := newTestDriver()
	_, err := d.Open(Start{IP: "not-an-ip"})
	assert.Error(t, err)
}
