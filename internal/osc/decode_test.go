package osc

import (
	"testing"
	"time"

	"fluxviewer/internal/listener"
	"fluxviewer/internal/records"
	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var receivedAt = time.Date(2024, 5, 17, 21, 4, 5, 123_000_000, time.Local)

func TestDecodeMessageArguments(t *testing.T) {
	msg := osc.NewMessage("/mixer/fader/1", int32(7), float32(0.5), "go", []byte{1, 2}, true, nil, int64(5))

	events := Decode(msg, "10.0.0.2:9000", receivedAt)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "/mixer/fader/1", ev.Address)
	assert.Equal(t, "2024-05-17 21:04:05.123", ev.Timestamp)
	assert.Equal(t, "10.0.0.2:9000", ev.Sender)
	assert.Equal(t, []records.OscArgument{
		records.IntArg(7),
		records.FloatArg(0.5),
		records.StringArg("go"),
		records.BlobArg([]byte{1, 2}),
		records.BoolArg(true),
		records.NilArg(),
		records.StringArg("int64(5)"),
	}, ev.Arguments)
}

func TestDecodeBundleSharesTimestampAndSender(t *testing.T) {
	bundle := osc.NewBundle(receivedAt)
	for _, addr := range []string{"/a", "/b", "/c"} {
		require.NoError(t, bundle.Append(osc.NewMessage(addr, int32(1))))
	}

	events := Decode(bundle, "peer:1", receivedAt)
	require.Len(t, events, 3)
	for i, addr := range []string{"/a", "/b", "/c"} {
		assert.Equal(t, addr, events[i].Address)
		assert.Equal(t, events[0].Timestamp, events[i].Timestamp)
		assert.Equal(t, "peer:1", events[i].Sender)
	}
}

func TestDecodeSkipsNestedBundles(t *testing.T) {
	nested := osc.NewBundle(receivedAt)
	require.NoError(t, nested.Append(osc.NewMessage("/nested/1")))
	require.NoError(t, nested.Append(osc.NewMessage("/nested/2")))

	bundle := osc.NewBundle(receivedAt)
	require.NoError(t, bundle.Append(osc.NewMessage("/top/1")))
	require.NoError(t, bundle.Append(nested))
	require.NoError(t, bundle.Append(osc.NewMessage("/top/2")))

	events := Decode(bundle, "peer:1", receivedAt)
	require.Len(t, events, 2)
	assert.Equal(t, "/top/1", events[0].Address)
	assert.Equal(t, "/top/2", events[1].Address)
}

func TestDriverDecodesWireBytes(t *testing.T) {
	bundle := osc.NewBundle(receivedAt)
	require.NoError(t, bundle.Append(osc.NewMessage("/x", int32(3))))
	require.NoError(t, bundle.Append(osc.NewMessage("/y", "on")))
	data, err := bundle.MarshalBinary()
	require.NoError(t, err)

	d := &driver{}
	events, err := d.Decode(listener.Frame{Payload: data, Source: "peer:2", At: receivedAt})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []records.OscArgument{records.IntArg(3)}, events[0].Arguments)
	assert.Equal(t, []records.OscArgument{records.StringArg("on")}, events[1].Arguments)
}

func TestDriverRejectsGarbage(t *testing.T) {
	d := &driver{}
	_, err := d.Decode(listener.Frame{Payload: []byte("not osc"), At: receivedAt})
	assert.Error(t, err)
}

func TestStartAddress(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8000", Start{IP: "0.0.0.0"}.addr())
	assert.Equal(t, "127.0.0.1:9001", Start{IP: "127.0.0.1", Port: 9001}.addr())
}

func TestDriverHasNoConfigureCommands(t *testing.T) {
	d := &driver{}
	assert.Error(t, d.Configure(Stop{}, nil))
}

func oscString(s string) []byte {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func word(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func rawMessage(addr, tags string, args ...[]byte) []byte {
	b := append(oscString(addr), oscString(tags)...)
	for _, a := range args {
		b = append(b, a...)
	}
	return b
}

func decodeWire(t *testing.T, payload []byte) []records.OscEvent {
	t.Helper()
	d := &driver{}
	events, err := d.Decode(listener.Frame{Payload: payload, Source: "peer:3", At: receivedAt})
	require.NoError(t, err)
	return events
}

func TestDriverDecodesExtendedTags(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    []records.OscArgument
	}{
		{
			name:    "infinitum",
			payload: rawMessage("/a", ",iI", word(7)),
			want:    []records.OscArgument{records.IntArg(7), records.InfArg()},
		},
		{
			name:    "char",
			payload: rawMessage("/a", ",ic", word(7), word('x')),
			want:    []records.OscArgument{records.IntArg(7), records.StringArg("osc.Char(x)")},
		},
		{
			name:    "color and midi",
			payload: rawMessage("/a", ",rm", word(0xff0000ff), []byte{0x00, 0x90, 0x3c, 0x7f}),
			want: []records.OscArgument{
				records.StringArg("osc.RGBA(#ff0000ff)"),
				records.StringArg("osc.MIDI(00 90 3c 7f)"),
			},
		},
		{
			name:    "array brackets",
			payload: rawMessage("/a", ",[ii]S", word(1), word(2), oscString("sym")),
			want:    []records.OscArgument{records.IntArg(1), records.IntArg(2), records.StringArg("sym")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := decodeWire(t, tt.payload)
			require.Len(t, events, 1)
			assert.Equal(t, "/a", events[0].Address)
			assert.Equal(t, tt.want, events[0].Arguments)
		})
	}
}

func TestDriverDecodesBundleWithExtendedTags(t *testing.T) {
	plain, err := osc.NewMessage("/plain", int32(5)).MarshalBinary()
	require.NoError(t, err)
	ext := rawMessage("/ext", ",I")

	payload := append(oscString("#bundle"), 0, 0, 0, 0, 0, 0, 0, 1)
	payload = append(payload, word(uint32(len(plain)))...)
	payload = append(payload, plain...)
	payload = append(payload, word(uint32(len(ext)))...)
	payload = append(payload, ext...)

	events := decodeWire(t, payload)
	require.Len(t, events, 2)
	assert.Equal(t, "/plain", events[0].Address)
	assert.Equal(t, []records.OscArgument{records.IntArg(5)}, events[0].Arguments)
	assert.Equal(t, "/ext", events[1].Address)
	assert.Equal(t, []records.OscArgument{records.InfArg()}, events[1].Arguments)
	assert.Equal(t, events[0].Timestamp, events[1].Timestamp)
}

func TestDriverRejectsMalformedWireBytes(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty", payload: nil},
		{name: "bad first byte", payload: []byte{0x00, '/', 'a', 0}},
		{name: "text", payload: []byte("xyz")},
		{name: "truncated int", payload: append(rawMessage("/a", ",i"), 0, 1)},
		{name: "unknown tag", payload: rawMessage("/a", ",z", word(1))},
		{name: "bad bundle tag", payload: append(oscString("#bungle"), make([]byte, 8)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &driver{}
			events, err := d.Decode(listener.Frame{Payload: tt.payload, At: receivedAt})
			assert.Error(t, err)
			assert.Empty(t, events)
		})
	}
}

func TestArgumentInfinitum(t *testing.T) {
	assert.Equal(t, records.InfArg(), Argument(Infinitum{}))
}
