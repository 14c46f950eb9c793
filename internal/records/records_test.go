package records

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeChannels(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = byte(i)
	}

	tests := []struct {
		name string
		in   []byte
	}{
		{name: "empty", in: nil},
		{name: "short", in: []byte{1, 2, 3, 4}},
		{name: "exact", in: long[:512]},
		{name: "long", in: long},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeChannels(tt.in)
			require.Len(t, got, UniverseSize)
			for i := 0; i < UniverseSize; i++ {
				if i < len(tt.in) {
					assert.Equal(t, tt.in[i], got[i], "channel %d", i)
				} else {
					assert.Zero(t, got[i], "channel %d", i)
				}
			}
		})
	}
}

func TestRenderHexAndASCII(t *testing.T) {
	tests := []struct {
		in    []byte
		hex   string
		ascii string
	}{
		{in: []byte{}, hex: "", ascii: ""},
		{in: []byte{0x41}, hex: "41", ascii: "A"},
		{in: []byte{0x00, 0x1F, 0x20, 0x7E, 0x7F, 0xFF}, hex: "00 1F 20 7E 7F FF", ascii: ".. ~.."},
		{in: []byte("hi\r\n"), hex: "68 69 0D 0A", ascii: "hi.."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.hex, RenderHex(tt.in))
		assert.Equal(t, tt.ascii, RenderASCII(tt.in))
	}
}

func TestSerialRenderingLengths(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}

	for n := 1; n <= len(all); n++ {
		b := all[:n]
		hex := RenderHex(b)
		ascii := RenderASCII(b)

		require.Len(t, hex, 2*n+(n-1))
		require.Len(t, ascii, n)
		for i, v := range b {
			if v >= 0x20 && v <= 0x7E {
				require.Equal(t, v, ascii[i])
			} else {
				require.Equal(t, byte('.'), ascii[i])
			}
		}
		require.Equal(t, n, len(strings.Fields(hex)))
	}
}

func TestNewSerialEventCopiesInput(t *testing.T) {
	buf := []byte{0x48, 0x49}
	ev := NewSerialEvent(buf, "12:00:00.000")
	buf[0] = 0x00

	assert.Equal(t, []byte{0x48, 0x49}, ev.Bytes)
	assert.Equal(t, "48 49", ev.Hex)
	assert.Equal(t, "HI", ev.ASCII)
}

func TestSerialEventJSONUsesNumberArray(t *testing.T) {
	out, err := json.Marshal(NewSerialEvent([]byte{1, 255}, "t"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp":"t","bytes":[1,255],"hex":"01 FF","ascii":".."}`, string(out))
}

func TestOscArgumentJSON(t *testing.T) {
	tests := []struct {
		arg  OscArgument
		want string
	}{
		{arg: IntArg(0), want: `{"type":"Int","value":0}`},
		{arg: FloatArg(1.5), want: `{"type":"Float","value":1.5}`},
		{arg: StringArg("go"), want: `{"type":"String","value":"go"}`},
		{arg: BlobArg([]byte{7}), want: `{"type":"Blob","value":[7]}`},
		{arg: BoolArg(false), want: `{"type":"Bool","value":false}`},
		{arg: NilArg(), want: `{"type":"Nil"}`},
		{arg: InfArg(), want: `{"type":"Inf"}`},
	}

	for _, tt := range tests {
		out, err := json.Marshal(tt.arg)
		require.NoError(t, err)
		assert.JSONEq(t, tt.want, string(out))
	}
}

func TestDmxFrameJSONChannelsAreNumbers(t *testing.T) {
	frame := DmxFrame{Universe: 3, Channels: NormalizeChannels([]byte{9})}
	out, err := json.Marshal(frame)
	require.NoError(t, err)

	var decoded struct {
		Universe uint16 `json:"universe"`
		Channels []int  `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, uint16(3), decoded.Universe)
	require.Len(t, decoded.Channels, UniverseSize)
	assert.Equal(t, 9, decoded.Channels[0])
}
