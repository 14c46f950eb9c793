package records

import (
	"encoding/json"
	"strings"
)

const hexDigits = "0123456789ABCDEF"

// NewSerialEvent renders b as hex and ASCII. The event keeps its own copy of b.
func NewSerialEvent(b []byte, timestamp string) SerialEvent {
	raw := make([]byte, len(b))
	copy(raw, b)
	return SerialEvent{
		Timestamp: timestamp,
		Bytes:     raw,
		Hex:       RenderHex(raw),
		ASCII:     RenderASCII(raw),
	}
}

// RenderHex returns uppercase hex pairs separated by single spaces.
func RenderHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(3*len(b) - 1)
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(hexDigits[v>>4])
		sb.WriteByte(hexDigits[v&0x0F])
	}
	return sb.String()
}

// RenderASCII maps printable bytes (0x20-0x7E) to themselves and everything else to '.'.
func RenderASCII(b []byte) string {
	out := make([]byte, len(b))
	for i, v := range b {
		if v >= 0x20 && v <= 0x7E {
			out[i] = v
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}

// MarshalJSON encodes Bytes as an array of numbers rather than base64.
func (e SerialEvent) MarshalJSON() ([]byte, error) {
	type plain SerialEvent
	return json.Marshal(struct {
		plain
		Bytes []int `json:"bytes"`
	}{plain: plain(e), Bytes: bytesToInts(e.Bytes)})
}
