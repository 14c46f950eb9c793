package sacn

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"fluxviewer/internal/records"
	"gitlab.com/patopest/go-sacn/packet"
)

// TimestampLayout is the receipt time format of DmxFrame.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05.000"

const (
	rootHeaderSize = 44  // root layer plus frame vector
	dataHeaderSize = 125 // up to the first property value
)

var errShortPacket = errors.New("short sACN packet")

// parse decodes b and returns the data packet it holds. Sync and discovery packets
// return nil without an error.
func parse(b []byte) (data *packet.DataPacket, err error) {
	if len(b) < rootHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", errShortPacket, len(b))
	}
	if binary.BigEndian.Uint32(b[18:22]) == packet.VECTOR_ROOT_E131_DATA && len(b) < dataHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", errShortPacket, len(b))
	}

	// packet.Unmarshal slices by header lengths without bounds checks.
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("malformed sACN packet: %v", r)
		}
	}()

	p, err := packet.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("decode sACN packet: %w", err)
	}
	data, _ = p.(*packet.DataPacket)
	return data, nil
}

// Frame normalizes a data packet. The start code is stripped and the remaining property
// values are padded or truncated to one universe.
func Frame(p *packet.DataPacket, source string, at time.Time) records.DmxFrame {
	n := int(p.Length)
	if n > len(p.Data) {
		n = len(p.Data)
	}
	var values []byte
	if n > 1 {
		values = p.Data[1:n]
	}
	return records.DmxFrame{
		Universe:  p.Universe,
		Channels:  records.NormalizeChannels(values),
		Timestamp: at.Format(TimestampLayout),
		Source:    source,
	}
}
