package artnet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"fluxviewer/internal/records"
	"github.com/Haba1234/go-artnet/packet"
	"github.com/Haba1234/go-artnet/packet/code"
)

const (
	dmxHeaderLen = 18
	minVersion   = 14
)

// Universe converts the Net/SubUni pair of a frame to a 15-bit port address.
// Net holds the high seven bits, SubUni the low byte.
func Universe(p *packet.ArtDMXPacket) uint16 {
	return uint16(p.Net&0x7F)<<8 | uint16(p.SubUni)
}

// Frame copies the DMX data of p into a full universe.
func Frame(p *packet.ArtDMXPacket, source string, at time.Time) records.DmxFrame {
	n := int(p.Length)
	if n > len(p.Data) {
		n = len(p.Data)
	}
	return records.DmxFrame{
		Universe:  Universe(p),
		Channels:  records.NormalizeChannels(p.Data[:n]),
		Timestamp: at.Format(TimestampLayout),
		Source:    source,
	}
}

func parse(b []byte) (p packet.ArtNetPacket, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("malformed art-net packet: %v", r)
		}
	}()

	p, err = packet.Unmarshal(b)
	if err != nil {
		if dmx, ok := readDMX(b); ok {
			return dmx, nil
		}
		return nil, fmt.Errorf("decode art-net packet: %w", err)
	}
	return p, nil
}

// readDMX accepts ArtDMX frames whose length field packet.Unmarshal rejects (odd, zero or
// above 512). The data actually present is kept, at most one universe of it.
func readDMX(b []byte) (*packet.ArtDMXPacket, bool) {
	if len(b) < dmxHeaderLen || !bytes.Equal(b[:8], packet.ArtNet[:]) {
		return nil, false
	}
	if code.OpCode(binary.LittleEndian.Uint16(b[8:10])) != code.OpDMX || b[11] < minVersion {
		return nil, false
	}

	data := b[dmxHeaderLen:]
	if l := int(binary.BigEndian.Uint16(b[16:18])); l < len(data) {
		data = data[:l]
	}
	if len(data) > records.UniverseSize {
		data = data[:records.UniverseSize]
	}

	p := &packet.ArtDMXPacket{
		Sequence: b[12],
		Physical: b[13],
		SubUni:   b[14],
		Net:      b[15],
		Length:   uint16(len(data)),
	}
	p.OpCode = code.OpDMX
	p.Version = [2]byte{b[10], b[11]}
	copy(p.ID[:], b[:8])
	copy(p.Data[:], data)
	return p, true
}
