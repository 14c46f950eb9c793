package osc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hypebeast/go-osc/osc"
)

const bundleTag = "#bundle"

var errNotOSC = errors.New("not an OSC packet")

// Infinitum is the argument of an 'I' tag.
type Infinitum struct{}

// Char is the argument of a 'c' tag.
type Char rune

func (c Char) String() string { return string(rune(c)) }

// RGBA is the argument of an 'r' tag.
type RGBA uint32

func (c RGBA) String() string { return fmt.Sprintf("#%08x", uint32(c)) }

// MIDI is the argument of an 'm' tag: port id, status byte, data1, data2.
type MIDI [4]byte

func (m MIDI) String() string { return fmt.Sprintf("% x", m[:]) }

// parsePacket decodes an OSC packet. go-osc handles the OSC 1.0 tags; packets it rejects
// are read again with the OSC 1.1 tag set (I, c, r, m, S and array brackets).
func parsePacket(payload []byte) (osc.Packet, error) {
	if len(payload) == 0 || (payload[0] != '/' && payload[0] != '#') {
		return nil, errNotOSC
	}

	p, err := osc.ParsePacket(string(payload))
	if err == nil && p != nil {
		return p, nil
	}
	if ext, extErr := readPacket(payload); extErr == nil {
		return ext, nil
	}
	if err == nil {
		err = errNotOSC
	}
	return nil, err
}

func readPacket(b []byte) (osc.Packet, error) {
	r := &reader{b: b}
	var (
		p   osc.Packet
		err error
	)
	if len(b) > 0 && b[0] == '#' {
		p, err = r.bundle()
	} else {
		p, err = r.message()
	}
	if err != nil {
		return nil, err
	}
	if r.off != len(r.b) {
		return nil, fmt.Errorf("%d trailing bytes", len(r.b)-r.off)
	}
	return p, nil
}

type reader struct {
	b   []byte
	off int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || len(r.b)-r.off < n {
		return nil, io.ErrUnexpectedEOF
	}
	p := r.b[r.off : r.off+n]
	r.off += n
	return p, nil
}

func (r *reader) u32() (uint32, error) {
	p, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

func (r *reader) u64() (uint64, error) {
	p, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(p), nil
}

func (r *reader) str() (string, error) {
	i := bytes.IndexByte(r.b[r.off:], 0)
	if i < 0 {
		return "", io.ErrUnexpectedEOF
	}
	s := string(r.b[r.off : r.off+i])
	if _, err := r.take(padded(i + 1)); err != nil {
		return "", err
	}
	return s, nil
}

func (r *reader) blob() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if n > uint32(len(r.b)-r.off) {
		return nil, fmt.Errorf("invalid blob length %d", n)
	}
	p, err := r.take(padded(int(n)))
	if err != nil {
		return nil, err
	}
	blob := make([]byte, n)
	copy(blob, p)
	return blob, nil
}

func (r *reader) bundle() (*osc.Bundle, error) {
	tag, err := r.str()
	if err != nil {
		return nil, err
	}
	if tag != bundleTag {
		return nil, fmt.Errorf("invalid bundle start tag: %s", tag)
	}
	tt, err := r.u64()
	if err != nil {
		return nil, err
	}

	bundle := &osc.Bundle{Timetag: *osc.NewTimetagFromTimetag(tt)}
	for r.off < len(r.b) {
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		elem, err := r.take(int(size))
		if err != nil {
			return nil, err
		}
		p, err := parsePacket(elem)
		if err != nil {
			return nil, err
		}
		if err := bundle.Append(p); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

func (r *reader) message() (*osc.Message, error) {
	addr, err := r.str()
	if err != nil {
		return nil, err
	}
	msg := osc.NewMessage(addr)
	if r.off == len(r.b) {
		return msg, nil
	}

	tags, err := r.str()
	if err != nil {
		return nil, err
	}
	if tags == "" {
		return msg, nil
	}
	if tags[0] != ',' {
		return nil, fmt.Errorf("unsupported type tag string %s", tags)
	}

	for _, tag := range tags[1:] {
		if tag == '[' || tag == ']' {
			continue
		}
		arg, err := r.argument(tag)
		if err != nil {
			return nil, err
		}
		msg.Arguments = append(msg.Arguments, arg)
	}
	return msg, nil
}

func (r *reader) argument(tag rune) (interface{}, error) {
	switch tag {
	case 'i', 'c', 'r':
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		switch tag {
		case 'c':
			return Char(v), nil
		case 'r':
			return RGBA(v), nil
		}
		return int32(v), nil
	case 'f':
		v, err := r.u32()
		return math.Float32frombits(v), err
	case 'h':
		v, err := r.u64()
		return int64(v), err
	case 'd':
		v, err := r.u64()
		return math.Float64frombits(v), err
	case 't':
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		return *osc.NewTimetagFromTimetag(v), nil
	case 's', 'S':
		return r.str()
	case 'b':
		return r.blob()
	case 'm':
		p, err := r.take(4)
		if err != nil {
			return nil, err
		}
		var m MIDI
		copy(m[:], p)
		return m, nil
	case 'T':
		return true, nil
	case 'F':
		return false, nil
	case 'N':
		return nil, nil
	case 'I':
		return Infinitum{}, nil
	default:
		return nil, fmt.Errorf("unsupported type tag: %c", tag)
	}
}

// padded rounds n up to the 4-byte OSC alignment.
func padded(n int) int {
	return (n + 3) &^ 3
}
