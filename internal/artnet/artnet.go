// Package artnet listens for Art-Net ArtDMX frames and forwards the subscribed universes.
package artnet

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"fluxviewer/internal/eventbuf"
	"fluxviewer/internal/listener"
	"fluxviewer/internal/logger"
	"fluxviewer/internal/netif"
	"fluxviewer/internal/records"
	"github.com/Haba1234/go-artnet/packet"
)

const (
	// DefaultPort is the Art-Net UDP port.
	DefaultPort = 6454
	// DefaultAddressRange specifies the network CIDR an art-net network should have.
	DefaultAddressRange = "192.168.6.0/24"
)

// TimestampLayout is the receipt time format of DmxFrame.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Options configure the Art-Net socket.
type Options struct {
	Port         int    // Port - UDP port, 0 means DefaultPort.
	AddressRange string // AddressRange - CIDR searched when Start has no IP.
}

type driver struct {
	log          *logger.Log
	port         int
	addressRange string
	timeout      time.Duration
	universes    map[uint16]struct{}
}

func newDriver(log *logger.Log, opts Options, timeout time.Duration) *driver {
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.AddressRange == "" {
		opts.AddressRange = DefaultAddressRange
	}
	return &driver{
		log:          log,
		port:         opts.Port,
		addressRange: opts.AddressRange,
		timeout:      timeout,
		universes:    map[uint16]struct{}{},
	}
}

func (d *driver) Open(cmd listener.Command) (listener.Transport, error) {
	start, ok := cmd.(Start)
	if !ok {
		return nil, fmt.Errorf("unexpected start command %T", cmd)
	}

	ip := start.IP
	if ip == "" {
		found, err := netif.FindIPInRange(d.addressRange)
		if err != nil {
			return nil, fmt.Errorf("failed to find the art-net IP: %w", err)
		}
		ip = found.String()
		d.log.Infof("Using ArtNet IP %s", ip)
	}
	return listener.ListenUDP("udp4", net.JoinHostPort(ip, strconv.Itoa(d.port)), d.timeout)
}

// Configure updates the subscription set. Filtering happens in Decode, so the transport
// is not involved.
func (d *driver) Configure(cmd listener.Command, _ listener.Transport) error {
	switch c := cmd.(type) {
	case SubscribeUniverse:
		d.universes[c.Universe] = struct{}{}
	case UnsubscribeUniverse:
		delete(d.universes, c.Universe)
	default:
		return fmt.Errorf("unexpected configure command %T", cmd)
	}
	return nil
}

func (d *driver) Reset() {
	d.universes = map[uint16]struct{}{}
}

// Universes returns the subscribed universes in ascending order.
func (d *driver) Universes() []uint16 {
	out := make([]uint16, 0, len(d.universes))
	for u := range d.universes {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Decode validates every packet but only forwards ArtDMX frames of subscribed universes.
func (d *driver) Decode(f listener.Frame) ([]records.DmxFrame, error) {
	p, err := parse(f.Payload)
	if err != nil {
		return nil, err
	}
	dmx, ok := p.(*packet.ArtDMXPacket)
	if !ok {
		return nil, nil
	}
	if _, ok := d.universes[Universe(dmx)]; !ok {
		return nil, nil
	}
	return []records.DmxFrame{Frame(dmx, f.Source, f.At)}, nil
}

// Listener is the Art-Net listener.
type Listener struct {
	loop *listener.Loop[records.DmxFrame]
}

// NewListener builds an idle Art-Net listener.
func NewListener(log *logger.Log, artOpts Options, opts listener.Options, obs listener.Observer) *Listener {
	opts.Name = "art-net"
	opts = opts.WithDefaults()
	d := newDriver(log.With(logger.Fields{"module": opts.Name}), artOpts, opts.PollInterval)
	return &Listener{
		loop: listener.New[records.DmxFrame](log, d, opts, obs),
	}
}

func (l *Listener) Run(ctx context.Context) { l.loop.Run(ctx) }
func (l *Listener) Dispatch(cmd Command) error { return l.loop.Dispatch(cmd) }
func (l *Listener) Events() *eventbuf.Buffer[records.DmxFrame] { return l.loop.Events() }
func (l *Listener) Bound() bool { return l.loop.Bound() }
