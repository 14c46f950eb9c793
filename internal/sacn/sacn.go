// Package sacn listens for E1.31 (sACN) DMX data on the subscribed universes.
package sacn

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"fluxviewer/internal/eventbuf"
	"fluxviewer/internal/listener"
	"fluxviewer/internal/logger"
	"fluxviewer/internal/netif"
	"fluxviewer/internal/records"
	"github.com/libp2p/go-reuseport"
	"golang.org/x/net/ipv4"
)

const (
	DefaultPort = 5568

	minUniverse = 1
	maxUniverse = 63999
)

// Command is a control message for the sACN listener.
type Command interface {
	listener.Command
	sacnCommand()
}

// Start opens the receiver. IP selects the interface used for multicast membership;
// empty or 0.0.0.0 lets the system choose.
type Start struct {
	IP string
}

// Stop closes the receiver and forgets all subscriptions.
type Stop struct{}

// SubscribeUniverse adds a universe to the receiver.
type SubscribeUniverse struct {
	Universe uint16
}

// UnsubscribeUniverse removes a universe from the receiver.
type UnsubscribeUniverse struct {
	Universe uint16
}

func (Start) Kind() listener.Kind { return listener.KindStart }
func (Stop) Kind() listener.Kind { return listener.KindStop }
func (SubscribeUniverse) Kind() listener.Kind { return listener.KindConfigure }
func (UnsubscribeUniverse) Kind() listener.Kind { return listener.KindConfigure }

func (Start) sacnCommand() {}
func (Stop) sacnCommand() {}
func (SubscribeUniverse) sacnCommand() {}
func (UnsubscribeUniverse) sacnCommand() {}

func (c Start) String() string { return fmt.Sprintf("start interface %q", c.IP) }
func (Stop) String() string { return "stop" }
func (c SubscribeUniverse) String() string { return fmt.Sprintf("subscribe universe %d", c.Universe) }
func (c UnsubscribeUniverse) String() string {
	return fmt.Sprintf("unsubscribe universe %d", c.Universe)
}

// UniverseAddress is the multicast group of a universe: 239.255.<high byte>.<low byte>.
func UniverseAddress(universe uint16, port int) *net.UDPAddr {
	return &net.UDPAddr{
		IP:   net.IPv4(239, 255, byte(universe>>8), byte(universe)),
		Port: port,
	}
}

type transport struct {
	conn    *ipv4.PacketConn
	itf     *net.Interface
	port    int
	timeout time.Duration
}

func (t *transport) Receive(buf []byte) (int, string, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return 0, "", err
	}
	n, _, src, err := t.conn.ReadFrom(buf)
	if err != nil {
		return 0, "", err
	}
	return n, src.String(), nil
}

func (t *transport) Close() error {
	return t.conn.Close()
}

func (t *transport) join(universe uint16) error {
	return t.conn.JoinGroup(t.itf, UniverseAddress(universe, t.port))
}

func (t *transport) leave(universe uint16) error {
	return t.conn.LeaveGroup(t.itf, UniverseAddress(universe, t.port))
}

type driver struct {
	log       *logger.Log
	port      int
	timeout   time.Duration
	universes map[uint16]struct{}
}

func newDriver(log *logger.Log, port int, timeout time.Duration) *driver {
	if port == 0 {
		port = DefaultPort
	}
	return &driver{
		log:       log,
		port:      port,
		timeout:   timeout,
		universes: map[uint16]struct{}{},
	}
}

func (d *driver) Open(cmd listener.Command) (listener.Transport, error) {
	start, ok := cmd.(Start)
	if !ok {
		return nil, fmt.Errorf("unexpected start command %T", cmd)
	}

	var ip net.IP
	if start.IP != "" {
		if ip = net.ParseIP(start.IP); ip == nil {
			return nil, fmt.Errorf("invalid interface address %q", start.IP)
		}
	}
	itf, err := netif.InterfaceByIP(ip)
	if err != nil {
		return nil, err
	}

	conn, err := reuseport.ListenPacket("udp4", fmt.Sprintf(":%d", d.port))
	if err != nil {
		return nil, fmt.Errorf("bind :%d: %w", d.port, err)
	}

	t := &transport{conn: ipv4.NewPacketConn(conn), itf: itf, port: d.port, timeout: d.timeout}
	for _, u := range d.Universes() {
		if err := t.join(u); err != nil {
			d.log.Errorf("could not join multicast group for universe %d: %v", u, err)
		}
	}
	return t, nil
}

// Configure records the subscription change and updates multicast membership. The set
// is updated even when membership fails.
func (d *driver) Configure(cmd listener.Command, t listener.Transport) error {
	tr, _ := t.(*transport)

	switch c := cmd.(type) {
	case SubscribeUniverse:
		if c.Universe < minUniverse || c.Universe > maxUniverse {
			return fmt.Errorf("universe %d out of range %d-%d", c.Universe, minUniverse, maxUniverse)
		}
		if _, ok := d.universes[c.Universe]; ok {
			return nil
		}
		d.universes[c.Universe] = struct{}{}
		if tr != nil {
			if err := tr.join(c.Universe); err != nil {
				return fmt.Errorf("could not join multicast group for universe %d: %w", c.Universe, err)
			}
		}
	case UnsubscribeUniverse:
		if _, ok := d.universes[c.Universe]; !ok {
			return nil
		}
		delete(d.universes, c.Universe)
		if tr != nil {
			if err := tr.leave(c.Universe); err != nil {
				return fmt.Errorf("could not leave multicast group for universe %d: %w", c.Universe, err)
			}
		}
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

func (d *driver) Decode(f listener.Frame) ([]records.DmxFrame, error) {
	data, err := parse(f.Payload)
	if err != nil || data == nil {
		return nil, err
	}
	if _, ok := d.universes[data.Universe]; !ok {
		return nil, nil
	}
	if data.IsStreamTerminated() {
		d.log.Infof("universe %d terminated by %s", data.Universe, f.Source)
		return nil, nil
	}
	return []records.DmxFrame{Frame(data, f.Source, f.At)}, nil
}

// Listener is the sACN listener.
type Listener struct {
	loop *listener.Loop[records.DmxFrame]
}

// NewListener builds an idle sACN listener receiving on port (0 means DefaultPort).
func NewListener(log *logger.Log, port int, opts listener.Options, obs listener.Observer) *Listener {
	opts.Name = "sacn"
	opts = opts.WithDefaults()
	d := newDriver(log.With(logger.Fields{"module": opts.Name}), port, opts.PollInterval)
	return &Listener{
		loop: listener.New[records.DmxFrame](log, d, opts, obs),
	}
}

func (l *Listener) Run(ctx context.Context) { l.loop.Run(ctx) }
func (l *Listener) Dispatch(cmd Command) error { return l.loop.Dispatch(cmd) }
func (l *Listener) Events() *eventbuf.Buffer[records.DmxFrame] { return l.loop.Events() }
func (l *Listener) Bound() bool { return l.loop.Bound() }
