package artnet

import (
	"fmt"

	"fluxviewer/internal/listener"
)

// Command is a control message for the Art-Net listener.
type Command interface {
	listener.Command
	artnetCommand()
}

// Start binds IP on the Art-Net port. An empty IP picks the first local address inside the
// configured address range.
type Start struct {
	IP string
}

// Stop closes the socket and forgets all subscriptions.
type Stop struct{}

// SubscribeUniverse forwards ArtDMX frames for Universe.
type SubscribeUniverse struct {
	Universe uint16
}

// UnsubscribeUniverse stops forwarding ArtDMX frames for Universe.
type UnsubscribeUniverse struct {
	Universe uint16
}

func (Start) Kind() listener.Kind { return listener.KindStart }
func (Stop) Kind() listener.Kind { return listener.KindStop }
func (SubscribeUniverse) Kind() listener.Kind { return listener.KindConfigure }
func (UnsubscribeUniverse) Kind() listener.Kind { return listener.KindConfigure }

func (Start) artnetCommand() {}
func (Stop) artnetCommand() {}
func (SubscribeUniverse) artnetCommand() {}
func (UnsubscribeUniverse) artnetCommand() {}

func (c Start) String() string { return fmt.Sprintf("start %q", c.IP) }
func (Stop) String() string { return "stop" }
func (c SubscribeUniverse) String() string { return fmt.Sprintf("subscribe universe %d", c.Universe) }
func (c UnsubscribeUniverse) String() string {
	return fmt.Sprintf("unsubscribe universe %d", c.Universe)
}
