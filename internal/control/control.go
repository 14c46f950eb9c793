// Package control turns control-plane requests into listener commands and routes them.
package control

import (
	"encoding/json"
	"errors"
	"fmt"

	"fluxviewer/internal/artnet"
	"fluxviewer/internal/listener"
	"fluxviewer/internal/osc"
	"fluxviewer/internal/records"
	"fluxviewer/internal/sacn"
	"fluxviewer/internal/serial"
	"github.com/spf13/cast"
)

var (
	ErrUnknownProtocol = errors.New("unknown protocol")
	ErrUnknownAction   = errors.New("unknown action")
)

// Protocol names used in topics and requests.
const (
	ProtocolOSC    = "osc"
	ProtocolSACN   = "sacn"
	ProtocolArtNet = "artnet"
	ProtocolSerial = "serial"
)

// Actions.
const (
	ActionStart       = "start"
	ActionStop        = "stop"
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionListPorts   = "list_ports"
)

// Request is a control message. Numeric fields accept JSON numbers or strings.
type Request struct {
	Action   string      `json:"action"`
	IP       string      `json:"ip"`
	Port     interface{} `json:"port"`
	Universe interface{} `json:"universe"`
	PortName string      `json:"port_name"`
	BaudRate interface{} `json:"baud_rate"`
}

// Decode parses a JSON request.
func Decode(payload []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("request could not be parsed: %w", err)
	}
	return req, nil
}

// Command builds the typed command of protocol for r.
func (r Request) Command(protocol string) (listener.Command, error) {
	switch protocol {
	case ProtocolOSC:
		switch r.Action {
		case ActionStart:
			port, err := optionalInt(r.Port, "port")
			if err != nil {
				return nil, err
			}
			return osc.Start{IP: r.IP, Port: port}, nil
		case ActionStop:
			return osc.Stop{}, nil
		}
	case ProtocolSACN:
		switch r.Action {
		case ActionStart:
			return sacn.Start{IP: r.IP}, nil
		case ActionStop:
			return sacn.Stop{}, nil
		case ActionSubscribe, ActionUnsubscribe:
			u, err := universe(r.Universe)
			if err != nil {
				return nil, err
			}
			if r.Action == ActionSubscribe {
				return sacn.SubscribeUniverse{Universe: u}, nil
			}
			return sacn.UnsubscribeUniverse{Universe: u}, nil
		}
	case ProtocolArtNet:
		switch r.Action {
		case ActionStart:
			return artnet.Start{IP: r.IP}, nil
		case ActionStop:
			return artnet.Stop{}, nil
		case ActionSubscribe, ActionUnsubscribe:
			u, err := universe(r.Universe)
			if err != nil {
				return nil, err
			}
			if r.Action == ActionSubscribe {
				return artnet.SubscribeUniverse{Universe: u}, nil
			}
			return artnet.UnsubscribeUniverse{Universe: u}, nil
		}
	case ProtocolSerial:
		switch r.Action {
		case ActionStart:
			baud, err := optionalInt(r.BaudRate, "baud_rate")
			if err != nil {
				return nil, err
			}
			return serial.Start{Port: r.PortName, BaudRate: baud}, nil
		case ActionStop:
			return serial.Stop{}, nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, protocol)
	}
	return nil, fmt.Errorf("%w: %q for %s", ErrUnknownAction, r.Action, protocol)
}

func universe(v interface{}) (uint16, error) {
	if v == nil {
		return 0, errors.New("universe is required")
	}
	u, err := cast.ToUint16E(v)
	if err != nil {
		return 0, fmt.Errorf("invalid universe %v: %w", v, err)
	}
	return u, nil
}

func optionalInt(v interface{}, name string) (int, error) {
	if v == nil {
		return 0, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %v: %w", name, v, err)
	}
	return n, nil
}

// Dispatcher routes requests to the listener of each protocol.
type Dispatcher struct {
	OSC    interface{ Dispatch(osc.Command) error }
	SACN   interface{ Dispatch(sacn.Command) error }
	ArtNet interface{ Dispatch(artnet.Command) error }
	Serial interface{ Dispatch(serial.Command) error }

	// Ports answers list_ports; Reply receives the answer.
	Ports func() ([]records.SerialPortInfo, error)
	Reply func(ports []records.SerialPortInfo)
}

// Handle decodes payload and dispatches it to protocol's listener. An error wrapping
// listener.ErrListenerGone means that listener can no longer be controlled.
func (d *Dispatcher) Handle(protocol string, payload []byte) error {
	req, err := Decode(payload)
	if err != nil {
		return err
	}

	if protocol == ProtocolSerial && req.Action == ActionListPorts {
		return d.listPorts()
	}

	cmd, err := req.Command(protocol)
	if err != nil {
		return err
	}

	switch c := cmd.(type) {
	case osc.Command:
		err = d.OSC.Dispatch(c)
	case sacn.Command:
		err = d.SACN.Dispatch(c)
	case artnet.Command:
		err = d.ArtNet.Dispatch(c)
	case serial.Command:
		err = d.Serial.Dispatch(c)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", protocol, cmd, err)
	}
	return nil
}

func (d *Dispatcher) listPorts() error {
	if d.Ports == nil || d.Reply == nil {
		return fmt.Errorf("%w: %q is not available", ErrUnknownAction, ActionListPorts)
	}
	ports, err := d.Ports()
	if err != nil {
		return err
	}
	d.Reply(ports)
	return nil
}
