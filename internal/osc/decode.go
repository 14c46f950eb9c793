package osc

import (
	"fmt"
	"time"

	"fluxviewer/internal/records"
	"github.com/hypebeast/go-osc/osc"
)

// TimestampLayout is the receipt time format of OscEvent.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Decode expands a packet into events. A bundle yields one event per top-level message,
// all sharing the packet timestamp and sender. Nested bundles are discarded.
func Decode(p osc.Packet, sender string, at time.Time) []records.OscEvent {
	timestamp := at.Format(TimestampLayout)

	switch p := p.(type) {
	case *osc.Message:
		return []records.OscEvent{newEvent(p, timestamp, sender)}
	case *osc.Bundle:
		events := make([]records.OscEvent, 0, len(p.Messages))
		for _, msg := range p.Messages {
			events = append(events, newEvent(msg, timestamp, sender))
		}
		return events
	default:
		return nil
	}
}

func newEvent(msg *osc.Message, timestamp, sender string) records.OscEvent {
	args := make([]records.OscArgument, len(msg.Arguments))
	for i, arg := range msg.Arguments {
		args[i] = Argument(arg)
	}
	return records.OscEvent{
		Address:   msg.Address,
		Arguments: args,
		Timestamp: timestamp,
		Sender:    sender,
	}
}

// Argument maps a decoded wire argument. Types without a variant become a String holding
// "<go type>(<value>)".
func Argument(arg interface{}) records.OscArgument {
	switch v := arg.(type) {
	case int32:
		return records.IntArg(v)
	case float32:
		return records.FloatArg(v)
	case string:
		return records.StringArg(v)
	case []byte:
		blob := make([]byte, len(v))
		copy(blob, v)
		return records.BlobArg(blob)
	case bool:
		return records.BoolArg(v)
	case nil:
		return records.NilArg()
	case Infinitum:
		return records.InfArg()
	default:
		return records.StringArg(fmt.Sprintf("%T(%v)", v, v))
	}
}
