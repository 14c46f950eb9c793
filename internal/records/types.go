// Package records holds the canonical, protocol-tagged records emitted by the listeners.
package records

// UniverseSize is the number of DMX channels in a universe.
const UniverseSize = 512

// DmxFrame is one received universe of DMX data from sACN or Art-Net.
type DmxFrame struct {
	Universe  uint16             `json:"universe"`
	Channels  [UniverseSize]byte `json:"channels"`
	Timestamp string             `json:"timestamp"`
	Source    string             `json:"source"`
}

// OscEvent is one OSC message, either received directly or unpacked from a bundle.
type OscEvent struct {
	Address   string        `json:"address"`
	Arguments []OscArgument `json:"args"`
	Timestamp string        `json:"timestamp"`
	Sender    string        `json:"sender"`
}

// SerialEvent is one non-empty read from a serial port.
type SerialEvent struct {
	Timestamp string `json:"timestamp"`
	Bytes     []byte `json:"bytes"`
	Hex       string `json:"hex"`
	ASCII     string `json:"ascii"`
}

// SerialPortInfo describes an available serial device.
type SerialPortInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
