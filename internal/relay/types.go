package relay

import (
	"fmt"
	"strings"

	"fluxviewer/internal/records"
)

// Conf is the MQTT connection settings.
type Conf struct {
	ClientID string // ClientID - unique client name for the broker, generated when empty.
	Schema   string // Schema - connection type.
	Host     string // Host - MQTT server address.
	Port     string // Port - MQTT server port.
	User     string // User - login for the MQTT server.
	Password string // Password - password for the MQTT server.
	Qos      byte   // Qos - publish and subscribe quality of service.
}

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Topics builds the topic names under a prefix.
type Topics struct {
	Prefix string
}

func (t Topics) OSC(records.OscEvent) string { return t.Prefix + "/osc" }
func (t Topics) Serial(records.SerialEvent) string { return t.Prefix + "/serial" }
func (t Topics) SerialPorts() string { return t.Prefix + "/serial/ports" }

func (t Topics) SACN(f records.DmxFrame) string {
	return fmt.Sprintf("%s/dmx/sacn/%d", t.Prefix, f.Universe)
}

func (t Topics) ArtNet(f records.DmxFrame) string {
	return fmt.Sprintf("%s/dmx/artnet/%d", t.Prefix, f.Universe)
}

// Control is the wildcard topic carrying control requests, one level per protocol.
func (t Topics) Control() string { return t.Prefix + "/control/+" }

// ControlProtocol extracts the protocol from a control topic.
func (t Topics) ControlProtocol(topic string) (string, bool) {
	protocol := strings.TrimPrefix(topic, t.Prefix+"/control/")
	if protocol == topic || protocol == "" || strings.Contains(protocol, "/") {
		return "", false
	}
	return protocol, true
}
