package serial

import (
	"fmt"

	"fluxviewer/internal/records"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// ListPorts returns the serial devices currently present. It does not depend on any
// listener and may be called at any time.
func ListPorts() ([]records.SerialPortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		return describe(details), nil
	}

	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	out := make([]records.SerialPortInfo, len(names))
	for i, name := range names {
		out[i] = records.SerialPortInfo{Name: name}
	}
	return out, nil
}

func describe(details []*enumerator.PortDetails) []records.SerialPortInfo {
	out := make([]records.SerialPortInfo, 0, len(details))
	for _, d := range details {
		info := records.SerialPortInfo{Name: d.Name}
		if d.IsUSB {
			info.Description = fmt.Sprintf("USB %s:%s", d.VID, d.PID)
			if d.Product != "" {
				info.Description = d.Product + " (" + info.Description + ")"
			}
			if d.SerialNumber != "" {
				info.Description += " S/N " + d.SerialNumber
			}
		}
		out = append(out, info)
	}
	return out
}
