// Package port opens the byte streams a comm.Session runs on.
//
// A path selects the transport:
//
//	/dev/ttyACM0, COM3, serial:///dev/ttyUSB0   local serial device
//	tcp://host:port                             raw TCP, e.g. ser2net
//	ws://host/path, wss://host/path             websocket, binary messages
package port

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/robotalks/serlink/pkg/l0/comm"
)

// URL schemes recognized by Open.
const (
	SchemeSerial = "serial://"
	SchemeTCP    = "tcp://"
	SchemeWS     = "ws://"
	SchemeWSS    = "wss://"
)

// DialTimeout bounds connecting remote ports.
var DialTimeout = 5 * time.Second

// Opener opens ports using Open.
var Opener comm.Opener = comm.OpenFunc(Open)

// Open opens the port identified by path.
// baudRate is ignored by remote transports.
func Open(path string, baudRate int) (comm.Port, error) {
	switch {
	case strings.HasPrefix(path, SchemeTCP):
		return DialTCP(path[len(SchemeTCP):])
	case strings.HasPrefix(path, SchemeWS), strings.HasPrefix(path, SchemeWSS):
		return DialWebsocket(path)
	case strings.HasPrefix(path, SchemeSerial):
		return OpenSerial(path[len(SchemeSerial):], baudRate)
	case strings.Contains(path, "://"):
		return nil, fmt.Errorf("unsupported port scheme: %q", path)
	}
	return OpenSerial(path, baudRate)
}

// OpenSerial opens a local serial device in 8N1 mode.
func OpenSerial(name string, baudRate int) (comm.Port, error) {
	if name == "" {
		return nil, fmt.Errorf("serial device name is empty")
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return p, nil
}

// List returns the serial devices present on the system.
func List() ([]string, error) {
	return serial.GetPortsList()
}
