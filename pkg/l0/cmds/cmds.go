// Package cmds defines the commands understood by the reference firmware
// and a Device wrapping them.
package cmds

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/serlink/pkg/l0/comm"
)

// Command codes.
const (
	StartBlink comm.Command = 'b'
	StopBlink  comm.Command = 'o'
	Echo       comm.Command = 'r'
)

// Names maps known commands to names used on command line.
var Names = map[string]comm.Command{
	"blink": StartBlink,
	"stop":  StopBlink,
	"echo":  Echo,
}

// Lookup resolves a command by name, single character or hex code (0x..).
func Lookup(s string) (comm.Command, error) {
	if cmd, ok := Names[s]; ok {
		return cmd, nil
	}
	if len(s) == 1 {
		return comm.Command(s[0]), nil
	}
	if strings.HasPrefix(s, "0x") {
		if code, err := strconv.ParseUint(s[2:], 16, 8); err == nil {
			return comm.Command(code), nil
		}
	}
	return 0, fmt.Errorf("unknown command: %q", s)
}

// Device issues commands through a comm.Client.
type Device struct {
	Client *comm.Client
}

// NewDevice creates a Device.
func NewDevice(client *comm.Client) *Device {
	return &Device{Client: client}
}

// StartBlink starts blinking the LED. No reply is sent.
func (d *Device) StartBlink() error {
	return d.Client.Send(StartBlink, nil)
}

// StopBlink stops blinking the LED. No reply is sent.
func (d *Device) StopBlink() error {
	return d.Client.Send(StopBlink, nil)
}

// Echo sends payload and waits for it to come back.
func (d *Device) Echo(ctx context.Context, payload []byte) ([]byte, error) {
	pkt, err := d.Client.Do(Echo, payload).Wait(ctx)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(pkt.Payload, payload) {
		return pkt.Payload, fmt.Errorf("echo mismatch: sent %d bytes, got %s", len(payload), pkt)
	}
	return pkt.Payload, nil
}
