// Package sim simulates the reference firmware so the link can be exercised
// without hardware.
package sim

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/serlink/pkg/framework"
	"github.com/robotalks/serlink/pkg/l0/cmds"
	"github.com/robotalks/serlink/pkg/l0/comm"
)

// Board behaves like the reference firmware:
// StartBlink and StopBlink toggle the LED silently, Echo is returned as is,
// and other commands are ignored.
type Board struct {
	Name string

	lock     sync.Mutex
	blinking bool
	handled  map[comm.Command]int
}

// NewBoard creates a Board.
func NewBoard(name string) *Board {
	return &Board{Name: name, handled: make(map[comm.Command]int)}
}

// Blinking reports the LED state.
func (b *Board) Blinking() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.blinking
}

// Handled returns how many times cmd was received.
func (b *Board) Handled(cmd comm.Command) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.handled[cmd]
}

// Handle processes a packet and returns the reply, or nil.
func (b *Board) Handle(pkt *comm.Packet) *comm.Packet {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.handled[pkt.Command]++
	switch pkt.Command {
	case cmds.StartBlink:
		b.blinking = true
	case cmds.StopBlink:
		b.blinking = false
	case cmds.Echo:
		return &comm.Packet{Command: pkt.Command, Payload: pkt.Payload}
	default:
		glog.V(2).Infof("%s: ignored %s", b.Name, pkt)
	}
	return nil
}

// Serve runs the board on a byte stream until it fails.
func (b *Board) Serve(rw io.ReadWriter) error {
	assembler := comm.NewAssembler(comm.NewQueue(comm.DefaultQueueCapacity, comm.DropNewest),
		comm.LogReporter{Name: b.Name})
	buf := make([]byte, 256)
	for {
		n, err := rw.Read(buf)
		if n > 0 {
			assembler.Ingest(buf[:n])
			for {
				pkt, ok := assembler.Queue().Pop()
				if !ok {
					break
				}
				reply := b.Handle(pkt)
				if reply == nil {
					continue
				}
				if _, err := reply.WriteTo(rw); err != nil {
					return err
				}
			}
		}
		if err != nil {
			return err
		}
	}
}

// Run serves a stream until ctx is done, then closes it.
func (b *Board) Run(ctx context.Context, stream io.ReadWriteCloser) error {
	return framework.RunWithContextCloser(ctx, stream, func() error {
		return b.Serve(stream)
	})
}
