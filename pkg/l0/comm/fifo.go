package comm

import (
	"context"
	"sync"
)

// PacketHandler is called when a packet is received.
type PacketHandler interface {
	HandlePacket(context.Context, *Packet)
}

// HandlePacketFunc is func type of PacketHandler.
type HandlePacketFunc func(context.Context, *Packet)

// HandlePacket implements PacketHandler.
func (f HandlePacketFunc) HandlePacket(ctx context.Context, pkt *Packet) {
	f(ctx, pkt)
}

// FIFO drives a Session from a background poll loop and makes it safe
// for concurrent senders. Received packets are delivered to Handler.
type FIFO struct {
	Session *Session
	Handler PacketHandler

	// recvLock guards Poll and the ready queue, sendLock guards writes.
	// Close takes both.
	recvLock sync.Mutex
	sendLock sync.Mutex
}

// NewFIFO creates a FIFO over an open session.
func NewFIFO(s *Session) *FIFO {
	return &FIFO{Session: s}
}

// Send sends a packet.
func (f *FIFO) Send(cmd Command, payload []byte) error {
	f.sendLock.Lock()
	defer f.sendLock.Unlock()
	return f.Session.Send(cmd, payload)
}

// Stats returns session counters.
func (f *FIFO) Stats() Stats {
	return f.Session.Stats()
}

// Close closes the session. It waits for an in-flight Poll which is
// bounded by the read timeout.
func (f *FIFO) Close() error {
	f.sendLock.Lock()
	defer f.sendLock.Unlock()
	f.recvLock.Lock()
	defer f.recvLock.Unlock()
	return f.Session.Close()
}

// Run polls the session until ctx is done or a read fails.
func (f *FIFO) Run(ctx context.Context) error {
	var pkts []*Packet
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		f.recvLock.Lock()
		_, err := f.Session.Poll()
		for {
			pkt, ok := f.Session.PopPacket()
			if !ok {
				break
			}
			pkts = append(pkts, pkt)
		}
		f.recvLock.Unlock()

		if h := f.Handler; h != nil {
			for _, pkt := range pkts {
				h.HandlePacket(ctx, pkt)
			}
		}
		for i := range pkts {
			pkts[i] = nil
		}
		pkts = pkts[:0]
		if err != nil {
			return err
		}
	}
}
