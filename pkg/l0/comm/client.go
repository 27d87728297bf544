package comm

import (
	"context"
	"sync"
)

// Result is the result of a command using Do.
type Result struct {
	Err    error
	Packet *Packet
}

// Client provides request/reply operations over FIFO.
// A reply is the next received packet carrying the same command code as
// the request. Packets matching no pending request are events.
type Client struct {
	fifo     *FIFO
	eventCh  chan *Packet
	cmdsHead *Call
	cmdsTail *Call
	cmdsLock sync.Mutex
}

// Call represents a pending command waiting for reply.
type Call struct {
	client   *Client
	command  Command
	resultCh chan Result
	next     *Call
}

// Command returns the request command code.
func (c *Call) Command() Command {
	return c.command
}

// ResultChan returns the chan to retrieve result.
func (c *Call) ResultChan() <-chan Result {
	return c.resultCh
}

// Wait waits for the result or ctx done. A call given up on ctx is no
// longer pending, so its late reply is reported as an event.
func (c *Call) Wait(ctx context.Context) (*Packet, error) {
	select {
	case r := <-c.resultCh:
		return r.Packet, r.Err
	case <-ctx.Done():
	}
	if c.client != nil && !c.client.forget(c) {
		// already matched, the result is on its way.
		r := <-c.resultCh
		return r.Packet, r.Err
	}
	return nil, ctx.Err()
}

// DefaultEventBacklog is the buffer size of the event chan.
const DefaultEventBacklog = 16

// NewClient creates client and wraps the fifo.
func NewClient(fifo *FIFO) *Client {
	c := &Client{
		fifo:    fifo,
		eventCh: make(chan *Packet, DefaultEventBacklog),
	}
	c.fifo.Handler = c
	return c
}

// FIFO gets wrapped FIFO.
func (c *Client) FIFO() *FIFO {
	return c.fifo
}

// EventChan retrieves the event reporting chan.
func (c *Client) EventChan() <-chan *Packet {
	return c.eventCh
}

// Send sends a command which doesn't expect a reply.
func (c *Client) Send(cmd Command, payload []byte) error {
	return c.fifo.Send(cmd, payload)
}

// DoWith sends a command and expects a result in the provided chan.
func (c *Client) DoWith(cmd Command, payload []byte, ch chan Result) *Call {
	call := &Call{client: c, command: cmd, resultCh: ch}

	c.cmdsLock.Lock()
	defer c.cmdsLock.Unlock()
	if err := c.fifo.Send(cmd, payload); err != nil {
		call.resultCh <- Result{Err: err}
		return call
	}
	if c.cmdsHead == nil {
		c.cmdsHead = call
	} else {
		c.cmdsTail.next = call
	}
	c.cmdsTail = call
	return call
}

// Do sends a command and returns a Call for result.
func (c *Client) Do(cmd Command, payload []byte) *Call {
	return c.DoWith(cmd, payload, make(chan Result, 1))
}

// HandlePacket implements PacketHandler.
func (c *Client) HandlePacket(ctx context.Context, pkt *Packet) {
	c.cmdsLock.Lock()
	head := c.cmdsHead
	curr := c.cmdsHead
	for ; curr != nil; curr = curr.next {
		if curr.command == pkt.Command {
			break
		}
	}
	if curr != nil {
		// Replies come in order, so everything before the match is lost.
		if c.cmdsHead = curr.next; c.cmdsHead == nil {
			c.cmdsTail = nil
		}
	}
	c.cmdsLock.Unlock()

	if curr == nil {
		select {
		case c.eventCh <- pkt:
		default:
			c.fifo.Session.dropEvent(pkt)
		}
		return
	}
	for head != curr {
		next := head.next
		head.next = nil
		head.resultCh <- Result{Err: ErrNoReply}
		head = next
	}
	curr.next = nil
	curr.resultCh <- Result{Packet: pkt}
}

// forget removes a pending call. It returns false if the call is not
// pending, because a reply or ErrNoReply was already assigned to it.
func (c *Client) forget(call *Call) bool {
	c.cmdsLock.Lock()
	defer c.cmdsLock.Unlock()
	var prev *Call
	for curr := c.cmdsHead; curr != nil; prev, curr = curr, curr.next {
		if curr != call {
			continue
		}
		if prev == nil {
			c.cmdsHead = curr.next
		} else {
			prev.next = curr.next
		}
		if c.cmdsTail == curr {
			c.cmdsTail = prev
		}
		curr.next = nil
		return true
	}
	return false
}

// Run wraps FIFO.Run to implement Runnable.
func (c *Client) Run(ctx context.Context) error {
	return c.fifo.Run(ctx)
}
