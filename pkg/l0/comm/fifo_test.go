package comm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testPeer plays the firmware side: it decodes frames written by the host
// and answers through the port.
type testPeer struct {
	port      *testPort
	assembler *Assembler
	lock      sync.Mutex
	reply     func(*Packet) []*Packet
}

func newTestPeer(port *testPort, reply func(*Packet) []*Packet) *testPeer {
	peer := &testPeer{
		port:      port,
		assembler: NewAssembler(NewQueue(DefaultQueueCapacity, DropNewest), nil),
		reply:     reply,
	}
	port.lock.Lock()
	port.onWrite = peer.received
	port.lock.Unlock()
	return peer
}

func (p *testPeer) received(b []byte) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.assembler.Ingest(b)
	for {
		pkt, ok := p.assembler.Queue().Pop()
		if !ok {
			return
		}
		for _, out := range p.reply(pkt) {
			frame, err := out.Frame()
			if err != nil {
				panic(err)
			}
			p.port.inject(frame)
		}
	}
}

func echoReply(pkt *Packet) []*Packet {
	return []*Packet{pkt}
}

type fifoTestCtx struct {
	t        *testing.T
	port     *testPort
	fifo     *FIFO
	packetCh chan *Packet
	errCh    chan error
	cancel   func()
}

func newFIFOTestCtx(t *testing.T) *fifoTestCtx {
	s, port, _ := mustOpen(t)
	tctx := &fifoTestCtx{
		t:        t,
		port:     port,
		fifo:     NewFIFO(s),
		packetCh: make(chan *Packet, 16),
		errCh:    make(chan error, 1),
	}
	tctx.fifo.Handler = HandlePacketFunc(func(ctx context.Context, pkt *Packet) {
		tctx.packetCh <- pkt
	})
	return tctx
}

func (c *fifoTestCtx) run() *fifoTestCtx {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go func() {
		c.errCh <- c.fifo.Run(ctx)
	}()
	return c
}

func (c *fifoTestCtx) expectPacket(cmd Command, payload ...byte) *fifoTestCtx {
	select {
	case pkt := <-c.packetCh:
		require.Equal(c.t, cmd, pkt.Command)
		if len(payload) > 0 {
			require.Equal(c.t, payload, pkt.Payload)
		} else {
			require.Empty(c.t, pkt.Payload)
		}
	case <-time.After(500 * time.Millisecond):
		c.t.Fatalf("expect packet %s timeout", cmd)
	}
	return c
}

func (c *fifoTestCtx) mustSend(cmd Command, payload ...byte) *fifoTestCtx {
	require.NoError(c.t, c.fifo.Send(cmd, payload))
	return c
}

func (c *fifoTestCtx) stop() error {
	c.cancel()
	select {
	case err := <-c.errCh:
		return err
	case <-time.After(time.Second):
		c.t.Fatal("FIFO not stopped")
	}
	return nil
}

func TestFIFOReceive(t *testing.T) {
	tctx := newFIFOTestCtx(t).run()
	defer tctx.stop()
	stream := append(mustFrame(t, 'a', 1), mustFrame(t, 'b')...)
	stream = append(stream, mustFrame(t, 'c', 0, 0, 0)...)
	tctx.port.inject(stream)
	tctx.expectPacket('a', 1).
		expectPacket('b').
		expectPacket('c', 0, 0, 0)
}

func TestFIFOSendEcho(t *testing.T) {
	tctx := newFIFOTestCtx(t)
	newTestPeer(tctx.port, echoReply)
	tctx.run()
	defer tctx.stop()
	tctx.mustSend('r', 1, 2, 3).
		mustSend('r', 4).
		expectPacket('r', 1, 2, 3).
		expectPacket('r', 4)
	require.Equal(t, int64(2), tctx.fifo.Stats().FramesSent)
}

func TestFIFOConcurrentSend(t *testing.T) {
	tctx := newFIFOTestCtx(t)
	newTestPeer(tctx.port, echoReply)
	tctx.run()
	defer tctx.stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, tctx.fifo.Send('r', []byte{byte(i)}))
		}(i)
	}
	wg.Wait()
	seen := make(map[byte]bool)
	for i := 0; i < 8; i++ {
		select {
		case pkt := <-tctx.packetCh:
			seen[pkt.Payload[0]] = true
		case <-time.After(time.Second):
			t.Fatal("timeout")
		}
	}
	require.Len(t, seen, 8)
}

func TestFIFOStopAndClose(t *testing.T) {
	tctx := newFIFOTestCtx(t).run()
	require.Equal(t, context.Canceled, tctx.stop())
	require.NoError(t, tctx.fifo.Close())
	require.Equal(t, 1, tctx.port.closes)
	require.Equal(t, ErrNotOpen, tctx.fifo.Close())
}

func TestFIFOCloseWhileRunning(t *testing.T) {
	tctx := newFIFOTestCtx(t).run()
	defer tctx.cancel()
	require.NoError(t, tctx.fifo.Close())
	select {
	case err := <-tctx.errCh:
		require.Equal(t, ErrNotOpen, err)
	case <-time.After(time.Second):
		t.Fatal("FIFO not stopped")
	}
}
