package comm

import "bytes"

// DefaultMaxBufferSize bounds the receive buffer while no delimiter is seen.
// It's well above the largest legal stuffed frame.
const DefaultMaxBufferSize = 512

// Assembler reconstructs packets from an arbitrarily chunked byte stream.
// Frames are split on Delimiter, unstuffed, validated and pushed to the
// ready queue. A bad frame is reported and dropped, and scanning continues
// with the next delimiter.
type Assembler struct {
	MaxBufferSize int

	queue    *Queue
	reporter Reporter
	counters *counters
	buf      []byte
}

// NewAssembler creates an Assembler pushing packets into queue.
func NewAssembler(queue *Queue, reporter Reporter) *Assembler {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Assembler{
		MaxBufferSize: DefaultMaxBufferSize,
		queue:         queue,
		reporter:      reporter,
		counters:      newCounters(),
	}
}

// Queue returns the ready queue.
func (a *Assembler) Queue() *Queue {
	return a.queue
}

// Buffered returns the number of bytes of the incomplete frame.
func (a *Assembler) Buffered() int {
	return len(a.buf)
}

// Reset discards the incomplete frame.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
}

// Ingest consumes received bytes and returns the number of packets
// enqueued.
func (a *Assembler) Ingest(p []byte) (enqueued int) {
	a.buf = append(a.buf, p...)
	a.counters.bytesReceived.Add(int64(len(p)))
	consumed := 0
	for {
		i := bytes.IndexByte(a.buf[consumed:], Delimiter)
		if i < 0 {
			break
		}
		frame := a.buf[consumed : consumed+i]
		consumed += i + 1
		if len(frame) == 0 {
			continue
		}
		if a.accept(frame) {
			enqueued++
		}
	}
	if consumed > 0 {
		a.buf = append(a.buf[:0], a.buf[consumed:]...)
	}
	if limit := a.MaxBufferSize; limit > 0 && len(a.buf) > limit {
		a.counters.bufferOverflows.Inc()
		a.reporter.Report(Event{
			Kind:  EventBufferOverflow,
			Err:   ErrBufferOverflow,
			Frame: append([]byte(nil), a.buf...),
		})
		a.buf = a.buf[:0]
	}
	return
}

func (a *Assembler) accept(frame []byte) bool {
	decoded, err := DecodeCOBS(frame)
	var pkt *Packet
	if err == nil {
		pkt, err = Parse(decoded)
	}
	if err != nil {
		a.counters.framesDropped.Inc()
		a.reporter.Report(Event{
			Kind:  EventFrameDropped,
			Err:   err,
			Frame: append([]byte(nil), frame...),
		})
		return false
	}
	dropped, err := a.queue.Push(pkt)
	if err != nil {
		a.counters.queueOverflows.Inc()
		a.reporter.Report(Event{Kind: EventQueueOverflow, Err: err, Packet: dropped})
		if dropped == pkt {
			return false
		}
	}
	a.counters.packetsReceived.Inc()
	return true
}
