package comm

import "github.com/puzpuzpuz/xsync/v3"

// Stats is a snapshot of link counters.
type Stats struct {
	FramesSent      int64 `json:"frames_sent"`
	BytesSent       int64 `json:"bytes_sent"`
	BytesReceived   int64 `json:"bytes_received"`
	PacketsReceived int64 `json:"packets_received"`
	FramesDropped   int64 `json:"frames_dropped"`
	QueueOverflows  int64 `json:"queue_overflows"`
	BufferOverflows int64 `json:"buffer_overflows"`
	IOErrors        int64 `json:"io_errors"`
	EventsDropped   int64 `json:"events_dropped"`
}

// counters may be read from other goroutines (e.g. a shell printing stats)
// while the polling goroutine updates them.
type counters struct {
	framesSent      *xsync.Counter
	bytesSent       *xsync.Counter
	bytesReceived   *xsync.Counter
	packetsReceived *xsync.Counter
	framesDropped   *xsync.Counter
	queueOverflows  *xsync.Counter
	bufferOverflows *xsync.Counter
	ioErrors        *xsync.Counter
	eventsDropped   *xsync.Counter
}

func newCounters() *counters {
	return &counters{
		framesSent:      xsync.NewCounter(),
		bytesSent:       xsync.NewCounter(),
		bytesReceived:   xsync.NewCounter(),
		packetsReceived: xsync.NewCounter(),
		framesDropped:   xsync.NewCounter(),
		queueOverflows:  xsync.NewCounter(),
		bufferOverflows: xsync.NewCounter(),
		ioErrors:        xsync.NewCounter(),
		eventsDropped:   xsync.NewCounter(),
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		FramesSent:      c.framesSent.Value(),
		BytesSent:       c.bytesSent.Value(),
		BytesReceived:   c.bytesReceived.Value(),
		PacketsReceived: c.packetsReceived.Value(),
		FramesDropped:   c.framesDropped.Value(),
		QueueOverflows:  c.queueOverflows.Value(),
		BufferOverflows: c.bufferOverflows.Value(),
		IOErrors:        c.ioErrors.Value(),
		EventsDropped:   c.eventsDropped.Value(),
	}
}
