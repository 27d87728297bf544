package comm

import "github.com/golang/glog"

// EventKind classifies reported events.
type EventKind int

const (
	// EventFrameDropped is a frame failing COBS decoding or packet validation.
	EventFrameDropped EventKind = iota
	// EventQueueOverflow is a decoded packet lost because the queue is full.
	EventQueueOverflow
	// EventBufferOverflow is a receive buffer discarded for lack of delimiter.
	EventBufferOverflow
	// EventIOError is a failed read or write on the open port.
	EventIOError
	// EventOpenRetry is a failed open attempt which will be retried.
	EventOpenRetry
	// EventOpened is the port successfully opened.
	EventOpened
	// EventClosed is the port released.
	EventClosed
	// EventUnclaimedDropped is a packet matching no request lost because
	// nobody consumes events.
	EventUnclaimedDropped
)

var eventKindNames = [...]string{
	EventFrameDropped:     "frame-dropped",
	EventQueueOverflow:    "queue-overflow",
	EventBufferOverflow:   "buffer-overflow",
	EventIOError:          "io-error",
	EventOpenRetry:        "open-retry",
	EventOpened:           "opened",
	EventClosed:           "closed",
	EventUnclaimedDropped: "unclaimed-dropped",
}

// String implements fmt.Stringer.
func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event describes something happened on the link.
type Event struct {
	Kind EventKind
	Err  error
	// Packet is the packet lost on EventQueueOverflow.
	Packet *Packet
	// Frame is the stuffed frame on EventFrameDropped, or the discarded
	// bytes on EventBufferOverflow.
	Frame []byte
	// Attempt counts from 1 on EventOpenRetry and EventOpened.
	Attempt int
}

// Reporter observes link events. It's called synchronously from the
// goroutines calling Send and Poll, which may be different ones under FIFO.
type Reporter interface {
	Report(Event)
}

// ReportFunc is func type of Reporter.
type ReportFunc func(Event)

// Report implements Reporter.
func (f ReportFunc) Report(ev Event) {
	f(ev)
}

// LogReporter reports events through glog.
type LogReporter struct {
	Name string
}

// Report implements Reporter.
func (r LogReporter) Report(ev Event) {
	switch ev.Kind {
	case EventFrameDropped:
		glog.Warningf("%s: drop frame (%d bytes): %v", r.Name, len(ev.Frame), ev.Err)
		if glog.V(3) {
			glog.Infof("%s: dropped frame [% x]", r.Name, ev.Frame)
		}
	case EventQueueOverflow:
		glog.Warningf("%s: packet %s lost: %v", r.Name, ev.Packet, ev.Err)
	case EventUnclaimedDropped:
		glog.V(1).Infof("%s: unclaimed %s dropped", r.Name, ev.Packet)
	case EventBufferOverflow:
		glog.Warningf("%s: discard %d bytes: %v", r.Name, len(ev.Frame), ev.Err)
	case EventIOError:
		glog.Errorf("%s: %v", r.Name, ev.Err)
	case EventOpenRetry:
		glog.Warningf("%s: open attempt %d failed: %v", r.Name, ev.Attempt, ev.Err)
	case EventOpened:
		glog.Infof("%s: opened after %d attempt(s)", r.Name, ev.Attempt)
	case EventClosed:
		glog.V(2).Infof("%s: closed", r.Name)
	}
}

type nopReporter struct{}

func (nopReporter) Report(Event) {}
