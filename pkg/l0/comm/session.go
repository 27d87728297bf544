package comm

import (
	"context"
	"errors"
	"io"
	"time"
)

// Port is the byte stream a Session runs on. Read must return within the
// timeout set by SetReadTimeout, with (0, nil) when nothing arrived.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(time.Duration) error
	ResetInputBuffer() error
}

// Opener opens a Port.
type Opener interface {
	Open(path string, baudRate int) (Port, error)
}

// OpenFunc is func type of Opener.
type OpenFunc func(path string, baudRate int) (Port, error)

// Open implements Opener.
func (f OpenFunc) Open(path string, baudRate int) (Port, error) {
	return f(path, baudRate)
}

// Config defines how a Session is opened.
type Config struct {
	Path        string
	BaudRate    int
	ReadTimeout time.Duration
	MaxAttempts int
	// SettleDelay is waited after the port opens, as opening the port
	// resets most boards.
	SettleDelay  time.Duration
	RetryBackoff time.Duration

	QueueCapacity int
	Overflow      OverflowPolicy
	MaxBufferSize int

	Opener   Opener
	Reporter Reporter
}

// DefaultConfig returns the settings used by the reference host scripts.
func DefaultConfig() Config {
	return Config{
		Path:          "/dev/ttyACM0",
		BaudRate:      115200,
		ReadTimeout:   time.Second,
		MaxAttempts:   3,
		SettleDelay:   3 * time.Second,
		RetryBackoff:  500 * time.Millisecond,
		QueueCapacity: DefaultQueueCapacity,
		Overflow:      DropNewest,
		MaxBufferSize: DefaultMaxBufferSize,
	}
}

const pollBufferSize = 512

// Session owns an open Port and the receive pipeline on top of it.
// Send may run concurrently with Poll, otherwise calls must be serialized
// by the caller. FIFO does that.
type Session struct {
	path      string
	port      Port
	assembler *Assembler
	reporter  Reporter
	readBuf   []byte
	sendBuf   []byte
}

// Open opens the port with up to conf.MaxAttempts attempts.
func Open(ctx context.Context, conf Config) (*Session, error) {
	if conf.Opener == nil {
		return nil, &ConnectionError{Path: conf.Path, Err: errors.New("no opener configured")}
	}
	reporter := conf.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}
	attempts := conf.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var port Port
	var err error
	attempt := 0
	for attempt < attempts {
		attempt++
		if port, err = conf.Opener.Open(conf.Path, conf.BaudRate); err == nil {
			break
		}
		if attempt < attempts {
			reporter.Report(Event{Kind: EventOpenRetry, Err: err, Attempt: attempt})
			if werr := wait(ctx, conf.RetryBackoff); werr != nil {
				return nil, &ConnectionError{Path: conf.Path, Attempts: attempt, Err: werr}
			}
		}
	}
	if err != nil {
		return nil, &ConnectionError{Path: conf.Path, Attempts: attempt, Err: err}
	}

	if err = prepare(ctx, port, conf); err != nil {
		port.Close()
		return nil, &ConnectionError{Path: conf.Path, Attempts: attempt, Err: err}
	}
	reporter.Report(Event{Kind: EventOpened, Attempt: attempt})

	assembler := NewAssembler(NewQueue(conf.QueueCapacity, conf.Overflow), reporter)
	assembler.MaxBufferSize = conf.MaxBufferSize
	return &Session{
		path:      conf.Path,
		port:      port,
		assembler: assembler,
		reporter:  reporter,
		readBuf:   make([]byte, pollBufferSize),
	}, nil
}

func prepare(ctx context.Context, port Port, conf Config) error {
	if err := wait(ctx, conf.SettleDelay); err != nil {
		return err
	}
	if err := port.ResetInputBuffer(); err != nil {
		return err
	}
	if conf.ReadTimeout > 0 {
		return port.SetReadTimeout(conf.ReadTimeout)
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Path returns the port identifier.
func (s *Session) Path() string {
	return s.path
}

// IsOpen indicates the port is not closed yet.
func (s *Session) IsOpen() bool {
	return s.port != nil
}

// Send writes a packet as a single stuffed frame.
func (s *Session) Send(cmd Command, payload []byte) error {
	if s.port == nil {
		return ErrNotOpen
	}
	b, err := Build(cmd, payload)
	if err != nil {
		return err
	}
	s.sendBuf = append(AppendCOBS(s.sendBuf[:0], b), Delimiter)
	n, err := s.port.Write(s.sendBuf)
	s.assembler.counters.bytesSent.Add(int64(n))
	if err == nil && n < len(s.sendBuf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return s.ioError("write", err)
	}
	s.assembler.counters.framesSent.Inc()
	return nil
}

// Poll reads what's available within the read timeout and feeds the
// assembler. It returns the number of bytes ingested.
func (s *Session) Poll() (int, error) {
	if s.port == nil {
		return 0, ErrNotOpen
	}
	n, err := s.port.Read(s.readBuf)
	if n > 0 {
		s.assembler.Ingest(s.readBuf[:n])
	}
	if err != nil {
		return n, s.ioError("read", err)
	}
	return n, nil
}

// PopPacket dequeues the oldest ready packet.
func (s *Session) PopPacket() (*Packet, bool) {
	return s.assembler.queue.Pop()
}

// Pending returns the number of ready packets.
func (s *Session) Pending() int {
	return s.assembler.queue.Len()
}

// Stats returns a snapshot of counters.
func (s *Session) Stats() Stats {
	return s.assembler.counters.snapshot()
}

// Close releases the port. Closing a closed session returns ErrNotOpen.
func (s *Session) Close() error {
	if s.port == nil {
		return ErrNotOpen
	}
	port := s.port
	s.port = nil
	s.assembler.Reset()
	s.assembler.queue.Reset()
	err := port.Close()
	s.reporter.Report(Event{Kind: EventClosed, Err: err})
	return err
}

func (s *Session) dropEvent(pkt *Packet) {
	s.assembler.counters.eventsDropped.Inc()
	s.reporter.Report(Event{Kind: EventUnclaimedDropped, Err: ErrEventOverflow, Packet: pkt})
}

func (s *Session) ioError(op string, err error) error {
	e := &IOError{Op: op, Err: err}
	s.assembler.counters.ioErrors.Inc()
	s.reporter.Report(Event{Kind: EventIOError, Err: e})
	return e
}
