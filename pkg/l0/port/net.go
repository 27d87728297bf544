package port

import (
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"
)

// NetPort adapts a stream connection to comm.Port.
type NetPort struct {
	conn    net.Conn
	lock    sync.Mutex
	timeout time.Duration
}

// NewNetPort wraps conn.
func NewNetPort(conn net.Conn) *NetPort {
	return &NetPort{conn: conn}
}

// DialTCP connects to addr (host:port).
func DialTCP(addr string) (*NetPort, error) {
	conn, err := net.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return nil, err
	}
	return NewNetPort(conn), nil
}

// Read implements io.Reader. A read timeout is reported as (0, nil).
func (p *NetPort) Read(b []byte) (int, error) {
	p.lock.Lock()
	timeout := p.timeout
	p.lock.Unlock()
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := p.conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	n, err := p.conn.Read(b)
	if isTimeout(err) {
		err = nil
	}
	return n, err
}

// Write implements io.Writer.
func (p *NetPort) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

// Close implements io.Closer.
func (p *NetPort) Close() error {
	return p.conn.Close()
}

// SetReadTimeout implements comm.Port.
func (p *NetPort) SetReadTimeout(d time.Duration) error {
	p.lock.Lock()
	p.timeout = d
	p.lock.Unlock()
	return nil
}

// ResetInputBuffer discards what has already arrived.
func (p *NetPort) ResetInputBuffer() error {
	buf := make([]byte, 256)
	for {
		if err := p.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return err
		}
		if _, err := p.conn.Read(buf); err != nil {
			if isTimeout(err) {
				return nil
			}
			return err
		}
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// WebsocketPort carries the byte stream in binary websocket messages.
// Message boundaries are not significant.
type WebsocketPort struct {
	conn *websocket.Conn

	lock    sync.Mutex
	timeout time.Duration
	pending []byte

	recvCh chan []byte
	errCh  chan error
	err    error
}

// NewWebsocketPort wraps conn and starts receiving.
func NewWebsocketPort(conn *websocket.Conn) *WebsocketPort {
	p := &WebsocketPort{
		conn:   conn,
		recvCh: make(chan []byte, 64),
		errCh:  make(chan error, 1),
	}
	go p.receive()
	return p
}

// DialWebsocket connects to a ws:// or wss:// URL.
func DialWebsocket(url string) (*WebsocketPort, error) {
	origin := "http://localhost/"
	if strings.HasPrefix(url, SchemeWSS) {
		origin = "https://localhost/"
	}
	conf, err := websocket.NewConfig(url, origin)
	if err != nil {
		return nil, err
	}
	conf.Dialer = &net.Dialer{Timeout: DialTimeout}
	conn, err := websocket.DialConfig(conf)
	if err != nil {
		return nil, err
	}
	return NewWebsocketPort(conn), nil
}

func (p *WebsocketPort) receive() {
	defer close(p.recvCh)
	for {
		var msg []byte
		if err := websocket.Message.Receive(p.conn, &msg); err != nil {
			p.errCh <- err
			return
		}
		if len(msg) > 0 {
			p.recvCh <- msg
		}
	}
}

// Read implements io.Reader. A read timeout is reported as (0, nil).
func (p *WebsocketPort) Read(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.pending) == 0 {
		if p.err != nil {
			return 0, p.err
		}
		var timeoutCh <-chan time.Time
		if p.timeout > 0 {
			timer := time.NewTimer(p.timeout)
			defer timer.Stop()
			timeoutCh = timer.C
		}
		select {
		case msg, ok := <-p.recvCh:
			if !ok {
				p.err = <-p.errCh
				if p.err == nil {
					p.err = io.EOF
				}
				return 0, p.err
			}
			p.pending = msg
		case <-timeoutCh:
			return 0, nil
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

// Write sends b as one binary message.
func (p *WebsocketPort) Write(b []byte) (int, error) {
	if err := websocket.Message.Send(p.conn, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close implements io.Closer.
func (p *WebsocketPort) Close() error {
	return p.conn.Close()
}

// SetReadTimeout implements comm.Port.
func (p *WebsocketPort) SetReadTimeout(d time.Duration) error {
	p.lock.Lock()
	p.timeout = d
	p.lock.Unlock()
	return nil
}

// ResetInputBuffer discards received messages not read yet.
func (p *WebsocketPort) ResetInputBuffer() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.pending = nil
	for {
		select {
		case _, ok := <-p.recvCh:
			if !ok {
				return nil
			}
		default:
			return nil
		}
	}
}
