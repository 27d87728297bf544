package sim

import (
	"context"
	"net"
	"net/http"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/serlink/pkg/framework"
)

// Server exposes a Board over TCP, one stream per connection,
// so it can be reached with tcp://host:port.
type Server struct {
	Board    *Board
	Listener net.Listener
}

// Listen creates a Server listening on addr.
func Listen(addr string, board *Board) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{Board: board, Listener: ln}, nil
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	return s.Listener.Addr().String()
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	return framework.RunWithContextCloser(ctx, s.Listener, func() error {
		for {
			conn, err := s.Listener.Accept()
			if err != nil {
				return err
			}
			glog.Infof("%s: connected from %s", s.Board.Name, conn.RemoteAddr())
			go func(conn net.Conn) {
				err := s.Board.Run(ctx, conn)
				glog.Infof("%s: disconnected %s: %v", s.Board.Name, conn.RemoteAddr(), err)
			}(conn)
		}
	})
}

// WebsocketHandler serves the Board to websocket clients, for ws://.
func WebsocketHandler(board *Board) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		conn.PayloadType = websocket.BinaryFrame
		err := board.Run(conn.Request().Context(), conn)
		glog.Infof("%s: websocket closed: %v", board.Name, err)
	})
}
