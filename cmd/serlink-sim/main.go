package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"

	"github.com/golang/glog"

	"github.com/robotalks/serlink/pkg/framework"
	"github.com/robotalks/serlink/pkg/sim"
)

var (
	listenAddr = ":4000"
	wsAddr     = ""
	name       = "sim"
)

func init() {
	flag.StringVar(&listenAddr, "listen", listenAddr, "TCP address to serve the simulated board.")
	flag.StringVar(&wsAddr, "ws", wsAddr, "HTTP address to serve the board over websocket at /.")
	flag.StringVar(&name, "name", name, "Board name used in logs.")
}

func main() {
	flag.Parse()

	board := sim.NewBoard(name)
	srv, err := sim.Listen(listenAddr, board)
	if err != nil {
		log.Fatalln(err)
	}
	glog.Infof("serving %s on tcp://%s", name, srv.Addr())

	runner := framework.NewRunner().HandleSignals().Go(framework.NamedRun("tcp", srv))
	if wsAddr != "" {
		ln, err := net.Listen("tcp", wsAddr)
		if err != nil {
			log.Fatalln(err)
		}
		glog.Infof("serving %s on ws://%s/", name, ln.Addr())
		httpSrv := &http.Server{Handler: sim.WebsocketHandler(board)}
		runner.Go(framework.NamedRun("ws", framework.RunFunc(func(ctx context.Context) error {
			return framework.RunWithContextCloser(ctx, httpSrv, func() error {
				return httpSrv.Serve(ln)
			})
		})))
	}
	runner.RunOrFail()
}
