package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/serlink/pkg/bridge"
	"github.com/robotalks/serlink/pkg/bridge/mqtt"
	"github.com/robotalks/serlink/pkg/framework"
	"github.com/robotalks/serlink/pkg/l0/comm"
	"github.com/robotalks/serlink/pkg/l0/env"
)

var statsInterval = mqtt.DefaultStatsInterval

func init() {
	env.SetupFlags()
	flag.DurationVar(&statsInterval, "stats-interval", statsInterval, "Interval of publishing link stats, 0 to disable.")
}

func main() {
	flag.Parse()
	conf, err := env.NewConfig()
	if err != nil {
		log.Fatalln(err)
	}

	runner := framework.NewRunner().HandleSignals()
	session, err := comm.Open(runner.Context, conf.LinkConfig())
	if err != nil {
		log.Fatalln(err)
	}
	fifo := comm.NewFIFO(session)

	host, _ := os.Hostname()
	b, err := mqtt.NewBridge(conf.MQTTBrokerURL, fifo, bridge.Meta{
		ID:       conf.ID(),
		Port:     conf.Port,
		BaudRate: conf.BaudRate,
		Host:     host,
	})
	if err != nil {
		fifo.Close()
		log.Fatalln(err)
	}
	b.StatsInterval = statsInterval
	fifo.Handler = b
	glog.Infof("bridging %s as %q to %s", conf.Port, conf.ID(), conf.MQTTBrokerURL)

	// the port is released before exiting, also on failure.
	runner.
		GoEssential(framework.NamedRun("link", fifo)).
		Go(framework.NamedRun("bridge", b)).
		CloseOnExit(fifo).
		RunOrFail()
}
