package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robotalks/serlink/pkg/bridge"
	"github.com/robotalks/serlink/pkg/bridge/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/serlink/"
	linkID  = "+"
)

func init() {
	if val := os.Getenv("SERLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&linkID, "id", linkID, "Bridge ID to monitor, + for all.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q.Sub(linkID+"/#", mqtt.Handler(func(topic string, payload []byte) {
		id, kind := bridge.SplitTopic(topic)
		switch kind {
		case bridge.KindMeta, bridge.KindStats:
			log.Printf("%s %s: %s", id, kind, string(payload))
			return
		case bridge.KindRX, bridge.KindTX:
		default:
			return
		}
		env, err := bridge.DecodeEnvelope(payload)
		if err != nil {
			log.Printf("%s %s: bad envelope: %v", id, kind, err)
			return
		}
		pkt, err := env.Packet()
		if err != nil {
			log.Printf("%s %s: #%d %v", id, kind, env.Seq, err)
			return
		}
		log.Printf("%s %s: #%d %s", id, kind, env.Seq, pkt)
	}))
	if err := mqtt.Wait(q.Connect(), mqtt.DefaultTimeout); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}
