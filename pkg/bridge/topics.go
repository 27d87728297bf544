package bridge

import (
	"strings"

	"github.com/robotalks/serlink/pkg/l0/comm"
)

// Topic kinds under a link ID.
const (
	KindRX    = "rx"
	KindTX    = "tx"
	KindMeta  = "meta"
	KindStats = "stats"
)

// Topics names the topics of a link:
//
//	<id>/rx     packets received from the device
//	<id>/tx     packets to send to the device
//	<id>/meta   retained Meta, cleared when the bridge stops
//	<id>/stats  periodic comm.Stats
type Topics struct {
	ID string
}

// RX is the topic of received packets.
func (t Topics) RX() string { return t.ID + "/" + KindRX }

// TX is the topic of packets to send.
func (t Topics) TX() string { return t.ID + "/" + KindTX }

// Meta is the topic of link information.
func (t Topics) Meta() string { return t.ID + "/" + KindMeta }

// Stats is the topic of link counters.
func (t Topics) Stats() string { return t.ID + "/" + KindStats }

// SplitTopic splits a topic into link ID and kind.
func SplitTopic(topic string) (id, kind string) {
	pos := strings.LastIndex(topic, "/")
	if pos < 0 {
		return "", topic
	}
	return topic[:pos], topic[pos+1:]
}

// Meta describes a bridged link.
type Meta struct {
	ID       string `json:"id"`
	Port     string `json:"port"`
	BaudRate int    `json:"baud,omitempty"`
	Host     string `json:"host,omitempty"`
}

// StatsReport is published on the stats topic.
type StatsReport struct {
	ID    string     `json:"id"`
	Stats comm.Stats `json:"stats"`
}
