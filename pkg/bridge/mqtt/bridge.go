package mqtt

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/serlink/pkg/bridge"
	"github.com/robotalks/serlink/pkg/framework"
	"github.com/robotalks/serlink/pkg/l0/comm"
)

// Link is the side of the bridge talking to the device.
type Link interface {
	Send(cmd comm.Command, payload []byte) error
	Stats() comm.Stats
}

// Bridge publishes packets received from the link and sends packets
// published to the tx topic.
type Bridge struct {
	Queue *Queue
	Link  Link
	Meta  bridge.Meta
	// StatsInterval is the period of publishing stats, 0 disables it.
	StatsInterval time.Duration

	topics   bridge.Topics
	metaJSON []byte
	seq      uint64
}

// DefaultStatsInterval is the default period of publishing stats.
const DefaultStatsInterval = 10 * time.Second

// NewBridge creates a Bridge connecting to brokerURL.
func NewBridge(brokerURL string, link Link, meta bridge.Meta) (*Bridge, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	topics := bridge.Topics{ID: meta.ID}
	// a crashed bridge clears its meta.
	opts.SetBinaryWill(topicPrefix+topics.Meta(), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("serlink:" + meta.ID)
	}
	return NewBridgeWithQueue(NewQueue(opts, topicPrefix), link, meta), nil
}

// NewBridgeWithQueue creates a Bridge on an existing Queue.
func NewBridgeWithQueue(q *Queue, link Link, meta bridge.Meta) *Bridge {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		panic(err)
	}
	b := &Bridge{
		Queue:         q,
		Link:          link,
		Meta:          meta,
		StatsInterval: DefaultStatsInterval,
		topics:        bridge.Topics{ID: meta.ID},
		metaJSON:      metaJSON,
	}
	q.OnConnect = func(*Queue) { b.publishMeta() }
	return b
}

// Topics returns the topics used by the bridge.
func (b *Bridge) Topics() bridge.Topics {
	return b.topics
}

// HandlePacket implements comm.PacketHandler.
func (b *Bridge) HandlePacket(ctx context.Context, pkt *comm.Packet) {
	env := bridge.Wrap(pkt, atomic.AddUint64(&b.seq, 1), b.Meta.ID)
	data, err := env.Encode()
	if err != nil {
		glog.Errorf("encode %s error: %v", pkt, err)
		return
	}
	b.Queue.Pub(b.topics.RX(), data)
}

// Run implements Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.Queue.Sub(b.topics.TX(), b.handleTX)
	if err := Wait(b.Queue.Connect(), DefaultTimeout); err != nil {
		sub.Close()
		return err
	}

	runner := framework.NewRunnerWith(ctx)
	if b.StatsInterval > 0 {
		runner.Go(framework.NewTicker(b.StatsInterval, func(context.Context) {
			b.PublishStats()
		}))
	}
	<-ctx.Done()
	runner.Wait()

	sub.Close()
	b.Queue.PubWith(b.topics.Meta(), nil, 1, true).WaitTimeout(DefaultTimeout)
	b.Queue.Close()
	return ctx.Err()
}

// PublishStats publishes a snapshot of link counters.
func (b *Bridge) PublishStats() {
	data, err := json.Marshal(&bridge.StatsReport{ID: b.Meta.ID, Stats: b.Link.Stats()})
	if err != nil {
		glog.Errorf("encode stats error: %v", err)
		return
	}
	b.Queue.Pub(b.topics.Stats(), data)
}

func (b *Bridge) publishMeta() {
	b.Queue.PubWith(b.topics.Meta(), b.metaJSON, 1, true)
}

func (b *Bridge) handleTX(topic string, payload []byte) {
	env, err := bridge.DecodeEnvelope(payload)
	if err != nil {
		glog.Warningf("%s: bad envelope: %v", topic, err)
		return
	}
	pkt, err := env.Packet()
	if err != nil {
		glog.Warningf("%s: %v", topic, err)
		return
	}
	if err := b.Link.Send(pkt.Command, pkt.Payload); err != nil {
		glog.Errorf("%s: send %s error: %v", topic, pkt, err)
		return
	}
	glog.V(2).Infof("%s: sent %s", topic, pkt)
}
