package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/serlink/pkg/l0/comm"
)

func TestEnvelopeWire(t *testing.T) {
	data, err := (&Envelope{Command: 'r', Payload: []byte{1, 2}, Seq: 300}).Encode()
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x08, 'r',
		0x12, 0x02, 0x01, 0x02,
		0x18, 0xac, 0x02,
	}, data)

	env, err := DecodeEnvelope(data)
	require.NoError(t, err)
	require.Equal(t, uint32('r'), env.Command)
	require.Equal(t, []byte{1, 2}, env.Payload)
	require.Equal(t, uint64(300), env.Seq)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	pkt := &comm.Packet{Command: 'b', Payload: []byte{0, 0xff, 0}}
	env := Wrap(pkt, 7, "bench")
	require.NotZero(t, env.Timestamp)
	data, err := env.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(data)
	require.NoError(t, err)
	require.Equal(t, "bench", decoded.Source)
	require.Equal(t, uint64(7), decoded.Seq)
	require.Equal(t, env.Time(), decoded.Time())
	out, err := decoded.Packet()
	require.NoError(t, err)
	require.Equal(t, pkt, out)
}

func TestEnvelopePacketErrors(t *testing.T) {
	_, err := (&Envelope{Command: 0x100}).Packet()
	require.True(t, errors.Is(err, ErrInvalidCommand))
	_, err = (&Envelope{Command: 'r', Payload: make([]byte, comm.MaxPayloadSize+1)}).Packet()
	require.True(t, errors.Is(err, comm.ErrPayloadTooLarge))

	_, err = DecodeEnvelope([]byte{0x12, 0x05, 0x01})
	require.Error(t, err)
}

func TestTopics(t *testing.T) {
	topics := Topics{ID: "lab/bench-1"}
	require.Equal(t, "lab/bench-1/rx", topics.RX())
	require.Equal(t, "lab/bench-1/tx", topics.TX())
	require.Equal(t, "lab/bench-1/meta", topics.Meta())
	require.Equal(t, "lab/bench-1/stats", topics.Stats())

	id, kind := SplitTopic(topics.RX())
	require.Equal(t, "lab/bench-1", id)
	require.Equal(t, KindRX, kind)
	id, kind = SplitTopic("meta")
	require.Empty(t, id)
	require.Equal(t, "meta", kind)
}
