// Package bridge carries link packets over message queues.
package bridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/serlink/pkg/l0/comm"
)

// Envelope wraps a packet for transport. It is encoded in protobuf wire
// format:
//
//	message Envelope {
//	  uint32 command   = 1;
//	  bytes  payload   = 2;
//	  uint64 seq       = 3;
//	  int64  timestamp = 4; // unix nanoseconds
//	  string source    = 5;
//	}
type Envelope struct {
	Command   uint32 `protobuf:"varint,1,opt,name=command,proto3" json:"command,omitempty"`
	Payload   []byte `protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty"`
	Seq       uint64 `protobuf:"varint,3,opt,name=seq,proto3" json:"seq,omitempty"`
	Timestamp int64  `protobuf:"varint,4,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
	Source    string `protobuf:"bytes,5,opt,name=source,proto3" json:"source,omitempty"`
}

// Reset implements proto.Message.
func (m *Envelope) Reset() { *m = Envelope{} }

// String implements proto.Message.
func (m *Envelope) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Envelope) ProtoMessage() {}

// ErrInvalidCommand indicates the command doesn't fit in a byte.
var ErrInvalidCommand = errors.New("invalid command")

// Wrap creates an Envelope from a packet.
func Wrap(pkt *comm.Packet, seq uint64, source string) *Envelope {
	return &Envelope{
		Command:   uint32(pkt.Command),
		Payload:   pkt.Payload,
		Seq:       seq,
		Timestamp: time.Now().UnixNano(),
		Source:    source,
	}
}

// Packet extracts the packet and validates it can be sent on the link.
func (m *Envelope) Packet() (*comm.Packet, error) {
	if m.Command > 0xff {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidCommand, m.Command)
	}
	if len(m.Payload) > comm.MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", comm.ErrPayloadTooLarge, len(m.Payload))
	}
	return &comm.Packet{Command: comm.Command(m.Command), Payload: m.Payload}, nil
}

// Time returns Timestamp as time.Time.
func (m *Envelope) Time() time.Time {
	return time.Unix(0, m.Timestamp)
}

// Encode encodes the Envelope to bytes.
func (m *Envelope) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeEnvelope decodes bytes into Envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var m Envelope
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
