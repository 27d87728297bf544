package comm

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// MaxFrameSize is the limit of a frame before stuffing. A frame
	// must be strictly smaller.
	MaxFrameSize = 255
	// HeaderSize is the size of command and length bytes.
	HeaderSize = 2
	// ChecksumSize is the size of the trailing CRC.
	ChecksumSize = 2
	// MaxPayloadSize is the largest payload accepted by Build.
	MaxPayloadSize = MaxFrameSize - HeaderSize - ChecksumSize - 1
)

// Command is the application-defined code of a packet.
type Command byte

// String implements fmt.Stringer.
func (c Command) String() string {
	if c >= 0x20 && c < 0x7f {
		return fmt.Sprintf("%q", rune(c))
	}
	return fmt.Sprintf("0x%02x", byte(c))
}

// Packet contains the information of a parsed packet.
type Packet struct {
	Command Command
	Payload []byte
}

// String implements fmt.Stringer.
func (p *Packet) String() string {
	return fmt.Sprintf("%s [% x]", p.Command, p.Payload)
}

// Build encodes command and payload with checksum, ready for stuffing.
func Build(cmd Command, payload []byte) ([]byte, error) {
	if len(payload)+HeaderSize+ChecksumSize >= MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	size := len(payload) + HeaderSize
	b := make([]byte, size+ChecksumSize)
	b[0], b[1] = byte(cmd), byte(len(payload))
	copy(b[HeaderSize:], payload)
	binary.BigEndian.PutUint16(b[size:], Checksum(b[:size], LSBFirst))
	return b, nil
}

// Parse validates a decoded (unstuffed) frame and extracts the packet.
func Parse(frame []byte) (*Packet, error) {
	if len(frame) < HeaderSize+ChecksumSize {
		return nil, fmt.Errorf("%w: frame of %d bytes is too short", ErrLengthMismatch, len(frame))
	}
	size := int(frame[1]) + HeaderSize
	if size+ChecksumSize != len(frame) {
		return nil, fmt.Errorf("%w: declared %d, frame carries %d", ErrLengthMismatch, frame[1], len(frame)-HeaderSize-ChecksumSize)
	}
	expected := Checksum(frame[:size], LSBFirst)
	if actual := binary.BigEndian.Uint16(frame[size:]); actual != expected {
		return nil, &ChecksumError{Expected: expected, Actual: actual}
	}
	pkt := &Packet{Command: Command(frame[0])}
	if size > HeaderSize {
		pkt.Payload = append([]byte(nil), frame[HeaderSize:size]...)
	}
	return pkt, nil
}

// Bytes returns encoded bytes before stuffing.
func (p *Packet) Bytes() ([]byte, error) {
	return Build(p.Command, p.Payload)
}

// Frame returns the stuffed frame including the terminating Delimiter.
func (p *Packet) Frame() ([]byte, error) {
	b, err := p.Bytes()
	if err != nil {
		return nil, err
	}
	frame := AppendCOBS(make([]byte, 0, MaxEncodedLen(len(b))+1), b)
	return append(frame, Delimiter), nil
}

// WriteTo writes the stuffed frame with a single Write.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	frame, err := p.Frame()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(frame)
	return int64(n), err
}
