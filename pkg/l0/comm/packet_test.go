package comm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	testCases := []struct {
		name    string
		cmd     Command
		payload []byte
		expect  []byte
	}{
		{"no payload", 'b', nil, []byte{'b', 0, 0, 0}},
		{"payload", 'r', []byte{0x12, 0x34, 0x56}, []byte{'r', 3, 0x12, 0x34, 0x56, 0, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Build(tc.cmd, tc.payload)
			require.NoError(t, err)
			crc := Checksum(tc.expect[:len(tc.expect)-2], LSBFirst)
			tc.expect[len(tc.expect)-2], tc.expect[len(tc.expect)-1] = byte(crc>>8), byte(crc)
			require.Equal(t, tc.expect, b)
		})
	}
}

func TestBuildPayloadLimit(t *testing.T) {
	_, err := Build('r', make([]byte, MaxPayloadSize))
	require.NoError(t, err)
	require.Equal(t, 250, MaxPayloadSize)

	_, err = Build('r', make([]byte, MaxPayloadSize+1))
	require.True(t, errors.Is(err, ErrPayloadTooLarge))
	_, err = Build('r', make([]byte, 300))
	require.True(t, errors.Is(err, ErrPayloadTooLarge))
}

func TestParse(t *testing.T) {
	valid, err := Build('r', []byte{1, 2, 3})
	require.NoError(t, err)

	pkt, err := Parse(valid)
	require.NoError(t, err)
	require.Equal(t, Command('r'), pkt.Command)
	require.Equal(t, []byte{1, 2, 3}, pkt.Payload)

	valid[2] = 0xee
	require.Equal(t, byte(1), pkt.Payload[0], "payload must not alias the frame")

	empty, err := Build('o', nil)
	require.NoError(t, err)
	pkt, err = Parse(empty)
	require.NoError(t, err)
	require.Equal(t, Command('o'), pkt.Command)
	require.Empty(t, pkt.Payload)
}

func TestParseErrors(t *testing.T) {
	frame, err := Build('r', []byte{1, 2, 3})
	require.NoError(t, err)

	testCases := []struct {
		name   string
		frame  []byte
		expect error
	}{
		{"empty", nil, ErrLengthMismatch},
		{"too short", frame[:3], ErrLengthMismatch},
		{"truncated", frame[:len(frame)-1], ErrLengthMismatch},
		{"extra byte", append(append([]byte(nil), frame...), 0x55), ErrLengthMismatch},
		{"declared longer", append([]byte{'r', 9}, frame[2:]...), ErrLengthMismatch},
		{"bad checksum", append(append([]byte(nil), frame[:len(frame)-1]...), frame[len(frame)-1]^0x01), ErrChecksumMismatch},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.frame)
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.expect), "got %v", err)
		})
	}
}

func TestRoundTripAllCommands(t *testing.T) {
	for cmd := 0; cmd < 256; cmd++ {
		for n := 0; n <= MaxPayloadSize; n++ {
			payload := make([]byte, n)
			for i := range payload {
				payload[i] = byte(cmd + i*7)
			}
			b, err := Build(Command(cmd), payload)
			require.NoError(t, err)
			decoded, err := DecodeCOBS(EncodeCOBS(b))
			require.NoError(t, err)
			pkt, err := Parse(decoded)
			require.NoError(t, err)
			require.Equal(t, Command(cmd), pkt.Command)
			require.True(t, bytes.Equal(payload, pkt.Payload), "cmd %d len %d", cmd, n)
		}
	}
}

func TestBitFlipRejected(t *testing.T) {
	frame, err := Build('r', []byte("hello, world"))
	require.NoError(t, err)
	for i := 0; i < len(frame)-ChecksumSize; i++ {
		if i == 1 {
			// flipping the length byte is caught by the length check.
			continue
		}
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte(nil), frame...)
			corrupted[i] ^= 1 << uint(bit)
			_, err := Parse(corrupted)
			var crcErr *ChecksumError
			require.Truef(t, errors.As(err, &crcErr), "byte %d bit %d: %v", i, bit, err)
		}
	}
	for bit := 0; bit < 8; bit++ {
		corrupted := append([]byte(nil), frame...)
		corrupted[1] ^= 1 << uint(bit)
		_, err := Parse(corrupted)
		require.True(t, errors.Is(err, ErrLengthMismatch))
	}
}

func TestPacket(t *testing.T) {
	pkt := &Packet{Command: 'r', Payload: []byte{0x00, 0x01}}
	b, err := pkt.Bytes()
	require.NoError(t, err)

	frame, err := pkt.Frame()
	require.NoError(t, err)
	require.Equal(t, Delimiter, frame[len(frame)-1])
	require.Equal(t, -1, bytes.IndexByte(frame[:len(frame)-1], Delimiter))
	require.Equal(t, EncodeCOBS(b), frame[:len(frame)-1])

	var buf bytes.Buffer
	n, err := pkt.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(len(frame)), n)
	require.Equal(t, frame, buf.Bytes())

	_, err = (&Packet{Command: 'r', Payload: make([]byte, 251)}).WriteTo(&buf)
	require.True(t, errors.Is(err, ErrPayloadTooLarge))
}

func TestCommandString(t *testing.T) {
	require.Equal(t, "'b'", Command('b').String())
	require.Equal(t, "0x01", Command(1).String())
	require.Equal(t, "'r' [01 02]", (&Packet{Command: 'r', Payload: []byte{1, 2}}).String())
}
