package comm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func seqBytes(n int, start byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}

func TestEncodeCOBS(t *testing.T) {
	testCases := []struct {
		name   string
		in     []byte
		expect []byte
	}{
		{"empty", []byte{}, []byte{0x01}},
		{"zero", []byte{0x00}, []byte{0x01, 0x01}},
		{"two zeros", []byte{0x00, 0x00}, []byte{0x01, 0x01, 0x01}},
		{"zero inside", []byte{0x11, 0x22, 0x00, 0x33}, []byte{0x03, 0x11, 0x22, 0x02, 0x33}},
		{"no zero", []byte{0x11, 0x22, 0x33, 0x44}, []byte{0x05, 0x11, 0x22, 0x33, 0x44}},
		{"trailing zero", []byte{0x11, 0x00}, []byte{0x02, 0x11, 0x01}},
		{"254 non-zero", seqBytes(254, 1), append(append([]byte{0xff}, seqBytes(254, 1)...), 0x01)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := EncodeCOBS(tc.in)
			require.Equal(t, tc.expect, out)
			require.False(t, bytes.Contains(out, []byte{Delimiter}))
			decoded, err := DecodeCOBS(out)
			require.NoError(t, err)
			require.Equal(t, len(tc.in), len(decoded))
			if len(tc.in) > 0 {
				require.Equal(t, tc.in, decoded)
			}
		})
	}
}

func TestCOBSRoundTrip(t *testing.T) {
	patterns := map[string]func(int) []byte{
		"zeros": func(n int) []byte { return make([]byte, n) },
		"ones": func(n int) []byte {
			return bytes.Repeat([]byte{0xff}, n)
		},
		"mixed": func(n int) []byte {
			b := make([]byte, n)
			for i := range b {
				if i%7 != 3 {
					b[i] = byte(i*31 + 1)
				}
			}
			return b
		},
	}
	for name, gen := range patterns {
		t.Run(name, func(t *testing.T) {
			for n := 0; n <= 600; n++ {
				in := gen(n)
				out := EncodeCOBS(in)
				require.LessOrEqual(t, len(out), MaxEncodedLen(n))
				require.Equal(t, -1, bytes.IndexByte(out, Delimiter))
				decoded, err := DecodeCOBS(out)
				require.NoErrorf(t, err, "len %d", n)
				require.Truef(t, bytes.Equal(in, decoded), "len %d mismatch", n)
			}
		})
	}
}

func TestDecodeCOBSErrors(t *testing.T) {
	testCases := []struct {
		name   string
		in     []byte
		offset int
	}{
		{"empty", nil, 0},
		{"run past end", []byte{0x05, 0x11, 0x22}, 0},
		{"second run past end", []byte{0x02, 0x11, 0x04, 0x22}, 2},
		{"leading zero", []byte{0x00, 0x11}, 0},
		{"zero in run", []byte{0x03, 0x11, 0x00}, 2},
		{"terminator not stripped", []byte{0x03, 0x11, 0x22, 0x00}, 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeCOBS(tc.in)
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			require.Equal(t, tc.offset, decodeErr.Offset)
		})
	}
}

func TestAppendCOBS(t *testing.T) {
	dst := []byte{0xaa}
	dst = AppendCOBS(dst, []byte{0x00, 0x01})
	require.Equal(t, []byte{0xaa, 0x01, 0x02, 0x01}, dst)
}
