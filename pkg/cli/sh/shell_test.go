package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/serlink/pkg/l0/comm"
)

func TestParsePayload(t *testing.T) {
	testCases := []struct {
		name   string
		args   []string
		expect []byte
	}{
		{"none", nil, nil},
		{"separate", []string{"01", "0x02", "ff"}, []byte{1, 2, 0xff}},
		{"concatenated", []string{"0001ff"}, []byte{0, 1, 0xff}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := ParsePayload(tc.args)
			require.NoError(t, err)
			require.Equal(t, tc.expect, payload)
		})
	}
	_, err := ParsePayload([]string{"1"})
	require.Error(t, err)
	_, err = ParsePayload([]string{"zz"})
	require.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	cmd, payload, err := parseCommand([]string{"echo", "0102"})
	require.NoError(t, err)
	require.Equal(t, comm.Command('r'), cmd)
	require.Equal(t, []byte{1, 2}, payload)

	_, _, err = parseCommand(nil)
	require.Error(t, err)
	_, _, err = parseCommand([]string{"nope"})
	require.Error(t, err)
}

func TestFormatPacket(t *testing.T) {
	pkt := &comm.Packet{Command: 'r', Payload: []byte{0xab, 0x01}}
	s := &Shell{}
	require.Equal(t, pkt.String(), s.FormatPacket(pkt))
	s.OutputJSON = true
	require.JSONEq(t, `{"command":"'r'","code":114,"payload":"ab01"}`, s.FormatPacket(pkt))
}
