package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/serlink/pkg/l0/comm"
)

func writeConfig(t *testing.T, content string) string {
	fn := filepath.Join(t.TempDir(), "serlink.toml")
	require.NoError(t, os.WriteFile(fn, []byte(content), 0644))
	return fn
}

func TestLoadFile(t *testing.T) {
	fn := writeConfig(t, `
port = "tcp://10.0.0.2:4000"
baud = 57600
read_timeout = "250ms"
overflow = "drop-oldest"

[mqtt]
url = "mqtt://broker:1883/lab/"
id = "bench-1"
`)
	conf := Config{MaxAttempts: 7, SettleDelay: time.Second}
	require.NoError(t, conf.LoadFile(fn))
	require.Equal(t, Config{
		Port:          "tcp://10.0.0.2:4000",
		BaudRate:      57600,
		ReadTimeout:   250 * time.Millisecond,
		MaxAttempts:   7,
		SettleDelay:   time.Second,
		Overflow:      comm.DropOldest,
		MQTTBrokerURL: "mqtt://broker:1883/lab/",
		BridgeID:      "bench-1",
	}, conf)
	require.Equal(t, "bench-1", conf.ID())
}

func TestLoadFileErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"syntax", `port = `},
		{"duration", `settle_delay = "soon"`},
		{"overflow", `overflow = "drop-all"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var conf Config
			require.Error(t, conf.LoadFile(writeConfig(t, tc.content)))
		})
	}

	var conf Config
	require.Error(t, conf.LoadFile(filepath.Join(t.TempDir(), "missing.toml")))
}

func TestParseOverflowPolicy(t *testing.T) {
	for _, policy := range []comm.OverflowPolicy{comm.DropNewest, comm.DropOldest} {
		parsed, err := ParseOverflowPolicy(policy.String())
		require.NoError(t, err)
		require.Equal(t, policy, parsed)
	}
	p, err := ParseOverflowPolicy(" Oldest ")
	require.NoError(t, err)
	require.Equal(t, comm.DropOldest, p)
}

func TestLinkConfig(t *testing.T) {
	conf := Config{
		Port:        "/dev/ttyUSB1",
		BaudRate:    9600,
		ReadTimeout: 100 * time.Millisecond,
		MaxAttempts: 5,
		SettleDelay: 2 * time.Second,
		Overflow:    comm.DropOldest,
	}
	link := conf.LinkConfig()
	require.Equal(t, "/dev/ttyUSB1", link.Path)
	require.Equal(t, 9600, link.BaudRate)
	require.Equal(t, 100*time.Millisecond, link.ReadTimeout)
	require.Equal(t, 5, link.MaxAttempts)
	require.Equal(t, 2*time.Second, link.SettleDelay)
	require.Equal(t, comm.DropOldest, link.Overflow)
	require.Equal(t, comm.DefaultQueueCapacity, link.QueueCapacity)
	require.NotNil(t, link.Opener)
	require.NotNil(t, link.Reporter)
}

func TestDefaults(t *testing.T) {
	conf, err := NewConfig()
	require.NoError(t, err)
	require.NotSame(t, Default(), conf)
	require.NotEmpty(t, conf.Port)
	require.NotEmpty(t, conf.ID())
}
