// Package env provides the common options of serlink programs.
//
// Options are layered: built-in defaults, SERLINK_* environment variables,
// an optional TOML file given by -config, then command line flags.
package env

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"

	"github.com/robotalks/serlink/pkg/l0/comm"
	"github.com/robotalks/serlink/pkg/l0/port"
)

// Config provides options to open the link and bridge it.
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
	MaxAttempts int
	SettleDelay time.Duration
	Overflow    comm.OverflowPolicy

	// MQTTBrokerURL specifies the MQTT broker to bridge to.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// BridgeID names this link on the broker.
	BridgeID string
}

var (
	defaultConfig = Config{
		Port:          "/dev/ttyACM0",
		BaudRate:      115200,
		ReadTimeout:   time.Second,
		MaxAttempts:   3,
		SettleDelay:   3 * time.Second,
		Overflow:      comm.DropNewest,
		MQTTBrokerURL: "mqtt://localhost:1883/serlink/",
	}

	configFile string
)

func init() {
	if val := os.Getenv("SERLINK_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("SERLINK_BAUD"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			defaultConfig.BaudRate = n
		}
	}
	if val := os.Getenv("SERLINK_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			defaultConfig.ReadTimeout = d
		}
	}
	if val := os.Getenv("SERLINK_SETTLE_DELAY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			defaultConfig.SettleDelay = d
		}
	}
	if val := os.Getenv("SERLINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("SERLINK_ID"); val != "" {
		defaultConfig.BridgeID = val
	}
	configFile = os.Getenv("SERLINK_CONFIG")
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "TOML config file.")
	bindFlags(flag.CommandLine, &defaultConfig)
}

func bindFlags(fs *flag.FlagSet, conf *Config) {
	fs.StringVar(&conf.Port, "port", conf.Port, "Serial device, tcp://host:port or ws://host/path.")
	fs.IntVar(&conf.BaudRate, "baud", conf.BaudRate, "Baud rate.")
	fs.DurationVar(&conf.ReadTimeout, "read-timeout", conf.ReadTimeout, "Read timeout of a single poll.")
	fs.IntVar(&conf.MaxAttempts, "attempts", conf.MaxAttempts, "Max attempts to open the port.")
	fs.DurationVar(&conf.SettleDelay, "settle", conf.SettleDelay, "Delay after the port is opened.")
	fs.Var(&overflowFlag{&conf.Overflow}, "overflow", "Ready queue overflow policy: drop-newest or drop-oldest.")
	fs.StringVar(&conf.MQTTBrokerURL, "mqtt", conf.MQTTBrokerURL, "MQTT broker URL.")
	fs.StringVar(&conf.BridgeID, "id", conf.BridgeID, "Bridge ID, defaults to machine ID.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations, merged with the
// config file if one is specified. Flags override the file.
func NewConfig() (*Config, error) {
	conf := defaultConfig
	if configFile == "" {
		return &conf, nil
	}
	if err := conf.LoadFile(configFile); err != nil {
		return nil, err
	}
	// flags given explicitly win over the file.
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	bindFlags(fs, &conf)
	flag.Visit(func(f *flag.Flag) {
		if bound := fs.Lookup(f.Name); bound != nil {
			bound.Value.Set(f.Value.String())
		}
	})
	return &conf, nil
}

type fileConfig struct {
	Port        string `toml:"port"`
	BaudRate    int    `toml:"baud"`
	ReadTimeout string `toml:"read_timeout"`
	MaxAttempts int    `toml:"max_attempts"`
	SettleDelay string `toml:"settle_delay"`
	Overflow    string `toml:"overflow"`
	MQTT        struct {
		URL string `toml:"url"`
		ID  string `toml:"id"`
	} `toml:"mqtt"`
}

// LoadFile merges settings defined in a TOML file.
func (c *Config) LoadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if meta.IsDefined("port") {
		c.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		c.BaudRate = raw.BaudRate
	}
	if meta.IsDefined("read_timeout") {
		if c.ReadTimeout, err = time.ParseDuration(strings.TrimSpace(raw.ReadTimeout)); err != nil {
			return fmt.Errorf("parse read_timeout: %w", err)
		}
	}
	if meta.IsDefined("max_attempts") {
		c.MaxAttempts = raw.MaxAttempts
	}
	if meta.IsDefined("settle_delay") {
		if c.SettleDelay, err = time.ParseDuration(strings.TrimSpace(raw.SettleDelay)); err != nil {
			return fmt.Errorf("parse settle_delay: %w", err)
		}
	}
	if meta.IsDefined("overflow") {
		if c.Overflow, err = ParseOverflowPolicy(raw.Overflow); err != nil {
			return err
		}
	}
	if meta.IsDefined("mqtt", "url") {
		c.MQTTBrokerURL = strings.TrimSpace(raw.MQTT.URL)
	}
	if meta.IsDefined("mqtt", "id") {
		c.BridgeID = strings.TrimSpace(raw.MQTT.ID)
	}
	return nil
}

// LinkConfig converts to comm.Config using the port package and
// reporting through glog.
func (c *Config) LinkConfig() comm.Config {
	conf := comm.DefaultConfig()
	conf.Path = c.Port
	conf.BaudRate = c.BaudRate
	conf.ReadTimeout = c.ReadTimeout
	conf.MaxAttempts = c.MaxAttempts
	conf.SettleDelay = c.SettleDelay
	conf.Overflow = c.Overflow
	conf.Opener = port.Opener
	conf.Reporter = comm.LogReporter{Name: c.Port}
	return conf
}

// ID returns BridgeID or the machine ID if not set.
func (c *Config) ID() string {
	if c.BridgeID != "" {
		return c.BridgeID
	}
	return MachineID()
}

// MachineID retrieves the unique ID identifying the machine.
// It falls back to the host name.
func MachineID() string {
	id, err := machineid.ProtectedID("serlink")
	if err == nil {
		return id[:16]
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "serlink"
}

// ParseOverflowPolicy parses the name of an OverflowPolicy.
func ParseOverflowPolicy(s string) (comm.OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop-newest", "newest":
		return comm.DropNewest, nil
	case "drop-oldest", "oldest":
		return comm.DropOldest, nil
	}
	return comm.DropNewest, fmt.Errorf("invalid overflow policy: %q", s)
}

type overflowFlag struct {
	policy *comm.OverflowPolicy
}

func (f *overflowFlag) String() string {
	if f.policy == nil {
		return ""
	}
	return f.policy.String()
}

func (f *overflowFlag) Set(s string) (err error) {
	*f.policy, err = ParseOverflowPolicy(s)
	return
}
