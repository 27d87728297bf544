package sh

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/serlink/pkg/l0/cmds"
	"github.com/robotalks/serlink/pkg/l0/comm"
	"github.com/robotalks/serlink/pkg/l0/env"
	"github.com/robotalks/serlink/pkg/l0/port"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Link   *LinkLoop
}

// LinkLoop is an open link with its receiving loop running.
type LinkLoop struct {
	Ctx    context.Context
	Cancel func()
	Path   string
	Client *comm.Client
	Device *cmds.Device
}

const (
	shellKey       = "$shell"
	closedPrompt   = "[closed] > "
	defaultTimeout = time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&OpenCmd,
		&CloseCmd,
		&SendCmd,
		&CallCmd,
		&EchoCmd,
		&BlinkCmd,
		&StopCmd,
		&RecvCmd,
		&StatsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(items ...*ishell.Cmd) {
	commands = append(commands, items...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     defaultTimeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requires an open link.
func MustBeOpen(fn func(c *ishell.Context, l *LinkLoop)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		l := ShellFrom(c).Link
		if l == nil {
			c.Err(comm.ErrNotOpen)
			return
		}
		fn(c, l)
	}
}

// packetJSON is the JSON form of a packet.
type packetJSON struct {
	Command string `json:"command"`
	Code    uint8  `json:"code"`
	Payload string `json:"payload"`
}

// FormatPacket prints a packet into friendly string for display.
func (s *Shell) FormatPacket(pkt *comm.Packet) string {
	if s.OutputJSON {
		out, err := json.Marshal(&packetJSON{
			Command: pkt.Command.String(),
			Code:    uint8(pkt.Command),
			Payload: hex.EncodeToString(pkt.Payload),
		})
		if err != nil {
			return err.Error()
		}
		return string(out)
	}
	return pkt.String()
}

// ParsePayload parses hex bytes, given as separate args or concatenated.
func ParsePayload(args []string) ([]byte, error) {
	var payload []byte
	for _, arg := range args {
		b, err := hex.DecodeString(strings.TrimPrefix(arg, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid payload %q: %w", arg, err)
		}
		payload = append(payload, b...)
	}
	return payload, nil
}

// WithAutoOpen sets AutoOpen.
func (s *Shell) WithAutoOpen(en bool) *Shell {
	s.AutoOpen = en
	return s
}

// Open opens the link at path.
func (s *Shell) Open(path string, baudRate int) error {
	conf := s.Config.LinkConfig()
	conf.Path, conf.BaudRate = path, baudRate
	conf.Reporter = comm.LogReporter{Name: path}
	session, err := comm.Open(context.Background(), conf)
	if err != nil {
		return err
	}
	l := &LinkLoop{Path: path, Client: comm.NewClient(comm.NewFIFO(session))}
	l.Device = cmds.NewDevice(l.Client)
	l.Ctx, l.Cancel = context.WithCancel(context.Background())
	s.Close()
	s.Link = l
	go l.Client.Run(l.Ctx)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", path))
	return nil
}

// Close closes current link.
func (s *Shell) Close() error {
	if s.Link == nil {
		return nil
	}
	s.Link.Cancel()
	err := s.Link.Client.FIFO().Close()
	s.Link = nil
	s.Shell.SetPrompt(closedPrompt)
	return err
}

// Context returns a context bound by Timeout.
func (s *Shell) Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.Timeout)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoOpen && s.Config.Port != "" {
		if s.Interactive {
			s.Shell.Printf("Opening %s ...\n", s.Config.Port)
		}
		if err := s.Open(s.Config.Port, s.Config.BaudRate); err != nil {
			log.Fatalf("open %q failed: %v", s.Config.Port, err)
		}
	}
	defer s.Close()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// PortsCmd lists serial devices.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ports, err := port.List()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if ports == nil {
					ports = []string{}
				}
				out, err := json.Marshal(ports)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, name := range ports {
				c.Println(name)
			}
		},
	}

	// OpenCmd opens a link.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[PATH [BAUD]]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			path, baudRate := s.Config.Port, s.Config.BaudRate
			if len(c.Args) > 0 {
				path = c.Args[0]
			}
			if len(c.Args) > 1 {
				n, err := strconv.Atoi(c.Args[1])
				if err != nil {
					c.Err(fmt.Errorf("invalid baud rate: %q", c.Args[1]))
					return
				}
				baudRate = n
			}
			if err := s.Open(path, baudRate); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes current link.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Close(); err != nil {
				c.Err(err)
			}
		},
	}

	// SendCmd sends a packet without waiting for reply.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "CMD [HEX..]",
		Func: MustBeOpen(func(c *ishell.Context, l *LinkLoop) {
			cmd, payload, err := parseCommand(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if err := l.Client.Send(cmd, payload); err != nil {
				c.Err(err)
			}
		}),
	}

	// CallCmd sends a packet and waits for the reply with the same command.
	CallCmd = ishell.Cmd{
		Name: "call",
		Help: "CMD [HEX..]",
		Func: MustBeOpen(func(c *ishell.Context, l *LinkLoop) {
			s := ShellFrom(c)
			cmd, payload, err := parseCommand(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			ctx, cancel := s.Context()
			defer cancel()
			pkt, err := l.Client.Do(cmd, payload).Wait(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(s.FormatPacket(pkt))
		}),
	}

	// EchoCmd sends text and waits for it to be echoed.
	EchoCmd = ishell.Cmd{
		Name: "echo",
		Help: "TEXT",
		Func: MustBeOpen(func(c *ishell.Context, l *LinkLoop) {
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			start := time.Now()
			out, err := l.Device.Echo(ctx, []byte(strings.Join(c.Args, " ")))
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				c.Println(s.FormatPacket(&comm.Packet{Command: cmds.Echo, Payload: out}))
				return
			}
			c.Printf("%q (%s)\n", string(out), time.Since(start))
		}),
	}

	// BlinkCmd starts blinking the LED.
	BlinkCmd = ishell.Cmd{
		Name: "blink",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context, l *LinkLoop) {
			if err := l.Device.StartBlink(); err != nil {
				c.Err(err)
			}
		}),
	}

	// StopCmd stops blinking the LED.
	StopCmd = ishell.Cmd{
		Name: "stop",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context, l *LinkLoop) {
			if err := l.Device.StopBlink(); err != nil {
				c.Err(err)
			}
		}),
	}

	// RecvCmd prints packets not matching any request.
	RecvCmd = ishell.Cmd{
		Name:    "recv",
		Aliases: []string{"r"},
		Help:    "[WAIT]",
		Func: MustBeOpen(func(c *ishell.Context, l *LinkLoop) {
			s := ShellFrom(c)
			var wait time.Duration
			if len(c.Args) > 0 {
				d, err := time.ParseDuration(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				wait = d
			}
			timeout := time.After(wait)
			for {
				// drain what's queued before checking timeout.
				select {
				case pkt := <-l.Client.EventChan():
					c.Println(s.FormatPacket(pkt))
					continue
				default:
				}
				select {
				case pkt := <-l.Client.EventChan():
					c.Println(s.FormatPacket(pkt))
				case <-timeout:
					return
				}
			}
		}),
	}

	// StatsCmd prints link counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context, l *LinkLoop) {
			s := ShellFrom(c)
			stats := l.Client.FIFO().Stats()
			if s.OutputJSON {
				out, err := json.Marshal(&stats)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			c.Printf("sent:     %d frames, %d bytes\n", stats.FramesSent, stats.BytesSent)
			c.Printf("received: %d packets, %d bytes\n", stats.PacketsReceived, stats.BytesReceived)
			c.Printf("dropped:  %d frames\n", stats.FramesDropped)
			c.Printf("overflow: %d queue, %d buffer, %d events\n", stats.QueueOverflows, stats.BufferOverflows, stats.EventsDropped)
			c.Printf("errors:   %d\n", stats.IOErrors)
		}),
	}
)

func parseCommand(args []string) (comm.Command, []byte, error) {
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("command expected")
	}
	cmd, err := cmds.Lookup(args[0])
	if err != nil {
		return 0, nil, err
	}
	payload, err := ParsePayload(args[1:])
	return cmd, payload, err
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := env.NewConfig()
	if err != nil {
		log.Fatalln(err)
	}
	New(conf).WithAutoOpen(evalOnly || flag.NArg() > 0).Run(flag.Args()...)
}
