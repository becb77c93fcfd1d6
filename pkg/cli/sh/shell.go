// Package sh provides an interactive shell driving a link session.
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

	"github.com/robotalks/xrlink/pkg/env"
	"github.com/robotalks/xrlink/pkg/link"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	CmdTimeout  time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Env    *env.Env
}

const (
	shellKey       = "$shell"
	stoppedPrompt  = "[stopped] > "
	defaultTimeout = time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&StartCmd,
		&StopCmd,
		&StateCmd,
		&StatsCmd,
		&CommandCmd,
		&DataCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		CmdTimeout:  defaultTimeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(stoppedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeStarted wraps command func requires a started session.
func MustBeStarted(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Env == nil {
			c.Err(fmt.Errorf("session not started"))
			return
		}
		fn(c)
	}
}

// ParseHex parses hex bytes which may be split into multiple args.
func ParseHex(args ...string) ([]byte, error) {
	str := strings.Join(args, "")
	str = strings.TrimPrefix(strings.ToLower(str), "0x")
	return hex.DecodeString(str)
}

// ParseCmdType parses a command type in decimal or 0x prefixed hex.
func ParseCmdType(str string) (uint16, error) {
	val, err := strconv.ParseUint(str, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid command type %q: %v", str, err)
	}
	return uint16(val), nil
}

// Start opens the device and starts the session.
func (s *Shell) Start() error {
	if s.Env != nil {
		return link.ErrAlreadyStarted
	}
	e, err := s.Config.NewEnv()
	if err != nil {
		return err
	}
	e.Session.Net = &printer{shell: s}
	e.Session.Cmd = &printer{shell: s}
	if err = e.Session.Start(context.Background()); err != nil {
		e.Close()
		return err
	}
	s.Env = e
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", s.Config.DeviceID))
	return nil
}

// Stop stops the session.
func (s *Shell) Stop() {
	if s.Env != nil {
		s.Env.Session.Stop()
		s.Env.Close()
		s.Env = nil
		s.Shell.SetPrompt(stoppedPrompt)
	}
}

// Print prints v as JSON or with fmt depending on OutputJSON.
func (s *Shell) Print(c *ishell.Context, v interface{}) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Printf("%+v\n", v)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if err := s.Start(); err != nil {
		log.Fatalf("start %q failed: %v", s.Config.DeviceURL, err)
	}
	defer s.Stop()

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

type printer struct {
	shell *Shell
}

func (p *printer) DataInput(data []byte) {
	p.shell.Shell.Printf("RX data %d: %s\n", len(data), hex.EncodeToString(data))
}

func (p *printer) TxPause() {
	p.shell.Shell.Println("TX paused")
}

func (p *printer) TxResume() {
	p.shell.Shell.Println("TX resumed")
}

func (p *printer) HandleLowCmd(payload []byte) error {
	p.shell.Shell.Printf("RX low cmd: %s\n", hex.EncodeToString(payload))
	return nil
}

func (p *printer) HandleUpCmd(payload []byte) error {
	p.shell.Shell.Printf("RX cmd: %s\n", hex.EncodeToString(payload))
	return nil
}

var (
	// StartCmd starts the session.
	StartCmd = ishell.Cmd{
		Name: "start",
		Help: "open device and start session",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Start(); err != nil {
				c.Err(err)
			}
		},
	}

	// StopCmd stops the session.
	StopCmd = ishell.Cmd{
		Name: "stop",
		Help: "stop session and close device",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Stop()
		},
	}

	// StateCmd shows the worker state.
	StateCmd = ishell.Cmd{
		Name: "state",
		Help: "",
		Func: MustBeStarted(func(c *ishell.Context) {
			s := ShellFrom(c)
			s.Print(c, s.Env.Session.State().String())
		}),
	}

	// StatsCmd shows session counters.
	StatsCmd = ishell.Cmd{
		Name:    "stats",
		Aliases: []string{"st"},
		Help:    "",
		Func: MustBeStarted(func(c *ishell.Context) {
			s := ShellFrom(c)
			s.Print(c, s.Env.Session.Stats())
		}),
	}

	// CommandCmd sends a command.
	CommandCmd = ishell.Cmd{
		Name:    "cmd",
		Aliases: []string{"c"},
		Help:    "TYPE [HEX-BODY]",
		Func: MustBeStarted(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("TYPE required"))
				return
			}
			typ, err := ParseCmdType(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			body, err := ParseHex(c.Args[1:]...)
			if err != nil {
				c.Err(fmt.Errorf("invalid body: %v", err))
				return
			}
			s := ShellFrom(c)
			ctx, cancel := context.WithTimeout(context.Background(), s.CmdTimeout)
			defer cancel()
			if err = s.Env.Session.SendCommand(ctx, link.CmdPayload(typ, body)); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// DataCmd sends a network frame.
	DataCmd = ishell.Cmd{
		Name:    "data",
		Aliases: []string{"d"},
		Help:    "HEX-FRAME",
		Func: MustBeStarted(func(c *ishell.Context) {
			data, err := ParseHex(c.Args...)
			if err != nil {
				c.Err(fmt.Errorf("invalid frame: %v", err))
				return
			}
			if len(data) == 0 {
				c.Err(fmt.Errorf("HEX-FRAME required"))
				return
			}
			if err = ShellFrom(c).Env.Session.SendData(data); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.MustLoad()).Run(flag.Args()...)
}
