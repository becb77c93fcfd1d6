// Package sim exposes controls of the simulated peripheral in the shell.
package sim

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/xrlink/pkg/cli/sh"
	"github.com/robotalks/xrlink/pkg/link"
	"github.com/robotalks/xrlink/pkg/link/frame"
	"github.com/robotalks/xrlink/pkg/link/hwio/sim"
)

// mustBeSim wraps command func requires the simulated peripheral.
func mustBeSim(fn func(c *ishell.Context, dev *sim.Device)) func(c *ishell.Context) {
	return sh.MustBeStarted(func(c *ishell.Context) {
		dev, ok := sh.ShellFrom(c).Env.Hardware.(*sim.Device)
		if !ok {
			c.Err(fmt.Errorf("device is not simulated"))
			return
		}
		fn(c, dev)
	})
}

func parseCount(c *ishell.Context) (int, bool) {
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("N required"))
		return 0, false
	}
	n, err := strconv.Atoi(c.Args[0])
	if err != nil || n < 0 {
		c.Err(fmt.Errorf("invalid N: %q", c.Args[0]))
		return 0, false
	}
	return n, true
}

func injectCmd(c *ishell.Context, dev *sim.Device, typ uint16) {
	body, err := sh.ParseHex(c.Args...)
	if err != nil {
		c.Err(fmt.Errorf("invalid body: %v", err))
		return
	}
	dev.Inject(frame.TypeCmd, link.CmdPayload(typ, body))
}

var (
	// InjectDataCmd injects an inbound network frame.
	InjectDataCmd = ishell.Cmd{
		Name:    "sim.data",
		Aliases: []string{"sd"},
		Help:    "HEX-FRAME",
		Func: mustBeSim(func(c *ishell.Context, dev *sim.Device) {
			data, err := sh.ParseHex(c.Args...)
			if err != nil {
				c.Err(fmt.Errorf("invalid frame: %v", err))
				return
			}
			dev.Inject(frame.TypeData, data)
		}),
	}

	// InjectCommandCmd injects an inbound command.
	InjectCommandCmd = ishell.Cmd{
		Name:    "sim.cmd",
		Aliases: []string{"sc"},
		Help:    "TYPE [HEX-BODY]",
		Func: mustBeSim(func(c *ishell.Context, dev *sim.Device) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("TYPE required"))
				return
			}
			typ, err := sh.ParseCmdType(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			c.Args = c.Args[1:]
			injectCmd(c, dev, typ)
		}),
	}

	// PauseCmd makes the peripheral pause host transmission.
	PauseCmd = ishell.Cmd{
		Name: "sim.pause",
		Help: "",
		Func: mustBeSim(func(c *ishell.Context, dev *sim.Device) {
			injectCmd(c, dev, sh.ShellFrom(c).Env.Session.Config().CmdTypes.RxPause)
		}),
	}

	// ResumeCmd makes the peripheral resume host transmission.
	ResumeCmd = ishell.Cmd{
		Name: "sim.resume",
		Help: "",
		Func: mustBeSim(func(c *ishell.Context, dev *sim.Device) {
			injectCmd(c, dev, sh.ShellFrom(c).Env.Session.Config().CmdTypes.RxResume)
		}),
	}

	// FailWritesCmd injects write failures.
	FailWritesCmd = ishell.Cmd{
		Name: "sim.fail-writes",
		Help: "N",
		Func: mustBeSim(func(c *ishell.Context, dev *sim.Device) {
			if n, ok := parseCount(c); ok {
				dev.FailWrites(n)
			}
		}),
	}

	// FailReadsCmd injects read failures.
	FailReadsCmd = ishell.Cmd{
		Name: "sim.fail-reads",
		Help: "N",
		Func: mustBeSim(func(c *ishell.Context, dev *sim.Device) {
			if n, ok := parseCount(c); ok {
				dev.FailReads(n)
			}
		}),
	}

	// WrittenCmd lists frames written by the host.
	WrittenCmd = ishell.Cmd{
		Name:    "sim.written",
		Aliases: []string{"sw"},
		Help:    "",
		Func: mustBeSim(func(c *ishell.Context, dev *sim.Device) {
			for _, f := range dev.Written() {
				c.Printf("%s seq=%d len=%d %s\n", f.Type, f.Seq, len(f.Payload), hex.EncodeToString(f.Payload))
			}
			inits, deinits := dev.Resets()
			c.Printf("inits=%d deinits=%d\n", inits, deinits)
		}),
	}
)

func init() {
	sh.AddCmds(
		&InjectDataCmd,
		&InjectCommandCmd,
		&PauseCmd,
		&ResumeCmd,
		&FailWritesCmd,
		&FailReadsCmd,
		&WrittenCmd,
	)
}
