package env

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/xrlink/pkg/bridge/mqtt"
	"github.com/robotalks/xrlink/pkg/link"
	"github.com/robotalks/xrlink/pkg/link/hwio"
	"github.com/robotalks/xrlink/pkg/link/trace"
)

// Env holds the components built from Config.
type Env struct {
	Config   *Config
	Hardware link.Hardware
	Session  *link.Session
	Bridge   *mqtt.Bridge
	Tracer   *trace.Tracer
}

// NewEnv creates the hardware and the session, plus the tracer when
// TraceFile is set. The bridge is created by NewBridge.
func (c *Config) NewEnv() (*Env, error) {
	hw, err := hwio.Open(c.DeviceURL)
	if err != nil {
		return nil, err
	}
	s, err := c.Link.NewSession(hw)
	if err != nil {
		return nil, err
	}
	e := &Env{Config: c, Hardware: hw, Session: s}
	if c.TraceFile != "" {
		flags, err := trace.ParseFlags(c.TraceFlags)
		if err != nil {
			return nil, err
		}
		if c.TraceFile == "-" {
			e.Tracer = trace.New(struct{ io.Writer }{os.Stderr}, flags)
		} else {
			e.Tracer = trace.NewFile(c.TraceFile, flags)
		}
		s.Tracer = e.Tracer
	}
	glog.Infof("device %s: %s", c.DeviceID, c.DeviceURL)
	return e, nil
}

// MustNewEnv creates the Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// NewBridge creates the MQTT bridge and attaches it to the session.
func (e *Env) NewBridge() (*mqtt.Bridge, error) {
	if e.Config.MQTTBrokerURL == "" {
		return nil, fmt.Errorf("MQTT broker URL not specified")
	}
	b, err := mqtt.New(e.Config.MQTTBrokerURL, e.Config.DeviceID)
	if err != nil {
		return nil, err
	}
	b.Attach(e.Session)
	e.Bridge = b
	return b, nil
}

// Close releases resources not owned by the session.
func (e *Env) Close() error {
	if e.Tracer != nil {
		return e.Tracer.Close()
	}
	return nil
}
