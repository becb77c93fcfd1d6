// Package serial opens a UART attached bus bridge.
package serial

import (
	"time"

	"github.com/tarm/serial"

	"github.com/robotalks/xrlink/pkg/link/hwio/stream"
)

// Config defines serial port options.
type Config struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

// DefaultBaud is used when Baud is not specified.
const DefaultBaud = 921600

// PortConfig converts to tarm/serial config.
func (c *Config) PortConfig() *serial.Config {
	baud := c.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	return &serial.Config{
		Name:        c.Name,
		Baud:        baud,
		ReadTimeout: c.ReadTimeout,
		Size:        serial.DefaultSize,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
}

// Open opens the port.
func (c *Config) Open() (*stream.ReadWriter, error) {
	port, err := serial.OpenPort(c.PortConfig())
	if err != nil {
		return nil, err
	}
	if err = port.Flush(); err != nil {
		port.Close()
		return nil, err
	}
	return stream.New(port), nil
}
