package hwio

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/robotalks/xrlink/pkg/link"
	"github.com/robotalks/xrlink/pkg/link/hwio/serial"
	"github.com/robotalks/xrlink/pkg/link/hwio/sim"
	"github.com/robotalks/xrlink/pkg/link/hwio/stream"
	"github.com/robotalks/xrlink/pkg/link/hwio/websocket"
)

// DefaultDialTimeout is used when dialing network bridges.
const DefaultDialTimeout = 5 * time.Second

// Open creates the Hardware specified by URL:
//
//	sim://?echo=true&align=4
//	tcp://host:port
//	serial:///dev/ttyUSB0?baud=921600
//	ws://host:port/path
func Open(deviceURL string) (link.Hardware, error) {
	u, err := url.Parse(deviceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid device URL: %v", err)
	}
	query := u.Query()
	switch u.Scheme {
	case "sim":
		dev := sim.New()
		if val := query.Get("echo"); val != "" {
			if dev.Echo, err = strconv.ParseBool(val); err != nil {
				return nil, fmt.Errorf("invalid echo: %v", err)
			}
		}
		if val := query.Get("align"); val != "" {
			if dev.Align, err = strconv.Atoi(val); err != nil || dev.Align < 1 {
				return nil, fmt.Errorf("invalid align: %q", val)
			}
		}
		return dev, nil
	case "tcp", "unix":
		addr := u.Host
		if u.Scheme == "unix" {
			addr = u.Path
		}
		network := u.Scheme
		return NewChannel(func() (PacketConn, error) {
			return stream.Dial(network, addr, DefaultDialTimeout)
		}), nil
	case "serial":
		conf := &serial.Config{Name: u.Path}
		if conf.Name == "" {
			conf.Name = u.Opaque
		}
		if conf.Name == "" {
			return nil, fmt.Errorf("serial device name required")
		}
		if val := query.Get("baud"); val != "" {
			if conf.Baud, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("invalid baud: %v", err)
			}
		}
		return NewChannel(func() (PacketConn, error) {
			return conf.Open()
		}), nil
	case "ws", "wss":
		origin := "http://localhost/"
		if val := query.Get("origin"); val != "" {
			origin = val
			query.Del("origin")
			u.RawQuery = query.Encode()
		}
		target := u.String()
		return NewChannel(func() (PacketConn, error) {
			return websocket.Dial(target, origin)
		}), nil
	default:
		return nil, fmt.Errorf("unknown device URL scheme: %q", u.Scheme)
	}
}
