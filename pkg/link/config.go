package link

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config defines the tunables of a Session.
type Config struct {
	CmdQueueCap  int `yaml:"cmdQueueCap"`
	DataQueueCap int `yaml:"dataQueueCap"`
	// Align is the bus transfer alignment of a frame.
	Align int `yaml:"align"`
	// ProbeSize is the read size when the peripheral announced nothing.
	ProbeSize int `yaml:"probeSize"`
	// ResetDelay is the pause between deinit and init of the hardware
	// after an I/O failure.
	ResetDelay time.Duration `yaml:"resetDelay"`
	// IdleDelay is the back off when woken for tx with nothing queued.
	IdleDelay time.Duration `yaml:"idleDelay"`
	// PollInterval wakes the worker periodically to check RxPending,
	// for hardware not able to notify. 0 disables polling.
	PollInterval time.Duration `yaml:"pollInterval"`

	CmdTypes CmdTypes `yaml:"cmdTypes"`
}

// DefaultCmdTypes is the command type layout assumed when not configured.
// Check it against the firmware in use.
var DefaultCmdTypes = CmdTypes{
	RxPause:  0x0100,
	RxResume: 0x0101,
	LowFirst: 0x0102,
	LowLast:  0x01ff,
}

var defaultConfig = Config{
	CmdQueueCap:  16,
	DataQueueCap: 64,
	Align:        4,
	ProbeSize:    1536,
	ResetDelay:   2 * time.Second,
	IdleDelay:    5 * time.Millisecond,
	CmdTypes:     DefaultCmdTypes,
}

func init() {
	defaultConfig.LoadEnv()
}

// LoadEnv overrides the config with environment variables.
func (c *Config) LoadEnv() {
	if val, err := strconv.Atoi(os.Getenv("XRLINK_CMD_QUEUE")); err == nil {
		c.CmdQueueCap = val
	}
	if val, err := strconv.Atoi(os.Getenv("XRLINK_DATA_QUEUE")); err == nil {
		c.DataQueueCap = val
	}
	if val, err := time.ParseDuration(os.Getenv("XRLINK_RESET_DELAY")); err == nil {
		c.ResetDelay = val
	}
}

// BindFlags binds the config fields to flags.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.CmdQueueCap, "cmd-queue", c.CmdQueueCap, "Command queue capacity.")
	fs.IntVar(&c.DataQueueCap, "data-queue", c.DataQueueCap, "Data queue capacity.")
	fs.IntVar(&c.Align, "align", c.Align, "Frame alignment on the bus.")
	fs.DurationVar(&c.ResetDelay, "reset-delay", c.ResetDelay, "Delay between hardware deinit and init on failure.")
	fs.DurationVar(&c.PollInterval, "poll", c.PollInterval, "Poll interval for rx, 0 to rely on notification.")
}

// SetupFlags sets command line flags.
func SetupFlags() {
	defaultConfig.BindFlags(flag.CommandLine)
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the config.
// Queues must be large enough for the resume thresholds to be reachable.
func (c *Config) Validate() error {
	if c.CmdQueueCap*4/5 < 1 {
		return fmt.Errorf("command queue capacity too small: %d", c.CmdQueueCap)
	}
	if c.DataQueueCap*1/5 < 1 {
		return fmt.Errorf("data queue capacity too small: %d", c.DataQueueCap)
	}
	if c.CmdQueueCap > 256 || c.DataQueueCap > 256 {
		return fmt.Errorf("queue capacity exceeds sequence space")
	}
	if c.Align < 1 {
		return fmt.Errorf("invalid alignment: %d", c.Align)
	}
	if c.ProbeSize < 1 {
		return fmt.Errorf("invalid probe size: %d", c.ProbeSize)
	}
	if c.CmdTypes.LowFirst > c.CmdTypes.LowLast {
		return fmt.Errorf("invalid low command range %#x-%#x", c.CmdTypes.LowFirst, c.CmdTypes.LowLast)
	}
	return nil
}

// NewSession creates a Session using the config.
func (c *Config) NewSession(hw Hardware) (*Session, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return newSession(*c, hw), nil
}
