// Package env assembles the components of xrlink processes from
// configuration.
package env

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"gopkg.in/yaml.v2"

	fx "github.com/robotalks/xrlink/pkg/framework"
	"github.com/robotalks/xrlink/pkg/link"
	"github.com/robotalks/xrlink/pkg/link/trace"
)

// Config provides common options of xrlink processes.
type Config struct {
	// DeviceURL specifies the bus channel to the peripheral.
	// e.g. serial:///dev/ttyUSB0, tcp://host:port, sim://
	DeviceURL string `yaml:"device"`
	// MQTTBrokerURL specifies the MQTT broker to bridge with,
	// e.g. mqtt://host:port/topic-prefix. Empty disables the bridge.
	MQTTBrokerURL string `yaml:"mqtt"`
	// DeviceID names the device on the broker.
	DeviceID string `yaml:"id"`
	// TraceFile receives the data frame trace, "-" for stderr.
	TraceFile  string `yaml:"traceFile"`
	TraceFlags string `yaml:"traceFlags"`

	Link link.Config `yaml:"link"`
}

var (
	defaultConfig = Config{
		DeviceURL:     "sim://?echo=true",
		MQTTBrokerURL: "mqtt://localhost:1883/xrlink/",
		TraceFlags:    "all",
	}
	configFile string
)

func init() {
	defaultConfig.Link = *link.Default()
	defaultConfig.LoadEnv()
	configFile = os.Getenv("XRLINK_CONFIG")
}

// LoadEnv overrides the config with environment variables.
func (c *Config) LoadEnv() {
	if val := os.Getenv("XRLINK_DEVICE"); val != "" {
		c.DeviceURL = val
	}
	if val := os.Getenv("XRLINK_MQTT_URL"); val != "" {
		c.MQTTBrokerURL = val
	}
	if val := os.Getenv("XRLINK_ID"); val != "" {
		c.DeviceID = val
	}
	if val := os.Getenv("XRLINK_TRACE"); val != "" {
		c.TraceFile = val
	}
	c.Link.LoadEnv()
}

// BindFlags binds the config fields to flags.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DeviceURL, "device", c.DeviceURL, "Device URL")
	fs.StringVar(&c.MQTTBrokerURL, "mqtt", c.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	fs.StringVar(&c.DeviceID, "id", c.DeviceID, "Device ID, default is derived from machine ID")
	fs.StringVar(&c.TraceFile, "trace", c.TraceFile, "Data frame trace file, - for stderr")
	fs.StringVar(&c.TraceFlags, "trace-flags", c.TraceFlags, "Traced frames: ether,arp,ipv4,ipv6 or all")
	c.Link.BindFlags(fs)
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "YAML config file")
	defaultConfig.BindFlags(flag.CommandLine)
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Load builds the config from the file specified by -config and the
// command line flags.
func Load() (*Config, error) {
	return LoadWith(configFile, flag.CommandLine)
}

// MustLoad loads the config and fails on error.
func MustLoad() *Config {
	conf, err := Load()
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

// LoadWith builds the config in the order of defaults, the YAML file at
// path, environment variables and flags explicitly set in fs.
func LoadWith(path string, fs *flag.FlagSet) (*Config, error) {
	conf := NewConfig()
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %v", err)
		}
		if err = yaml.UnmarshalStrict(data, conf); err != nil {
			return nil, fmt.Errorf("parse config %s: %v", path, err)
		}
	}
	conf.LoadEnv()
	if fs != nil {
		overrides := flag.NewFlagSet("overrides", flag.ContinueOnError)
		conf.BindFlags(overrides)
		var errs fx.AggregatedError
		fs.Visit(func(f *flag.Flag) {
			if overrides.Lookup(f.Name) != nil {
				errs.Add(overrides.Set(f.Name, f.Value.String()))
			}
		})
		if err := errs.Aggregate(); err != nil {
			return nil, err
		}
	}
	if conf.DeviceID == "" {
		conf.DeviceID = MachineID()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks the config and reports all problems.
func (c *Config) Validate() error {
	var errs fx.AggregatedError
	if c.DeviceURL == "" {
		errs.Add(fmt.Errorf("device URL required"))
	}
	if _, err := trace.ParseFlags(c.TraceFlags); err != nil {
		errs.Add(err)
	}
	errs.Add(c.Link.Validate())
	return errs.Aggregate()
}
