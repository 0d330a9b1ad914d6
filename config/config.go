// Package config reads the YAML board description: which chip sits on
// which bus, how its lines, rails and clock are wired, and how camera
// detection and notifications are set up.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mklimuk/vdec"
	"gopkg.in/yaml.v3"
)

const (
	TransportPeriph  = "periph"
	TransportGobot   = "gobot"
	TransportMCP2221 = "mcp2221"

	DetectPoll = "poll"
	DetectEdge = "edge"
)

type Config struct {
	Chip     string                       `yaml:"chip"`
	I2C      I2C                          `yaml:"i2c"`
	Expander *Expander                    `yaml:"expander,omitempty"`
	Lines    map[string]string            `yaml:"lines,omitempty"`
	Rails    map[string]Rail              `yaml:"rails,omitempty"`
	Clock    Clock                        `yaml:"clock"`
	Detect   Detect                       `yaml:"detect"`
	Groups   map[string]map[string]string `yaml:"groups,omitempty"`
	MQTT     *MQTT                        `yaml:"mqtt,omitempty"`
	WLAN     *WLAN                        `yaml:"wlan,omitempty"`
}

type I2C struct {
	Transport string `yaml:"transport"`
	// Bus is the periph.io bus name or the gobot bus number.
	Bus string `yaml:"bus,omitempty"`
	// Address overrides the 7-bit chip address.
	Address     byte   `yaml:"address,omitempty"`
	Speed       string `yaml:"speed,omitempty"`
	DeviceIndex int    `yaml:"device_index,omitempty"`
	RetryLimit  int    `yaml:"retry_limit,omitempty"`
}

// Expander is an MCP23017 on the same bus providing mcp23017:<port><pin>
// lines.
type Expander struct {
	Address byte `yaml:"address"`
	Bank    int  `yaml:"bank,omitempty"`
}

// Rail is either switched by a line or fixed.
type Rail struct {
	Pin       string `yaml:"pin,omitempty"`
	ActiveLow bool   `yaml:"active_low,omitempty"`
}

// Clock is a PWM pin generating the chip clock, or a fixed oscillator of
// the given frequency when Pin is empty.
type Clock struct {
	Pin   string `yaml:"pin,omitempty"`
	Fixed string `yaml:"fixed,omitempty"`
}

type Detect struct {
	Mode      string        `yaml:"mode,omitempty"`
	Interval  time.Duration `yaml:"interval,omitempty"`
	Settle    time.Duration `yaml:"settle,omitempty"`
	ActiveLow bool          `yaml:"active_low,omitempty"`
	// Group overrides the default <chip>_detect group name.
	Group string `yaml:"group,omitempty"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id,omitempty"`
	Topic    string `yaml:"topic,omitempty"`
	QoS      byte   `yaml:"qos,omitempty"`
	Retained bool   `yaml:"retained,omitempty"`
}

type WLAN struct {
	Power       string        `yaml:"power,omitempty"`
	PowerSettle time.Duration `yaml:"power_settle,omitempty"`
	RescanPath  string        `yaml:"rescan_path,omitempty"`
	OOBIRQ      string        `yaml:"oob_irq,omitempty"`
	SerialPath  string        `yaml:"serial_path,omitempty"`
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: could not read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("config: could not decode: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	c.Chip = strings.ToLower(c.Chip)
	if c.I2C.Transport == "" {
		c.I2C.Transport = TransportPeriph
	}
	if c.Detect.Mode == "" {
		c.Detect.Mode = DetectPoll
	}
	if c.Detect.Interval == 0 {
		c.Detect.Interval = time.Second
	}
	if c.Detect.Group == "" {
		c.Detect.Group = c.Chip + "_detect"
	}
	if c.MQTT != nil && c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "vdec-" + c.Chip
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Chip == "" {
		errs = append(errs, errors.New("chip is required"))
	}
	switch c.I2C.Transport {
	case TransportPeriph, TransportGobot, TransportMCP2221:
	default:
		errs = append(errs, fmt.Errorf("unknown i2c transport %q", c.I2C.Transport))
	}
	for name := range c.Lines {
		switch vdec.LineName(name) {
		case vdec.LineReset, vdec.LinePowerDn, vdec.LinePowerEn, vdec.LineSMHS:
		default:
			errs = append(errs, fmt.Errorf("unknown line %q", name))
		}
	}
	for name := range c.Rails {
		switch vdec.RailName(name) {
		case vdec.RailIO, vdec.RailCore, vdec.RailAnalog, vdec.RailAF:
		default:
			errs = append(errs, fmt.Errorf("unknown rail %q", name))
		}
	}
	switch c.Detect.Mode {
	case DetectPoll, DetectEdge:
	default:
		errs = append(errs, fmt.Errorf("unknown detect mode %q", c.Detect.Mode))
	}
	if c.MQTT != nil && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt broker is required"))
	}
	if c.MQTT != nil && c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("invalid mqtt qos %d", c.MQTT.QoS))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w: %w", vdec.ErrConfigMissing, err)
	}
	return nil
}

// Group returns the named configuration group or nil when it is absent.
func (c *Config) Group(name string) map[string]string {
	g, ok := c.Groups[name]
	if !ok {
		return nil
	}
	return g
}

// DetectGroup returns the group holding the detect lines of the chip.
func (c *Config) DetectGroup() map[string]string {
	return c.Group(c.Detect.Group)
}
