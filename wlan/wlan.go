// Package wlan brings up the SDIO wireless chip sharing the decoder board:
// it switches the chip supply, asks the host controller to rescan the
// bus, relays the out-of-band interrupt and derives the MAC address.
package wlan

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/mklimuk/vdec"
	"periph.io/x/conn/v3/gpio"
)

const (
	DefaultPowerSettle  = 100 * time.Millisecond
	DefaultRescanSettle = 10 * time.Millisecond
)

// MACPrefix is the vendor prefix of derived addresses.
var MACPrefix = [3]byte{0xdc, 0x44, 0x6d}

// Rescanner asks the host controller to look for a card on the bus.
type Rescanner interface {
	Rescan(ctx context.Context) error
}

// SysfsRescan triggers a rescan by writing to a sysfs attribute.
type SysfsRescan struct {
	Path string
}

func (s SysfsRescan) Rescan(ctx context.Context) error {
	if err := os.WriteFile(s.Path, []byte("1"), 0o644); err != nil {
		return fmt.Errorf("wlan: could not trigger rescan: %w", err)
	}
	return nil
}

type Device struct {
	power        vdec.Line
	rescan       Rescanner
	irq          vdec.InputLine
	powerSettle  time.Duration
	rescanSettle time.Duration
	sleep        func(time.Duration)
	logger       *slog.Logger
}

type Option func(*Device)

func WithRescanner(r Rescanner) Option {
	return func(d *Device) {
		d.rescan = r
	}
}

// WithOOBInterrupt sets the out-of-band interrupt line.
func WithOOBInterrupt(line vdec.InputLine) Option {
	return func(d *Device) {
		d.irq = line
	}
}

func WithPowerSettle(settle time.Duration) Option {
	return func(d *Device) {
		d.powerSettle = settle
	}
}

func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Device) {
		d.sleep = sleep
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) {
		d.logger = logger
	}
}

func New(power vdec.Line, opts ...Option) *Device {
	d := &Device{
		power:        power,
		powerSettle:  DefaultPowerSettle,
		rescanSettle: DefaultRescanSettle,
		sleep:        time.Sleep,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Up powers the chip and lets the host controller detect the card.
func (d *Device) Up(ctx context.Context) error {
	return d.switchPower(ctx, true)
}

// Down removes power and lets the host controller drop the card.
func (d *Device) Down(ctx context.Context) error {
	return d.switchPower(ctx, false)
}

func (d *Device) switchPower(ctx context.Context, on bool) error {
	if d.power != nil {
		if err := d.power.Out(ctx, gpio.Level(on)); err != nil {
			return fmt.Errorf("wlan: could not switch power: %w: %w", vdec.ErrResourceUnavailable, err)
		}
		d.sleep(d.powerSettle)
	}
	if d.rescan != nil {
		if err := d.rescan.Rescan(ctx); err != nil {
			return err
		}
		d.sleep(d.rescanSettle)
	}
	if on {
		d.logger.Info("wlan card detect")
	} else {
		d.logger.Info("wlan card remove")
	}
	return nil
}

// WatchInterrupt calls handler on every edge of the out-of-band interrupt
// line until ctx is done.
func (d *Device) WatchInterrupt(ctx context.Context, handler func()) error {
	if d.irq == nil {
		return fmt.Errorf("wlan: no oob interrupt: %w", vdec.ErrConfigMissing)
	}
	edges, ok := d.irq.(vdec.EdgeLine)
	if !ok {
		return fmt.Errorf("wlan: oob interrupt line: %w", vdec.ErrUnsupportedFeature)
	}
	if err := edges.In(ctx); err != nil {
		return fmt.Errorf("wlan: could not configure oob interrupt: %w", err)
	}
	for {
		if err := edges.WaitForEdge(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wlan: oob interrupt: %w", err)
		}
		handler()
	}
}

// MACFromSerial derives the station address from the first three bytes of
// the SoC serial number.
func MACFromSerial(serial []byte) (net.HardwareAddr, error) {
	if len(serial) < 3 {
		return nil, fmt.Errorf("wlan: serial too short (%d bytes)", len(serial))
	}
	return net.HardwareAddr{MACPrefix[0], MACPrefix[1], MACPrefix[2], serial[0], serial[1], serial[2]}, nil
}

// ParseSerial decodes a hex serial number. A "name : value" line as found
// in sunxi sysinfo files is accepted.
func ParseSerial(s string) ([]byte, error) {
	if _, v, ok := strings.Cut(s, ":"); ok {
		s = v
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	serial, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("wlan: invalid serial %q: %w", s, err)
	}
	return serial, nil
}

// ReadSerial reads the serial number from the first line of path
// mentioning "serial", or from the whole file.
func ReadSerial(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wlan: could not read serial: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(strings.ToLower(line), "serial") {
			return ParseSerial(line)
		}
	}
	return ParseSerial(string(data))
}
