package i2c

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mklimuk/vdec"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var _ vdec.I2CBus = &GenericBus{}

// GenericBus is an I2C bus opened through periph.io host drivers.
type GenericBus struct {
	bus i2c.BusCloser
}

type GenericBusConfig struct {
	Speed physic.Frequency
}

type GenericBusOption func(*GenericBusConfig)

// WithSpeed sets the bus clock. Zero keeps the host default.
func WithSpeed(f physic.Frequency) GenericBusOption {
	return func(c *GenericBusConfig) {
		c.Speed = f
	}
}

// NewGenericBus opens the named bus ("1", "/dev/i2c-1", "I2C1"...).
func NewGenericBus(dev string, opts ...GenericBusOption) (*GenericBus, error) {
	config := &GenericBusConfig{}
	for _, opt := range opts {
		opt(config)
	}
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	if config.Speed > 0 {
		if err := bus.SetSpeed(config.Speed); err != nil {
			_ = bus.Close()
			return nil, fmt.Errorf("could not set i2c bus speed to %s: %w", config.Speed, err)
		}
	}
	return &GenericBus{
		bus: bus,
	}, nil
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}
