// Package cci implements the camera control interface register bus used
// by the decoder chips: 8-bit register address, 8-bit value, on top of a
// plain I2C transport.
package cci

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/vdec"
)

var _ vdec.RegisterBus = &Bus{}
var _ vdec.Locker = &Bus{}

type Config struct {
	Address    byte
	RetryLimit int
}

type ConfigOption func(*Config)

func WithRetryLimit(limit int) ConfigOption {
	return func(c *Config) {
		c.RetryLimit = limit
	}
}

// Bus is the register bus of a single chip. Lock/Unlock is the bus-wide
// exclusive lock held by power transitions and register programs; every
// register access is additionally serialized internally so a read never
// interleaves with another transfer on the same transport.
type Bus struct {
	lock       sync.Mutex
	mx         sync.Mutex
	transport  vdec.I2CBus
	address    byte
	retryLimit int
}

// New creates a register bus for the chip at the given 7-bit address.
func New(transport vdec.I2CBus, address byte, opts ...ConfigOption) *Bus {
	config := &Config{
		Address:    address,
		RetryLimit: 3,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.RetryLimit < 1 {
		config.RetryLimit = 1
	}
	return &Bus{transport: transport, address: config.Address, retryLimit: config.RetryLimit}
}

func (b *Bus) Address() byte {
	return b.address
}

func (b *Bus) Lock() {
	b.lock.Lock()
}

func (b *Bus) Unlock() {
	b.lock.Unlock()
}

// ReadReg sets the register pointer and reads one byte back.
func (b *Bus) ReadReg(ctx context.Context, addr byte) (byte, error) {
	var err error
	var res byte
	for i := b.retryLimit; i > 0; i-- {
		res, err = b.readRegister(ctx, addr)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, vdec.ErrBusBusy) {
			return 0, fmt.Errorf("cci: could not read register %#02x: %w", addr, err)
		}
		// try to release the bus
		_ = b.transport.Release(ctx)
	}
	return 0, fmt.Errorf("cci: could not read register %#02x (retry limit reached): %w", addr, err)
}

// WriteReg writes a single register.
func (b *Bus) WriteReg(ctx context.Context, addr, val byte) error {
	var err error
	for i := b.retryLimit; i > 0; i-- {
		err = b.writeRegister(ctx, addr, val)
		if err == nil {
			return nil
		}
		if !errors.Is(err, vdec.ErrBusBusy) {
			return fmt.Errorf("cci: could not write register %#02x: %w", addr, err)
		}
		_ = b.transport.Release(ctx)
	}
	return fmt.Errorf("cci: could not write register %#02x (retry limit reached): %w", addr, err)
}

func (b *Bus) readRegister(ctx context.Context, addr byte) (byte, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	err := b.transport.WriteToAddr(ctx, b.address, []byte{addr})
	if err != nil {
		return 0x00, fmt.Errorf("could not set register address: %w", err)
	}
	buf := make([]byte, 1)
	err = b.transport.ReadFromAddr(ctx, b.address, buf)
	if err != nil {
		return 0x00, fmt.Errorf("could not read register data: %w", err)
	}
	return buf[0], nil
}

func (b *Bus) writeRegister(ctx context.Context, addr, val byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.transport.WriteToAddr(ctx, b.address, []byte{addr, val})
}
