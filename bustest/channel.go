// Package bustest provides in-memory fakes of the board interfaces: a
// BusChannel recording every operation in order and scripted input lines.
package bustest

import (
	"context"
	"fmt"
	"sync"

	"github.com/mklimuk/vdec"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

var _ vdec.BusChannel = &Channel{}

// Op is one recorded channel operation, rendered as a short string such
// as "write 0x40=0x04", "line reset=High", "rail iovdd=on" or "lock".
type Op string

// Channel is a fake BusChannel. Register reads come from Regs, or from
// ReadScript when a scripted sequence is set for the address. Every
// operation is appended to the log.
type Channel struct {
	mx         sync.Mutex
	busLock    sync.Mutex
	ops        []Op
	Regs       map[byte]byte
	ReadScript map[byte][]byte
	// Fail makes the operation whose rendered Op equals the key fail.
	Fail  map[Op]error
	Lines map[vdec.LineName]gpio.Level
	Rails map[vdec.RailName]bool
	Clock physic.Frequency
	// Locked reports whether the bus lock is currently held.
	Locked bool
}

func NewChannel() *Channel {
	return &Channel{
		Regs:       map[byte]byte{},
		ReadScript: map[byte][]byte{},
		Fail:       map[Op]error{},
		Lines:      map[vdec.LineName]gpio.Level{},
		Rails:      map[vdec.RailName]bool{},
	}
}

func (c *Channel) record(op Op) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.ops = append(c.ops, op)
	if err, ok := c.Fail[op]; ok {
		return err
	}
	return nil
}

// Ops returns a copy of the operation log.
func (c *Channel) Ops() []Op {
	c.mx.Lock()
	defer c.mx.Unlock()
	return append([]Op(nil), c.ops...)
}

// Writes returns only the register writes of the log.
func (c *Channel) Writes() []Op {
	var res []Op
	for _, op := range c.Ops() {
		if len(op) > 6 && op[:6] == "write " {
			res = append(res, op)
		}
	}
	return res
}

// Count returns how many times op was recorded.
func (c *Channel) Count(op Op) int {
	n := 0
	for _, o := range c.Ops() {
		if o == op {
			n++
		}
	}
	return n
}

func (c *Channel) Reset() {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.ops = nil
}

func (c *Channel) Lock() {
	c.busLock.Lock()
	c.mx.Lock()
	c.Locked = true
	c.ops = append(c.ops, "lock")
	c.mx.Unlock()
}

func (c *Channel) Unlock() {
	c.mx.Lock()
	c.Locked = false
	c.ops = append(c.ops, "unlock")
	c.mx.Unlock()
	c.busLock.Unlock()
}

// IsLocked reports whether the bus lock is held.
func (c *Channel) IsLocked() bool {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.Locked
}

func (c *Channel) ReadReg(ctx context.Context, addr byte) (byte, error) {
	if err := c.record(Op(fmt.Sprintf("read 0x%02x", addr))); err != nil {
		return 0, err
	}
	c.mx.Lock()
	defer c.mx.Unlock()
	if script := c.ReadScript[addr]; len(script) > 0 {
		val := script[0]
		c.ReadScript[addr] = script[1:]
		return val, nil
	}
	return c.Regs[addr], nil
}

func (c *Channel) WriteReg(ctx context.Context, addr, val byte) error {
	if err := c.record(Op(fmt.Sprintf("write 0x%02x=0x%02x", addr, val))); err != nil {
		return err
	}
	c.mx.Lock()
	defer c.mx.Unlock()
	c.Regs[addr] = val
	return nil
}

func (c *Channel) SetLine(ctx context.Context, name vdec.LineName, level gpio.Level) error {
	if err := c.record(Op(fmt.Sprintf("line %s=%s", name, level))); err != nil {
		return err
	}
	c.mx.Lock()
	defer c.mx.Unlock()
	c.Lines[name] = level
	return nil
}

func (c *Channel) ClaimLine(ctx context.Context, name vdec.LineName, claimed bool) error {
	op := "claim"
	if !claimed {
		op = "release"
	}
	return c.record(Op(fmt.Sprintf("%s %s", op, name)))
}

func (c *Channel) EnableRail(ctx context.Context, name vdec.RailName, on bool) error {
	if err := c.record(Op(fmt.Sprintf("rail %s=%s", name, onOff(on)))); err != nil {
		return err
	}
	c.mx.Lock()
	defer c.mx.Unlock()
	c.Rails[name] = on
	return nil
}

func (c *Channel) SetClock(ctx context.Context, f physic.Frequency) error {
	if err := c.record(Op(fmt.Sprintf("clock %s", f))); err != nil {
		return err
	}
	c.mx.Lock()
	defer c.mx.Unlock()
	c.Clock = f
	return nil
}

func (c *Channel) EnableClock(ctx context.Context, on bool) error {
	return c.record(Op(fmt.Sprintf("clock %s", onOff(on))))
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
