// Package sensor implements the decoder device lifecycle: power sequencing,
// mode programming, controls and the identity probe, composed into Device.
package sensor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mklimuk/vdec"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

type PowerState int

const (
	PowerOff PowerState = iota
	PowerStandbyOn
	PowerStandbyOff
	PowerOn
)

func (s PowerState) String() string {
	switch s {
	case PowerOff:
		return "off"
	case PowerStandbyOn:
		return "standby-on"
	case PowerStandbyOff:
		return "standby-off"
	case PowerOn:
		return "on"
	}
	return fmt.Sprintf("PowerState(%d)", int(s))
}

func ParsePowerState(s string) (PowerState, error) {
	switch strings.ToLower(s) {
	case "off":
		return PowerOff, nil
	case "standby-on", "standby":
		return PowerStandbyOn, nil
	case "standby-off", "wake":
		return PowerStandbyOff, nil
	case "on":
		return PowerOn, nil
	}
	return PowerOff, fmt.Errorf("%q: %w", s, vdec.ErrInvalidPowerState)
}

// State is the device lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateDetecting
	StateConfigured
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateDetecting:
		return "detecting"
	case StateConfigured:
		return "configured"
	case StateStreaming:
		return "streaming"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type RegVal struct {
	Addr byte
	Val  byte
}

// Program is an ordered list of register writes.
type Program []RegVal

// Media bus pixel codes.
const (
	MediaBusUYVY8_2X8  uint32 = 0x2006
	MediaBusUYVY8_1X16 uint32 = 0x200f
)

type Format struct {
	Description   string
	Code          uint32
	BytesPerPixel int
	Program       Program
}

type Window struct {
	Width       uint32
	Height      uint32
	HOffset     uint32
	VOffset     uint32
	FPS         int
	PixelClock  physic.Frequency
	MIPIBitRate physic.Frequency
	Program     Program
	// PostConfigure runs after the program for fixups that are not plain
	// register writes.
	PostConfigure func(ctx context.Context, bus vdec.RegisterBus) error
}

func (w Window) String() string {
	return fmt.Sprintf("%dx%d@%d", w.Width, w.Height, w.FPS)
}

type BusType int

const (
	BusBT656 BusType = iota
	BusCSI2
)

func (t BusType) String() string {
	if t == BusCSI2 {
		return "csi2"
	}
	return "bt656"
}

// MediaBus describes the video output interface.
type MediaBus struct {
	Type            BusType
	Lanes           int
	VirtualChannels int
	// SampleFalling is the BT656 pixel clock polarity.
	SampleFalling bool
}

// Identity describes the identity registers: the value is high<<8|low.
type Identity struct {
	LowReg   byte
	HighReg  byte
	Expected uint16
}

type LineLevel struct {
	Line  vdec.LineName
	Level gpio.Level
}

// PowerProfile describes the board resources a chip needs and the order
// and timing they are switched in.
type PowerProfile struct {
	// Lines are claimed before power on and released after power off.
	Lines []vdec.LineName
	// Hold levels are applied right after claiming.
	Hold []LineLevel
	// Active levels bring the chip out of reset at the end of power on.
	Active []LineLevel
	// Assert levels put the chip back in reset at the start of power off.
	Assert      []LineLevel
	IORail      vdec.RailName
	CoreRails   []vdec.RailName
	OffRails    []vdec.RailName
	Clock       physic.Frequency
	IOSettle    time.Duration
	RailSettle  time.Duration
	ClockSettle time.Duration
	FinalSettle time.Duration
	// StandbySettle follows the reset line toggle of a standby transition.
	StandbySettle time.Duration
	ResetHold     time.Duration
}

// Chip is the static description of a decoder chip.
type Chip struct {
	Name     string
	Address  byte
	Identity Identity
	Power    PowerProfile
	MediaBus MediaBus
	Formats  []Format
	Windows  []Window
	Gain     ControlRange
	Exposure ControlRange
	// DumpRegisters lists registers printed by register dumps.
	DumpRegisters []byte
}

// RegisterRange returns the addresses from first to last inclusive.
func RegisterRange(first, last byte) []byte {
	res := make([]byte, 0, int(last)-int(first)+1)
	for a := int(first); a <= int(last); a++ {
		res = append(res, byte(a))
	}
	return res
}
