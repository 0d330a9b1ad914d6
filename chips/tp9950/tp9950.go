// Package tp9950 describes the Techpoint TP9950 single channel HD analog
// video decoder with a BT656 output.
package tp9950

import (
	"time"

	"github.com/mklimuk/vdec"
	"github.com/mklimuk/vdec/detect"
	"github.com/mklimuk/vdec/sensor"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

const (
	Name = "tp9950"
	// Address is the 7-bit bus address with the SAD pin low. SAD high
	// moves the chip to 0x45.
	Address  = 0x44
	Identity = 0x5028
	// DetectGroup names the configuration group holding the detect lines.
	DetectGroup = Name + "_detect"
)

var formats = []sensor.Format{
	{Description: "BT656 1CH", Code: sensor.MediaBusUYVY8_2X8, BytesPerPixel: 1},
}

var windows = []sensor.Window{
	{Width: 1920, Height: 1080, FPS: 30, Program: program1080p30},
	{Width: 1920, Height: 1080, FPS: 25, Program: program1080p25},
}

var power = sensor.PowerProfile{
	Lines: []vdec.LineName{vdec.LinePowerDn, vdec.LineReset, vdec.LineSMHS, vdec.LinePowerEn},
	Hold: []sensor.LineLevel{
		{Line: vdec.LinePowerDn, Level: gpio.High},
		{Line: vdec.LineSMHS, Level: gpio.High},
		{Line: vdec.LineReset, Level: gpio.Low},
	},
	IORail:      vdec.RailIO,
	CoreRails:   []vdec.RailName{vdec.RailAnalog, vdec.RailCore},
	RailSettle:  5 * time.Millisecond,
	Clock:       27 * physic.MegaHertz,
	ClockSettle: 30 * time.Millisecond,
	Active:      []sensor.LineLevel{{Line: vdec.LineReset, Level: gpio.High}},
	FinalSettle: 30 * time.Millisecond,
	Assert: []sensor.LineLevel{
		{Line: vdec.LineReset, Level: gpio.Low},
		{Line: vdec.LineSMHS, Level: gpio.Low},
		{Line: vdec.LinePowerDn, Level: gpio.Low},
	},
	OffRails:  []vdec.RailName{vdec.RailCore, vdec.RailAnalog, vdec.RailIO},
	ResetHold: 5 * time.Millisecond,
}

// Chip returns the TP9950 description. Every call returns a fresh value
// sharing the immutable register programs.
func Chip() *sensor.Chip {
	return &sensor.Chip{
		Name:     Name,
		Address:  Address,
		Identity: sensor.Identity{LowReg: 0xfe, HighReg: 0xff, Expected: Identity},
		Power:    power,
		MediaBus: sensor.MediaBus{Type: sensor.BusBT656, SampleFalling: true},
		Formats:  formats,
		Windows:  windows,
		Gain:     sensor.ControlRange{Min: 1600, Max: 409600, Step: 1, Default: 1600},
		Exposure: sensor.ControlRange{Min: 0, Max: 1048576, Step: 1, Default: 0, Volatile: true},
		DumpRegisters: sensor.RegisterRange(0x00, 0xff),
	}
}

// DiscoverOptions returns the detect discovery settings of the chip: one
// detect power line shared by all channels.
func DiscoverOptions() []detect.DiscoverOption {
	return nil
}
