// Package tp2854b describes the Techpoint TP2854B four channel HD analog
// video decoder with a MIPI CSI-2 output.
package tp2854b

import (
	"time"

	"github.com/mklimuk/vdec"
	"github.com/mklimuk/vdec/detect"
	"github.com/mklimuk/vdec/sensor"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

const (
	Name        = "tp2854b"
	Address     = 0x1a
	Identity    = 0x2854
	DetectGroup = Name + "_detect"
)

// DumpPages are the register pages a full dump walks through.
var DumpPages = []byte{0x00, 0x01, 0x02, 0x08}

var formats = []sensor.Format{
	{Description: "Raw RGB Bayer", Code: sensor.MediaBusUYVY8_1X16, BytesPerPixel: 4},
}

var windows = []sensor.Window{
	{
		Width:       1920,
		Height:      1080,
		FPS:         25,
		PixelClock:  594 * physic.MegaHertz,
		MIPIBitRate: 1188 * physic.MegaHertz,
		Program:     program1080p25,
	},
}

var power = sensor.PowerProfile{
	Lines: []vdec.LineName{vdec.LinePowerDn, vdec.LineReset, vdec.LinePowerEn},
	Hold: []sensor.LineLevel{
		{Line: vdec.LineReset, Level: gpio.Low},
		{Line: vdec.LinePowerDn, Level: gpio.Low},
	},
	IORail:      vdec.RailIO,
	IOSettle:    2 * time.Millisecond,
	CoreRails:   []vdec.RailName{vdec.RailCore, vdec.RailAnalog},
	RailSettle:  30 * time.Millisecond,
	Clock:       24 * physic.MegaHertz,
	ClockSettle: 30 * time.Millisecond,
	Active: []sensor.LineLevel{
		{Line: vdec.LineReset, Level: gpio.High},
		{Line: vdec.LinePowerDn, Level: gpio.High},
	},
	FinalSettle: 30 * time.Millisecond,
	Assert: []sensor.LineLevel{
		{Line: vdec.LineReset, Level: gpio.Low},
		{Line: vdec.LinePowerDn, Level: gpio.Low},
	},
	OffRails:      []vdec.RailName{vdec.RailAF, vdec.RailAnalog, vdec.RailCore, vdec.RailIO},
	StandbySettle: time.Millisecond,
	ResetHold:     5 * time.Millisecond,
}

func Chip() *sensor.Chip {
	return &sensor.Chip{
		Name:     Name,
		Address:  Address,
		Identity: sensor.Identity{LowReg: 0xfe, HighReg: 0xff, Expected: Identity},
		Power:    power,
		MediaBus: sensor.MediaBus{Type: sensor.BusCSI2, Lanes: 4, VirtualChannels: 4},
		Formats:  formats,
		Windows:  windows,
		Gain:     sensor.ControlRange{Min: 1600, Max: 409600, Step: 1, Default: 1600},
		Exposure: sensor.ControlRange{Min: 0, Max: 1048576, Step: 1, Default: 0, Volatile: true},
		DumpRegisters: append(sensor.RegisterRange(0x00, 0x5f),
			append(sensor.RegisterRange(0x61, 0xdf), sensor.RegisterRange(0xf0, 0xff)...)...),
	}
}

// DiscoverOptions returns the detect discovery settings of the chip: one
// power line per channel, each followed by a settle.
func DiscoverOptions() []detect.DiscoverOption {
	return []detect.DiscoverOption{detect.WithPerChannelPower(), detect.WithPowerSettle(10 * time.Millisecond)}
}
