package tp2854b

import "github.com/mklimuk/vdec/sensor"

// 1080p25 on all four inputs, CSI-2 four lanes. The program selects the
// video page (0x40=0x04, broadcast to every channel) then the MIPI page
// (0x40=0x08) and ends by toggling the CSI-2 output off and on.
var program1080p25 = sensor.Program{
	{0x40, 0x04}, {0x4e, 0x00}, {0xf5, 0xf0}, {0x02, 0x04},
	{0x07, 0xc0}, {0x0b, 0xc0}, {0x0c, 0x03}, {0x0d, 0x73},
	{0x15, 0x01}, {0x16, 0xf0}, {0x17, 0x80}, {0x18, 0x29},
	{0x19, 0x38}, {0x1a, 0x47}, {0x1c, 0x0a}, {0x1d, 0x50},
	{0x20, 0x3c}, {0x21, 0x46}, {0x22, 0x36}, {0x23, 0x3c},
	{0x25, 0xfe}, {0x26, 0x0d}, {0x2a, 0x30}, {0x2b, 0x60},
	{0x2c, 0x1a}, {0x2d, 0x54}, {0x2e, 0x40}, {0x30, 0xa5},
	{0x31, 0x86}, {0x32, 0xfb}, {0x33, 0x60}, {0x35, 0x05},
	{0x38, 0x00}, {0x39, 0x1c},
	{0x40, 0x08}, {0x01, 0xf8}, {0x02, 0x01}, {0x08, 0x0f},
	{0x10, 0x20}, {0x11, 0x47}, {0x12, 0x54}, {0x13, 0xef},
	{0x20, 0x44}, {0x34, 0xe4}, {0x14, 0x47}, {0x15, 0x01},
	{0x33, 0x0f}, {0x33, 0x00}, {0x14, 0x4f}, {0x14, 0x47},
	{0x14, 0x06}, {0x15, 0x00}, {0x25, 0x07}, {0x26, 0x05},
	{0x27, 0x0a}, {0x23, 0x02}, {0x23, 0x00},
}
