package tp9950

import "github.com/mklimuk/vdec/sensor"

// 1080p single channel BT656 output.
var program1080p30 = sensor.Program{
	{0x02, 0xcc}, {0x05, 0x00}, {0x06, 0x32}, {0x07, 0xc0},
	{0x08, 0x00}, {0x09, 0x24}, {0x0a, 0x48}, {0x0b, 0xc0},
	{0x0c, 0x03}, {0x0d, 0x72}, {0x0e, 0x00}, {0x0f, 0x00},
	{0x10, 0x00}, {0x11, 0x40}, {0x12, 0x60}, {0x13, 0x00},
	{0x14, 0x00}, {0x15, 0x01}, {0x16, 0xf0}, {0x17, 0x80},
	{0x18, 0x29}, {0x19, 0x38}, {0x1a, 0x47}, {0x1b, 0x01},
	{0x1c, 0x08}, {0x1d, 0x98}, {0x1e, 0x80}, {0x1f, 0x80},
	{0x20, 0x38}, {0x21, 0x46}, {0x22, 0x36}, {0x23, 0x3c},
	{0x24, 0x04}, {0x25, 0xfe}, {0x26, 0x0d}, {0x27, 0x2d},
	{0x28, 0x00}, {0x29, 0x48}, {0x2a, 0x30}, {0x2b, 0x60},
	{0x2c, 0x3a}, {0x2d, 0x54}, {0x2e, 0x40}, {0x2f, 0x00},
	{0x30, 0xa5}, {0x31, 0x95}, {0x32, 0xe0}, {0x33, 0x60},
	{0x34, 0x00}, {0x35, 0x05}, {0x36, 0xdc}, {0x37, 0x00},
	{0x38, 0x00}, {0x39, 0x1c}, {0x3a, 0x32}, {0x3b, 0x26},
	{0x3c, 0x00}, {0x3d, 0x60}, {0x3e, 0x00}, {0x3f, 0x00},
	{0x40, 0x00}, {0x41, 0x00}, {0x42, 0x00}, {0x43, 0x00},
	{0x44, 0x00}, {0x45, 0x00}, {0x46, 0x00}, {0x47, 0x00},
	{0x48, 0x00}, {0x49, 0x00}, {0x4a, 0x00}, {0x4b, 0x00},
	{0x4c, 0x43}, {0x4d, 0x00}, {0x4e, 0x17}, {0x4f, 0x00},
	{0x50, 0x00}, {0x51, 0x00}, {0x52, 0x00}, {0x53, 0x00},
	{0x54, 0x00}, {0xb3, 0xfa}, {0xb4, 0x00}, {0xb5, 0x00},
	{0xb6, 0x00}, {0xb7, 0x00}, {0xb8, 0x00}, {0xb9, 0x00},
	{0xba, 0x00}, {0xbb, 0x00}, {0xbc, 0x00}, {0xbd, 0x00},
	{0xbe, 0x00}, {0xbf, 0x00}, {0xc0, 0x00}, {0xc1, 0x00},
	{0xc2, 0x0b}, {0xc3, 0x0c}, {0xc4, 0x00}, {0xc5, 0x00},
	{0xc6, 0x1f}, {0xc7, 0x78}, {0xc8, 0x27}, {0xc9, 0x00},
	{0xca, 0x00}, {0xcb, 0x07}, {0xcc, 0x08}, {0xcd, 0x00},
	{0xce, 0x00}, {0xcf, 0x04}, {0xd0, 0x00}, {0xd1, 0x00},
	{0xd2, 0x60}, {0xd3, 0x10}, {0xd4, 0x06}, {0xd5, 0xbe},
	{0xd6, 0x39}, {0xd7, 0x27}, {0xd8, 0x00}, {0xd9, 0x00},
	{0xda, 0x00}, {0xdb, 0x00}, {0xdc, 0x00}, {0xdd, 0x00},
	{0xde, 0x00}, {0xdf, 0x00}, {0xe0, 0x00}, {0xe1, 0x00},
	{0xe2, 0x00}, {0xe3, 0x00}, {0xe4, 0x00}, {0xe5, 0x00},
	{0xe6, 0x00}, {0xe7, 0x13}, {0xe8, 0x03}, {0xe9, 0x00},
	{0xea, 0x00}, {0xeb, 0x00}, {0xec, 0x00}, {0xed, 0x00},
	{0xee, 0x00}, {0xef, 0x00}, {0xf0, 0x00}, {0xf1, 0x00},
	{0xf2, 0x00}, {0xf3, 0x00}, {0xf4, 0x20}, {0xf5, 0x10},
	{0xf6, 0x00}, {0xf7, 0x00}, {0xf8, 0x00}, {0xf9, 0x00},
	{0xfa, 0x88}, {0xfb, 0x00}, {0xfc, 0x00}, {0x40, 0x08},
	{0x00, 0x00}, {0x01, 0xf8}, {0x02, 0x01}, {0x08, 0xf0},
	{0x13, 0x04}, {0x14, 0x73}, {0x15, 0x08}, {0x20, 0x12},
	{0x34, 0x1b}, {0x23, 0x02}, {0x23, 0x00}, {0x40, 0x00},
}

var program1080p25 = sensor.Program{
	{0x02, 0xcc}, {0x05, 0x00}, {0x06, 0x32}, {0x07, 0xc0},
	{0x08, 0x00}, {0x09, 0x24}, {0x0a, 0x48}, {0x0b, 0xc0},
	{0x0c, 0x03}, {0x0d, 0x73}, {0x0e, 0x00}, {0x0f, 0x00},
	{0x10, 0x00}, {0x11, 0x40}, {0x12, 0x60}, {0x13, 0x00},
	{0x14, 0x00}, {0x15, 0x01}, {0x16, 0xf0}, {0x17, 0x80},
	{0x18, 0x29}, {0x19, 0x38}, {0x1a, 0x47}, {0x1b, 0x01},
	{0x1c, 0x0a}, {0x1d, 0x50}, {0x1e, 0x80}, {0x1f, 0x80},
	{0x20, 0x3c}, {0x21, 0x46}, {0x22, 0x36}, {0x23, 0x3c},
	{0x24, 0x04}, {0x25, 0xfe}, {0x26, 0x0d}, {0x27, 0x2d},
	{0x28, 0x00}, {0x29, 0x48}, {0x2a, 0x30}, {0x2b, 0x60},
	{0x2c, 0x1a}, {0x2d, 0x54}, {0x2e, 0x40}, {0x2f, 0x00},
	{0x30, 0xa5}, {0x31, 0x86}, {0x32, 0xfb}, {0x33, 0x60},
	{0x34, 0x00}, {0x35, 0x05}, {0x36, 0xdc}, {0x37, 0x00},
	{0x38, 0x00}, {0x39, 0x1c}, {0x3a, 0x32}, {0x3b, 0x26},
	{0x3c, 0x00}, {0x3d, 0x60}, {0x3e, 0x00}, {0x3f, 0x00},
	{0x40, 0x00}, {0x41, 0x00}, {0x42, 0x00}, {0x43, 0x00},
	{0x44, 0x00}, {0x45, 0x00}, {0x46, 0x00}, {0x47, 0x00},
	{0x48, 0x00}, {0x49, 0x00}, {0x4a, 0x00}, {0x4b, 0x00},
	{0x4c, 0x43}, {0x4d, 0x00}, {0x4e, 0x17}, {0x4f, 0x00},
	{0x50, 0x00}, {0x51, 0x00}, {0x52, 0x00}, {0x53, 0x00},
	{0x54, 0x00}, {0xb3, 0xfa}, {0xb4, 0x00}, {0xb5, 0x00},
	{0xb6, 0x00}, {0xb7, 0x00}, {0xb8, 0x00}, {0xb9, 0x00},
	{0xba, 0x00}, {0xbb, 0x00}, {0xbc, 0x00}, {0xbd, 0x00},
	{0xbe, 0x00}, {0xbf, 0x00}, {0xc0, 0x00}, {0xc1, 0x00},
	{0xc2, 0x0b}, {0xc3, 0x0c}, {0xc4, 0x00}, {0xc5, 0x00},
	{0xc6, 0x1f}, {0xc7, 0x78}, {0xc8, 0x27}, {0xc9, 0x00},
	{0xca, 0x00}, {0xcb, 0x07}, {0xcc, 0x08}, {0xcd, 0x00},
	{0xce, 0x00}, {0xcf, 0x04}, {0xd0, 0x00}, {0xd1, 0x00},
	{0xd2, 0x60}, {0xd3, 0x10}, {0xd4, 0x06}, {0xd5, 0xbe},
	{0xd6, 0x39}, {0xd7, 0x27}, {0xd8, 0x00}, {0xd9, 0x00},
	{0xda, 0x00}, {0xdb, 0x00}, {0xdc, 0x00}, {0xdd, 0x00},
	{0xde, 0x00}, {0xdf, 0x00}, {0xe0, 0x00}, {0xe1, 0x00},
	{0xe2, 0x00}, {0xe3, 0x00}, {0xe4, 0x00}, {0xe5, 0x00},
	{0xe6, 0x00}, {0xe7, 0x13}, {0xe8, 0x03}, {0xe9, 0x00},
	{0xea, 0x00}, {0xeb, 0x00}, {0xec, 0x00}, {0xed, 0x00},
	{0xee, 0x00}, {0xef, 0x00}, {0xf0, 0x00}, {0xf1, 0x00},
	{0xf2, 0x00}, {0xf3, 0x00}, {0xf4, 0x20}, {0xf5, 0x10},
	{0xf6, 0x00}, {0xf7, 0x00}, {0xf8, 0x00}, {0xf9, 0x00},
	{0xfa, 0x88}, {0xfb, 0x00}, {0xfc, 0x00}, {0x40, 0x08},
	{0x00, 0x00}, {0x01, 0xf8}, {0x02, 0x01}, {0x08, 0xf0},
	{0x13, 0x04}, {0x14, 0x73}, {0x15, 0x08}, {0x20, 0x12},
	{0x34, 0x1b}, {0x23, 0x02}, {0x23, 0x00}, {0x40, 0x00},
}
