package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWrite(t *testing.T) {
	req := make([]byte, reportSize)
	encodeWrite(req, 0x44, []byte{0x40, 0x04})
	assert.Equal(t, []byte{0x90, 0x02, 0x00, 0x88, 0x40, 0x04}, req[:6])
}

func TestEncodeRead(t *testing.T) {
	req := make([]byte, reportSize)
	encodeRead(req, 0x44, 1)
	assert.Equal(t, []byte{0x91, 0x01, 0x00, 0x89}, req[:4])
}

func TestDecodeReadData(t *testing.T) {
	resp := make([]byte, reportSize)
	resp[0] = cmdGetReadData
	resp[3] = 1
	resp[4] = 0x50
	buf := make([]byte, 1)
	require.NoError(t, decodeReadData(resp, buf))
	assert.Equal(t, byte(0x50), buf[0])

	resp[3] = 127
	assert.Error(t, decodeReadData(resp, buf))

	resp[1] = 0x41
	assert.Error(t, decodeReadData(resp, buf))
}

func TestEncodeSetGPIO(t *testing.T) {
	tests := []struct {
		name     string
		pin      int
		value    *bool
		mode     GPIOMode
		expected map[int]byte
	}{
		{
			name:     "GP0 output high",
			pin:      0,
			value:    boolPtr(true),
			mode:     GPIOModeOut,
			expected: map[int]byte{0: 0x50, 2: 0x01, 3: 0x01, 4: 0x01, 5: 0x00},
		},
		{
			name:     "GP2 output low",
			pin:      2,
			value:    boolPtr(false),
			mode:     GPIOModeOut,
			expected: map[int]byte{0: 0x50, 10: 0x01, 11: 0x00, 12: 0x01, 13: 0x00},
		},
		{
			name:     "GP3 input",
			pin:      3,
			mode:     GPIOModeIn,
			expected: map[int]byte{0: 0x50, 14: 0x00, 15: 0x00, 16: 0x01, 17: 0x01},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := make([]byte, reportSize)
			encodeSetGPIO(req, tt.pin, tt.value, tt.mode)
			for idx, val := range tt.expected {
				assert.Equal(t, val, req[idx], "byte %d", idx)
			}
		})
	}
}

func TestDecodeGPIOValues(t *testing.T) {
	resp := make([]byte, reportSize)
	resp[0] = cmdGetGPIOValues
	resp[2], resp[3] = 0x01, 0x00
	resp[4], resp[5] = 0x00, 0x01
	resp[6], resp[7] = 0x00, byte(GPIOModeNoOperation)
	resp[8], resp[9] = 0x01, 0x01

	values := decodeGPIOValues(resp)
	assert.Equal(t, [4]byte{1, 0, 0, 1}, values.Values)
	assert.Equal(t, [4]GPIOMode{GPIOModeOut, GPIOModeIn, GPIOModeNoOperation, GPIOModeIn}, values.Modes)
}

func TestBufferToStatus(t *testing.T) {
	resp := make([]byte, reportSize)
	resp[9], resp[10] = 0x02, 0x00
	resp[11], resp[12] = 0x01, 0x00
	resp[13] = 4
	resp[14] = 0x76
	resp[16], resp[17] = 0x88, 0x00

	status := bufferToStatus(resp)
	assert.Equal(t, uint16(2), status.LastWriteRequestedSize)
	assert.Equal(t, uint16(1), status.LastWriteSentSize)
	assert.Equal(t, 4, status.I2CDataBufferCounter)
	assert.Equal(t, 0x76, status.I2CSpeedDivider)
	assert.Equal(t, "8800", status.CurrentAddress)
}

func boolPtr(b bool) *bool {
	return &b
}
