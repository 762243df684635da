package bus

import (
	"encoding/binary"
	"errors"
)

// Payload widths per field follow the bus protocol tables: 1, 4, or 5
// bytes. Values are fixed-point with truncating conversion; the scaling
// factors are load-bearing for the other boards on the bus.

var ErrBadPayload = errors.New("bus: bad payload")

// EncodeTemperature packs a temperature measurement:
// sensor id (1 B) + signed value x100 (4 B).
func EncodeTemperature(sensorID byte, celsius float64) []byte {
	out := make([]byte, 5)
	out[0] = sensorID
	binary.BigEndian.PutUint32(out[1:], uint32(int32(celsius*100)))
	return out
}

// DecodeTemperature unpacks a temperature measurement payload.
func DecodeTemperature(data []byte) (sensorID byte, celsius float64, err error) {
	if len(data) != 5 {
		return 0, 0, ErrBadPayload
	}
	raw := int32(binary.BigEndian.Uint32(data[1:]))
	return data[0], float64(raw) / 100, nil
}

// EncodeIrradiance packs an irradiance measurement: signed value x100 (4 B).
func EncodeIrradiance(wm2 float64) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(int32(wm2*100)))
	return out
}

// DecodeIrradiance unpacks an irradiance measurement payload.
func DecodeIrradiance(data []byte) (float64, error) {
	if len(data) != 4 {
		return 0, ErrBadPayload
	}
	return float64(int32(binary.BigEndian.Uint32(data))) / 100, nil
}

// EncodeEnable packs the enable/disable command: one byte, LSB set
// when enabled.
func EncodeEnable(on bool) []byte {
	if on {
		return []byte{0x01}
	}
	return []byte{0x00}
}

// DecodeEnable unpacks the enable/disable command.
func DecodeEnable(data []byte) (bool, error) {
	if len(data) != 1 {
		return false, ErrBadPayload
	}
	return data[0]&0x01 != 0, nil
}

// EncodeBoardFault packs a board fault report: error code (1 B) +
// context (1 B).
func EncodeBoardFault(code, context byte) []byte {
	return []byte{code, context}
}

// DecodeBoardFault unpacks a board fault report.
func DecodeBoardFault(data []byte) (code, context byte, err error) {
	if len(data) != 2 {
		return 0, 0, ErrBadPayload
	}
	return data[0], data[1], nil
}

// EncodeMeasurement packs a device voltage/current measurement:
// value x1000 (4 B), truncated.
func EncodeMeasurement(value float64) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(int64(value*1000)))
	return out
}

// DecodeMeasurement unpacks a device voltage/current measurement.
func DecodeMeasurement(data []byte) (float64, error) {
	if len(data) != 4 {
		return 0, ErrBadPayload
	}
	return float64(binary.BigEndian.Uint32(data)) / 1000, nil
}
