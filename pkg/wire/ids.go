package wire

// Message ids shared with the rest of the solar array system. The
// 0x64x block belongs to the curve tracer; the 0x62x/0x63x blocks
// belong to the blackbody sensor board.
const (
	MsgProfileRequest uint16 = 0x640
	MsgResult         uint16 = 0x641
	MsgFault          uint16 = 0x642
	MsgVoltageMeas    uint16 = 0x643
	MsgCurrentMeas    uint16 = 0x644

	MsgTempMeas    uint16 = 0x620
	MsgIrrad1Meas  uint16 = 0x630
	MsgIrrad2Meas  uint16 = 0x631
	MsgBoardEnable uint16 = 0x632
	MsgBoardFault  uint16 = 0x633
)

// ErrorCode identifies a software exception reported to the host.
type ErrorCode uint16

// Standard error codes (fit in 8 bits).
const (
	ErrCodeNone            ErrorCode = 0x00
	ErrCodeUnknown         ErrorCode = 0x01
	ErrCodeBadState        ErrorCode = 0x02
	ErrCodeInvalidMsgID    ErrorCode = 0x20
	ErrCodeInvalidMsgData  ErrorCode = 0x21
	ErrCodeUnexpectedMsgID ErrorCode = 0x22
)

// Extended error codes.
const (
	ErrCodeInvalidProfile            ErrorCode = 0x100
	ErrCodeInvalidVoltageStart       ErrorCode = 0x101
	ErrCodeInvalidVoltageEnd         ErrorCode = 0x102
	ErrCodeInvalidVoltageConsistency ErrorCode = 0x103
	ErrCodeInvalidVoltageResolution  ErrorCode = 0x104
	ErrCodeInvalidDuration           ErrorCode = 0x105
	ErrCodeInvalidFifoDequeue        ErrorCode = 0x106
)

// MeasurementKind tags a result frame with what was measured.
// The numeric values are fixed by the host-side visualizer.
type MeasurementKind uint8

const (
	KindVoltage MeasurementKind = iota
	KindCurrent
	KindTemperature
	KindIrradiance
)

func (k MeasurementKind) String() string {
	switch k {
	case KindVoltage:
		return "voltage"
	case KindCurrent:
		return "current"
	case KindTemperature:
		return "temperature"
	case KindIrradiance:
		return "irradiance"
	}
	return "unknown"
}
