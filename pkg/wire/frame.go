package wire

import "errors"

// Byte-stream frames share a common shape: a fixed prelude byte
// followed by a 12-bit message id packed across 1.5 bytes (the high
// byte plus the high nibble of the next byte). The low nibble of the
// third byte already belongs to the payload.
const (
	// Prelude marks the start of every byte-stream frame.
	Prelude byte = 0xFF

	// HeaderLen is the number of bytes needed to resolve the prelude
	// and the full 12-bit message id.
	HeaderLen = 3

	// ProfileRequestLen is the total length of a profile request frame.
	ProfileRequestLen = 8
	// ResultLen is the total length of a result frame.
	ResultLen = 7
	// ExceptionLen is the total length of an exception frame.
	ExceptionLen = 6
)

var (
	// ErrShortHeader indicates the window does not yet hold a full header.
	ErrShortHeader = errors.New("wire: need more data")
	// ErrBadPrelude indicates the window does not start with the prelude
	// byte. The caller must discard exactly one byte and retry.
	ErrBadPrelude = errors.New("wire: bad prelude")
	// ErrShortFrame indicates a frame buffer of the wrong length.
	ErrShortFrame = errors.New("wire: short frame")
)

// DecodeHeader inspects the start of window and extracts the 12-bit
// message id. It is a pure function over the byte window and never
// blocks. n is the number of header bytes inspected (HeaderLen).
func DecodeHeader(window []byte) (msgID uint16, n int, err error) {
	if len(window) == 0 {
		return 0, 0, ErrShortHeader
	}
	if window[0] != Prelude {
		return 0, 0, ErrBadPrelude
	}
	if len(window) < HeaderLen {
		return 0, 0, ErrShortHeader
	}
	msgID = uint16(window[1])<<4 | uint16(window[2]>>4)
	return msgID, HeaderLen, nil
}

// The reserved nibble between the message id and the regime field.
// Existing host tooling transmits it as all ones; decoders ignore it.
const reservedNibble = 0xF

// EncodeProfileRequest packs a profile request frame:
//
//	prelude | id(12) | reserved(4) | regime(4) | start(12) | end(12) | resolution(12)
//
// Voltages are in millivolts. No validation is performed here; the
// profile package owns the domain checks.
func EncodeProfileRequest(msgID uint16, regime uint8, startMV, endMV, resolutionMV uint16) [ProfileRequestLen]byte {
	var f [ProfileRequestLen]byte
	f[0] = Prelude
	f[1] = byte(msgID >> 4)
	f[2] = byte(msgID&0xF)<<4 | reservedNibble
	f[3] = regime<<4 | byte(startMV>>8)
	f[4] = byte(startMV)
	f[5] = byte(endMV >> 4)
	f[6] = byte(endMV&0xF)<<4 | byte(resolutionMV>>8)
	f[7] = byte(resolutionMV)
	return f
}

// DecodeProfileRequest unpacks the raw fields of a profile request
// frame. The frame must be exactly ProfileRequestLen bytes starting at
// the prelude. Field values are returned as-is, unvalidated.
func DecodeProfileRequest(frame []byte) (msgID uint16, regime uint8, startMV, endMV, resolutionMV uint16, err error) {
	if len(frame) != ProfileRequestLen {
		return 0, 0, 0, 0, 0, ErrShortFrame
	}
	if frame[0] != Prelude {
		return 0, 0, 0, 0, 0, ErrBadPrelude
	}
	msgID = uint16(frame[1])<<4 | uint16(frame[2]>>4)
	regime = frame[3] >> 4
	startMV = uint16(frame[3]&0xF)<<8 | uint16(frame[4])
	endMV = uint16(frame[5])<<4 | uint16(frame[6]>>4)
	resolutionMV = uint16(frame[6]&0xF)<<8 | uint16(frame[7])
	return msgID, regime, startMV, endMV, resolutionMV, nil
}

// EncodeResult packs a result frame:
//
//	prelude | id(12) | kind(4) | sampleID(12) | value(20)
//
// value is in milli-units, truncated to 20 bits.
func EncodeResult(msgID uint16, kind MeasurementKind, sampleID uint16, value uint32) [ResultLen]byte {
	var f [ResultLen]byte
	f[0] = Prelude
	f[1] = byte(msgID >> 4)
	f[2] = byte(msgID&0xF)<<4 | byte(kind)&0xF
	f[3] = byte(sampleID >> 4)
	f[4] = byte(sampleID&0xF)<<4 | byte(value>>16)&0xF
	f[5] = byte(value >> 8)
	f[6] = byte(value)
	return f
}

// DecodeResult unpacks a result frame.
func DecodeResult(frame []byte) (msgID uint16, kind MeasurementKind, sampleID uint16, value uint32, err error) {
	if len(frame) != ResultLen {
		return 0, 0, 0, 0, ErrShortFrame
	}
	if frame[0] != Prelude {
		return 0, 0, 0, 0, ErrBadPrelude
	}
	msgID = uint16(frame[1])<<4 | uint16(frame[2]>>4)
	kind = MeasurementKind(frame[2] & 0xF)
	sampleID = uint16(frame[3])<<4 | uint16(frame[4]>>4)
	value = uint32(frame[4]&0xF)<<16 | uint32(frame[5])<<8 | uint32(frame[6])
	return msgID, kind, sampleID, value, nil
}

// EncodeException packs an exception frame:
//
//	prelude | id(12) | code(12) | context(16)
func EncodeException(msgID uint16, code ErrorCode, context uint16) [ExceptionLen]byte {
	var f [ExceptionLen]byte
	f[0] = Prelude
	f[1] = byte(msgID >> 4)
	f[2] = byte(msgID&0xF)<<4 | byte(code>>8)&0xF
	f[3] = byte(code)
	f[4] = byte(context >> 8)
	f[5] = byte(context)
	return f
}

// DecodeException unpacks an exception frame.
func DecodeException(frame []byte) (msgID uint16, code ErrorCode, context uint16, err error) {
	if len(frame) != ExceptionLen {
		return 0, 0, 0, ErrShortFrame
	}
	if frame[0] != Prelude {
		return 0, 0, 0, ErrBadPrelude
	}
	msgID = uint16(frame[1])<<4 | uint16(frame[2]>>4)
	code = ErrorCode(frame[2]&0xF)<<8 | ErrorCode(frame[3])
	context = uint16(frame[4])<<8 | uint16(frame[5])
	return msgID, code, context, nil
}

// MilliUnits converts a physical value to the wire's fixed-point
// milli-unit representation. Truncation, not rounding: host tooling
// depends on the exact scaling behavior. The result is masked to the
// 20 bits available in the result frame.
func MilliUnits(v float64) uint32 {
	return uint32(int64(v*1000)) & 0xFFFFF
}
