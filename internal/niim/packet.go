package niim

import (
	"encoding/hex"
	"fmt"
)

// Packet is a decoded frame: a command code and its payload.
type Packet struct {
	Code Code
	Data []byte
}

func (p Packet) String() string {
	return fmt.Sprintf("%s[%s]", p.Code, hex.EncodeToString(p.Data))
}

// checksum XOR-folds the code, the length byte and the payload.
func checksum(code Code, length byte, data []byte) byte {
	sum := byte(code) ^ length
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// Encode builds the wire frame for code and data:
//
//	[0x55 0x55][code][len][data...][checksum][0xAA 0xAA]
func Encode(code Code, data []byte) ([]byte, error) {
	if len(data) > MaxPayloadSize {
		return nil, fmt.Errorf("encode %s (%d bytes): %w", code, len(data), ErrPayloadTooLarge)
	}
	n := byte(len(data))
	buf := make([]byte, 0, len(data)+FrameOverhead)
	buf = append(buf, Header[0], Header[1], byte(code), n)
	buf = append(buf, data...)
	buf = append(buf, checksum(code, n, data), Trailer[0], Trailer[1])
	return buf, nil
}

// MustEncode is Encode for payloads known to fit.
func MustEncode(code Code, data []byte) []byte {
	frame, err := Encode(code, data)
	if err != nil {
		panic(err)
	}
	return frame
}

// Decode parses one complete frame. The returned payload is a copy.
//
// The checksum covers the payload region implied by the frame size, so a
// corrupted length byte is reported as ErrChecksum; a frame whose checksum
// holds but whose length byte disagrees with its size is ErrFormat.
func Decode(frame []byte) (Packet, error) {
	n := len(frame)
	if n < FrameOverhead {
		return Packet{}, fmt.Errorf("%w: frame too short (%d bytes)", ErrFormat, n)
	}
	if frame[0] != Header[0] || frame[1] != Header[1] || frame[n-2] != Trailer[0] || frame[n-1] != Trailer[1] {
		return Packet{}, fmt.Errorf("%w: bad magic", ErrFormat)
	}
	code := Code(frame[2])
	length := frame[lengthOffset]
	data := frame[4 : n-3]
	if sum := checksum(code, length, data); sum != frame[n-3] {
		return Packet{}, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrChecksum, frame[n-3], sum)
	}
	if int(length) != len(data) {
		return Packet{}, fmt.Errorf("%w: length byte %d, frame carries %d", ErrFormat, length, len(data))
	}
	return Packet{Code: code, Data: append([]byte(nil), data...)}, nil
}
