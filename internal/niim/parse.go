package niim

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/OpenPrinting/go-mfp/util/optional"
)

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// BytesToInt interprets b as a big-endian unsigned integer.
func BytesToInt(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

// --------------------------------------------------------------------------
// Response payloads
// --------------------------------------------------------------------------

// ParseByte returns the first payload byte, or 0 for an empty payload.
func ParseByte(data []byte) int {
	if len(data) > 0 {
		return int(data[0])
	}
	return 0
}

// ParseBool reports whether the first payload byte is non-zero.
func ParseBool(data []byte) bool {
	return len(data) > 0 && data[0] != 0
}

// ParseVersion decodes a 2-byte big-endian version: 300 becomes "3.0".
func ParseVersion(data []byte) (string, error) {
	if len(data) != 2 {
		return "", fmt.Errorf("%w: version needs 2 bytes, got %d", ErrInvalidFormat, len(data))
	}
	v := BytesToInt(data)
	return fmt.Sprintf("%d.%d", v/100, v%100), nil
}

// ParseRFID decodes a CmdGetRFID response. It returns nil when no tag is
// present (first byte 0 or an empty payload).
//
//	[uuid:8][barcodeLen:1][barcode][serialLen:1][serial][total:2][used:2][type:1]
func ParseRFID(data []byte) (*RFID, error) {
	if len(data) == 0 || data[0] == 0 {
		return nil, nil
	}
	short := func(field string) error {
		return fmt.Errorf("%w: rfid payload too short for %s (%d bytes)", ErrInvalidFormat, field, len(data))
	}
	if len(data) < 9 {
		return nil, short("uuid")
	}
	tag := &RFID{UUID: hex.EncodeToString(data[0:8])}
	idx := 8

	barcodeLen := int(data[idx])
	idx++
	if idx+barcodeLen+1 > len(data) {
		return nil, short("barcode")
	}
	tag.Barcode = string(data[idx : idx+barcodeLen])
	idx += barcodeLen

	serialLen := int(data[idx])
	idx++
	if idx+serialLen+5 > len(data) {
		return nil, short("serial")
	}
	tag.Serial = string(data[idx : idx+serialLen])
	idx += serialLen

	tag.TotalLen = int(binary.BigEndian.Uint16(data[idx : idx+2]))
	tag.UsedLen = int(binary.BigEndian.Uint16(data[idx+2 : idx+4]))
	tag.Type = int(data[idx+4])
	return tag, nil
}

// ParseHeartbeat decodes a CmdHeartbeat response. Models differ in payload
// length; unknown lengths leave every field absent.
func ParseHeartbeat(data []byte) Heartbeat {
	var hb Heartbeat
	at := func(i int) optional.Val[int] { return optional.New(int(data[i])) }

	switch len(data) {
	case 20:
		hb.PaperState = at(18)
		hb.RFIDReadState = at(19)
	case 19:
		hb.ClosingState = at(15)
		hb.PowerLevel = at(16)
		hb.PaperState = at(17)
		hb.RFIDReadState = at(18)
	case 13:
		hb.ClosingState = at(9)
		hb.PowerLevel = at(10)
		hb.PaperState = at(11)
		hb.RFIDReadState = at(12)
	case 10:
		// Offset 8 is ambiguous in this shape (closing state or RFID
		// read state); it is treated as the closing state only.
		hb.ClosingState = at(8)
		hb.PowerLevel = at(9)
	case 9:
		hb.ClosingState = at(8)
	}
	return hb
}

// ParsePrintStatus decodes a CmdGetPrintStatus response.
func ParsePrintStatus(data []byte) (PrintStatus, error) {
	if len(data) < 3 {
		return PrintStatus{}, fmt.Errorf("%w: print status needs 3 bytes, got %d", ErrInvalidFormat, len(data))
	}
	return PrintStatus{Page: int(data[0]), Progress1: int(data[1]), Progress2: int(data[2])}, nil
}

// --------------------------------------------------------------------------
// Request payloads
// --------------------------------------------------------------------------

// DimensionPayload builds the CmdSetDimension payload (height first).
func DimensionPayload(width, height int) ([]byte, error) {
	if width < 1 || width > 0xFFFF || height < 1 || height > 0xFFFF {
		return nil, fmt.Errorf("%w: dimension %dx%d", ErrInvalidArgument, width, height)
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], uint16(height))
	binary.BigEndian.PutUint16(buf[2:4], uint16(width))
	return buf, nil
}

// QuantityPayload builds the CmdSetQuantity payload.
func QuantityPayload(n int) ([]byte, error) {
	if n < 1 || n > 0xFFFF {
		return nil, fmt.Errorf("%w: quantity %d", ErrInvalidArgument, n)
	}
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(n))
	return buf, nil
}
