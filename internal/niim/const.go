package niim

import "fmt"

// Frame magic bytes.
var (
	Header  = [2]byte{0x55, 0x55}
	Trailer = [2]byte{0xAA, 0xAA}
)

// Frame layout constants.
const (
	FrameOverhead  = 7   // header(2) + code + len + checksum + trailer(2)
	MaxPayloadSize = 255 // length is one byte on the wire
	lengthOffset   = 3
)

// Code is a packet command identifier.
type Code byte

// Command codes. Responses normally arrive as request code + 1;
// CmdSetLabelType, CmdSetLabelDensity, CmdAllowPrintClear and
// CmdGetPrintStatus answer at +16.
const (
	CmdNotImplemented  Code = 0x00 // device sentinel: command unsupported
	CmdStartPrint      Code = 0x01
	CmdStartPagePrint  Code = 0x03
	CmdSetDimension    Code = 0x13
	CmdSetQuantity     Code = 0x15
	CmdGetRFID         Code = 0x1A
	CmdAllowPrintClear Code = 0x20
	CmdSetLabelDensity Code = 0x21
	CmdSetLabelType    Code = 0x23
	CmdGetInfo         Code = 0x40
	CmdImageLine       Code = 0x85
	CmdGetPrintStatus  Code = 0xA3
	CmdValueError      Code = 0xDB // device sentinel: invalid parameter
	CmdHeartbeat       Code = 0xDC
	CmdEndPagePrint    Code = 0xE3
	CmdEndPrint        Code = 0xF3
)

// Response code offsets.
const (
	DefaultResponseOffset = 1
	WideResponseOffset    = 16
)

// InfoCode selects the attribute queried with CmdGetInfo.
// The device answers at CmdGetInfo + info code.
type InfoCode byte

const (
	InfoDensity          InfoCode = 1
	InfoPrintSpeed       InfoCode = 2
	InfoLabelType        InfoCode = 3
	InfoLanguageType     InfoCode = 6
	InfoAutoShutdownTime InfoCode = 7
	InfoDeviceType       InfoCode = 8
	InfoSoftVersion      InfoCode = 9
	InfoBattery          InfoCode = 10
	InfoDeviceSerial     InfoCode = 11
	InfoHardVersion      InfoCode = 12
)

// Line header constants for CmdImageLine payloads.
const (
	LineHeaderSize = 6
	lineMarker     = 0x01
)

var codeNames = map[Code]string{
	CmdNotImplemented:  "NOT_IMPLEMENTED",
	CmdStartPrint:      "START_PRINT",
	CmdStartPagePrint:  "START_PAGE_PRINT",
	CmdSetDimension:    "SET_DIMENSION",
	CmdSetQuantity:     "SET_QUANTITY",
	CmdGetRFID:         "GET_RFID",
	CmdAllowPrintClear: "ALLOW_PRINT_CLEAR",
	CmdSetLabelDensity: "SET_LABEL_DENSITY",
	CmdSetLabelType:    "SET_LABEL_TYPE",
	CmdGetInfo:         "GET_INFO",
	CmdImageLine:       "IMG_LINE",
	CmdGetPrintStatus:  "GET_PRINT_STATUS",
	CmdValueError:      "VALUE_ERROR",
	CmdHeartbeat:       "HEARTBEAT",
	CmdEndPagePrint:    "END_PAGE_PRINT",
	CmdEndPrint:        "END_PRINT",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", byte(c))
}

var infoNames = map[InfoCode]string{
	InfoDensity:          "density",
	InfoPrintSpeed:       "print_speed",
	InfoLabelType:        "label_type",
	InfoLanguageType:     "language_type",
	InfoAutoShutdownTime: "auto_shutdown_time",
	InfoDeviceType:       "device_type",
	InfoSoftVersion:      "soft_version",
	InfoBattery:          "battery",
	InfoDeviceSerial:     "device_serial",
	InfoHardVersion:      "hard_version",
}

func (c InfoCode) String() string {
	if name, ok := infoNames[c]; ok {
		return name
	}
	return fmt.Sprintf("info(%d)", byte(c))
}

// IsDeviceError reports whether c is one of the device error sentinels.
func (c Code) IsDeviceError() bool {
	return c == CmdNotImplemented || c == CmdValueError
}
