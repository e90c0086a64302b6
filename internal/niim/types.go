package niim

import "github.com/OpenPrinting/go-mfp/util/optional"

// LabelType values accepted by SetLabelType.
const (
	LabelTypeGap        = 1 // labels with gaps
	LabelTypeBlack      = 2 // black mark
	LabelTypeContinuous = 3
)

// Density range accepted by SetLabelDensity.
const (
	MinDensity     = 1
	MaxDensity     = 5
	DefaultDensity = 5
)

// RFID describes the label roll tag reported by CmdGetRFID.
type RFID struct {
	UUID     string `json:"uuid"` // 8 bytes, hex
	Barcode  string `json:"barcode"`
	Serial   string `json:"serial"`
	TotalLen int    `json:"totalLen"`
	UsedLen  int    `json:"usedLen"`
	Type     int    `json:"type"`
}

// Heartbeat holds the fields present in a CmdHeartbeat response. Which
// fields are set depends on the payload length the model sends.
type Heartbeat struct {
	ClosingState  optional.Val[int] `json:"closingState"`
	PowerLevel    optional.Val[int] `json:"powerLevel"`
	PaperState    optional.Val[int] `json:"paperState"`
	RFIDReadState optional.Val[int] `json:"rfidReadState"`
}

// PrintStatus is the CmdGetPrintStatus response.
type PrintStatus struct {
	Page      int `json:"page"`
	Progress1 int `json:"progress1"` // 0: printing, 1: page finished
	Progress2 int `json:"progress2"` // 0-100
}

// Finished reports whether the current page has been printed.
func (s PrintStatus) Finished() bool { return s.Progress1 == 1 }
