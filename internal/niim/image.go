package niim

import (
	"encoding/binary"
	"fmt"
	"iter"
)

// Raster is a row-major, non-premultiplied RGBA pixel buffer.
type Raster struct {
	Pix    []byte
	Width  int
	Height int
}

// Limits for a raster that can be sent line by line.
const (
	MaxLineWidth = (MaxPayloadSize - LineHeaderSize) * 8
	MaxRows      = 1 << 16

	blackThreshold = 128
)

// LineEncoder yields one CmdImageLine payload per raster row:
//
//	[row:2 big-endian][0 0 0][0x01][1bpp pixels, MSB first]
//
// It is pull-based and single-use; only the current row is held in packed form.
type LineEncoder struct {
	r   *Raster
	row int
}

// NewLineEncoder validates r and returns an encoder positioned at row 0.
func NewLineEncoder(r *Raster) (*LineEncoder, error) {
	if r == nil || r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("%w: empty raster", ErrInvalidArgument)
	}
	if r.Width > MaxLineWidth {
		return nil, fmt.Errorf("%w: width %d exceeds %d pixels", ErrInvalidArgument, r.Width, MaxLineWidth)
	}
	if r.Height > MaxRows {
		return nil, fmt.Errorf("%w: height %d exceeds %d rows", ErrInvalidArgument, r.Height, MaxRows)
	}
	if need := r.Width * r.Height * 4; len(r.Pix) < need {
		return nil, fmt.Errorf("%w: pixel buffer has %d bytes, need %d", ErrInvalidArgument, len(r.Pix), need)
	}
	return &LineEncoder{r: r}, nil
}

// Next returns the next encoded row, or false once every row was produced.
func (e *LineEncoder) Next() ([]byte, bool) {
	if e.row >= e.r.Height {
		return nil, false
	}
	line := encodeRow(e.r, e.row)
	e.row++
	return line, true
}

// Remaining returns the number of rows not yet produced.
func (e *LineEncoder) Remaining() int { return e.r.Height - e.row }

// Lines adapts the encoder to a range-over-func sequence. Rows consumed
// through it are consumed from the encoder.
func (e *LineEncoder) Lines() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for {
			line, ok := e.Next()
			if !ok || !yield(line) {
				return
			}
		}
	}
}

func encodeRow(r *Raster, y int) []byte {
	line := make([]byte, LineHeaderSize+(r.Width+7)/8)
	binary.BigEndian.PutUint16(line[0:2], uint16(y))
	line[5] = lineMarker

	bits := line[LineHeaderSize:]
	base := y * r.Width * 4
	for x := range r.Width {
		if isBlack(r.Pix[base+x*4 : base+x*4+4]) {
			bits[x/8] |= 0x80 >> (x % 8)
		}
	}
	return line
}

// isBlack applies the print threshold to one RGBA pixel. Transparent pixels
// are white.
func isBlack(px []byte) bool {
	if px[3] == 0 {
		return false
	}
	lum := 0.21*float64(px[0]) + 0.72*float64(px[1]) + 0.07*float64(px[2])
	return lum <= blackThreshold
}

// ParseLine splits a CmdImageLine payload into its row index and packed bits.
func ParseLine(line []byte) (row int, bits []byte, err error) {
	if len(line) < LineHeaderSize || line[5] != lineMarker {
		return 0, nil, fmt.Errorf("%w: not an image line", ErrInvalidFormat)
	}
	return int(binary.BigEndian.Uint16(line[0:2])), line[LineHeaderSize:], nil
}
