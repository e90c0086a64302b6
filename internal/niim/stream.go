package niim

import (
	"bytes"
	"errors"
	"fmt"
)

// Reassembler turns arbitrary byte chunks into validated packets using the
// length byte at offset 3. It is not safe for concurrent use; the reception
// loop owns it.
type Reassembler struct {
	buf []byte
}

// Feed appends chunk and returns every complete packet now available.
//
// A frame that fails validation is reported in err (joined when several fail
// in one call) and the buffer skips ahead to the next header candidate, so
// later frames still decode. After Feed returns, the buffer is empty or holds
// the prefix of a frame that has not fully arrived.
func (r *Reassembler) Feed(chunk []byte) ([]Packet, error) {
	r.buf = append(r.buf, chunk...)

	var pkts []Packet
	var errs []error
	for len(r.buf) > 4 {
		if r.buf[0] != Header[0] || r.buf[1] != Header[1] {
			errs = append(errs, fmt.Errorf("%w: expected header, got 0x%02X%02X", ErrFormat, r.buf[0], r.buf[1]))
			r.resync()
			continue
		}
		frameLen := int(r.buf[lengthOffset]) + FrameOverhead
		if len(r.buf) < frameLen {
			break
		}
		pkt, err := Decode(r.buf[:frameLen])
		if err != nil {
			errs = append(errs, err)
			r.resync()
			continue
		}
		r.consume(frameLen)
		pkts = append(pkts, pkt)
	}
	return pkts, errors.Join(errs...)
}

// Buffered returns the number of bytes waiting for the rest of a frame.
func (r *Reassembler) Buffered() int { return len(r.buf) }

// Reset drops buffered bytes.
func (r *Reassembler) Reset() { r.buf = r.buf[:0] }

func (r *Reassembler) consume(n int) {
	rest := copy(r.buf, r.buf[n:])
	r.buf = r.buf[:rest]
}

// resync drops the leading byte and everything up to the next header
// candidate. A trailing lone 0x55 is kept since it may start a header.
func (r *Reassembler) resync() {
	if i := bytes.Index(r.buf[1:], Header[:]); i >= 0 {
		r.consume(i + 1)
		return
	}
	if r.buf[len(r.buf)-1] == Header[0] {
		r.consume(len(r.buf) - 1)
		return
	}
	r.buf = r.buf[:0]
}
