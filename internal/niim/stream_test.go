package niim

import (
	"bytes"
	"errors"
	"testing"
)

func buildStream(t *testing.T) ([]Packet, []byte) {
	t.Helper()
	want := []Packet{
		{Code: CmdGetInfo + 1, Data: []byte{0x03}},
		{Code: CmdHeartbeat + 1, Data: bytes.Repeat([]byte{0x07}, 13)},
		{Code: CmdStartPrint + 1, Data: nil},
		{Code: CmdGetPrintStatus + 16, Data: []byte{0x00, 0x01, 0x64}},
		{Code: CmdImageLine, Data: bytes.Repeat([]byte{0xFF}, 255)},
	}
	var stream []byte
	for _, p := range want {
		stream = append(stream, MustEncode(p.Code, p.Data)...)
	}
	return want, stream
}

func feedChunks(t *testing.T, stream []byte, size int) []Packet {
	t.Helper()
	var r Reassembler
	var got []Packet
	for off := 0; off < len(stream); off += size {
		end := min(off+size, len(stream))
		pkts, err := r.Feed(stream[off:end])
		if err != nil {
			t.Fatalf("chunk size %d: Feed error: %v", size, err)
		}
		got = append(got, pkts...)
	}
	if r.Buffered() != 0 {
		t.Errorf("chunk size %d: %d bytes left in buffer", size, r.Buffered())
	}
	return got
}

func assertPackets(t *testing.T, got, want []Packet) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d packets, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Code != want[i].Code || !bytes.Equal(got[i].Data, want[i].Data) {
			t.Errorf("packet %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestReassembler_ChunkSizes(t *testing.T) {
	want, stream := buildStream(t)
	whole := feedChunks(t, stream, len(stream))
	assertPackets(t, whole, want)

	for _, size := range []int{1, 2, 3, 4, 5, 7, 8, 13, 64, 100} {
		got := feedChunks(t, stream, size)
		assertPackets(t, got, whole)
	}
}

func TestReassembler_HoldsPartialFrame(t *testing.T) {
	frame := MustEncode(CmdGetInfo+1, []byte{1, 2, 3})
	var r Reassembler

	pkts, err := r.Feed(frame[:6])
	if err != nil || len(pkts) != 0 {
		t.Fatalf("partial Feed = %v, %v; want no packets, no error", pkts, err)
	}
	if r.Buffered() != 6 {
		t.Errorf("Buffered = %d, want 6", r.Buffered())
	}

	pkts, err = r.Feed(frame[6:])
	if err != nil {
		t.Fatal(err)
	}
	if len(pkts) != 1 || pkts[0].Code != CmdGetInfo+1 {
		t.Fatalf("pkts = %v, want one GET_INFO+1 packet", pkts)
	}
	if r.Buffered() != 0 {
		t.Errorf("Buffered = %d, want 0", r.Buffered())
	}
}

func TestReassembler_ShortPrefixWaits(t *testing.T) {
	var r Reassembler
	// Four bytes or fewer never attempt a decode.
	pkts, err := r.Feed([]byte{0x55, 0x55, 0x41, 0x01})
	if err != nil || len(pkts) != 0 {
		t.Fatalf("Feed = %v, %v", pkts, err)
	}
	if r.Buffered() != 4 {
		t.Errorf("Buffered = %d, want 4", r.Buffered())
	}
}

func TestReassembler_ResyncAfterChecksumError(t *testing.T) {
	bad := MustEncode(CmdGetInfo+1, []byte{0x09, 0x09})
	bad[6] ^= 0xFF // corrupt checksum
	good := MustEncode(CmdHeartbeat+1, []byte{0x01})

	var r Reassembler
	pkts, err := r.Feed(append(bad, good...))
	if !errors.Is(err, ErrChecksum) {
		t.Errorf("err = %v, want ErrChecksum", err)
	}
	if len(pkts) != 1 || pkts[0].Code != CmdHeartbeat+1 {
		t.Fatalf("pkts = %v, want the frame after the corrupted one", pkts)
	}
	if r.Buffered() != 0 {
		t.Errorf("Buffered = %d, want 0", r.Buffered())
	}
}

func TestReassembler_ResyncAfterGarbage(t *testing.T) {
	good := MustEncode(CmdEndPrint+1, []byte{0x01})
	stream := append([]byte{0x00, 0x13, 0x37, 0xAA, 0x55, 0x01}, good...)

	var r Reassembler
	var got []Packet
	var sawFormat bool
	for _, b := range stream {
		pkts, err := r.Feed([]byte{b})
		if errors.Is(err, ErrFormat) {
			sawFormat = true
		}
		got = append(got, pkts...)
	}
	if !sawFormat {
		t.Error("expected ErrFormat for leading garbage")
	}
	if len(got) != 1 || got[0].Code != CmdEndPrint+1 {
		t.Fatalf("got %v, want one END_PRINT+1 packet", got)
	}
}

func TestReassembler_Reset(t *testing.T) {
	var r Reassembler
	r.Feed([]byte{0x55, 0x55, 0x01, 0x09, 0x00})
	r.Reset()
	if r.Buffered() != 0 {
		t.Errorf("Buffered after Reset = %d, want 0", r.Buffered())
	}
}
