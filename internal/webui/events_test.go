package webui

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mzyy94/niimprint/internal/niim"
	"github.com/mzyy94/niimprint/internal/printer"
)

func TestEventHub(t *testing.T) {
	hub := NewEventHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", hub.ClientCount())
	}

	pkt := niim.Packet{Code: niim.CmdStartPrint + 1, Data: []byte{0x01, 0xFF}}
	hub.Publish(printer.Event{Kind: printer.EventPacket, Packet: &pkt})
	hub.Publish(printer.Event{Kind: printer.EventFrameError, Err: errors.New("bad checksum")})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg EventMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "packet" || msg.Data != "01ff" || msg.Code != pkt.Code.String() {
		t.Errorf("first message = %+v", msg)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "frameError" || msg.Error != "bad checksum" {
		t.Errorf("second message = %+v", msg)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount after close = %d, want 0", hub.ClientCount())
	}
}
