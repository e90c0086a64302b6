package printer

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/mzyy94/niimprint/internal/niim"
)

// fakeDevice answers frames written by a Printer over an in-memory pipe.
type fakeDevice struct {
	conn net.Conn

	mu       sync.Mutex
	received []niim.Packet
	handler  func(niim.Packet) []niim.Packet
}

func (d *fakeDevice) run() {
	var asm niim.Reassembler
	buf := make([]byte, 256)
	for {
		n, err := d.conn.Read(buf)
		if err != nil {
			return
		}
		pkts, _ := asm.Feed(buf[:n])
		for _, pkt := range pkts {
			d.mu.Lock()
			d.received = append(d.received, pkt)
			h := d.handler
			d.mu.Unlock()
			if h == nil {
				continue
			}
			for _, reply := range h(pkt) {
				d.write(niim.MustEncode(reply.Code, reply.Data))
			}
		}
	}
}

func (d *fakeDevice) write(b []byte) {
	d.conn.Write(b)
}

func (d *fakeDevice) setHandler(h func(niim.Packet) []niim.Packet) {
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()
}

// codes returns the request codes received so far, excluding image lines.
func (d *fakeDevice) codes() []niim.Code {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []niim.Code
	for _, p := range d.received {
		if p.Code != niim.CmdImageLine {
			out = append(out, p.Code)
		}
	}
	return out
}

func (d *fakeDevice) count(code niim.Code) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, p := range d.received {
		if p.Code == code {
			n++
		}
	}
	return n
}

func reply(code niim.Code, data ...byte) []niim.Packet {
	return []niim.Packet{{Code: code, Data: data}}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestPrinter returns a connected Printer wired to a fake device.
func newTestPrinter(t *testing.T, handler func(niim.Packet) []niim.Packet, opts ...Option) (*Printer, *fakeDevice) {
	t.Helper()
	host, dev := net.Pipe()
	d := &fakeDevice{conn: dev, handler: handler}
	go d.run()

	tr := TransportFunc(func(ctx context.Context, o ConnectOptions) (Port, error) {
		return host, nil
	})
	opts = append([]Option{
		WithLogger(discardLogger()),
		WithConfig(Config{
			CommandTimeout:       time.Second,
			StatusPollInterval:   time.Millisecond,
			EndPrintPollInterval: time.Millisecond,
		}),
	}, opts...)
	p := New(tr, opts...)
	if err := p.Connect(context.Background(), ConnectOptions{}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() {
		p.Disconnect()
		dev.Close()
	})
	return p, d
}

// eventLog records events from a Printer.
type eventLog struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func watch(p *Printer) *eventLog {
	l := &eventLog{ch: make(chan Event, 64)}
	p.Subscribe(func(ev Event) {
		l.mu.Lock()
		l.events = append(l.events, ev)
		l.mu.Unlock()
		select {
		case l.ch <- ev:
		default:
		}
	})
	return l
}

func (l *eventLog) kinds(filter ...EventKind) []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []EventKind
	for _, ev := range l.events {
		for _, k := range filter {
			if ev.Kind == k {
				out = append(out, ev.Kind)
			}
		}
	}
	return out
}

// waitFor blocks until an event of kind arrives.
func (l *eventLog) waitFor(t *testing.T, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-l.ch:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event", kind)
			return Event{}
		}
	}
}
