// Package printer drives a Niimbot label printer over a byte-stream transport.
package printer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mzyy94/niimprint/internal/niim"
)

// State is the connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config holds timing parameters.
type Config struct {
	CommandTimeout       time.Duration
	StatusPollInterval   time.Duration
	EndPrintPollInterval time.Duration
}

// DefaultConfig returns the default timings.
func DefaultConfig() Config {
	return Config{
		CommandTimeout:       niim.DefaultTimeout,
		StatusPollInterval:   300 * time.Millisecond,
		EndPrintPollInterval: 100 * time.Millisecond,
	}
}

// CommandHook observes every completed SendCommand call.
type CommandHook func(code niim.Code, elapsed time.Duration, err error)

// Option configures a Printer.
type Option func(*Printer)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Printer) { p.log = l }
}

// WithConfig overrides timings. Zero fields keep their defaults.
func WithConfig(c Config) Option {
	return func(p *Printer) {
		if c.CommandTimeout > 0 {
			p.cfg.CommandTimeout = c.CommandTimeout
		}
		if c.StatusPollInterval > 0 {
			p.cfg.StatusPollInterval = c.StatusPollInterval
		}
		if c.EndPrintPollInterval > 0 {
			p.cfg.EndPrintPollInterval = c.EndPrintPollInterval
		}
	}
}

// WithCommandHook registers a hook called after each command exchange.
func WithCommandHook(h CommandHook) Option {
	return func(p *Printer) { p.hook = h }
}

// Printer is one logical connection to a device.
type Printer struct {
	transport Transport
	cfg       Config
	log       *slog.Logger
	hook      CommandHook

	mu      sync.Mutex // guards state, port, done
	state   State
	port    Port
	done    chan struct{}
	reading atomic.Bool

	writeMu  sync.Mutex  // one frame per Write
	cmdMu    sync.Mutex  // one request/response exchange at a time
	jobMu    sync.Mutex  // held for a whole print job or one monitor poll
	printing atomic.Bool // a print job is running or waiting for jobMu

	reg       *niim.Registry
	listeners listenerSet
}

// New returns a disconnected Printer using t.
func New(t Transport, opts ...Option) *Printer {
	p := &Printer{
		transport: t,
		cfg:       DefaultConfig(),
		log:       slog.Default(),
		reg:       niim.NewRegistry(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Subscribe registers fn for every event and returns a function that
// removes it.
func (p *Printer) Subscribe(fn Listener) (unsubscribe func()) {
	return p.listeners.add(fn)
}

func (p *Printer) emit(ev Event) { p.listeners.emit(ev) }

// State returns the current connection state.
func (p *Printer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Connect opens the transport and starts the reception loop.
func (p *Printer) Connect(ctx context.Context, opts ConnectOptions) error {
	p.mu.Lock()
	if p.state != StateDisconnected {
		p.mu.Unlock()
		return ErrAlreadyConnected
	}
	p.state = StateConnecting
	p.mu.Unlock()

	opts = opts.WithDefaults()
	port, err := p.transport.Open(ctx, opts)
	if err != nil {
		p.mu.Lock()
		p.state = StateDisconnected
		p.mu.Unlock()
		return fmt.Errorf("open port: %w", err)
	}

	done := make(chan struct{})
	p.mu.Lock()
	p.port = port
	p.done = done
	p.state = StateConnected
	p.reading.Store(true)
	p.mu.Unlock()

	go p.readLoop(port, opts.BufferSize, done)

	p.log.Info("printer connected", "baud", opts.BaudRate)
	p.emit(Event{Kind: EventConnect})
	return nil
}

// Disconnect stops the reception loop, closes the port and fails every
// outstanding request with ErrConnectionClosed. It is a no-op when not
// connected.
func (p *Printer) Disconnect() error {
	p.mu.Lock()
	port, done := p.port, p.done
	if port == nil {
		p.mu.Unlock()
		return nil
	}
	p.reading.Store(false)
	p.port = nil
	p.state = StateDisconnected
	p.mu.Unlock()

	err := port.Close()
	<-done
	p.reg.FailAll(ErrConnectionClosed)

	p.log.Info("printer disconnected")
	p.emit(Event{Kind: EventDisconnect})
	if err != nil {
		return fmt.Errorf("close port: %w", err)
	}
	return nil
}

// readLoop is the only reader of port and the only caller of Resolve.
func (p *Printer) readLoop(port Port, size int, done chan struct{}) {
	defer close(done)

	var asm niim.Reassembler
	buf := make([]byte, size)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			pkts, ferr := asm.Feed(buf[:n])
			if ferr != nil {
				p.log.Warn("dropped malformed frame", "err", ferr)
				p.emit(Event{Kind: EventFrameError, Err: ferr})
			}
			for i := range pkts {
				pkt := pkts[i]
				p.log.Debug("packet received", "code", pkt.Code, "len", len(pkt.Data))
				p.emit(Event{Kind: EventPacket, Packet: &pkt})
				p.reg.Resolve(pkt)
			}
		}
		if err != nil {
			if p.reading.Load() {
				p.connectionLost(port, err)
			}
			return
		}
	}
}

func (p *Printer) connectionLost(port Port, cause error) {
	p.mu.Lock()
	if p.port != port {
		p.mu.Unlock()
		return
	}
	p.reading.Store(false)
	p.port = nil
	p.state = StateDisconnected
	p.mu.Unlock()

	port.Close()
	err := fmt.Errorf("%w: %w", ErrConnectionClosed, cause)
	p.reg.FailAll(err)

	p.log.Warn("printer connection lost", "err", cause)
	p.emit(Event{Kind: EventDisconnect, Err: cause})
}

func (p *Printer) currentPort() (Port, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.port == nil {
		return nil, ErrConnectionClosed
	}
	return p.port, nil
}

// Send writes one raw frame.
func (p *Printer) Send(frame []byte) error {
	port, err := p.currentPort()
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if _, err := port.Write(frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// SendPacket encodes and writes one packet without awaiting a response.
func (p *Printer) SendPacket(code niim.Code, data []byte) error {
	frame, err := niim.Encode(code, data)
	if err != nil {
		return err
	}
	p.log.Debug("packet sent", "code", code, "len", len(data))
	return p.Send(frame)
}

// WaitForPacket waits for the next packet with code, or any packet when
// code is nil. A timeout <= 0 uses the command timeout.
func (p *Printer) WaitForPacket(ctx context.Context, code *niim.Code, timeout time.Duration) (niim.Packet, error) {
	if _, err := p.currentPort(); err != nil {
		return niim.Packet{}, err
	}
	if timeout <= 0 {
		timeout = p.cfg.CommandTimeout
	}
	expect := niim.AnyPacket()
	if code != nil {
		expect = niim.ExpectCode(*code)
	}
	return p.reg.Register(expect, timeout).Wait(ctx)
}

