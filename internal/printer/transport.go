package printer

import (
	"context"
	"io"
)

// Port is an open duplex byte stream to the printer. Close must unblock a
// pending Read.
type Port interface {
	io.Reader
	io.Writer
	io.Closer
}

// Transport opens a Port. serialport.Transport is the production implementation.
type Transport interface {
	Open(ctx context.Context, opts ConnectOptions) (Port, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, opts ConnectOptions) (Port, error)

// Open calls f.
func (f TransportFunc) Open(ctx context.Context, opts ConnectOptions) (Port, error) {
	return f(ctx, opts)
}

// Serial line settings.
const (
	DefaultBaudRate   = 115200
	DefaultDataBits   = 8
	DefaultStopBits   = 1
	DefaultBufferSize = 255
)

// ConnectOptions configures the serial line. Zero fields take the defaults.
type ConnectOptions struct {
	BaudRate    int    `json:"baudRate"`
	DataBits    int    `json:"dataBits,omitempty"`
	StopBits    int    `json:"stopBits,omitempty"`
	Parity      string `json:"parity,omitempty"`      // "none", "even", "odd", "mark", "space"
	BufferSize  int    `json:"bufferSize,omitempty"`  // read chunk size
	FlowControl string `json:"flowControl,omitempty"` // "none" or "hardware"
}

// DefaultConnectOptions returns the settings the printers ship with.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		BaudRate:    DefaultBaudRate,
		DataBits:    DefaultDataBits,
		StopBits:    DefaultStopBits,
		Parity:      "none",
		BufferSize:  DefaultBufferSize,
		FlowControl: "none",
	}
}

// WithDefaults fills zero fields from DefaultConnectOptions.
func (o ConnectOptions) WithDefaults() ConnectOptions {
	d := DefaultConnectOptions()
	if o.BaudRate == 0 {
		o.BaudRate = d.BaudRate
	}
	if o.DataBits == 0 {
		o.DataBits = d.DataBits
	}
	if o.StopBits == 0 {
		o.StopBits = d.StopBits
	}
	if o.Parity == "" {
		o.Parity = d.Parity
	}
	if o.BufferSize <= 0 {
		o.BufferSize = d.BufferSize
	}
	if o.FlowControl == "" {
		o.FlowControl = d.FlowControl
	}
	return o
}
