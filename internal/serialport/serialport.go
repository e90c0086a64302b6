// Package serialport opens printer connections on a local serial device.
package serialport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.bug.st/serial"

	"github.com/mzyy94/niimprint/internal/printer"
)

// ErrNoPort is returned when no serial device is configured or found.
var ErrNoPort = errors.New("no serial port")

// Transport opens the named serial device. An empty Name picks the first
// port reported by the system.
type Transport struct {
	Name string
}

// Open implements printer.Transport.
func (t Transport) Open(ctx context.Context, opts printer.ConnectOptions) (printer.Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := t.Name
	if name == "" {
		ports, err := ListPorts()
		if err != nil {
			return nil, err
		}
		if len(ports) == 0 {
			return nil, ErrNoPort
		}
		name = ports[0]
	}

	mode, err := Mode(opts)
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	slog.Debug("serial port opened", "port", name, "baud", mode.BaudRate)
	return port, nil
}

// ListPorts returns the serial devices present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

// Mode converts connection options to a serial mode.
func Mode(opts printer.ConnectOptions) (*serial.Mode, error) {
	opts = opts.WithDefaults()

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
	}

	switch strings.ToLower(opts.Parity) {
	case "none":
		mode.Parity = serial.NoParity
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	case "mark":
		mode.Parity = serial.MarkParity
	case "space":
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("%w: parity %q", printer.ErrInvalidArgument, opts.Parity)
	}

	switch opts.StopBits {
	case 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("%w: stop bits %d", printer.ErrInvalidArgument, opts.StopBits)
	}

	switch strings.ToLower(opts.FlowControl) {
	case "none":
	case "hardware":
		// The driver has no RTS/CTS handshaking; raise both lines so the
		// device sees a ready host.
		mode.InitialStatusBits = &serial.ModemOutputBits{RTS: true, DTR: true}
	default:
		return nil, fmt.Errorf("%w: flow control %q", printer.ErrInvalidArgument, opts.FlowControl)
	}

	if opts.DataBits < 5 || opts.DataBits > 8 {
		return nil, fmt.Errorf("%w: data bits %d", printer.ErrInvalidArgument, opts.DataBits)
	}
	return mode, nil
}
