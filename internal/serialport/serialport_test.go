package serialport

import (
	"context"
	"errors"
	"testing"

	"go.bug.st/serial"

	"github.com/mzyy94/niimprint/internal/printer"
)

func TestMode_Defaults(t *testing.T) {
	mode, err := Mode(printer.ConnectOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if mode.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", mode.BaudRate)
	}
	if mode.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", mode.DataBits)
	}
	if mode.Parity != serial.NoParity {
		t.Errorf("Parity = %v, want NoParity", mode.Parity)
	}
	if mode.StopBits != serial.OneStopBit {
		t.Errorf("StopBits = %v, want OneStopBit", mode.StopBits)
	}
	if mode.InitialStatusBits != nil {
		t.Errorf("InitialStatusBits = %+v, want nil", mode.InitialStatusBits)
	}
}

func TestMode_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		opts   printer.ConnectOptions
		parity serial.Parity
		stop   serial.StopBits
	}{
		{"even_two_stop", printer.ConnectOptions{Parity: "even", StopBits: 2}, serial.EvenParity, serial.TwoStopBits},
		{"odd_upper", printer.ConnectOptions{Parity: "ODD"}, serial.OddParity, serial.OneStopBit},
		{"mark", printer.ConnectOptions{Parity: "mark"}, serial.MarkParity, serial.OneStopBit},
		{"space", printer.ConnectOptions{Parity: "space"}, serial.SpaceParity, serial.OneStopBit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := Mode(tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if mode.Parity != tt.parity {
				t.Errorf("Parity = %v, want %v", mode.Parity, tt.parity)
			}
			if mode.StopBits != tt.stop {
				t.Errorf("StopBits = %v, want %v", mode.StopBits, tt.stop)
			}
		})
	}
}

func TestMode_HardwareFlow(t *testing.T) {
	mode, err := Mode(printer.ConnectOptions{FlowControl: "hardware"})
	if err != nil {
		t.Fatal(err)
	}
	if mode.InitialStatusBits == nil || !mode.InitialStatusBits.RTS || !mode.InitialStatusBits.DTR {
		t.Errorf("InitialStatusBits = %+v, want RTS and DTR set", mode.InitialStatusBits)
	}
}

func TestMode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts printer.ConnectOptions
	}{
		{"parity", printer.ConnectOptions{Parity: "sometimes"}},
		{"stop_bits", printer.ConnectOptions{StopBits: 3}},
		{"data_bits", printer.ConnectOptions{DataBits: 9}},
		{"flow", printer.ConnectOptions{FlowControl: "xon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Mode(tt.opts); !errors.Is(err, printer.ErrInvalidArgument) {
				t.Errorf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestOpen_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Transport{Name: "/dev/null-port"}).Open(ctx, printer.ConnectOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
