package metrics

import (
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OpenPrinting/go-mfp/util/optional"

	"github.com/mzyy94/niimprint/internal/niim"
	"github.com/mzyy94/niimprint/internal/printer"
)

// value returns the sample of a gathered metric matching all labels.
func value(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	next:
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func TestCommandHook(t *testing.T) {
	m := New()
	hook := m.CommandHook()
	hook(niim.CmdStartPrint, 10*time.Millisecond, nil)
	hook(niim.CmdStartPrint, 5*time.Millisecond, nil)
	hook(niim.CmdGetInfo, time.Millisecond, &printer.CommandError{Code: niim.CmdGetInfo, Err: printer.ErrNotImplemented})
	hook(niim.CmdGetInfo, time.Second, fmt.Errorf("wait: %w", niim.ErrTimeout))

	tests := []struct {
		command, result string
		want            float64
	}{
		{"START_PRINT", "ok", 2},
		{"GET_INFO", "not_implemented", 1},
		{"GET_INFO", "timeout", 1},
	}
	for _, tt := range tests {
		got := value(t, m, "niimprint_printer_commands_total", map[string]string{"command": tt.command, "result": tt.result})
		if got != tt.want {
			t.Errorf("commands{%s,%s} = %v, want %v", tt.command, tt.result, got, tt.want)
		}
	}
	if got := value(t, m, "niimprint_printer_command_duration_seconds", map[string]string{"command": "START_PRINT"}); got != 2 {
		t.Errorf("duration samples = %v, want 2", got)
	}
}

func TestObserve(t *testing.T) {
	m := New()
	pkt := niim.Packet{Code: niim.CmdHeartbeat + 1}
	m.Observe(printer.Event{Kind: printer.EventConnect})
	m.Observe(printer.Event{Kind: printer.EventPacket, Packet: &pkt})
	m.Observe(printer.Event{Kind: printer.EventFrameError})
	m.Observe(printer.Event{Kind: printer.EventPrintStart})
	m.Observe(printer.Event{Kind: printer.EventHeartbeat, Heartbeat: &niim.Heartbeat{PowerLevel: optional.New(3)}})

	if got := value(t, m, "niimprint_printer_connected", nil); got != 1 {
		t.Errorf("connected = %v, want 1", got)
	}
	if got := value(t, m, "niimprint_printer_frame_errors_total", nil); got != 1 {
		t.Errorf("frame errors = %v, want 1", got)
	}
	if got := value(t, m, "niimprint_printer_print_jobs_started_total", nil); got != 1 {
		t.Errorf("jobs started = %v, want 1", got)
	}
	if got := value(t, m, "niimprint_printer_power_level", nil); got != 3 {
		t.Errorf("power level = %v, want 3", got)
	}
	if got := value(t, m, "niimprint_printer_packets_received_total", map[string]string{"code": pkt.Code.String()}); got != 1 {
		t.Errorf("packets = %v, want 1", got)
	}

	m.Observe(printer.Event{Kind: printer.EventDisconnect})
	if got := value(t, m, "niimprint_printer_connected", nil); got != 0 {
		t.Errorf("connected after disconnect = %v, want 0", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordHTTPRequest("GET", "/api/status", 200, 3*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	want := `niimprint_http_requests_total{method="GET",path="/api/status",status="200"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("metrics output missing %q", want)
	}
}
