package printer

import (
	"context"
	"time"
)

// DefaultMonitorInterval is the heartbeat poll interval used when none is given.
const DefaultMonitorInterval = 5 * time.Second

// Monitor polls the device heartbeat in the background.
type Monitor struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartMonitor polls GetHeartbeat every interval and emits EventHeartbeat.
// Ticks are skipped while a print job runs. Poll errors are logged and
// polling continues. Call Stop to end it.
func (p *Printer) StartMonitor(ctx context.Context, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		p.log.Info("heartbeat monitor started", "interval", interval)
		for {
			select {
			case <-ctx.Done():
				p.log.Info("heartbeat monitor stopped")
				return
			case <-ticker.C:
			}
			if p.State() != StateConnected || p.printing.Load() {
				continue
			}
			if !p.jobMu.TryLock() {
				continue // print job running
			}
			hb, err := p.GetHeartbeat(ctx)
			p.jobMu.Unlock()
			if err != nil {
				if ctx.Err() == nil {
					p.log.Debug("heartbeat failed", "err", err)
				}
				continue
			}
			p.emit(Event{Kind: EventHeartbeat, Heartbeat: &hb})
		}
	}()

	return &Monitor{cancel: cancel, done: done}
}

// Stop stops polling and waits for the goroutine to exit.
func (m *Monitor) Stop() {
	m.cancel()
	<-m.done
}
