package printer

import (
	"context"
	"fmt"
	"time"

	"github.com/mzyy94/niimprint/internal/niim"
)

// SendCommand sends code with payload and waits for the response coded
// code+offset. It returns the response payload. Device sentinels map to
// ErrNotImplemented and ErrValue; any other code is ErrUnexpectedResponse.
// Only one exchange runs at a time.
func (p *Printer) SendCommand(ctx context.Context, code niim.Code, payload []byte, offset int) ([]byte, error) {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()

	start := time.Now()
	data, err := p.exchange(ctx, code, payload, offset)
	if p.hook != nil {
		p.hook(code, time.Since(start), err)
	}
	if err != nil {
		return nil, &CommandError{Code: code, Err: err}
	}
	return data, nil
}

func (p *Printer) exchange(ctx context.Context, code niim.Code, payload []byte, offset int) ([]byte, error) {
	frame, err := niim.Encode(code, payload)
	if err != nil {
		return nil, err
	}
	if _, err := p.currentPort(); err != nil {
		return nil, err
	}

	want := code + niim.Code(offset)
	// Must be registered before the frame is written.
	pending := p.reg.Register(niim.ExpectResponse(want), p.cfg.CommandTimeout)
	p.log.Debug("packet sent", "code", code, "len", len(payload), "expect", want)
	if err := p.Send(frame); err != nil {
		pending.Cancel()
		return nil, err
	}

	pkt, err := pending.Wait(ctx)
	if err != nil {
		return nil, err
	}
	switch pkt.Code {
	case want:
		return pkt.Data, nil
	case niim.CmdNotImplemented:
		return nil, ErrNotImplemented
	case niim.CmdValueError:
		return nil, ErrValue
	default:
		return nil, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedResponse, pkt.Code, want)
	}
}
