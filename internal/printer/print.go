package printer

import (
	"context"
	"fmt"
	"time"

	"github.com/mzyy94/niimprint/internal/niim"
)

// PrintOptions configures a print job.
type PrintOptions struct {
	Density  int                    // 1-5, 0 means niim.DefaultDensity
	Progress func(niim.PrintStatus) // called for each status poll
}

// PrintImage prints one page. It blocks until the device reports the job
// done or ctx ends; status polling has no attempt limit of its own.
func (p *Printer) PrintImage(ctx context.Context, r *niim.Raster, opts PrintOptions) error {
	if !p.printing.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer p.printing.Store(false)
	// Waits for an in-flight heartbeat poll; no other command may run
	// between the job's steps or its image lines.
	p.jobMu.Lock()
	defer p.jobMu.Unlock()

	density := opts.Density
	if density == 0 {
		density = niim.DefaultDensity
	}
	enc, err := niim.NewLineEncoder(r)
	if err != nil {
		return &PrintError{Step: "encode image", Err: err}
	}

	step := func(name string, fn func(context.Context) (bool, error)) error {
		ok, err := fn(ctx)
		if err != nil {
			return &PrintError{Step: name, Err: err}
		}
		if !ok {
			return &PrintError{Step: name, Err: ErrRejected}
		}
		return nil
	}

	p.log.Info("print job starting", "width", r.Width, "height", r.Height, "density", density)

	// 1. Job setup
	if err := step("set density", func(ctx context.Context) (bool, error) {
		return p.SetLabelDensity(ctx, density)
	}); err != nil {
		return err
	}
	if err := step("set label type", func(ctx context.Context) (bool, error) {
		return p.SetLabelType(ctx, niim.LabelTypeGap)
	}); err != nil {
		return err
	}
	if err := step("start print", p.StartPrint); err != nil {
		return err
	}
	p.emit(Event{Kind: EventPrintStart})

	// 2. Page setup
	if err := step("allow print clear", p.AllowPrintClear); err != nil {
		return err
	}
	if err := step("start page print", p.StartPagePrint); err != nil {
		return err
	}
	if err := step("set dimension", func(ctx context.Context) (bool, error) {
		return p.SetDimension(ctx, r.Width, r.Height)
	}); err != nil {
		return err
	}
	if err := step("set quantity", func(ctx context.Context) (bool, error) {
		return p.SetQuantity(ctx, 1)
	}); err != nil {
		return err
	}

	// 3. Image lines, one write each, no response
	for line := range enc.Lines() {
		if err := ctx.Err(); err != nil {
			return &PrintError{Step: "send image", Err: err}
		}
		if err := p.SendPacket(niim.CmdImageLine, line); err != nil {
			return &PrintError{Step: "send image", Err: err}
		}
	}

	if err := step("end page print", p.EndPagePrint); err != nil {
		return err
	}

	// 4. Wait for the page
	if err := p.poll(ctx, p.cfg.StatusPollInterval, func(ctx context.Context) (bool, error) {
		st, err := p.GetPrintStatus(ctx)
		if err != nil {
			return false, &PrintError{Step: "get print status", Err: err}
		}
		if opts.Progress != nil {
			opts.Progress(st)
		}
		return st.Finished(), nil
	}); err != nil {
		return err
	}

	// 5. Close the job
	if err := p.poll(ctx, p.cfg.EndPrintPollInterval, func(ctx context.Context) (bool, error) {
		ok, err := p.EndPrint(ctx)
		if err != nil {
			return false, &PrintError{Step: "end print", Err: err}
		}
		return ok, nil
	}); err != nil {
		return err
	}

	p.log.Info("print job finished")
	p.emit(Event{Kind: EventPrintEnd})
	return nil
}

// poll calls fn until it reports true, sleeping interval between calls.
func (p *Printer) poll(ctx context.Context, interval time.Duration, fn func(context.Context) (bool, error)) error {
	for {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("print job: %w", ctx.Err())
		case <-t.C:
		}
	}
}
