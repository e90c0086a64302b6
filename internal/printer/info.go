package printer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/OpenPrinting/go-mfp/util/optional"

	"github.com/mzyy94/niimprint/internal/niim"
)

// ----------------------------------------------------------------------------
// GET_INFO queries
// ----------------------------------------------------------------------------

// GetInfo queries one device attribute. ok is false when the device does
// not implement the attribute.
func (p *Printer) GetInfo(ctx context.Context, info niim.InfoCode) (data []byte, ok bool, err error) {
	data, err = p.SendCommand(ctx, niim.CmdGetInfo, []byte{byte(info)}, int(info))
	if errors.Is(err, ErrNotImplemented) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (p *Printer) infoByte(ctx context.Context, info niim.InfoCode) (optional.Val[int], error) {
	data, ok, err := p.GetInfo(ctx, info)
	if err != nil || !ok {
		return nil, err
	}
	return optional.New(niim.ParseByte(data)), nil
}

func (p *Printer) infoVersion(ctx context.Context, info niim.InfoCode) (optional.Val[string], error) {
	data, ok, err := p.GetInfo(ctx, info)
	if err != nil || !ok {
		return nil, err
	}
	v, err := niim.ParseVersion(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", info, err)
	}
	return optional.New(v), nil
}

// GetDensity returns the configured print density.
func (p *Printer) GetDensity(ctx context.Context) (optional.Val[int], error) {
	return p.infoByte(ctx, niim.InfoDensity)
}

// GetPrintSpeed returns the configured print speed.
func (p *Printer) GetPrintSpeed(ctx context.Context) (optional.Val[int], error) {
	return p.infoByte(ctx, niim.InfoPrintSpeed)
}

// GetLabelType returns the configured media type.
func (p *Printer) GetLabelType(ctx context.Context) (optional.Val[int], error) {
	return p.infoByte(ctx, niim.InfoLabelType)
}

// GetLanguageType returns the raw first byte; its meaning is model specific.
func (p *Printer) GetLanguageType(ctx context.Context) (optional.Val[int], error) {
	return p.infoByte(ctx, niim.InfoLanguageType)
}

// GetAutoShutdownTime returns the auto power-off setting.
func (p *Printer) GetAutoShutdownTime(ctx context.Context) (optional.Val[int], error) {
	return p.infoByte(ctx, niim.InfoAutoShutdownTime)
}

// GetBattery returns the battery level bucket.
func (p *Printer) GetBattery(ctx context.Context) (optional.Val[int], error) {
	return p.infoByte(ctx, niim.InfoBattery)
}

// GetDeviceType returns the model identifier.
func (p *Printer) GetDeviceType(ctx context.Context) (optional.Val[int], error) {
	data, ok, err := p.GetInfo(ctx, niim.InfoDeviceType)
	if err != nil || !ok {
		return nil, err
	}
	return optional.New(niim.BytesToInt(data)), nil
}

// GetSoftVersion returns the firmware version, e.g. "3.0".
func (p *Printer) GetSoftVersion(ctx context.Context) (optional.Val[string], error) {
	return p.infoVersion(ctx, niim.InfoSoftVersion)
}

// GetHardVersion returns the hardware revision.
func (p *Printer) GetHardVersion(ctx context.Context) (optional.Val[string], error) {
	return p.infoVersion(ctx, niim.InfoHardVersion)
}

// GetDeviceSerial returns the serial number hex encoded.
func (p *Printer) GetDeviceSerial(ctx context.Context) (optional.Val[string], error) {
	data, ok, err := p.GetInfo(ctx, niim.InfoDeviceSerial)
	if err != nil || !ok {
		return nil, err
	}
	return optional.New(hex.EncodeToString(data)), nil
}

// ----------------------------------------------------------------------------
// Status queries
// ----------------------------------------------------------------------------

// GetRFID reads the loaded label roll tag. It returns nil when no tag is
// present or the device has no reader.
func (p *Printer) GetRFID(ctx context.Context) (*niim.RFID, error) {
	data, err := p.SendCommand(ctx, niim.CmdGetRFID, []byte{1}, niim.DefaultResponseOffset)
	if errors.Is(err, ErrNotImplemented) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return niim.ParseRFID(data)
}

// GetHeartbeat polls the device state.
func (p *Printer) GetHeartbeat(ctx context.Context) (niim.Heartbeat, error) {
	data, err := p.SendCommand(ctx, niim.CmdHeartbeat, []byte{1}, niim.DefaultResponseOffset)
	if err != nil {
		return niim.Heartbeat{}, err
	}
	return niim.ParseHeartbeat(data), nil
}

// GetPrintStatus returns the progress of the current page.
func (p *Printer) GetPrintStatus(ctx context.Context) (niim.PrintStatus, error) {
	data, err := p.SendCommand(ctx, niim.CmdGetPrintStatus, []byte{1}, niim.WideResponseOffset)
	if err != nil {
		return niim.PrintStatus{}, err
	}
	return niim.ParsePrintStatus(data)
}

// ----------------------------------------------------------------------------
// Setters and print lifecycle
// ----------------------------------------------------------------------------

func (p *Printer) sendBool(ctx context.Context, code niim.Code, payload []byte, offset int) (bool, error) {
	data, err := p.SendCommand(ctx, code, payload, offset)
	if err != nil {
		return false, err
	}
	return niim.ParseBool(data), nil
}

// SetLabelType selects the media type (1 gap, 2 black mark, 3 continuous).
func (p *Printer) SetLabelType(ctx context.Context, n int) (bool, error) {
	if n < niim.LabelTypeGap || n > niim.LabelTypeContinuous {
		return false, fmt.Errorf("%w: label type %d not in [%d, %d]",
			ErrInvalidArgument, n, niim.LabelTypeGap, niim.LabelTypeContinuous)
	}
	return p.sendBool(ctx, niim.CmdSetLabelType, []byte{byte(n)}, niim.WideResponseOffset)
}

// SetLabelDensity sets the print density (1-5).
func (p *Printer) SetLabelDensity(ctx context.Context, n int) (bool, error) {
	if n < niim.MinDensity || n > niim.MaxDensity {
		return false, fmt.Errorf("%w: density %d not in [%d, %d]",
			ErrInvalidArgument, n, niim.MinDensity, niim.MaxDensity)
	}
	return p.sendBool(ctx, niim.CmdSetLabelDensity, []byte{byte(n)}, niim.WideResponseOffset)
}

// StartPrint opens a print job.
func (p *Printer) StartPrint(ctx context.Context) (bool, error) {
	return p.sendBool(ctx, niim.CmdStartPrint, []byte{1}, niim.DefaultResponseOffset)
}

// EndPrint closes the job. It reports false while the device is still busy.
func (p *Printer) EndPrint(ctx context.Context) (bool, error) {
	return p.sendBool(ctx, niim.CmdEndPrint, []byte{1}, niim.DefaultResponseOffset)
}

// StartPagePrint begins a page.
func (p *Printer) StartPagePrint(ctx context.Context) (bool, error) {
	return p.sendBool(ctx, niim.CmdStartPagePrint, []byte{1}, niim.DefaultResponseOffset)
}

// EndPagePrint ends the page after its image lines.
func (p *Printer) EndPagePrint(ctx context.Context) (bool, error) {
	return p.sendBool(ctx, niim.CmdEndPagePrint, []byte{1}, niim.DefaultResponseOffset)
}

// AllowPrintClear lets the device clear the previous job.
func (p *Printer) AllowPrintClear(ctx context.Context) (bool, error) {
	return p.sendBool(ctx, niim.CmdAllowPrintClear, []byte{1}, niim.WideResponseOffset)
}

// SetDimension sets the page size in dots.
func (p *Printer) SetDimension(ctx context.Context, width, height int) (bool, error) {
	payload, err := niim.DimensionPayload(width, height)
	if err != nil {
		return false, err
	}
	return p.sendBool(ctx, niim.CmdSetDimension, payload, niim.DefaultResponseOffset)
}

// SetQuantity sets the number of copies of the page.
func (p *Printer) SetQuantity(ctx context.Context, n int) (bool, error) {
	payload, err := niim.QuantityPayload(n)
	if err != nil {
		return false, err
	}
	return p.sendBool(ctx, niim.CmdSetQuantity, payload, niim.DefaultResponseOffset)
}

// ----------------------------------------------------------------------------
// Aggregate
// ----------------------------------------------------------------------------

// DeviceStatus collects every readable attribute. Absent fields are
// unsupported by the device.
type DeviceStatus struct {
	DeviceType       optional.Val[int]    `json:"deviceType"`
	DeviceSerial     optional.Val[string] `json:"deviceSerial"`
	SoftVersion      optional.Val[string] `json:"softVersion"`
	HardVersion      optional.Val[string] `json:"hardVersion"`
	Density          optional.Val[int]    `json:"density"`
	PrintSpeed       optional.Val[int]    `json:"printSpeed"`
	LabelType        optional.Val[int]    `json:"labelType"`
	LanguageType     optional.Val[int]    `json:"languageType"`
	AutoShutdownTime optional.Val[int]    `json:"autoShutdownTime"`
	Battery          optional.Val[int]    `json:"battery"`
	Heartbeat        niim.Heartbeat       `json:"heartbeat"`
	RFID             *niim.RFID           `json:"rfid"`
	PrintStatus      *niim.PrintStatus    `json:"printStatus"`
}

// GetDeviceStatus runs every query in turn and stops at the first error.
func (p *Printer) GetDeviceStatus(ctx context.Context) (*DeviceStatus, error) {
	var (
		st  DeviceStatus
		err error
	)
	ints := []struct {
		dst *optional.Val[int]
		get func(context.Context) (optional.Val[int], error)
	}{
		{&st.DeviceType, p.GetDeviceType},
		{&st.Density, p.GetDensity},
		{&st.PrintSpeed, p.GetPrintSpeed},
		{&st.LabelType, p.GetLabelType},
		{&st.LanguageType, p.GetLanguageType},
		{&st.AutoShutdownTime, p.GetAutoShutdownTime},
		{&st.Battery, p.GetBattery},
	}
	for _, q := range ints {
		if *q.dst, err = q.get(ctx); err != nil {
			return nil, err
		}
	}
	strs := []struct {
		dst *optional.Val[string]
		get func(context.Context) (optional.Val[string], error)
	}{
		{&st.DeviceSerial, p.GetDeviceSerial},
		{&st.SoftVersion, p.GetSoftVersion},
		{&st.HardVersion, p.GetHardVersion},
	}
	for _, q := range strs {
		if *q.dst, err = q.get(ctx); err != nil {
			return nil, err
		}
	}
	if st.Heartbeat, err = p.GetHeartbeat(ctx); err != nil {
		return nil, err
	}
	if st.RFID, err = p.GetRFID(ctx); err != nil {
		return nil, err
	}
	ps, err := p.GetPrintStatus(ctx)
	switch {
	case errors.Is(err, ErrNotImplemented):
	case err != nil:
		return nil, err
	default:
		st.PrintStatus = &ps
	}
	return &st, nil
}
