package sensor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mklimuk/vdec"
)

// Detector is the hot-plug detection attached to a device.
type Detector interface {
	StatusString() string
	Stop() error
}

// Device is one decoder chip on one bus channel.
type Device struct {
	mx       sync.Mutex
	chip     *Chip
	ch       vdec.BusChannel
	power    *PowerSequencer
	mode     ModeConfigurator
	controls *ControlState
	detector Detector
	retry    RetryPolicy
	logger   *slog.Logger

	state    State
	identity uint16
	format   *Format
	window   *Window
	applied  struct {
		format *Format
		window *Window
	}
	width  uint32
	height uint32
}

type DeviceOption func(*deviceOptions)

type deviceOptions struct {
	retry    RetryPolicy
	logger   *slog.Logger
	power    []PowerOption
	controls []ControlOption
}

func WithRetryPolicy(policy RetryPolicy) DeviceOption {
	return func(o *deviceOptions) {
		o.retry = policy
	}
}

func WithLogger(logger *slog.Logger) DeviceOption {
	return func(o *deviceOptions) {
		o.logger = logger
	}
}

func WithPowerOptions(opts ...PowerOption) DeviceOption {
	return func(o *deviceOptions) {
		o.power = append(o.power, opts...)
	}
}

func WithControlOptions(opts ...ControlOption) DeviceOption {
	return func(o *deviceOptions) {
		o.controls = append(o.controls, opts...)
	}
}

func NewDevice(chip *Chip, ch vdec.BusChannel, opts ...DeviceOption) *Device {
	o := &deviceOptions{retry: RetryFullPair, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger.With("chip", chip.Name)
	power := append([]PowerOption{WithPowerLogger(logger)}, o.power...)
	return &Device{
		chip:     chip,
		ch:       ch,
		power:    NewPowerSequencer(ch, chip.Power, power...),
		controls: NewControlState(chip.Gain, chip.Exposure, o.controls...),
		retry:    o.retry,
		logger:   logger,
	}
}

func (d *Device) Chip() *Chip {
	return d.chip
}

// AttachDetector hands the detection engine over to the device; Close stops it.
func (d *Device) AttachDetector(det Detector) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.detector = det
}

// Init probes the chip identity. On success the device is configured with
// the first format and window of the catalogs unless SetFormat picked
// others before a power cycle.
func (d *Device) Init(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.state = StateDetecting
	d.ch.Lock()
	id, err := ProbeIdentity(ctx, d.ch, d.chip.Identity, d.retry, d.logger)
	d.ch.Unlock()
	if err != nil {
		d.state = StateUninitialized
		return fmt.Errorf("%s: init: %w", d.chip.Name, err)
	}
	d.identity = id
	if d.format == nil && len(d.chip.Formats) > 0 {
		d.format = &d.chip.Formats[0]
	}
	if d.window == nil && len(d.chip.Windows) > 0 {
		d.window = &d.chip.Windows[0]
	}
	d.state = StateConfigured
	d.logger.Info("chip detected", "id", fmt.Sprintf("%#04x", id))
	return nil
}

// SetFormat selects the format with the given media bus code and the
// window closest to the requested size: an exact match, else the smallest
// window covering the request, else the largest window.
func (d *Device) SetFormat(ctx context.Context, code uint32, width, height uint32) (*Format, *Window, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.state < StateConfigured {
		return nil, nil, fmt.Errorf("%s: set format: %w", d.chip.Name, vdec.ErrNotInitialized)
	}
	var format *Format
	for i := range d.chip.Formats {
		if d.chip.Formats[i].Code == code {
			format = &d.chip.Formats[i]
			break
		}
	}
	if format == nil {
		return nil, nil, fmt.Errorf("%s: media bus code %#x: %w", d.chip.Name, code, vdec.ErrNoMatchingMode)
	}
	window := selectWindow(d.chip.Windows, width, height)
	if window == nil {
		return nil, nil, fmt.Errorf("%s: %dx%d: %w", d.chip.Name, width, height, vdec.ErrNoMatchingMode)
	}
	d.format, d.window = format, window
	return format, window, nil
}

func selectWindow(windows []Window, width, height uint32) *Window {
	var covering, largest *Window
	for i := range windows {
		w := &windows[i]
		if w.Width == width && w.Height == height {
			return w
		}
		if w.Width >= width && w.Height >= height {
			if covering == nil || w.Width*w.Height < covering.Width*covering.Height {
				covering = w
			}
		}
		if largest == nil || w.Width*w.Height > largest.Width*largest.Height {
			largest = w
		}
	}
	if covering != nil {
		return covering
	}
	return largest
}

// Stream applies the selected format and window when enabled. Enabling an
// already streaming device applies them again. Disabling writes nothing.
func (d *Device) Stream(ctx context.Context, enable bool) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.state < StateConfigured {
		return fmt.Errorf("%s: stream: %w", d.chip.Name, vdec.ErrNotInitialized)
	}
	if !enable {
		d.state = StateConfigured
		return nil
	}
	d.ch.Lock()
	err := d.mode.Apply(ctx, d.ch, d.format, d.window)
	d.ch.Unlock()
	if err != nil {
		return fmt.Errorf("%s: stream on: %w", d.chip.Name, err)
	}
	d.applied.format, d.applied.window = d.format, d.window
	d.width, d.height = d.window.Width, d.window.Height
	d.state = StateStreaming
	d.logger.Info("stream on", "window", d.window.String(), "code", fmt.Sprintf("%#x", d.format.Code))
	return nil
}

// Power runs a power transition. Reaching Off drops the device back to
// Uninitialized: the chip has to be probed again.
func (d *Device) Power(ctx context.Context, target PowerState) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.power.Transition(ctx, target); err != nil {
		return fmt.Errorf("%s: %w", d.chip.Name, err)
	}
	if target == PowerOff {
		d.state = StateUninitialized
		d.applied.format, d.applied.window = nil, nil
	}
	return nil
}

func (d *Device) Reset(ctx context.Context, pulse bool) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.power.Reset(ctx, pulse)
}

func (d *Device) Control(ctrl Control) (int32, error) {
	return d.controls.Get(ctrl)
}

func (d *Device) SetControl(ctrl Control, v int32) error {
	return d.controls.Set(ctrl, v)
}

func (d *Device) SetExposureGain(exposure, gain int32) error {
	return d.controls.SetExposureGain(exposure, gain)
}

func (d *Device) ControlRange(ctrl Control) (ControlRange, error) {
	return d.controls.Range(ctrl)
}

// CurrentWindow returns the window last applied to the chip.
func (d *Device) CurrentWindow() (Window, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.applied.window == nil {
		return Window{}, fmt.Errorf("%s: no window applied: %w", d.chip.Name, vdec.ErrNotInitialized)
	}
	return *d.applied.window, nil
}

// CurrentFormat returns the format last applied to the chip.
func (d *Device) CurrentFormat() (Format, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.applied.format == nil {
		return Format{}, fmt.Errorf("%s: no format applied: %w", d.chip.Name, vdec.ErrNotInitialized)
	}
	return *d.applied.format, nil
}

func (d *Device) Size() (uint32, uint32) {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.width, d.height
}

func (d *Device) MediaBus() MediaBus {
	return d.chip.MediaBus
}

func (d *Device) PowerState() PowerState {
	return d.power.State()
}

func (d *Device) State() State {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.state
}

func (d *Device) Identity() uint16 {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.identity
}

// DetectStatus returns the hot-plug bitmask, "0x0" without detection.
func (d *Device) DetectStatus() string {
	d.mx.Lock()
	det := d.detector
	d.mx.Unlock()
	if det == nil {
		return "0x0"
	}
	return det.StatusString()
}

// Dump reads the chip dump registers of a register page.
func (d *Device) Dump(ctx context.Context, page byte) (Program, error) {
	return Dump(ctx, d.ch, page, d.chip.DumpRegisters)
}

// Close stops detection, waiting for a running pass, then powers the chip off.
func (d *Device) Close(ctx context.Context) error {
	d.mx.Lock()
	det := d.detector
	d.detector = nil
	d.mx.Unlock()
	var errs []error
	if det != nil {
		if err := det.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("%s: stop detection: %w", d.chip.Name, err))
		}
	}
	if d.power.State() != PowerOff || d.power.Dirty() {
		if err := d.Power(ctx, PowerOff); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StopDetection stops the attached detector and leaves the chip powered.
func (d *Device) StopDetection() error {
	d.mx.Lock()
	det := d.detector
	d.detector = nil
	d.mx.Unlock()
	if det == nil {
		return nil
	}
	return det.Stop()
}
