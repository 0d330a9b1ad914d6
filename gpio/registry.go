package gpio

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mklimuk/vdec"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Registry resolves pin specs of the form "<provider>:<pin>":
//
//	periph:GPIO17       host pin by periph.io name
//	cdev:17             offset on the default chip
//	cdev:gpiochip1/17   offset on a named chip
//	gobot:7             header pin of the gobot adaptor
//	mcp23017:A3         expander port and pin
//	mcp2221:GP2         USB bridge pin
type Registry struct {
	expander *MCP23017
	bridge   Bridge
	gobot    DigitalPins
	cdevChip string
	hostOnce sync.Once
	hostErr  error
	hostInit func() error
	periph   func(name string) gpio.PinIO
}

type RegistryOption func(*Registry)

func WithExpander(exp *MCP23017) RegistryOption {
	return func(r *Registry) {
		r.expander = exp
	}
}

func WithBridge(bridge Bridge) RegistryOption {
	return func(r *Registry) {
		r.bridge = bridge
	}
}

func WithGobot(pins DigitalPins) RegistryOption {
	return func(r *Registry) {
		r.gobot = pins
	}
}

func WithCdevChip(chip string) RegistryOption {
	return func(r *Registry) {
		r.cdevChip = chip
	}
}

// WithPeriphLookup replaces the periph.io pin registry lookup.
func WithPeriphLookup(lookup func(name string) gpio.PinIO) RegistryOption {
	return func(r *Registry) {
		r.periph = lookup
		r.hostInit = func() error { return nil }
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		cdevChip: "gpiochip0",
		periph:   gpioreg.ByName,
		hostInit: func() error {
			_, err := host.Init()
			return err
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns an output capable line.
func (r *Registry) Resolve(spec string) (Pin, error) {
	return r.resolve(spec, false)
}

// ResolveInput returns a line with edge detection enabled where the
// provider supports it.
func (r *Registry) ResolveInput(spec string) (Pin, error) {
	return r.resolve(spec, true)
}

func (r *Registry) resolve(spec string, input bool) (Pin, error) {
	provider, pin, ok := strings.Cut(spec, ":")
	if !ok || pin == "" {
		return nil, fmt.Errorf("gpio: invalid pin spec %q: %w", spec, vdec.ErrLineUnavailable)
	}
	switch provider {
	case "periph":
		r.hostOnce.Do(func() {
			r.hostErr = r.hostInit()
		})
		if r.hostErr != nil {
			return nil, fmt.Errorf("gpio: could not init host: %w", r.hostErr)
		}
		p := r.periph(pin)
		if p == nil {
			return nil, fmt.Errorf("gpio: no host pin %q: %w", pin, vdec.ErrLineUnavailable)
		}
		if input {
			return NewPeriphLine(p, WithEdges(gpio.BothEdges)), nil
		}
		return NewPeriphLine(p), nil
	case "cdev":
		chip := r.cdevChip
		if c, off, found := strings.Cut(pin, "/"); found {
			chip, pin = c, off
		}
		offset, err := strconv.Atoi(pin)
		if err != nil {
			return nil, fmt.Errorf("gpio: invalid line offset %q: %w", pin, vdec.ErrLineUnavailable)
		}
		if input {
			return NewCdevLine(chip, offset, WithBothEdges()), nil
		}
		return NewCdevLine(chip, offset), nil
	case "gobot":
		if r.gobot == nil {
			return nil, fmt.Errorf("gpio: no gobot adaptor for %q: %w", spec, vdec.ErrLineUnavailable)
		}
		return NewGobotLine(r.gobot, pin), nil
	case "mcp23017":
		if r.expander == nil {
			return nil, fmt.Errorf("gpio: no expander for %q: %w", spec, vdec.ErrLineUnavailable)
		}
		port, n, err := parseExpanderPin(pin)
		if err != nil {
			return nil, err
		}
		return r.expander.Line(port, n), nil
	case "mcp2221":
		if r.bridge == nil {
			return nil, fmt.Errorf("gpio: no usb bridge for %q: %w", spec, vdec.ErrLineUnavailable)
		}
		n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(pin), "GP"))
		if err != nil {
			return nil, fmt.Errorf("gpio: invalid bridge pin %q: %w", pin, vdec.ErrLineUnavailable)
		}
		line, err := NewBridgeLine(r.bridge, n)
		if err != nil {
			return nil, fmt.Errorf("gpio: %w: %w", err, vdec.ErrLineUnavailable)
		}
		return line, nil
	}
	return nil, fmt.Errorf("gpio: unknown pin provider %q: %w", provider, vdec.ErrLineUnavailable)
}

func parseExpanderPin(pin string) (Port, int, error) {
	if len(pin) != 2 {
		return PortA, 0, fmt.Errorf("gpio: invalid expander pin %q: %w", pin, vdec.ErrLineUnavailable)
	}
	var port Port
	switch pin[0] {
	case 'A', 'a':
		port = PortA
	case 'B', 'b':
		port = PortB
	default:
		return PortA, 0, fmt.Errorf("gpio: invalid expander port %q: %w", pin, vdec.ErrLineUnavailable)
	}
	n := int(pin[1] - '0')
	if n < 0 || n > 7 {
		return PortA, 0, fmt.Errorf("gpio: invalid expander pin %q: %w", pin, vdec.ErrLineUnavailable)
	}
	return port, n, nil
}
