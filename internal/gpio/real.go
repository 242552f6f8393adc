//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "triggerpi"

// RealBoard drives actual hardware using Linux GPIO character device.
type RealBoard struct {
	chip   *gpiocdev.Chip
	inputs *gpiocdev.Lines
	relays relayLines

	// relayValues mirrors what was last written to relays; SetValues writes
	// every line of the request at once.
	relayValues []int

	power *gpiocdev.Line
	comms *gpiocdev.Line
	warn  *gpiocdev.Line
	pwm   *softPWM
}

// NewRealBoard requests the input, relay and indicator lines described by pins.
// Relays keep whatever level they had. An indicator pin < 0 disables that
// indicator.
func NewRealBoard(pins Pins) (*RealBoard, error) {
	if len(pins.Inputs) == 0 || len(pins.Inputs) != len(pins.Relays) {
		return nil, fmt.Errorf("need matching input and relay pins, got %d inputs and %d relays",
			len(pins.Inputs), len(pins.Relays))
	}

	chip, err := gpiocdev.NewChip(pins.Chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", pins.Chip, err)
	}
	b := &RealBoard{chip: chip}

	b.inputs, err = requestInputs(chip, pins)
	if err != nil {
		b.Close()
		return nil, err
	}

	// Relays are taken as they are so a restart while ON doesn't drop them.
	relays, err := chip.RequestLines(pins.Relays, gpiocdev.AsIs)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request relay pins %v: %w", pins.Relays, err)
	}
	b.relays = relays
	b.relayValues, err = holdRelays(relays, len(pins.Relays))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("relay pins %v: %w", pins.Relays, err)
	}

	for _, ind := range []struct {
		name string
		pin  int
		line **gpiocdev.Line
	}{
		{IndicatorPower, pins.Power, &b.power},
		{IndicatorComms, pins.Comms, &b.comms},
		{IndicatorWarn, pins.Warn, &b.warn},
	} {
		if ind.pin < 0 {
			continue
		}
		l, err := chip.RequestLine(ind.pin, gpiocdev.AsOutput(0))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request %s indicator pin %d: %w", ind.name, ind.pin, err)
		}
		*ind.line = l
	}
	if b.comms != nil {
		b.pwm = newSoftPWM(b.comms, DefaultPWMPeriod)
	}

	return b, nil
}

// ReadInputs returns the logical level of every input line.
func (b *RealBoard) ReadInputs() ([]bool, error) {
	return readLines(b.inputs, len(b.relayValues))
}

// SetRelay drives a single relay channel.
func (b *RealBoard) SetRelay(channel int, on bool) error {
	if channel < 0 || channel >= len(b.relayValues) {
		return fmt.Errorf("relay channel %d out of range", channel)
	}
	v := 0
	if on {
		v = 1
	}
	prev := b.relayValues[channel]
	b.relayValues[channel] = v
	if err := b.relays.SetValues(b.relayValues); err != nil {
		b.relayValues[channel] = prev
		return fmt.Errorf("set relay %d: %w", channel+1, err)
	}
	return nil
}

// RelayStates returns the level of every relay as last read or written.
func (b *RealBoard) RelayStates() []bool {
	out := make([]bool, len(b.relayValues))
	for i, v := range b.relayValues {
		out[i] = v == 1
	}
	return out
}

// relayLines is the part of *gpiocdev.Lines used for the relays.
type relayLines interface {
	Values(values []int) error
	SetValues(values []int) error
	Reconfigure(options ...gpiocdev.LineConfigOption) error
	Close() error
}

// holdRelays reads the current relay levels and switches the lines to
// output at those same levels.
func holdRelays(l relayLines, n int) ([]int, error) {
	values := make([]int, n)
	if err := l.Values(values); err != nil {
		return nil, fmt.Errorf("read current levels: %w", err)
	}
	if err := l.Reconfigure(gpiocdev.AsOutput(values...)); err != nil {
		return nil, fmt.Errorf("set as output: %w", err)
	}
	return values, nil
}

// SetIndicator sets an indicator. Only comms supports fractional levels;
// power and warn are on for any level above zero.
func (b *RealBoard) SetIndicator(name string, level float64) error {
	switch name {
	case IndicatorComms:
		if b.pwm == nil {
			return nil
		}
		return b.pwm.Set(level)
	case IndicatorPower:
		return setLED(b.power, name, level)
	case IndicatorWarn:
		return setLED(b.warn, name, level)
	}
	return fmt.Errorf("unknown indicator %q", name)
}

func setLED(l *gpiocdev.Line, name string, level float64) error {
	if l == nil {
		return nil
	}
	v := 0
	if level > 0 {
		v = 1
	}
	if err := l.SetValue(v); err != nil {
		return fmt.Errorf("set %s indicator: %w", name, err)
	}
	return nil
}

// Close releases GPIO resources.
// Indicators are switched off and inputs reconfigured to input with pull-down
// (matching Pi boot defaults) before closing. Relays are released as they are.
func (b *RealBoard) Close() error {
	var errs []error

	if b.pwm != nil {
		b.pwm.Close()
	}
	for _, l := range []*gpiocdev.Line{b.power, b.comms, b.warn} {
		if l == nil {
			continue
		}
		if err := l.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear indicator: %w", err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close indicator: %w", err))
		}
	}
	if b.relays != nil {
		if err := b.relays.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay pins: %w", err))
		}
	}
	if b.inputs != nil {
		if err := b.inputs.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure input pins: %w", err))
		}
		if err := b.inputs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close input pins: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// InputReader reads the trigger inputs without claiming relay or indicator
// lines, so whatever is driving the outputs is left alone.
type InputReader struct {
	chip   *gpiocdev.Chip
	inputs *gpiocdev.Lines
	n      int
}

// NewInputReader requests only the input lines described by pins.
func NewInputReader(pins Pins) (*InputReader, error) {
	if len(pins.Inputs) == 0 {
		return nil, fmt.Errorf("need at least one input pin")
	}
	chip, err := gpiocdev.NewChip(pins.Chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", pins.Chip, err)
	}
	inputs, err := requestInputs(chip, pins)
	if err != nil {
		chip.Close()
		return nil, err
	}
	return &InputReader{chip: chip, inputs: inputs, n: len(pins.Inputs)}, nil
}

// ReadInputs returns the logical level of every input line.
func (r *InputReader) ReadInputs() ([]bool, error) {
	return readLines(r.inputs, r.n)
}

// Close releases the input lines.
func (r *InputReader) Close() error {
	var errs []error
	if err := r.inputs.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close input pins: %w", err))
	}
	if err := r.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// requestInputs requests the inputs with pull-down to match Pi boot defaults.
func requestInputs(chip *gpiocdev.Chip, pins Pins) (*gpiocdev.Lines, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
	if pins.InputsActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	l, err := chip.RequestLines(pins.Inputs, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input pins %v: %w", pins.Inputs, err)
	}
	return l, nil
}

func readLines(l *gpiocdev.Lines, n int) ([]bool, error) {
	raw := make([]int, n)
	if err := l.Values(raw); err != nil {
		return nil, fmt.Errorf("read input pins: %w", err)
	}
	out := make([]bool, n)
	for i, v := range raw {
		out[i] = v == 1
	}
	return out, nil
}
