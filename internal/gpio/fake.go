package gpio

import (
	"errors"
	"fmt"
)

// FakeBoard is a test double that returns scripted input samples and records
// every output write.
type FakeBoard struct {
	// Samples contains scripted input values to return.
	// Each call to ReadInputs() consumes the next sample.
	Samples [][]bool

	// index tracks current position in Samples
	index int

	// Relays holds the current state of each relay.
	Relays []bool

	// Indicators holds the last level written to each indicator.
	Indicators map[string]float64

	// Writes records every output write in order, e.g. "relay1=on", "comms=0.50".
	Writes []string

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by ReadInputs()
	ReadError error

	// WriteError, if set, will be returned by SetRelay and SetIndicator.
	WriteError error
}

// NewFakeBoard creates a FakeBoard with n relays and the given samples.
func NewFakeBoard(n int, samples [][]bool) *FakeBoard {
	return &FakeBoard{
		Samples:    samples,
		Relays:     make([]bool, n),
		Indicators: make(map[string]float64),
	}
}

// ReadInputs returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeBoard) ReadInputs() ([]bool, error) {
	if f.ReadError != nil {
		return nil, f.ReadError
	}

	if len(f.Samples) == 0 {
		return nil, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return append([]bool(nil), sample...), nil
}

// SetRelay records a relay write.
func (f *FakeBoard) SetRelay(channel int, on bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	if channel < 0 || channel >= len(f.Relays) {
		return fmt.Errorf("relay channel %d out of range", channel)
	}
	f.Relays[channel] = on
	state := "off"
	if on {
		state = "on"
	}
	f.Writes = append(f.Writes, fmt.Sprintf("relay%d=%s", channel+1, state))
	return nil
}

// SetIndicator records an indicator write.
func (f *FakeBoard) SetIndicator(name string, level float64) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	switch name {
	case IndicatorPower, IndicatorComms, IndicatorWarn:
	default:
		return fmt.Errorf("unknown indicator %q", name)
	}
	f.Indicators[name] = level
	f.Writes = append(f.Writes, fmt.Sprintf("%s=%.2f", name, level))
	return nil
}

// Close marks the board as closed.
func (f *FakeBoard) Close() error {
	f.Closed = true
	return nil
}

// RelayStates returns a copy of the current relay levels.
func (f *FakeBoard) RelayStates() []bool {
	return append([]bool(nil), f.Relays...)
}
