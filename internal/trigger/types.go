// Package trigger contains the pure state machine that turns noisy amplifier
// trigger inputs into relay and indicator outputs.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package trigger

import "time"

// State is one of the discrete states of the trigger machine.
type State string

const (
	StateOff       State = "OFF"
	StateTurningOn State = "TURNING_ON"
	StateArmed     State = "ARMED"
	StateOn        State = "ON"
)

// States lists every state in lifecycle order.
var States = []State{StateOff, StateTurningOn, StateArmed, StateOn}

// Reason explains why a transition happened.
type Reason string

const (
	ReasonStartup        Reason = "startup"
	ReasonInputHigh      Reason = "input_high"
	ReasonInputsLow      Reason = "inputs_low"
	ReasonPowerOnTimeout Reason = "poweron_timeout"
	ReasonArmedTimeout   Reason = "armed_timeout"
	ReasonReset          Reason = "reset"
)

// Indicator names one of the three indicator lights.
type Indicator string

const (
	IndicatorPower Indicator = "power"
	IndicatorComms Indicator = "comms"
	IndicatorWarn  Indicator = "warn"
)

// Indicator levels. Anything in between is a brightness.
const (
	LevelOff = 0.0
	LevelOn  = 1.0
)

// MinCommsBrightness keeps the comms light visibly lit while dimming.
const MinCommsBrightness = 0.01

// Sample is one reading of every input channel, taken within a single tick.
type Sample []bool

// AnyHigh reports whether at least one channel is high.
func (s Sample) AnyHigh() bool {
	for _, v := range s {
		if v {
			return true
		}
	}
	return false
}

// AllLow reports whether every channel is low.
func (s Sample) AllLow() bool {
	return !s.AnyHigh()
}

// RelayPattern is the desired state of each relay channel.
type RelayPattern []bool

// IndicatorSetting is a single indicator write.
type IndicatorSetting struct {
	Name  Indicator
	Level float64
}

// Effects are the output writes produced by an evaluation.
// A nil Relays leaves the relays untouched.
type Effects struct {
	Indicators []IndicatorSetting
	Relays     RelayPattern
}

// Empty reports whether there is nothing to write.
func (e Effects) Empty() bool {
	return len(e.Indicators) == 0 && e.Relays == nil
}

// Machine is the current state and when it was entered.
// A Machine value is never modified; a transition produces a new one.
type Machine struct {
	State     State
	EnteredAt time.Time
}

// Elapsed returns the dwell time in the current state.
func (m Machine) Elapsed(now time.Time) time.Duration {
	return now.Sub(m.EnteredAt)
}

// Decision is the outcome of evaluating one sample.
type Decision struct {
	// Machine is the machine to keep: the input machine when nothing changed,
	// or a freshly entered one.
	Machine Machine
	// Changed is true when a transition happened.
	Changed bool
	// From is the state before evaluation.
	From State
	// Reason is set on transitions only.
	Reason Reason
	// Effects are the writes to apply for this tick.
	Effects Effects
}

// Event represents a transition to be published.
type Event struct {
	Timestamp time.Time
	From      State
	To        State
	Reason    Reason
	Inputs    Sample
	Relays    RelayPattern
}

// Name returns the event name, e.g. "ARMED_TO_ON".
func (e Event) Name() string {
	return string(e.From) + "_TO_" + string(e.To)
}
