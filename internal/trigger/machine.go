package trigger

import (
	"fmt"
	"time"
)

// Default timing, matching the amplifier's observed boot sequence.
const (
	DefaultPowerOnHold  = 60 * time.Second
	DefaultArmedHold    = 30 * time.Second
	DefaultReadInterval = 200 * time.Millisecond
)

// RelayMode selects how inputs map to relays while ON.
type RelayMode string

const (
	// RelayMirror drives relay[i] from input[i].
	RelayMirror RelayMode = "mirror"
	// RelayAll drives every relay on while any input is high.
	RelayAll RelayMode = "all"
)

// ParseRelayMode validates a relay mode string.
func ParseRelayMode(s string) (RelayMode, error) {
	switch RelayMode(s) {
	case RelayMirror, RelayAll:
		return RelayMode(s), nil
	}
	return "", fmt.Errorf("unknown relay mode %q", s)
}

// Params holds the tunables shared by every state.
type Params struct {
	// PowerOnHold is the longest dwell in TURNING_ON before moving to ARMED.
	PowerOnHold time.Duration
	// ArmedHold is the longest wait in ARMED for the second rising edge.
	ArmedHold time.Duration
	Mode      RelayMode
}

// DefaultParams returns the standard timing in mirror mode.
func DefaultParams() Params {
	return Params{
		PowerOnHold: DefaultPowerOnHold,
		ArmedHold:   DefaultArmedHold,
		Mode:        RelayMirror,
	}
}

// Start selects the initial state from the first sample. If any input is
// already high the amplifier is assumed to be fully up and the machine
// starts in ON, skipping the boot sequence.
func (p Params) Start(in Sample, now time.Time) Decision {
	to := StateOff
	if in.AnyHigh() {
		to = StateOn
	}
	return p.enter(to, in, now, ReasonStartup)
}

// Step evaluates one sample against the current machine.
// It returns the same machine with Changed=false when no transition fires;
// in that case Effects only carry the per-tick updates of the state (comms
// dimming in TURNING_ON, relay mirroring in ON), never entry effects.
func (p Params) Step(m Machine, in Sample, now time.Time) Decision {
	elapsed := m.Elapsed(now)

	switch m.State {
	case StateOff:
		if in.AnyHigh() {
			return p.transition(m, StateTurningOn, in, now, ReasonInputHigh)
		}
		return stay(m, Effects{})

	case StateTurningOn:
		// Inputs dropping means the amplifier has reached the point in its
		// boot where it resets the triggers.
		if in.AllLow() {
			return p.transition(m, StateArmed, in, now, ReasonInputsLow)
		}
		if elapsed >= p.PowerOnHold {
			return p.transition(m, StateArmed, in, now, ReasonPowerOnTimeout)
		}
		return stay(m, Effects{
			Indicators: []IndicatorSetting{{IndicatorComms, CommsBrightness(elapsed, p.PowerOnHold)}},
		})

	case StateArmed:
		if in.AnyHigh() {
			return p.transition(m, StateOn, in, now, ReasonInputHigh)
		}
		if elapsed >= p.ArmedHold {
			return p.transition(m, StateOff, in, now, ReasonArmedTimeout)
		}
		return stay(m, Effects{})

	case StateOn:
		if in.AllLow() {
			return p.transition(m, StateOff, in, now, ReasonInputsLow)
		}
		return stay(m, Effects{Relays: p.relays(in)})
	}

	// Unknown state: fall back to OFF so the outputs are in a known condition.
	return p.transition(m, StateOff, in, now, ReasonReset)
}

// EntryEffects returns the writes a state performs when it is entered.
func (p Params) EntryEffects(s State, in Sample) Effects {
	switch s {
	case StateOff:
		return Effects{
			Indicators: indicators(LevelOff, LevelOff, LevelOff),
			Relays:     make(RelayPattern, len(in)),
		}
	case StateTurningOn:
		return Effects{Indicators: indicators(LevelOn, LevelOn, LevelOff)}
	case StateArmed:
		return Effects{Indicators: indicators(LevelOn, LevelOff, LevelOn)}
	case StateOn:
		return Effects{
			Indicators: indicators(LevelOn, LevelOff, LevelOff),
			Relays:     p.relays(in),
		}
	}
	return Effects{}
}

// CommsBrightness returns the comms indicator level while TURNING_ON.
// It starts at 1.0 and dims linearly over hold, never dropping below
// MinCommsBrightness.
func CommsBrightness(elapsed, hold time.Duration) float64 {
	if elapsed <= 0 {
		return LevelOn
	}
	if hold <= 0 {
		return MinCommsBrightness
	}
	b := 1 - float64(elapsed)/float64(hold)
	if b < MinCommsBrightness {
		return MinCommsBrightness
	}
	return b
}

func (p Params) relays(in Sample) RelayPattern {
	out := make(RelayPattern, len(in))
	if p.Mode == RelayAll {
		on := in.AnyHigh()
		for i := range out {
			out[i] = on
		}
		return out
	}
	copy(out, in)
	return out
}

func (p Params) transition(m Machine, to State, in Sample, now time.Time, reason Reason) Decision {
	d := p.enter(to, in, now, reason)
	d.From = m.State
	return d
}

func (p Params) enter(to State, in Sample, now time.Time, reason Reason) Decision {
	return Decision{
		Machine: Machine{State: to, EnteredAt: now},
		Changed: true,
		Reason:  reason,
		Effects: p.EntryEffects(to, in),
	}
}

func stay(m Machine, fx Effects) Decision {
	return Decision{Machine: m, From: m.State, Effects: fx}
}

func indicators(power, comms, warn float64) []IndicatorSetting {
	return []IndicatorSetting{
		{IndicatorPower, power},
		{IndicatorComms, comms},
		{IndicatorWarn, warn},
	}
}
