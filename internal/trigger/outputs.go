package trigger

// Outputs is the last written level of every relay and indicator.
type Outputs struct {
	Relays RelayPattern
	Power  float64
	Comms  float64
	Warn   float64
}

// NewOutputs returns all-off outputs for n relay channels.
func NewOutputs(n int) Outputs {
	return Outputs{Relays: make(RelayPattern, n)}
}

// Apply returns a copy of o with fx written over it.
func (o Outputs) Apply(fx Effects) Outputs {
	next := o
	if fx.Relays != nil {
		next.Relays = append(RelayPattern(nil), fx.Relays...)
	} else {
		next.Relays = append(RelayPattern(nil), o.Relays...)
	}
	for _, s := range fx.Indicators {
		switch s.Name {
		case IndicatorPower:
			next.Power = s.Level
		case IndicatorComms:
			next.Comms = s.Level
		case IndicatorWarn:
			next.Warn = s.Level
		}
	}
	return next
}

// Level returns the current level of an indicator.
func (o Outputs) Level(name Indicator) float64 {
	switch name {
	case IndicatorPower:
		return o.Power
	case IndicatorComms:
		return o.Comms
	case IndicatorWarn:
		return o.Warn
	}
	return LevelOff
}

// RisingRelays returns the channels that fx switches from off to on.
func (o Outputs) RisingRelays(fx Effects) []int {
	var rising []int
	for i, on := range fx.Relays {
		if on && (i >= len(o.Relays) || !o.Relays[i]) {
			rising = append(rising, i)
		}
	}
	return rising
}
