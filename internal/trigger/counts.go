package trigger

// Counts tracks the number of transitions since startup.
type Counts struct {
	Off       int
	TurningOn int
	Armed     int
	On        int

	// Fail-safe transitions, also included in the per-state counts above.
	PowerOnTimeouts int
	ArmedTimeouts   int
}

// Record counts a decision. Decisions without a transition are ignored.
func (c *Counts) Record(d Decision) {
	if !d.Changed {
		return
	}
	switch d.Machine.State {
	case StateOff:
		c.Off++
	case StateTurningOn:
		c.TurningOn++
	case StateArmed:
		c.Armed++
	case StateOn:
		c.On++
	}
	switch d.Reason {
	case ReasonPowerOnTimeout:
		c.PowerOnTimeouts++
	case ReasonArmedTimeout:
		c.ArmedTimeouts++
	}
}

// Total returns the number of transitions recorded.
func (c Counts) Total() int {
	return c.Off + c.TurningOn + c.Armed + c.On
}
