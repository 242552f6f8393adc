// Package gpio provides trigger input reading and relay/indicator output
// with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Board is the I/O capability consumed by the trigger daemon.
type Board interface {
	// ReadInputs returns the level of every trigger input, in channel order.
	// true = trigger voltage present.
	ReadInputs() ([]bool, error)

	// SetRelay drives relay channel (0-based) on or off.
	SetRelay(channel int, on bool) error

	// SetIndicator sets an indicator light ("power", "comms", "warn") to a
	// level in [0, 1]. Indicators without PWM treat any level > 0 as on.
	SetIndicator(name string, level float64) error

	// Close releases GPIO resources.
	Close() error
}

// Reader reads the trigger inputs only.
type Reader interface {
	ReadInputs() ([]bool, error)
}

// RelayReporter is implemented by boards that can report the relay levels
// they found when opened, e.g. relays left on by a previous run.
type RelayReporter interface {
	RelayStates() []bool
}

// Indicator names understood by SetIndicator.
const (
	IndicatorPower = "power"
	IndicatorComms = "comms"
	IndicatorWarn  = "warn"
)

// Pin definitions (BCM numbering) for the Automation HAT style board:
// three 24V-tolerant inputs and three relays.
var (
	DefaultInputPins = []int{26, 20, 21}
	DefaultRelayPins = []int{13, 19, 16}
)

// Indicator LED pins (BCM numbering).
const (
	DefaultPinPower = 17
	DefaultPinComms = 27
	DefaultPinWarn  = 22
)

// Pins describes the wiring of a board.
type Pins struct {
	Chip   string
	Inputs []int
	Relays []int
	Power  int
	Comms  int
	Warn   int
	// InputsActiveLow inverts the input lines (e.g. optocoupler modules that
	// pull the line low when voltage is present).
	InputsActiveLow bool
}

// DefaultPins returns the standard wiring on gpiochip0.
func DefaultPins() Pins {
	return Pins{
		Chip:   "gpiochip0",
		Inputs: append([]int(nil), DefaultInputPins...),
		Relays: append([]int(nil), DefaultRelayPins...),
		Power:  DefaultPinPower,
		Comms:  DefaultPinComms,
		Warn:   DefaultPinWarn,
	}
}

func clampLevel(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}
