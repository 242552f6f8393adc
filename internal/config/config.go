// Package config loads the triggerpi configuration file and the network
// information written by pi-helper.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/triggerpi/internal/gpio"
	"github.com/sweeney/triggerpi/internal/status"
	"github.com/sweeney/triggerpi/internal/trigger"
)

// Default paths.
const (
	DefaultPath    = "/etc/triggerpi.toml"
	DefaultEnvFile = "/run/pi-helper.env"
)

// Other defaults.
const (
	DefaultBroker    = "tcp://192.168.1.200:1883"
	DefaultClientID  = "triggerpi"
	DefaultHeartbeat = 15 * time.Minute
	DefaultHTTPAddr  = ":80"
	DefaultLogLevel  = "info"

	// MaxChannels is the most trigger inputs a single board is wired for.
	MaxChannels = 8
)

// Duration is a time.Duration written as a Go duration string ("200ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config is the daemon configuration.
type Config struct {
	Chip            string `toml:"chip"`
	InputPins       []int  `toml:"input_pins"`
	RelayPins       []int  `toml:"relay_pins"`
	PowerPin        int    `toml:"power_pin"`
	CommsPin        int    `toml:"comms_pin"`
	WarnPin         int    `toml:"warn_pin"`
	InputsActiveLow bool   `toml:"inputs_active_low"`

	PollInterval Duration `toml:"poll_interval"`
	PowerOnHold  Duration `toml:"poweron_hold"`
	ArmedHold    Duration `toml:"armed_hold"`
	RelayMode    string   `toml:"relay_mode"`
	// RelayStagger delays between relays switching on in the same tick,
	// so downstream supplies don't all inrush at once.
	RelayStagger Duration `toml:"relay_stagger"`

	Broker    string   `toml:"broker"`
	ClientID  string   `toml:"client_id"`
	Heartbeat Duration `toml:"heartbeat"`

	HTTPAddr string `toml:"http_addr"`
	LogLevel string `toml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	pins := gpio.DefaultPins()
	return Config{
		Chip:         pins.Chip,
		InputPins:    pins.Inputs,
		RelayPins:    pins.Relays,
		PowerPin:     pins.Power,
		CommsPin:     pins.Comms,
		WarnPin:      pins.Warn,
		PollInterval: Duration{trigger.DefaultReadInterval},
		PowerOnHold:  Duration{trigger.DefaultPowerOnHold},
		ArmedHold:    Duration{trigger.DefaultArmedHold},
		RelayMode:    string(trigger.RelayMirror),
		Broker:       DefaultBroker,
		ClientID:     DefaultClientID,
		Heartbeat:    Duration{DefaultHeartbeat},
		HTTPAddr:     DefaultHTTPAddr,
		LogLevel:     DefaultLogLevel,
	}
}

// Load decodes the TOML file at path over the defaults. A missing file is
// not an error.
func Load(path string) (Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, &c)
	if errors.Is(err, os.ErrNotExist) {
		log.Infof("config: %s not found, using defaults", path)
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("load config %s: %w", path, err)
	}
	for _, k := range md.Undecoded() {
		log.Warnf("config: unknown key %q in %s", k.String(), path)
	}
	return c, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c Config) Validate() error {
	n := len(c.InputPins)
	if n < 1 || n > MaxChannels {
		return fmt.Errorf("input_pins: need 1 to %d pins, got %d", MaxChannels, n)
	}
	if len(c.RelayPins) != n {
		return fmt.Errorf("relay_pins: need %d pins to match input_pins, got %d", n, len(c.RelayPins))
	}
	if c.Chip == "" {
		return errors.New("chip: must not be empty")
	}
	if c.PollInterval.Duration <= 0 {
		return fmt.Errorf("poll_interval: must be positive, got %v", c.PollInterval)
	}
	if c.PowerOnHold.Duration <= 0 {
		return fmt.Errorf("poweron_hold: must be positive, got %v", c.PowerOnHold)
	}
	if c.ArmedHold.Duration <= 0 {
		return fmt.Errorf("armed_hold: must be positive, got %v", c.ArmedHold)
	}
	if c.RelayStagger.Duration < 0 {
		return fmt.Errorf("relay_stagger: must not be negative, got %v", c.RelayStagger)
	}
	if c.Heartbeat.Duration < 0 {
		return fmt.Errorf("heartbeat: must not be negative, got %v", c.Heartbeat)
	}
	if _, err := trigger.ParseRelayMode(c.RelayMode); err != nil {
		return fmt.Errorf("relay_mode: %w", err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Params returns the state machine tunables. Call after Validate.
func (c Config) Params() trigger.Params {
	mode, _ := trigger.ParseRelayMode(c.RelayMode)
	return trigger.Params{
		PowerOnHold: c.PowerOnHold.Duration,
		ArmedHold:   c.ArmedHold.Duration,
		Mode:        mode,
	}
}

// Pins returns the board wiring.
func (c Config) Pins() gpio.Pins {
	return gpio.Pins{
		Chip:            c.Chip,
		Inputs:          append([]int(nil), c.InputPins...),
		Relays:          append([]int(nil), c.RelayPins...),
		Power:           c.PowerPin,
		Comms:           c.CommsPin,
		Warn:            c.WarnPin,
		InputsActiveLow: c.InputsActiveLow,
	}
}

// StatusConfig returns the subset shown on the status page.
func (c Config) StatusConfig() status.Config {
	return status.Config{
		PollMs:        c.PollInterval.Milliseconds(),
		PowerOnHoldMs: c.PowerOnHold.Milliseconds(),
		ArmedHoldMs:   c.ArmedHold.Milliseconds(),
		HeartbeatMs:   c.Heartbeat.Milliseconds(),
		RelayMode:     c.RelayMode,
		Channels:      len(c.InputPins),
		Broker:        c.Broker,
		HTTPAddr:      c.HTTPAddr,
	}
}
