//go:build !linux

package gpio

import "errors"

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(pins Pins) (*RealBoard, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ReadInputs is not implemented on non-Linux platforms.
func (b *RealBoard) ReadInputs() ([]bool, error) {
	return nil, errors.New("gpio: not supported")
}

// RelayStates is not implemented on non-Linux platforms.
func (b *RealBoard) RelayStates() []bool {
	return nil
}

// SetRelay is not implemented on non-Linux platforms.
func (b *RealBoard) SetRelay(channel int, on bool) error {
	return errors.New("gpio: not supported")
}

// SetIndicator is not implemented on non-Linux platforms.
func (b *RealBoard) SetIndicator(name string, level float64) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}

// InputReader is not available on non-Linux platforms.
type InputReader struct{}

// NewInputReader returns an error on non-Linux platforms.
func NewInputReader(pins Pins) (*InputReader, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ReadInputs is not implemented on non-Linux platforms.
func (r *InputReader) ReadInputs() ([]bool, error) {
	return nil, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *InputReader) Close() error {
	return nil
}
