package gpio

import (
	"fmt"
	"sync"
	"time"
)

// DefaultPWMPeriod is the software PWM cycle length (100Hz).
const DefaultPWMPeriod = 10 * time.Millisecond

// valueSetter is the part of a GPIO line the PWM needs.
type valueSetter interface {
	SetValue(value int) error
}

// softPWM dims an LED on a plain output line by toggling it from a goroutine.
// Levels of 0 and 1 hold the line steady without toggling.
type softPWM struct {
	line   valueSetter
	period time.Duration

	mu    sync.Mutex
	level float64
	err   error // first write error since the last Set

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newSoftPWM(line valueSetter, period time.Duration) *softPWM {
	p := &softPWM{
		line:   line,
		period: period,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Set changes the duty cycle. It returns any write error the PWM goroutine
// hit since the previous call.
func (p *softPWM) Set(level float64) error {
	p.mu.Lock()
	p.level = clampLevel(level)
	err := p.err
	p.err = nil
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return err
}

// Level returns the current duty cycle.
func (p *softPWM) Level() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Close stops the goroutine. The line is left in whatever state the last
// write put it in.
func (p *softPWM) Close() {
	close(p.stop)
	<-p.done
}

func (p *softPWM) run() {
	defer close(p.done)

	last := -1
	write := func(v int) {
		if v == last {
			return
		}
		if err := p.line.SetValue(v); err != nil {
			p.mu.Lock()
			if p.err == nil {
				p.err = fmt.Errorf("pwm write: %w", err)
			}
			p.mu.Unlock()
			return
		}
		last = v
	}

	for {
		level := p.Level()
		if level <= 0 || level >= 1 {
			if level >= 1 {
				write(1)
			} else {
				write(0)
			}
			select {
			case <-p.stop:
				return
			case <-p.wake:
			}
			continue
		}

		on := time.Duration(float64(p.period) * level)
		write(1)
		if !p.sleep(on) {
			return
		}
		write(0)
		if !p.sleep(p.period - on) {
			return
		}
	}
}

// sleep waits for d. It returns early on a level change and false on stop.
func (p *softPWM) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.stop:
		return false
	case <-p.wake:
		return true
	case <-t.C:
		return true
	}
}
