package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/triggerpi/internal/gpio"
	"github.com/sweeney/triggerpi/internal/metrics"
	"github.com/sweeney/triggerpi/internal/mqtt"
	"github.com/sweeney/triggerpi/internal/status"
	"github.com/sweeney/triggerpi/internal/trigger"
)

// loop owns the trigger machine. Only the goroutine running it touches
// machine, outputs and counts; the tracker and metrics are the shared views.
type loop struct {
	board      gpio.Board
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker       // may be nil
	metrics    *metrics.Recorder     // may be nil
	network    func() *status.NetworkInfo

	params    trigger.Params
	channels  int
	stagger   time.Duration
	heartbeat time.Duration
	now       func() time.Time
	sleep     func(time.Duration)

	machine       trigger.Machine
	outputs       trigger.Outputs
	counts        trigger.Counts
	lastHeartbeat time.Time
}

// start reads the inputs once, enters the initial state and announces STARTUP.
func (l *loop) start() error {
	t := l.now()
	in, err := l.read()
	if err != nil {
		return err
	}

	d := l.params.Start(in, t)
	l.outputs = trigger.NewOutputs(l.channels)
	if rr, ok := l.board.(gpio.RelayReporter); ok {
		// Relays left on by a previous run are not switched on again.
		copy(l.outputs.Relays, rr.RelayStates())
	}
	if err := l.apply(d); err != nil {
		return err
	}
	l.machine = d.Machine
	l.lastHeartbeat = t

	log.WithFields(log.Fields{
		"state":    d.Machine.State,
		"inputs":   formatLevels(in),
		"channels": l.channels,
		"mode":     l.params.Mode,
	}).Info("Starting trigger monitor")

	if l.metrics != nil {
		// The initial state is not a transition.
		startup := d
		startup.Changed = false
		l.metrics.Observe(startup, l.outputs)
	}
	l.updateTracker(d.Reason, in)
	l.publishSystem(mqtt.SystemEvent{Timestamp: t, Event: "STARTUP", Retained: true})
	return nil
}

// run processes ticks until a signal arrives or the board fails.
func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case <-tick:
			if err := l.step(l.now()); err != nil {
				return err
			}
		}
	}
}

func (l *loop) step(t time.Time) error {
	in, err := l.read()
	if err != nil {
		return err
	}
	if l.metrics != nil {
		l.metrics.Tick()
	}

	d := l.params.Step(l.machine, in, t)
	if err := l.apply(d); err != nil {
		return err
	}
	l.machine = d.Machine
	l.counts.Record(d)
	if l.metrics != nil {
		l.metrics.Observe(d, l.outputs)
	}

	if d.Changed {
		log.WithFields(log.Fields{
			"from":   d.From,
			"to":     d.Machine.State,
			"reason": d.Reason,
			"inputs": formatLevels(in),
		}).Info("transition")

		err := l.publisher.Publish(trigger.Event{
			Timestamp: t,
			From:      d.From,
			To:        d.Machine.State,
			Reason:    d.Reason,
			Inputs:    in,
			Relays:    append(trigger.RelayPattern(nil), l.outputs.Relays...),
		})
		if err != nil {
			log.Warnf("publish error: %v", err)
			l.publishFailed()
		}
	}

	l.updateTracker(d.Reason, in)

	if l.heartbeat > 0 && t.Sub(l.lastHeartbeat) >= l.heartbeat {
		l.lastHeartbeat = t
		if l.network != nil {
			if net := l.network(); net != nil && l.tracker != nil {
				l.tracker.SetNetwork(net)
			}
		}
		log.WithFields(log.Fields{
			"state":       l.machine.State,
			"transitions": l.counts.Total(),
		}).Info("heartbeat")
		l.publishSystem(mqtt.SystemEvent{Timestamp: t, Event: "HEARTBEAT"})
	}
	return nil
}

func (l *loop) read() (trigger.Sample, error) {
	in, err := l.board.ReadInputs()
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}
	if len(in) != l.channels {
		return nil, fmt.Errorf("read inputs: got %d channels, want %d", len(in), l.channels)
	}
	return trigger.Sample(in), nil
}

// apply writes indicators, then relays. On a transition every relay in the
// pattern is written; otherwise only relays that change. Relays switching on
// are written last, spaced by stagger.
func (l *loop) apply(d trigger.Decision) error {
	fx := d.Effects
	for _, s := range fx.Indicators {
		if err := l.board.SetIndicator(string(s.Name), s.Level); err != nil {
			return fmt.Errorf("set indicator %s: %w", s.Name, err)
		}
	}

	rising := l.outputs.RisingRelays(fx)
	for i, on := range fx.Relays {
		was := i < len(l.outputs.Relays) && l.outputs.Relays[i]
		if on && !was {
			continue
		}
		if !d.Changed && on == was {
			continue
		}
		if err := l.board.SetRelay(i, on); err != nil {
			return fmt.Errorf("set relay %d: %w", i+1, err)
		}
	}
	for n, i := range rising {
		if n > 0 && l.stagger > 0 {
			l.sleep(l.stagger)
		}
		if err := l.board.SetRelay(i, true); err != nil {
			return fmt.Errorf("set relay %d: %w", i+1, err)
		}
	}

	l.outputs = l.outputs.Apply(fx)
	return nil
}

func (l *loop) shutdown(s os.Signal) {
	log.Infof("received %v, shutting down", s)
	name := "UNKNOWN"
	if s == syscall.SIGINT {
		name = "SIGINT"
	} else if s == syscall.SIGTERM {
		name = "SIGTERM"
	}
	l.publishSystem(mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    name,
		Retained:  true,
	})
}

// publishSystem attaches a status snapshot (when tracked) and publishes.
func (l *loop) publishSystem(event mqtt.SystemEvent) {
	if l.tracker != nil {
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), event.Event, event.Reason)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Warnf("failed to publish %s event: %v", event.Event, err)
		l.publishFailed()
		return
	}
	log.Debugf("published %s event", event.Event)
}

func (l *loop) publishFailed() {
	if l.metrics != nil {
		l.metrics.PublishError()
	}
}

func (l *loop) updateTracker(reason trigger.Reason, in trigger.Sample) {
	if l.tracker == nil {
		return
	}
	l.tracker.Update(l.machine, reason, in, l.outputs, l.counts)
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

// formatLevels renders a sample as e.g. "010".
func formatLevels(levels []bool) string {
	b := make([]byte, len(levels))
	for i, v := range levels {
		b[i] = '0'
		if v {
			b[i] = '1'
		}
	}
	return string(b)
}
