// Package metrics exposes daemon counters in Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"sync/atomic"

	vm "github.com/VictoriaMetrics/metrics"

	"github.com/sweeney/triggerpi/internal/trigger"
)

// Recorder owns a private metrics set so several recorders (tests) can coexist.
type Recorder struct {
	set        *vm.Set
	ticks      *vm.Counter
	publishErr *vm.Counter
	state      atomic.Value // trigger.State
	comms      atomic.Uint64
}

// New registers the daemon metrics.
func New() *Recorder {
	r := &Recorder{set: vm.NewSet()}
	r.state.Store(trigger.State(""))
	r.ticks = r.set.NewCounter("triggerpi_ticks_total")
	r.publishErr = r.set.NewCounter("triggerpi_mqtt_publish_errors_total")

	for _, s := range trigger.States {
		s := s
		r.set.NewGauge(fmt.Sprintf(`triggerpi_state{state=%q}`, s), func() float64 {
			if r.State() == s {
				return 1
			}
			return 0
		})
	}
	r.set.NewGauge("triggerpi_comms_brightness", func() float64 {
		return float64(r.comms.Load()) / 1000
	})
	return r
}

// Tick counts one poll of the inputs.
func (r *Recorder) Tick() {
	r.ticks.Inc()
}

// Observe records the state and indicator levels after a tick and counts
// the transition, if any.
func (r *Recorder) Observe(d trigger.Decision, out trigger.Outputs) {
	r.state.Store(d.Machine.State)
	r.comms.Store(uint64(out.Comms * 1000))
	if !d.Changed {
		return
	}
	r.set.GetOrCreateCounter(fmt.Sprintf(`triggerpi_transitions_total{from=%q,to=%q,reason=%q}`,
		d.From, d.Machine.State, d.Reason)).Inc()
}

// PublishError counts a failed MQTT publish.
func (r *Recorder) PublishError() {
	r.publishErr.Inc()
}

// State returns the last observed state.
func (r *Recorder) State() trigger.State {
	return r.state.Load().(trigger.State)
}

// WritePrometheus writes every metric, plus process metrics, to w.
func (r *Recorder) WritePrometheus(w io.Writer) {
	r.set.WritePrometheus(w)
	vm.WriteProcessMetrics(w)
}
