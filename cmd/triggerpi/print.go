package main

import (
	"fmt"
	"io"
	"time"

	"github.com/sweeney/triggerpi/internal/config"
	"github.com/sweeney/triggerpi/internal/gpio"
	"github.com/sweeney/triggerpi/internal/trigger"
)

// printState reads the inputs once and reports the state the daemon would
// start in. Outputs are not touched.
func printState(w io.Writer, board gpio.Reader, cfg config.Config) error {
	in, err := board.ReadInputs()
	if err != nil {
		return fmt.Errorf("read inputs: %w", err)
	}
	for i, v := range in {
		fmt.Fprintf(w, "input%d: %s\n", i+1, levelString(v))
	}
	d := cfg.Params().Start(trigger.Sample(in), time.Now())
	fmt.Fprintf(w, "state: %s\n", d.Machine.State)
	return nil
}

func levelString(on bool) string {
	if on {
		return "HIGH"
	}
	return "LOW"
}
