package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/triggerpi/internal/trigger"
)

func TestTopics(t *testing.T) {
	if Topic != "audio/triggerpi/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "audio/triggerpi/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatPayload(t *testing.T) {
	event := trigger.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		From:      trigger.StateArmed,
		To:        trigger.StateOn,
		Reason:    trigger.ReasonInputHigh,
		Inputs:    trigger.Sample{false, true, false},
		Relays:    trigger.RelayPattern{false, true, false},
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	p := parsed.Trigger
	if p.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", p.Timestamp)
	}
	if p.Event != "ARMED_TO_ON" {
		t.Errorf("unexpected event: %s", p.Event)
	}
	if p.From != "ARMED" || p.To != "ON" {
		t.Errorf("unexpected from/to: %s/%s", p.From, p.To)
	}
	if p.Reason != "input_high" {
		t.Errorf("unexpected reason: %s", p.Reason)
	}
	if len(p.Inputs) != 3 || !p.Inputs[1] || p.Inputs[0] || p.Inputs[2] {
		t.Errorf("unexpected inputs: %v", p.Inputs)
	}
	if len(p.Relays) != 3 || !p.Relays[1] {
		t.Errorf("unexpected relays: %v", p.Relays)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := trigger.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.FixedZone("CET", 3600)),
		From:      trigger.StateOn,
		To:        trigger.StateOff,
		Reason:    trigger.ReasonInputsLow,
		Inputs:    trigger.Sample{false},
		Relays:    trigger.RelayPattern{false},
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"trigger":{"timestamp":"2026-02-02T21:18:12Z","event":"ON_TO_OFF","from":"ON","to":"OFF","reason":"inputs_low","inputs":[false],"relays":[false]}}`
	if string(payload) != want {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFormatPayloadNilChannels(t *testing.T) {
	payload, err := FormatPayload(trigger.Event{From: trigger.StateOff, To: trigger.StateTurningOn})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(payload), `"inputs":[]`) || !strings.Contains(string(payload), `"relays":[]`) {
		t.Errorf("expected empty arrays, got %s", payload)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-02-02T22:00:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != want {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Event: "RECONNECTED"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(payload), "reason") {
		t.Errorf("expected reason to be omitted, got %s", payload)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"state":"ON"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	var _ Publisher = f
	var _ ConnectionStatus = f

	e := trigger.Event{From: trigger.StateOff, To: trigger.StateTurningOn, Timestamp: time.Now()}
	if err := f.Publish(e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.EventNames(); len(got) != 1 || got[0] != "OFF_TO_TURNING_ON" {
		t.Errorf("unexpected event names: %v", got)
	}
	if got := f.SystemEventNames(); len(got) != 1 || got[0] != "STARTUP" {
		t.Errorf("unexpected system event names: %v", got)
	}
	if len(f.Payloads) != 1 || len(f.SystemPayloads) != 1 {
		t.Errorf("expected payloads recorded, got %d/%d", len(f.Payloads), len(f.SystemPayloads))
	}

	f.Close()
	if !f.Closed {
		t.Error("expected Closed after Close()")
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("broker down")

	if err := f.Publish(trigger.Event{}); err == nil {
		t.Error("expected PublishError")
	}
	if err := f.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected PublishSystemError")
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes must not be recorded")
	}
}
