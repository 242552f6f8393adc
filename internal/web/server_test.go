package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/triggerpi/internal/metrics"
	"github.com/sweeney/triggerpi/internal/status"
	"github.com/sweeney/triggerpi/internal/trigger"
)

var testStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *metrics.Recorder) {
	t.Helper()
	cfg := status.Config{
		PollMs:        200,
		PowerOnHoldMs: 60000,
		ArmedHoldMs:   30000,
		HeartbeatMs:   900000,
		RelayMode:     "mirror",
		Channels:      3,
		Broker:        "tcp://192.168.1.200:1883",
		HTTPAddr:      ":80",
	}
	tr := status.NewTracker(testStart, cfg)
	rec := metrics.New()
	srv := New(":0", tr, rec)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, rec
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func onOutputs() trigger.Outputs {
	out := trigger.NewOutputs(3)
	return out.Apply(trigger.DefaultParams().EntryEffects(trigger.StateOn, trigger.Sample{false, true, false}))
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	m := trigger.Machine{State: trigger.StateOn, EnteredAt: testStart}
	tr.Update(m, trigger.ReasonInputHigh, trigger.Sample{false, true, false}, onOutputs(), trigger.Counts{TurningOn: 1, Armed: 1, On: 1})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.State != "ON" {
		t.Errorf("State: got %q, want ON", sj.Status.State)
	}
	if sj.Status.LastReason != "input_high" {
		t.Errorf("LastReason: got %q, want input_high", sj.Status.LastReason)
	}
	if want := []bool{false, true, false}; !equalBools(sj.Status.Relays, want) {
		t.Errorf("Relays: got %v, want %v", sj.Status.Relays, want)
	}
	if sj.Status.Indicators.Power != 1 {
		t.Errorf("Indicators.Power: got %v, want 1", sj.Status.Indicators.Power)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.On != 1 {
		t.Errorf("Counts.On: got %d, want 1", sj.Status.Counts.On)
	}
	if sj.Status.Config.PollMs != 200 {
		t.Errorf("Config.PollMs: got %d, want 200", sj.Status.Config.PollMs)
	}
}

func TestJSONUnknownStateBeforeFirstSample(t *testing.T) {
	ts, _, _ := newTestServer(t)
	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "UNKNOWN" {
		t.Errorf("State before first sample: got %q, want UNKNOWN", sj.Status.State)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	m := trigger.Machine{State: trigger.StateOn, EnteredAt: testStart}
	tr.Update(m, trigger.ReasonInputHigh, trigger.Sample{false, true, false}, onOutputs(), trigger.Counts{})
	tr.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"Trigger Monitor", `class="on">ON`, "192.168.1.42", "mirror"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "UNKNOWN") {
		t.Error("expected UNKNOWN state before first sample")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, rec := newTestServer(t)
	rec.Tick()
	rec.Observe(trigger.Decision{
		Machine: trigger.Machine{State: trigger.StateTurningOn},
		Changed: true,
		From:    trigger.StateOff,
		Reason:  trigger.ReasonInputHigh,
	}, trigger.Outputs{Comms: 1})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		"triggerpi_ticks_total 1",
		`triggerpi_state{state="TURNING_ON"} 1`,
		`triggerpi_transitions_total{from="OFF",to="TURNING_ON",reason="input_high"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMetricsDisabledWithoutRecorder(t *testing.T) {
	tr := status.NewTracker(testStart, status.Config{})
	ts := httptest.NewServer(New(":0", tr, nil).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	// Falls through to the index handler, which rejects other paths.
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	if sj := getJSON(t, ts.URL+"/index.json"); sj.Status.State != "UNKNOWN" {
		t.Errorf("initial state: got %q", sj.Status.State)
	}

	m := trigger.Machine{State: trigger.StateArmed, EnteredAt: testStart}
	tr.Update(m, trigger.ReasonInputsLow, trigger.Sample{false, false, false}, trigger.NewOutputs(3), trigger.Counts{TurningOn: 1, Armed: 1})
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "ARMED" {
		t.Errorf("State: got %q, want ARMED", sj.Status.State)
	}
	if sj.Status.Counts.Armed != 1 {
		t.Errorf("Counts.Armed: got %d, want 1", sj.Status.Counts.Armed)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

func equalBools(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
