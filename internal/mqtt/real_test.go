package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/triggerpi/internal/trigger"
)

// doneToken is a paho.Token that has already completed.
type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements the parts of paho.Client the publisher uses.
type fakeClient struct {
	paho.Client

	mu           sync.Mutex
	open         bool
	publishErr   error
	published    []published
	disconnected bool
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return doneToken{err: c.publishErr}
	}
	c.published = append(c.published, published{topic, qos, retained, payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func TestRealPublisherPublishesWhenConnected(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c, 10)

	err := p.Publish(trigger.Event{From: trigger.StateArmed, To: trigger.StateOn})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(c.published) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(c.published))
	}
	if c.published[0].topic != Topic || c.published[0].qos != 0 || c.published[0].retained {
		t.Errorf("unexpected event message: %+v", c.published[0])
	}
	if c.published[1].topic != TopicSystem || c.published[1].qos != 1 || !c.published[1].retained {
		t.Errorf("unexpected system message: %+v", c.published[1])
	}
	if !p.IsConnected() {
		t.Error("expected IsConnected=true")
	}
}

func TestRealPublisherBuffersAndReplays(t *testing.T) {
	c := &fakeClient{open: false}
	p := newPublisher(c, 10)

	p.Publish(trigger.Event{From: trigger.StateOff, To: trigger.StateTurningOn})
	p.Publish(trigger.Event{From: trigger.StateTurningOn, To: trigger.StateArmed})
	p.PublishSystem(SystemEvent{Event: "HEARTBEAT"})

	if len(c.published) != 0 {
		t.Fatalf("expected nothing sent while disconnected, got %d", len(c.published))
	}
	if p.Buffered() != 3 {
		t.Fatalf("expected 3 buffered, got %d", p.Buffered())
	}

	c.open = true
	p.onConnect(c)

	if p.Buffered() != 0 {
		t.Errorf("expected buffer drained, got %d", p.Buffered())
	}
	if len(c.published) != 3 {
		t.Fatalf("expected 3 replayed, got %d", len(c.published))
	}
	wantTopics := []string{Topic, Topic, TopicSystem}
	for i, want := range wantTopics {
		if c.published[i].topic != want {
			t.Errorf("message %d: topic %s, want %s", i, c.published[i].topic, want)
		}
	}
}

func TestRealPublisherError(t *testing.T) {
	c := &fakeClient{open: true, publishErr: errors.New("not authorized")}
	p := newPublisher(c, 10)

	err := p.Publish(trigger.Event{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, c.publishErr) {
		t.Errorf("expected wrapped client error, got %v", err)
	}
}

func TestRealPublisherBuffersWhenConnectionDropsMidPublish(t *testing.T) {
	for _, publishErr := range []error{
		errors.New("connection lost before Publish completed"),
		paho.ErrNotConnected,
	} {
		t.Run(publishErr.Error(), func(t *testing.T) {
			c := &fakeClient{open: true, publishErr: publishErr}
			p := newPublisher(c, 10)

			if err := p.Publish(trigger.Event{From: trigger.StateArmed, To: trigger.StateOn}); err != nil {
				t.Fatalf("expected message to be buffered, got %v", err)
			}
			if p.Buffered() != 1 {
				t.Fatalf("expected 1 buffered, got %d", p.Buffered())
			}

			c.publishErr = nil
			p.onConnect(c)
			if len(c.published) != 1 || c.published[0].topic != Topic {
				t.Errorf("expected the event replayed on reconnect, got %+v", c.published)
			}
		})
	}
}

func TestRealPublisherBuffersWhenClosedAfterError(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c, 10)
	// paho notices the drop while the publish is in flight.
	c.publishErr = &closingErr{c: c}

	if err := p.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err != nil {
		t.Fatalf("expected message to be buffered, got %v", err)
	}
	if p.Buffered() != 1 {
		t.Errorf("expected 1 buffered, got %d", p.Buffered())
	}
}

// closingErr marks the client closed when the publisher inspects it.
type closingErr struct{ c *fakeClient }

func (e *closingErr) Error() string {
	e.c.mu.Lock()
	e.c.open = false
	e.c.mu.Unlock()
	return "EOF"
}

func TestRealPublisherClose(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, 10)
	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.disconnected {
		t.Error("expected Disconnect to be called")
	}
}
