package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} {
	return t.done
}

func (t *fakeToken) Error() error {
	return t.err
}

type fakeMQTT struct {
	token   *fakeToken
	topic   string
	qos     byte
	payload []byte
}

func (c *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic = topic
	c.qos = qos
	c.payload = payload.([]byte)
	return c.token
}

func TestMQTTPublish(t *testing.T) {
	client := &fakeMQTT{token: completedToken(nil)}
	pub := NewMQTTPublisher(client, "filling_machines/", 1)
	ev := NewEvent(ShiftStarted, testWorkShift(), time.Now())

	require.NoError(t, pub.Publish(context.Background(), ev))
	assert.Equal(t, "filling_machines/machine-2/shift/started", client.topic)
	assert.Equal(t, byte(1), client.qos)
	decoded := EventFromJsonBytes(client.payload)
	require.NotNil(t, decoded)
	assert.Equal(t, ev.ID, decoded.ID)

	completed := NewEvent(ShiftCompleted, testWorkShift(), time.Now())
	assert.Equal(t, "filling_machines/machine-2/shift/completed", pub.Topic(completed))
}

func TestMQTTPublishError(t *testing.T) {
	errBroker := errors.New("not connected")
	pub := NewMQTTPublisher(&fakeMQTT{token: completedToken(errBroker)}, "fm", 0)

	err := pub.Publish(context.Background(), NewEvent(ShiftStarted, testWorkShift(), time.Now()))
	assert.ErrorIs(t, err, errBroker)
}

func TestMQTTPublishTimeout(t *testing.T) {
	pending := &fakeToken{done: make(chan struct{})}
	pub := NewMQTTPublisher(&fakeMQTT{token: pending}, "fm", 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pub.Publish(ctx, NewEvent(ShiftStarted, testWorkShift(), time.Now()))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
