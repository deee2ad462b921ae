package notifier

import (
	"context"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes events on <prefix>/<machineId>/shift/<started|completed>.
type MQTTPublisher struct {
	client mqttClient
	prefix string
	qos    byte
}

func NewMQTTPublisher(client mqttClient, topicPrefix string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		prefix: strings.TrimSuffix(topicPrefix, "/"),
		qos:    qos,
	}
}

// ConnectMQTT dials the broker and waits for the session.
func ConnectMQTT(broker, clientID, username, password string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)
	if username != "" {
		opts.SetUsername(username).SetPassword(password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return client, nil
}

func (p *MQTTPublisher) Name() string {
	return "mqtt"
}

func (p *MQTTPublisher) Topic(ev Event) string {
	suffix := strings.TrimPrefix(string(ev.Type), "shift_")
	return fmt.Sprintf("%s/%s/shift/%s", p.prefix, ev.Shift.MachineID, suffix)
}

func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	token := p.client.Publish(p.Topic(ev), p.qos, false, ev.ToJsonBytes())
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("mqtt publish %s: %w", p.Topic(ev), ctx.Err())
	}
}
