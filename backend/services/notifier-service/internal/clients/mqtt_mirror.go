package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"avacharge/backend/services/notifier-service/internal/models"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
)

// MQTTMirror republishes delivered messages to an MQTT topic.
type MQTTMirror struct {
	client paho.Client
	topic  string
}

// NewMQTTMirror connects to broker. Messages land on <topic>/<kind>.
func NewMQTTMirror(broker, clientID, topic string) (*MQTTMirror, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt: connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to broker: %w", err)
	}
	return newMQTTMirror(client, topic), nil
}

func newMQTTMirror(client paho.Client, topic string) *MQTTMirror {
	return &MQTTMirror{client: client, topic: strings.TrimRight(topic, "/")}
}

// Topic returns the topic a message of kind is published to.
func (m *MQTTMirror) Topic(kind string) string {
	return m.topic + "/" + kind
}

// Observe publishes msg at QoS 0, not retained.
func (m *MQTTMirror) Observe(ctx context.Context, msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mqtt: encode: %w", err)
	}

	timeout := mqttPublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	token := m.client.Publish(m.Topic(string(msg.Kind)), 0, false, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt: publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTTMirror) Close() error {
	m.client.Disconnect(1000)
	return nil
}
