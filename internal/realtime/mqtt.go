package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/iliyamo/venue-checkin/internal/queue"
)

// MQTTConfig configures the MQTT emitter.
type MQTTConfig struct {
	Broker    string
	ClientID  string
	Username  string
	Password  string
	TopicRoot string
}

// MQTTEmitter publishes refresh events to "{root}/{venue}/{date}" at QoS 0.
type MQTTEmitter struct {
	client mqtt.Client
	root   string
}

// NewMQTTEmitter connects to the broker.  The client reconnects on its own
// after the first successful connect.
func NewMQTTEmitter(cfg MQTTConfig) (*MQTTEmitter, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return nil, errors.New("mqtt: connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connection error: %w", err)
	}
	return &MQTTEmitter{client: client, root: strings.Trim(cfg.TopicRoot, "/")}, nil
}

// Topic returns the topic a refresh event is published to.
func (e *MQTTEmitter) Topic(ev queue.RefreshEvent) string {
	return mqttTopic(e.root, ev)
}

func mqttTopic(root string, ev queue.RefreshEvent) string {
	topic := fmt.Sprintf("%d/%s", ev.VenueID, ev.Date)
	if root == "" {
		return topic
	}
	return root + "/" + topic
}

func (e *MQTTEmitter) Emit(ctx context.Context, ev queue.RefreshEvent) error {
	if !e.client.IsConnected() {
		return errors.New("mqtt: not connected to broker")
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("mqtt: marshal event: %w", err)
	}
	token := e.client.Publish(e.Topic(ev), 0, false, body)
	timeout := 10 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if !token.WaitTimeout(timeout) {
		return errors.New("mqtt: publish timeout")
	}
	return token.Error()
}

func (e *MQTTEmitter) Close() error {
	if e.client.IsConnected() {
		e.client.Disconnect(250)
	}
	return nil
}
