package recon

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// publishTimeout bounds how long a publish may block on the broker.
const publishTimeout = 2 * time.Second

// Publisher pushes measurement and calibration events to MQTT so downstream
// consumers (UI, persistence) can react without polling. A nil client
// disables publishing, which keeps the measurement path broker-free in tests
// and offline runs.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
}

// NewPublisher creates an event publisher. If client is nil, publishing is
// disabled.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = os.Getenv("MQTT_PUBLISH_PREFIX")
	}
	if prefix == "" {
		prefix = "sparsemeasure"
	}
	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,
		retain:        true, // consumers want the latest state on subscribe
	}
}

// Enabled reports whether events will actually reach a broker.
func (p *Publisher) Enabled() bool {
	return p.client != nil && p.client.IsConnected()
}

// PublishMeasurement publishes a recorded measurement to
// {prefix}/{scanID}/measurements.
func (p *Publisher) PublishMeasurement(scanID string, m Measurement) error {
	return p.publish(fmt.Sprintf("%s/%s/measurements", p.publishPrefix, scanID), m)
}

// PublishCalibration publishes the current calibration state to
// {prefix}/{scanID}/calibration.
func (p *Publisher) PublishCalibration(scanID string, cal CalibrationState) error {
	return p.publish(fmt.Sprintf("%s/%s/calibration", p.publishPrefix, scanID), cal)
}

func (p *Publisher) publish(topic string, payload interface{}) error {
	if !p.Enabled() {
		return fmt.Errorf("MQTT client not connected")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling event payload: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, data)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// ConnectMQTT builds and connects an MQTT client from config. Returns nil if
// no broker is configured (publishing disabled). Environment variables
// MQTT_BROKER, MQTT_CLIENT_ID, MQTT_USERNAME and MQTT_PASSWORD override the
// config.
func ConnectMQTT(config *MQTTConfig) (mqtt.Client, error) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" && config != nil {
		broker = config.Broker
	}
	if broker == "" {
		log.Println("MQTT disabled: no broker configured")
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" && config != nil && config.ClientID != "" {
		clientID = config.ClientID
	}
	if clientID == "" {
		clientID = "sparsemeasure"
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" && config != nil {
		username = config.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" && config != nil {
			password = config.Password
		}
		opts.SetPassword(password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connecting to MQTT broker %s: timeout", broker)
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", broker, token.Error())
	}

	log.Printf("Connected to MQTT broker %s as %s", broker, clientID)
	return client, nil
}
