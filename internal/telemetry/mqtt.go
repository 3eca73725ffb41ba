package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTOptions configures the broker connection and topic layout.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
}

// FixMessage is the JSON payload published per decoded packet.
type FixMessage struct {
	Seq        uint64    `json:"seq"`
	LatDeg     float64   `json:"lat_deg"`
	LonDeg     float64   `json:"lon_deg"`
	AltM       float64   `json:"alt_m"`
	ReceivedAt time.Time `json:"received_at"`
}

// LinkMessage is the JSON payload describing radio link quality.
type LinkMessage struct {
	RSSIdBm    int       `json:"rssi_dbm"`
	SNRdB      float64   `json:"snr_db"`
	ReceivedAt time.Time `json:"received_at"`
}

// mqttClient is the slice of the paho client the publisher needs; tests
// substitute a fake.
type mqttClient interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher pushes received telemetry to an MQTT broker. Fixes go to
// <prefix>/fix and link quality to <prefix>/link, QoS 0: a lost sample is
// replaced by the next one a second later.
type Publisher struct {
	client mqttClient
	prefix string
}

// NewPublisher connects to the broker. The paho client keeps reconnecting in
// the background after a connection loss; publishes while disconnected are
// dropped.
func NewPublisher(opts MQTTOptions) (*Publisher, error) {
	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		co.SetPassword(opts.Password)
	}
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(10 * time.Second)
	co.SetKeepAlive(60 * time.Second)
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
	})

	client := mqtt.NewClient(co)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, token.Error())
	}
	return &Publisher{client: client, prefix: opts.TopicPrefix}, nil
}

// PublishFix publishes one decoded beacon position.
func (p *Publisher) PublishFix(msg FixMessage) error {
	return p.publish("fix", msg)
}

// PublishLink publishes the link quality seen for the latest packet.
func (p *Publisher) PublishLink(msg LinkMessage) error {
	return p.publish("link", msg)
}

func (p *Publisher) publish(suffix string, v any) error {
	if !p.client.IsConnected() {
		// Reconnect is in flight; skip rather than queue stale samples.
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mqtt marshal: %w", err)
	}
	topic := p.prefix + "/" + suffix
	token := p.client.Publish(topic, 0, false, data)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("mqtt publish %s: %v", topic, token.Error())
		}
	}()
	return nil
}

func (p *Publisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Disconnect(250)
}
