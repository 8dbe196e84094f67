package watch

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Transport is the watch delivery channel: exactly one message per Send.
type Transport interface {
	Send(ctx context.Context, p Payload) error
}

// MQTTTransport publishes watch payloads to a per-device topic on an MQTT
// broker and listens for refresh requests from the watch.
type MQTTTransport struct {
	client   mqtt.Client
	deviceID string
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Warn().Err(err).Msg("mqtt connection lost")
}

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Info().Msg("connected to mqtt broker")
}

// NewMQTTTransport connects to the broker. The returned transport publishes
// to watch/<deviceID>/prayer.
func NewMQTTTransport(brokerURL, clientID, deviceID string) (*MQTTTransport, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = connectHandler
	opts.OnConnectionLost = connectLostHandler

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}

	return &MQTTTransport{client: client, deviceID: deviceID}, nil
}

func (t *MQTTTransport) dataTopic() string {
	return fmt.Sprintf("watch/%s/prayer", t.deviceID)
}

func (t *MQTTTransport) requestTopic() string {
	return fmt.Sprintf("watch/%s/requests", t.deviceID)
}

// Send publishes one payload at QoS 1 and waits for the broker ack.
func (t *MQTTTransport) Send(ctx context.Context, p Payload) error {
	body, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encode watch payload: %w", err)
	}

	token := t.client.Publish(t.dataTopic(), 1, false, body)

	timeout := 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish to %s timed out", t.dataTopic())
	}
	if token.Error() != nil {
		return fmt.Errorf("publish to %s: %v", t.dataTopic(), token.Error())
	}
	return nil
}

// SubscribeRefresh invokes handler whenever the watch requests a data
// refresh.
func (t *MQTTTransport) SubscribeRefresh(handler func()) error {
	callback := func(_ mqtt.Client, msg mqtt.Message) {
		if IsRefreshRequest(msg.Payload()) {
			log.Info().Str("topic", msg.Topic()).Msg("watch requested data refresh")
			handler()
		}
	}
	if token := t.client.Subscribe(t.requestTopic(), 1, callback); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %v", t.requestTopic(), token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (t *MQTTTransport) Close() {
	t.client.Disconnect(250)
}
