package mqtt

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BufferSize is the number of messages kept while the broker is unreachable.
const BufferSize = 100

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	out    *outbox
	log    *zap.Logger

	// wasConnected distinguishes a reconnect from the first connect.
	wasConnected atomic.Bool
}

// DefaultClientID returns a client id unique to this process.
func DefaultClientID() string {
	return "water-sensor-" + uuid.NewString()[:8]
}

// NewRealPublisher creates a publisher connected to the given broker. The
// broker's last will marks the device as gone if the connection drops.
func NewRealPublisher(broker, clientID string, log *zap.Logger) (*RealPublisher, error) {
	if clientID == "" {
		clientID = DefaultClientID()
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	p := &RealPublisher{log: log}
	p.out = newOutbox(BufferSize, p.send, log)

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn("mqtt connection lost", zap.Error(err))
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// ConnectRetry keeps trying in the background; messages are buffered.
		log.Warn("mqtt connect timeout, continuing in background", zap.String("broker", broker))
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(paho.Client) {
	reconnect := p.wasConnected.Swap(true)
	sent := p.out.flush()
	p.log.Info("mqtt connected", zap.Bool("reconnect", reconnect), zap.Int("replayed", sent))

	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err == nil {
			go p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1})
		}
	}
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish timeout")
	}
	return token.Error()
}

// IsConnected reports whether the client currently holds a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Publish sends a level change event (QoS 0, not retained).
func (p *RealPublisher) Publish(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	if err := p.out.deliver(bufferedMsg{topic: TopicEvents, payload: payload}, p.IsConnected()); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	msg := bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}
	if err := p.out.deliver(msg, p.IsConnected()); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if n := p.out.pending(); n > 0 {
		p.log.Warn("mqtt closing with undelivered messages", zap.Int("pending", n))
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
