package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/signal-controller/internal/logic"
)

// bufferCapacity bounds how many decision payloads are held while the
// broker is unreachable.
const bufferCapacity = 256

// RealPublisher publishes to an actual MQTT broker. Decisions published
// while disconnected are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client

	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	p := &RealPublisher{buffer: newRingBuffer(bufferCapacity)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("signal-controller").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			p.drain(c)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	p.client = client
	return p, nil
}

// PublishDecision sends a decision to the broker at QoS 0. While
// disconnected the payload is buffered for replay.
func (p *RealPublisher) PublishDecision(d logic.Decision) error {
	payload, err := FormatDecisionPayload(d)
	if err != nil {
		return fmt.Errorf("format decision payload: %w", err)
	}
	return p.publish(TopicDecisions, payload, 0, false)
}

// PublishSystem sends a system lifecycle event at QoS 1 — shutdown and
// safety events should survive a flaky link.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, payload, 1, event.Retained)
}

func (p *RealPublisher) publish(topic string, payload []byte, qos byte, retained bool) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.buffer.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// drain replays buffered messages after a (re)connect.
func (p *RealPublisher) drain(c paho.Client) {
	p.mu.Lock()
	msgs := p.buffer.drainAll()
	p.mu.Unlock()
	if len(msgs) == 0 {
		return
	}
	log.Printf("mqtt: replaying %d buffered messages", len(msgs))
	for _, m := range msgs {
		token := c.Publish(m.topic, m.qos, m.retained, m.payload)
		token.WaitTimeout(5 * time.Second)
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client != nil && p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

// SubscribeSensors subscribes to the sensor topic and forwards parsed
// events to the returned channel. Malformed events are counted through
// onError and dropped — the scheduler keeps its last known state.
func (p *RealPublisher) SubscribeSensors(onError func(error)) (<-chan SensorEvent, error) {
	ch := make(chan SensorEvent, 64)
	token := p.client.Subscribe(TopicSensors, 0, func(_ paho.Client, msg paho.Message) {
		ev, err := ParseSensorEvent(msg.Payload())
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		select {
		case ch <- ev:
		default:
			log.Printf("mqtt: sensor channel full, dropping event for lane %s", ev.Lane)
		}
	})
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", TopicSensors, err)
	}
	return ch, nil
}
