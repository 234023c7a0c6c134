package report

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/golang/glog"
	mqtt "github.com/soypat/natiu-mqtt"
)

// mirrorQueueDepth bounds how many status lines may wait for the
// broker. Offer drops the oldest entry when full; the mirror observes,
// it never back-pressures motion.
const mirrorQueueDepth = 8

// Mirror republishes status lines to an MQTT broker. It is strictly
// observe-only: a dead broker costs dropped reports, never a stalled
// controller loop. All broker I/O happens in Service, called from the
// cooperative loop, using natiu-mqtt's allocation-free codec.
type Mirror struct {
	Topic    string
	ClientID string

	// Dial opens the broker connection; typically a closure over
	// net.Dial or a TinyGo netdev socket.
	Dial func() (net.Conn, error)

	client  *mqtt.Client
	conn    net.Conn
	queue   chan string
	backoff time.Time
}

func NewMirror(topic, clientID string, dial func() (net.Conn, error)) *Mirror {
	return &Mirror{
		Topic:    topic,
		ClientID: clientID,
		Dial:     dial,
		queue:    make(chan string, mirrorQueueDepth),
	}
}

// Offer enqueues a status line for publication, dropping the oldest
// queued line when full. Never blocks.
func (m *Mirror) Offer(line string) {
	for {
		select {
		case m.queue <- line:
			return
		default:
			select {
			case <-m.queue:
			default:
			}
		}
	}
}

// Service drains the queue to the broker, (re)connecting as needed.
// Returns true if it published anything.
func (m *Mirror) Service() bool {
	if len(m.queue) == 0 {
		return false
	}
	if !m.connected() {
		if !m.connect() {
			return false
		}
	}

	did := false
	for {
		select {
		case line := <-m.queue:
			if err := m.publish(line); err != nil {
				glog.Errorf("report: mqtt publish: %v", err)
				m.disconnect()
				return did
			}
			did = true
		default:
			return did
		}
	}
}

func (m *Mirror) connected() bool {
	return m.client != nil && m.client.IsConnected()
}

func (m *Mirror) connect() bool {
	now := time.Now()
	if now.Before(m.backoff) {
		return false
	}
	m.backoff = now.Add(5 * time.Second)

	conn, err := m.Dial()
	if err != nil {
		glog.Errorf("report: mqtt dial: %v", err)
		return false
	}

	client := mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 1500)},
		OnPub: func(_ mqtt.Header, _ mqtt.VariablesPublish, _ io.Reader) error {
			return nil // observe-only: nothing subscribes
		},
	})

	var varconn mqtt.VariablesConnect
	varconn.SetDefaultMQTT([]byte(m.ClientID))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Connect(ctx, conn, &varconn); err != nil {
		glog.Errorf("report: mqtt connect: %v", err)
		conn.Close()
		return false
	}

	m.client = client
	m.conn = conn
	glog.Infof("report: mqtt mirror connected, topic=%s", m.Topic)
	return true
}

func (m *Mirror) publish(line string) error {
	pubFlags, err := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	if err != nil {
		return err
	}
	varPub := mqtt.VariablesPublish{
		TopicName: []byte(m.Topic),
	}
	return m.client.PublishPayload(pubFlags, varPub, []byte(line))
}

func (m *Mirror) disconnect() {
	if m.conn != nil {
		m.conn.Close()
	}
	m.client = nil
	m.conn = nil
}
