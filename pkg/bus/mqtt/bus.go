// Package mqtt rides the broadcast-bus abstraction over an MQTT
// broker. The physical transceiver is out of scope for the firmware
// core; on development rigs the bus frames travel as retained-nothing
// MQTT messages, one topic per frame id.
package mqtt

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/bus"
)

const (
	frameTopicPrefix = "frames/"
	connectTimeout   = 10 * time.Second
)

// Bus implements bus.Bus over MQTT.
type Bus struct {
	// Inbound restricts the subscription to specific frame ids,
	// mimicking a transceiver acceptance filter. It also keeps a
	// device from hearing its own published frames echoed by the
	// broker. Nil subscribes to every frame (used by monitors).
	Inbound []uint16

	client      paho.Client
	topicPrefix string

	mu       sync.RWMutex
	handlers []bus.Handler
}

// ClientOptionsFromURL builds paho options from a broker URL of the
// form mqtt://host:port/topic-prefix?client-id=....
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	scheme := u.Scheme
	if scheme == "" || scheme == "mqtt" {
		scheme = "tcp"
	}

	topicPrefix := strings.TrimPrefix(u.Path, "/")
	if topicPrefix != "" && !strings.HasSuffix(topicPrefix, "/") {
		topicPrefix += "/"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, topicPrefix, nil
}

// NewBus creates a Bus from a broker URL. clientID overrides any
// client-id provided in the URL when non-empty.
func NewBus(brokerURL, clientID string) (*Bus, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if clientID != "" {
		opts.SetClientID(clientID)
	}
	b := &Bus{topicPrefix: topicPrefix}
	opts.SetOnConnectHandler(func(paho.Client) { b.resubscribe() })
	b.client = paho.NewClient(opts)
	return b, nil
}

// Connect connects to the broker and waits for the session.
func (b *Bus) Connect() error {
	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt: connect timeout")
	}
	return token.Error()
}

// Publish implements bus.Bus.
func (b *Bus) Publish(f bus.Frame) error {
	topic := b.topicPrefix + frameTopic(f.ID)
	if glog.V(2) {
		glog.Infof("PUB %q % x", topic, f.Data)
	}
	token := b.client.Publish(topic, 0, false, f.Data)
	token.Wait()
	return token.Error()
}

// Subscribe implements bus.Bus. The first subscriber triggers the
// broker subscription; later handlers share it.
func (b *Bus) Subscribe(h bus.Handler) error {
	b.mu.Lock()
	first := len(b.handlers) == 0
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
	if !first {
		return nil
	}
	return b.subscribeTopics()
}

// Close implements bus.Bus.
func (b *Bus) Close() error {
	b.client.Disconnect(0)
	return nil
}

func (b *Bus) subscribeTopics() error {
	filters := make(map[string]byte)
	if len(b.Inbound) == 0 {
		filters[b.topicPrefix+frameTopicPrefix+"+"] = 0
	} else {
		for _, id := range b.Inbound {
			filters[b.topicPrefix+frameTopic(id)] = 0
		}
	}
	if glog.V(2) {
		for topic := range filters {
			glog.Infof("SUB %q", topic)
		}
	}
	token := b.client.SubscribeMultiple(filters, b.dispatch)
	token.Wait()
	return token.Error()
}

func (b *Bus) resubscribe() {
	b.mu.RLock()
	subscribed := len(b.handlers) > 0
	b.mu.RUnlock()
	if !subscribed {
		return
	}
	if err := b.subscribeTopics(); err != nil {
		glog.Errorf("mqtt: resubscribe: %v", err)
	}
}

func (b *Bus) dispatch(_ paho.Client, msg paho.Message) {
	id, err := parseFrameTopic(strings.TrimPrefix(msg.Topic(), b.topicPrefix))
	if err != nil {
		glog.Warningf("mqtt: drop message on %q: %v", msg.Topic(), err)
		return
	}
	f := bus.Frame{ID: id, Data: msg.Payload()}
	b.mu.RLock()
	handlers := make([]bus.Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(f)
	}
}

func frameTopic(id uint16) string {
	return fmt.Sprintf("%s%03x", frameTopicPrefix, id)
}

func parseFrameTopic(topic string) (uint16, error) {
	hex := strings.TrimPrefix(topic, frameTopicPrefix)
	if hex == topic {
		return 0, fmt.Errorf("not a frame topic")
	}
	id, err := strconv.ParseUint(hex, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(id), nil
}
