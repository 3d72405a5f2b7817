package messenger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/fxamacker/cbor/v2"

	pkgerrors "github.com/rodneyosodo/fedcollab/pkg/errors"
	"github.com/rodneyosodo/fedcollab/round"
)

const (
	connTimeout    = 10
	reconnTimeout  = 1
	disconnTimeout = 250

	inboxDepth = 16
)

var (
	errPublishTimeout   = errors.New("failed to publish due to timeout reached")
	errSubscribeTimeout = errors.New("failed to subscribe due to timeout reached")
	errConnectTimeout   = errors.New("timeout reached while connecting to MQTT broker")
)

// envelope is the wire frame of every protocol payload: the sender identity
// plus the CBOR-encoded message body.
type envelope struct {
	From round.NodeID `cbor:"from"`
	Data []byte       `cbor:"data"`
}

type mqttMessenger struct {
	client       mqtt.Client
	qos          byte
	timeout      time.Duration
	self         round.NodeID
	participants []round.NodeID
	prefix       string
	logger       *slog.Logger

	mu    sync.Mutex
	inbox map[link]chan []byte
}

// NewMQTT connects to the broker and subscribes to this identity's inbound
// topics. Topics are laid out as <runID>/nodes/<dest>/<tag>, one logical
// channel per destination and tag. participants lists the client identities
// in gather order.
func NewMQTT(url string, qos byte, self round.NodeID, participants []round.NodeID, runID string, timeout time.Duration, logger *slog.Logger) (Messenger, error) {
	if runID == "" {
		return nil, errors.New("empty run ID")
	}

	m := &mqttMessenger{
		qos:          qos,
		timeout:      timeout,
		self:         self,
		participants: participants,
		prefix:       runID,
		logger:       logger,
		inbox:        make(map[link]chan []byte),
	}

	client, err := newClient(url, fmt.Sprintf("%s-node-%d", runID, self), timeout, logger)
	if err != nil {
		return nil, err
	}
	m.client = client

	topic := fmt.Sprintf("%s/nodes/%d/+", m.prefix, m.self)
	token := client.Subscribe(topic, qos, m.route)
	if token.Error() != nil {
		return nil, token.Error()
	}
	if ok := token.WaitTimeout(timeout); !ok {
		return nil, errSubscribeTimeout
	}

	return m, nil
}

func (m *mqttMessenger) topic(dest round.NodeID, tag Tag) string {
	return fmt.Sprintf("%s/nodes/%d/%s", m.prefix, dest, tag)
}

// route demultiplexes an inbound publication into the per-sender, per-tag
// inbox its receiver is blocked on.
func (m *mqttMessenger) route(_ mqtt.Client, msg mqtt.Message) {
	var env envelope
	if err := cbor.Unmarshal(msg.Payload(), &env); err != nil {
		m.logger.Warn("Failed to decode received envelope", slog.String("topic", msg.Topic()), slog.Any("error", err))

		return
	}

	parts := strings.Split(msg.Topic(), "/")
	tag := Tag(parts[len(parts)-1])

	// The paho router calls this handler for every subscription of the
	// client, so a full inbox drops the message rather than stalling all
	// inbound traffic behind one slow receiver.
	select {
	case m.channel(link{dest: m.self, from: env.From, tag: tag}) <- env.Data:
		msg.Ack()
	default:
		m.logger.Warn("Inbox full, dropping message",
			slog.String("topic", msg.Topic()),
			slog.Int("from", int(env.From)))
	}
}

func (m *mqttMessenger) channel(l link) chan []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.inbox[l]
	if !ok {
		ch = make(chan []byte, inboxDepth)
		m.inbox[l] = ch
	}

	return ch
}

func (m *mqttMessenger) Send(ctx context.Context, dest round.NodeID, tag Tag, data []byte) error {
	payload, err := cbor.Marshal(envelope{From: m.self, Data: data})
	if err != nil {
		return err
	}

	token := m.client.Publish(m.topic(dest, tag), m.qos, false, payload)

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("send to node %d on %s: %w", dest, tag, errors.Join(pkgerrors.ErrProtocol, ctx.Err()))
	case <-time.After(m.timeout):
		return errPublishTimeout
	}
}

func (m *mqttMessenger) Receive(ctx context.Context, from round.NodeID, tag Tag) ([]byte, error) {
	select {
	case data := <-m.channel(link{dest: m.self, from: from, tag: tag}):
		return data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("receive from node %d on %s: %w", from, tag, errors.Join(pkgerrors.ErrProtocol, ctx.Err()))
	}
}

func (m *mqttMessenger) AllGather(ctx context.Context, tag Tag) ([]Message, error) {
	msgs := make([]Message, 0, len(m.participants))
	for _, id := range m.participants {
		data, err := m.Receive(ctx, id, tag)
		if err != nil {
			return nil, fmt.Errorf("gather on %s incomplete after %d of %d: %w", tag, len(msgs), len(m.participants), err)
		}
		msgs = append(msgs, Message{From: id, Data: data})
	}

	return msgs, nil
}

func (m *mqttMessenger) Disconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		m.client.Disconnect(disconnTimeout)

		return nil
	}
}

func newClient(address, id string, timeout time.Duration, logger *slog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(address).
		SetClientID(id).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connTimeout * time.Second).
		SetMaxReconnectInterval(reconnTimeout * time.Minute)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("MQTT connection established")
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		args := []any{}
		if err != nil {
			args = append(args, slog.Any("error", err))
		}

		logger.Info("MQTT connection lost", args...)
	})

	opts.SetReconnectingHandler(func(_ mqtt.Client, options *mqtt.ClientOptions) {
		args := []any{}
		if options != nil {
			args = append(args, slog.String("client_id", options.ClientID))
		}

		logger.Info("MQTT reconnecting", args...)
	})

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if token.Error() != nil {
		return nil, errors.Join(errors.New("failed to connect to MQTT broker"), token.Error())
	}

	if ok := token.WaitTimeout(timeout); !ok {
		return nil, errConnectTimeout
	}

	return client, nil
}
