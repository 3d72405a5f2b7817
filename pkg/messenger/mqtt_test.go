package messenger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/rodneyosodo/fedcollab/pkg/errors"
	"github.com/rodneyosodo/fedcollab/round"
)

// stuckToken never completes, standing in for a broker that does not ack.
type stuckToken struct{}

func (stuckToken) Wait() bool                     { return false }
func (stuckToken) WaitTimeout(time.Duration) bool { return false }
func (stuckToken) Done() <-chan struct{}          { return make(chan struct{}) }
func (stuckToken) Error() error                   { return nil }

type stuckClient struct {
	mqtt.Client
}

func (stuckClient) Publish(string, byte, bool, interface{}) mqtt.Token {
	return stuckToken{}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func testMessenger(client mqtt.Client) *mqttMessenger {
	return &mqttMessenger{
		client:       client,
		qos:          1,
		timeout:      time.Minute,
		self:         round.CoordinatorID,
		participants: []round.NodeID{1},
		prefix:       "run",
		logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		inbox:        make(map[link]chan []byte),
	}
}

func advertFrom(t *testing.T, from round.NodeID, data []byte) *fakeMessage {
	t.Helper()

	payload, err := cbor.Marshal(envelope{From: from, Data: data})
	require.NoError(t, err)

	return &fakeMessage{
		topic:   fmt.Sprintf("run/nodes/0/%s", TagReprAdvert),
		payload: payload,
	}
}

func TestSendHonorsContext(t *testing.T) {
	m := testMessenger(stuckClient{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := m.Send(ctx, 1, TagRoundStart, []byte("payload"))
	assert.ErrorIs(t, err, pkgerrors.ErrProtocol)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRouteDelivers(t *testing.T) {
	m := testMessenger(nil)

	m.route(nil, advertFrom(t, 1, []byte("payload")))

	data, err := m.Receive(context.Background(), 1, TagReprAdvert)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestRouteDropsWhenInboxFull(t *testing.T) {
	m := testMessenger(nil)

	// One message past capacity; every call must return without blocking.
	for i := 0; i <= inboxDepth; i++ {
		m.route(nil, advertFrom(t, 1, []byte{byte(i)}))
	}

	for i := 0; i < inboxDepth; i++ {
		data, err := m.Receive(context.Background(), 1, TagReprAdvert)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i)}, data)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Receive(ctx, 1, TagReprAdvert)
	assert.ErrorIs(t, err, pkgerrors.ErrProtocol)
}
