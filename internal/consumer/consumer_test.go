package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqttcommon "github.com/anand0056/rfid-server-setup/common/mqtt"
	"github.com/anand0056/rfid-server-setup/internal/heartbeat"
	"github.com/anand0056/rfid-server-setup/internal/models"
	"github.com/anand0056/rfid-server-setup/internal/processor"
)

type recordingProcessor struct {
	events []models.ScanEvent
}

func (r *recordingProcessor) Process(_ context.Context, event models.ScanEvent) processor.Outcome {
	r.events = append(r.events, event)
	return processor.OutcomeLogged
}

type recordingHeartbeats struct {
	payloads [][]byte
}

func (r *recordingHeartbeats) Handle(_ context.Context, payload []byte) heartbeat.Result {
	r.payloads = append(r.payloads, payload)
	return heartbeat.Updated
}

type mockSubscriber struct {
	mock.Mock
	mu       sync.Mutex
	handlers map[string]mqttcommon.MessageHandler
}

func (m *mockSubscriber) Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error {
	args := m.Called(topic, qos)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[string]mqttcommon.MessageHandler)
	}
	m.handlers[topic] = handler
	return args.Error(0)
}

func (m *mockSubscriber) handler(topic string) mqttcommon.MessageHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handlers[topic]
}

func (m *mockSubscriber) subscribed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

func (m *mockSubscriber) Unsubscribe(topics ...string) error {
	args := m.Called(topics)
	return args.Error(0)
}

func TestRouteFor(t *testing.T) {
	cases := map[string]Route{
		"binimise/rfid":       RouteScan,
		"rfid/scan":           RouteScan,
		"rfid/R100/scan":      RouteScan,
		"rfid/a/b/scan":       RouteScan,
		"rfid/heartbeat":      RouteHeartbeat,
		"rfid/R100/heartbeat": RouteIgnored,
		"binimise/rfid/extra": RouteIgnored,
		"other/scan":          RouteIgnored,
		"rfid/scanner":        RouteIgnored,
		"":                    RouteIgnored,
	}
	for topic, want := range cases {
		assert.Equal(t, want, RouteFor(topic), topic)
	}
}

func TestDispatch(t *testing.T) {
	scans := &recordingProcessor{}
	beats := &recordingHeartbeats{}
	d := NewDispatcher(scans, beats, nil, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, RouteScan, d.Dispatch(ctx, "rfid/R1/scan", []byte(`{"a":1}`)))
	assert.Equal(t, RouteHeartbeat, d.Dispatch(ctx, "rfid/heartbeat", []byte(`{"reader_id":"R1"}`)))
	assert.Equal(t, RouteIgnored, d.Dispatch(ctx, "devices/status", []byte(`{}`)))

	require.Len(t, scans.events, 1)
	assert.Equal(t, models.ScanEvent{Topic: "rfid/R1/scan", Payload: []byte(`{"a":1}`)}, scans.events[0])
	require.Len(t, beats.payloads, 1)
	assert.Equal(t, `{"reader_id":"R1"}`, string(beats.payloads[0]))
}

func TestMQTTConsumer_StartStop(t *testing.T) {
	scans := &recordingProcessor{}
	sub := &mockSubscriber{}
	topics := []string{"binimise/rfid", "rfid/+/scan", "rfid/heartbeat"}
	for _, topic := range topics {
		sub.On("Subscribe", topic, byte(1)).Return(nil).Once()
	}
	sub.On("Unsubscribe", topics).Return(nil).Once()

	c := NewMQTTConsumer(sub, NewDispatcher(scans, &recordingHeartbeats{}, nil, zap.NewNop()), topics, 1, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return sub.subscribed() == len(topics) }, time.Second, 5*time.Millisecond)

	// the broker delivers the concrete topic to the wildcard subscription's handler
	require.NoError(t, sub.handler("rfid/+/scan")("rfid/R7/scan", []byte(`{}`)))
	require.Len(t, scans.events, 1)
	assert.Equal(t, "rfid/R7/scan", scans.events[0].Topic)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}

	require.NoError(t, c.Stop(context.Background()))
	sub.AssertExpectations(t)
}

func TestMQTTConsumer_SubscribeFailure(t *testing.T) {
	sub := &mockSubscriber{}
	sub.On("Subscribe", "rfid/scan", byte(0)).Return(errors.New("not authorized"))

	c := NewMQTTConsumer(sub, NewDispatcher(&recordingProcessor{}, &recordingHeartbeats{}, nil, zap.NewNop()), []string{"rfid/scan"}, 0, zap.NewNop())

	err := c.Start(context.Background())
	assert.ErrorContains(t, err, "failed to subscribe to rfid/scan")
}
