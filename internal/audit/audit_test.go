package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/dashboard"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
	"github.com/nandinigandhi21/EventHive-TheCoders/middleware"
)

var toggled = dashboard.AppliedMutation{
	SessionID: "sess-1",
	Resource:  domain.ResourceEvents,
	ID:        "7",
	Operation: domain.OpToggleStatus,
	Value:     "published",
}

func TestLogger_MutationApplied(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))

	ctx := middleware.SetRequestIDForTest(context.Background(), "req-9")
	l.MutationApplied(ctx, toggled)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, true, line["audit"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "toggle_status", line["action"])
	assert.Equal(t, "7", line["record_id"])
	assert.Equal(t, "req-9", line["trace_id"])

	buf.Reset()
	l.MutationApplied(context.Background(), dashboard.AppliedMutation{Resource: domain.ResourceUsers, ID: "3", Operation: domain.OpDelete})
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
}

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	err       error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func newTestPublisher(ch *fakeChannel) (*Publisher, chan amqp.Confirmation, chan amqp.Return) {
	confirms := make(chan amqp.Confirmation, 1)
	returns := make(chan amqp.Return, 1)
	return &Publisher{exchange: DefaultExchange, ch: ch, confirmCh: confirms, returnCh: returns}, confirms, returns
}

func TestPublisher_Publish(t *testing.T) {
	t.Run("acked", func(t *testing.T) {
		ch := &fakeChannel{}
		p, confirms, _ := newTestPublisher(ch)
		confirms <- amqp.Confirmation{Ack: true}

		require.NoError(t, p.Publish(middleware.SetRequestIDForTest(context.Background(), "req-1"), toggled))
		require.Len(t, ch.published, 1)
		assert.Equal(t, "dashboard.events.toggle_status", ch.keys[0])

		var msg Message
		require.NoError(t, json.Unmarshal(ch.published[0].Body, &msg))
		assert.Equal(t, ch.published[0].MessageId, msg.MessageID)
		assert.Equal(t, "published", msg.Value)
		assert.Equal(t, "req-1", msg.RequestID)
	})

	t.Run("nack", func(t *testing.T) {
		p, confirms, _ := newTestPublisher(&fakeChannel{})
		confirms <- amqp.Confirmation{Ack: false}
		assert.EqualError(t, p.Publish(context.Background(), toggled), "publish nack")
	})

	t.Run("no route", func(t *testing.T) {
		p, _, returns := newTestPublisher(&fakeChannel{})
		returns <- amqp.Return{RoutingKey: "dashboard.events.toggle_status"}
		assert.EqualError(t, p.Publish(context.Background(), toggled), "NO_ROUTE: dashboard.events.toggle_status")
	})

	t.Run("no confirm in window", func(t *testing.T) {
		p, _, _ := newTestPublisher(&fakeChannel{})
		assert.NoError(t, p.Publish(context.Background(), toggled))
	})

	t.Run("closed", func(t *testing.T) {
		p, _, _ := newTestPublisher(&fakeChannel{})
		require.NoError(t, p.Close())
		assert.Error(t, p.Publish(context.Background(), toggled))
	})
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(ctx context.Context, am dashboard.AppliedMutation) error {
	return m.Called(ctx, am).Error(0)
}

func TestSink(t *testing.T) {
	var buf bytes.Buffer
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, toggled).Return(errors.New("broker down")).Once()

	s := NewSink(New(zerolog.New(&buf)), pub)
	s.MutationApplied(context.Background(), toggled)

	pub.AssertExpectations(t)
	assert.Contains(t, buf.String(), `"audit":true`)

	// log only
	NewSink(nil, nil).MutationApplied(context.Background(), toggled)
}
