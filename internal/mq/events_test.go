package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jjudge-oj/accountsvc/config"
	"github.com/jjudge-oj/accountsvc/types"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakeBackend struct {
	published  []published
	publishErr error
	inbox      []Message
	acked      int
	nacked     int
	closed     bool
}

func (f *fakeBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.published = append(f.published, published{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

func (f *fakeBackend) Subscribe(ctx context.Context, _ string, handler Handler) error {
	for _, msg := range f.inbox {
		if err := handler(ctx, msg); err != nil {
			f.nacked++
			continue
		}
		f.acked++
	}
	return nil
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func TestNewAccountEvents_Validation(t *testing.T) {
	_, err := NewAccountEvents(nil, "account-events")
	require.Error(t, err)

	_, err = NewAccountEvents(&fakeBackend{}, " ")
	require.Error(t, err)
}

func TestAccountEvents_Notify(t *testing.T) {
	backend := &fakeBackend{}
	events, err := NewAccountEvents(backend, "account-events")
	require.NoError(t, err)

	event := types.AccountEvent{
		Type:       types.AccountRegistered,
		AccountID:  uuid.New(),
		Email:      "u@test.local",
		OccurredAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, events.Notify(context.Background(), event))

	require.Len(t, backend.published, 1)
	got := backend.published[0]
	assert.Equal(t, "account-events", got.channel)
	assert.Equal(t, "account.registered", got.attrs["event_type"])

	var decoded types.AccountEvent
	require.NoError(t, json.Unmarshal(got.data, &decoded))
	assert.Equal(t, event, decoded)
}

func TestAccountEvents_NotifyError(t *testing.T) {
	backend := &fakeBackend{publishErr: errors.New("broker down")}
	events, err := NewAccountEvents(backend, "account-events")
	require.NoError(t, err)

	err = events.Notify(context.Background(), types.AccountEvent{Type: types.AccountPasswordReset})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestAccountEvents_Consume(t *testing.T) {
	event := types.AccountEvent{Type: types.AccountPasswordChanged, AccountID: uuid.New(), Email: "u@test.local"}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	backend := &fakeBackend{inbox: []Message{
		{ID: "1", Data: data},
		{ID: "2", Data: []byte("{not json")},
		{ID: "3", Data: data},
	}}
	events, err := NewAccountEvents(backend, "account-events")
	require.NoError(t, err)

	var seen []types.AccountEvent
	calls := 0
	err = events.Consume(context.Background(), func(_ context.Context, e types.AccountEvent) error {
		calls++
		if calls == 2 {
			return errors.New("retry later")
		}
		seen = append(seen, e)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, event.AccountID, seen[0].AccountID)
	assert.Equal(t, 2, backend.acked)
	assert.Equal(t, 1, backend.nacked)

	require.NoError(t, events.Close())
	assert.True(t, backend.closed)
}

func TestOpen_Backends(t *testing.T) {
	backend, err := Open(context.Background(), config.Config{Events: config.EventsConfig{Backend: "none"}})
	require.NoError(t, err)
	assert.Nil(t, backend)

	_, err = Open(context.Background(), config.Config{Events: config.EventsConfig{Backend: "kafka"}})
	require.Error(t, err)

	_, err = Open(context.Background(), config.Config{Events: config.EventsConfig{Backend: "rabbitmq"}})
	require.Error(t, err)

	_, err = Open(context.Background(), config.Config{Events: config.EventsConfig{Backend: "pubsub"}})
	require.Error(t, err)
}

func TestHeadersToAttributes(t *testing.T) {
	assert.Nil(t, headersToAttributes(nil))

	attrs := headersToAttributes(amqp.Table{
		"event_type": "account.registered",
		"raw":        []byte("bytes"),
		"count":      int32(3),
	})
	assert.Equal(t, map[string]string{
		"event_type": "account.registered",
		"raw":        "bytes",
		"count":      "3",
	}, attrs)
}

func TestQueueName(t *testing.T) {
	assert.Equal(t, "account-events", queueName("account-events", ""))
	assert.Equal(t, "account-events.subscriber", queueName("account-events", ".subscriber"))
	assert.Equal(t, "account-events-sub", queueName("account-events", "-sub"))
}
