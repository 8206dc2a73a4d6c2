package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jjudge-oj/accountsvc/types"
)

const attrEventType = "event_type"

// AccountEvents publishes and consumes account lifecycle events on one channel.
type AccountEvents struct {
	backend Backend
	channel string
}

// NewAccountEvents binds a backend to the named channel.
func NewAccountEvents(backend Backend, channel string) (*AccountEvents, error) {
	if backend == nil {
		return nil, errors.New("events backend is required")
	}
	if strings.TrimSpace(channel) == "" {
		return nil, errors.New("events channel is required")
	}
	return &AccountEvents{backend: backend, channel: channel}, nil
}

// Notify publishes event as JSON.
func (e *AccountEvents) Notify(ctx context.Context, event types.AccountEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode account event: %w", err)
	}
	attrs := map[string]string{attrEventType: string(event.Type)}
	if _, err := e.backend.Publish(ctx, e.channel, data, attrs); err != nil {
		return fmt.Errorf("publish account event: %w", err)
	}
	return nil
}

// Consume delivers decoded events to fn until ctx is done. Undecodable
// messages are acknowledged and skipped.
func (e *AccountEvents) Consume(ctx context.Context, fn func(ctx context.Context, event types.AccountEvent) error) error {
	return e.backend.Subscribe(ctx, e.channel, func(ctx context.Context, msg Message) error {
		var event types.AccountEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return nil
		}
		return fn(ctx, event)
	})
}

// Close closes the underlying backend.
func (e *AccountEvents) Close() error {
	return e.backend.Close()
}
