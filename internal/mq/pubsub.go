package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/jjudge-oj/accountsvc/config"
	"google.golang.org/api/option"
)

// PubSubClient maps each channel to a topic of the same name and a
// "<channel><suffix>" subscription. Both are created on first use from either
// side, so events published before a consumer starts are retained.
type PubSubClient struct {
	client             *pubsub.Client
	subscriptionSuffix string

	mu       sync.Mutex
	channels map[string]pubsubChannel
}

type pubsubChannel struct {
	topic        *pubsub.Topic
	subscription *pubsub.Subscription
}

// NewPubSubClient constructs a Pub/Sub client from config.
func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig) (*PubSubClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	return &PubSubClient{
		client:             client,
		subscriptionSuffix: cfg.SubscriptionSuffix,
		channels:           make(map[string]pubsubChannel),
	}, nil
}

// Publish sends data to the channel's topic and waits for the server ack.
func (p *PubSubClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("pubsub channel is required")
	}

	ch, err := p.ensureChannel(ctx, channel)
	if err != nil {
		return "", err
	}
	id, err := ch.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", channel, err)
	}
	return id, nil
}

// Subscribe consumes the channel's subscription until ctx is done. Handler
// errors nack the message for redelivery.
func (p *PubSubClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("pubsub channel is required")
	}

	ch, err := p.ensureChannel(ctx, channel)
	if err != nil {
		return err
	}

	return ch.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		message := Message{
			ID:         msg.ID,
			Data:       msg.Data,
			Attributes: msg.Attributes,
		}
		if err := handler(ctx, message); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close flushes pending publishes and closes the client.
func (p *PubSubClient) Close() error {
	p.mu.Lock()
	for _, ch := range p.channels {
		ch.topic.Stop()
	}
	p.mu.Unlock()
	return p.client.Close()
}

func (p *PubSubClient) ensureChannel(ctx context.Context, channel string) (pubsubChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.channels[channel]; ok {
		return ch, nil
	}

	topic := p.client.Topic(channel)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return pubsubChannel{}, fmt.Errorf("check topic %s: %w", channel, err)
	}
	if !exists {
		if topic, err = p.client.CreateTopic(ctx, channel); err != nil {
			return pubsubChannel{}, fmt.Errorf("create topic %s: %w", channel, err)
		}
	}

	name := queueName(channel, p.subscriptionSuffix)
	sub := p.client.Subscription(name)
	exists, err = sub.Exists(ctx)
	if err != nil {
		topic.Stop()
		return pubsubChannel{}, fmt.Errorf("check subscription %s: %w", name, err)
	}
	if !exists {
		sub, err = p.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{Topic: topic})
		if err != nil {
			topic.Stop()
			return pubsubChannel{}, fmt.Errorf("create subscription %s: %w", name, err)
		}
	}

	ch := pubsubChannel{topic: topic, subscription: sub}
	p.channels[channel] = ch
	return ch, nil
}
