package main

import (
	"context"
	"fmt"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/askservice/leadmarket-backend/pkg/outbox/registry"
)

type publisherSource interface {
	Publisher(name string) *gcppubsub.Publisher
}

// pubsubSender keeps one publisher per topic and waits for the server ack.
type pubsubSender struct {
	source publisherSource

	mu         sync.Mutex
	publishers map[string]*gcppubsub.Publisher
}

func newPubSubSender(source publisherSource) *pubsubSender {
	return &pubsubSender{source: source, publishers: map[string]*gcppubsub.Publisher{}}
}

func (s *pubsubSender) Send(ctx context.Context, topic string, msg *gcppubsub.Message) error {
	pub := s.publisher(topic)
	if pub == nil {
		return registry.Permanent(fmt.Errorf("publisher not configured for topic %s", topic))
	}
	if _, err := pub.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (s *pubsubSender) publisher(topic string) *gcppubsub.Publisher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pub, ok := s.publishers[topic]; ok {
		return pub
	}
	pub := s.source.Publisher(topic)
	if pub != nil {
		s.publishers[topic] = pub
	}
	return pub
}

// Stop flushes every cached publisher.
func (s *pubsubSender) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for topic, pub := range s.publishers {
		pub.Stop()
		delete(s.publishers, topic)
	}
}
