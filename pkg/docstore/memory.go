package docstore

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"lemansstrat/pkg/pubsub"
)

type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]string
	ps     *pubsub.PubSub[string]
	done   chan struct{}
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]string),
		ps:   pubsub.NewPubSub[string](),
		done: make(chan struct{}),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", errors.WithStack(ErrClosed)
	}
	body, ok := s.docs[id]
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "document %s", id)
	}
	return body, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, id string) (<-chan string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.WithStack(ErrClosed)
	}
	in, cancel := s.ps.Subscribe(pubsub.PubSubDocPreffix + id)
	body, ok := s.docs[id]
	return follow(ctx, s.done, body, ok, in, cancel), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.WithStack(ErrClosed)
	}
	body, err := Merge(s.docs[id], fields)
	if err != nil {
		return errors.Wrapf(err, "document %s", id)
	}
	s.docs[id] = body
	s.ps.Publish(pubsub.PubSubDocPreffix+id, body)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}
