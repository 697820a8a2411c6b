package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"lemansstrat/pkg/pubsub"
	"lemansstrat/pkg/queues"
)

const (
	outboxLimit       = 256
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 15 * time.Second
)

// WebSocketStore is a client of a Hub. It keeps the last snapshot of every
// document it follows, redials when the connection drops and queues updates
// made while offline.
type WebSocketStore struct {
	url    string
	dialer *websocket.Dialer

	minBackoff time.Duration
	maxBackoff time.Duration

	mu         sync.Mutex
	writeMu    sync.Mutex
	conn       *websocket.Conn
	outbox     *queues.Queue[Message]
	cache      map[string]string
	missing    map[string]bool
	waiters    map[string][]chan struct{}
	subscribed map[string]bool
	closed     bool

	ps     *pubsub.PubSub[string]
	done   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type WebSocketOption func(*WebSocketStore)

func WithBackoff(minWait, maxWait time.Duration) WebSocketOption {
	return func(s *WebSocketStore) {
		s.minBackoff = minWait
		s.maxBackoff = maxWait
	}
}

// NewWebSocketStore starts connecting to the hub at url in the background.
func NewWebSocketStore(url string, opts ...WebSocketOption) *WebSocketStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &WebSocketStore{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  10 * time.Second,
			EnableCompression: true,
		},
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
		outbox:     queues.NewQueue[Message](outboxLimit),
		cache:      make(map[string]string),
		missing:    make(map[string]bool),
		waiters:    make(map[string][]chan struct{}),
		subscribed: make(map[string]bool),
		ps:         pubsub.NewPubSub[string](),
		done:       make(chan struct{}),
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.wg.Add(1)
	go s.run(ctx)
	return s
}

func (s *WebSocketStore) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		connect := func() error { return s.connect(ctx) }
		if err := retryWithBackoff(ctx, connect, s.minBackoff, s.maxBackoff); err != nil {
			return
		}
		err := s.read()
		s.dropConn()
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Str("url", s.url).Msg("doc hub connection lost")
	}
}

func (s *WebSocketStore) connect(ctx context.Context) error {
	c, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		log.Debug().Err(err).Str("url", s.url).Msg("doc hub dial failed")
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.Close()
		return nil
	}
	s.conn = c
	pending := []Message{}
	for doc := range s.subscribed {
		pending = append(pending, Message{MessageType: mtSubscribe, Doc: doc})
	}
	for !s.outbox.IsEmpty() {
		pending = append(pending, s.outbox.Pop())
	}
	s.mu.Unlock()

	log.Info().Str("url", s.url).Msg("connected to doc hub")
	for _, m := range pending {
		s.send(m)
	}
	return nil
}

func (s *WebSocketStore) read() error {
	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()
	if c == nil {
		return ErrClosed
	}
	for {
		var m Message
		if err := c.ReadJSON(&m); err != nil {
			return err
		}
		s.dispatch(m)
	}
}

func (s *WebSocketStore) dispatch(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch m.MessageType {
	case mtSnapshot:
		s.cache[m.Doc] = m.Body
		delete(s.missing, m.Doc)
		s.ps.Publish(pubsub.PubSubDocPreffix+m.Doc, m.Body)
	case mtMissing:
		s.missing[m.Doc] = true
	default:
		return
	}
	for _, w := range s.waiters[m.Doc] {
		close(w)
	}
	delete(s.waiters, m.Doc)
}

func (s *WebSocketStore) dropConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// send writes m, or queues updates while there is no connection.
func (s *WebSocketStore) send(m Message) {
	s.mu.Lock()
	c := s.conn
	if c == nil {
		if m.MessageType == mtUpdate && s.outbox.Push(m) {
			log.Warn().Str("doc", m.Doc).Msg("doc hub outbox full, dropped oldest update")
		}
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.writeMu.Lock()
	err := c.WriteJSON(m)
	s.writeMu.Unlock()
	if err != nil {
		log.Warn().Err(err).Str("doc", m.Doc).Msg("doc hub write failed")
		s.mu.Lock()
		if m.MessageType == mtUpdate {
			s.outbox.Push(m)
		}
		s.mu.Unlock()
		// the read loop sees the broken connection and redials
		c.Close()
	}
}

// followLocked marks doc as followed, subscribing on the hub the first time.
// Callers hold s.mu.
func (s *WebSocketStore) followLocked(doc string) bool {
	if s.subscribed[doc] {
		return false
	}
	s.subscribed[doc] = true
	return true
}

func (s *WebSocketStore) Get(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", errors.WithStack(ErrClosed)
	}
	if body, ok := s.cache[id]; ok {
		s.mu.Unlock()
		return body, nil
	}
	if s.missing[id] {
		s.mu.Unlock()
		return "", errors.Wrapf(ErrNotFound, "document %s", id)
	}
	w := make(chan struct{})
	s.waiters[id] = append(s.waiters[id], w)
	first := s.followLocked(id)
	s.mu.Unlock()

	if first {
		s.send(Message{MessageType: mtSubscribe, Doc: id})
	}

	select {
	case <-w:
	case <-ctx.Done():
		return "", errors.Wrapf(ctx.Err(), "waiting for document %s", id)
	case <-s.done:
		return "", errors.WithStack(ErrClosed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if body, ok := s.cache[id]; ok {
		return body, nil
	}
	return "", errors.Wrapf(ErrNotFound, "document %s", id)
}

func (s *WebSocketStore) Subscribe(ctx context.Context, id string) (<-chan string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.WithStack(ErrClosed)
	}
	in, cancel := s.ps.Subscribe(pubsub.PubSubDocPreffix + id)
	body, ok := s.cache[id]
	first := s.followLocked(id)
	s.mu.Unlock()

	if first {
		s.send(Message{MessageType: mtSubscribe, Doc: id})
	}
	return follow(ctx, s.done, body, ok, in, cancel), nil
}

// Update merges fields into the cached copy right away and forwards them to
// the hub, which echoes the merged document to every follower.
func (s *WebSocketStore) Update(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.WithStack(ErrClosed)
	}
	if body, ok := s.cache[id]; ok {
		merged, err := Merge(body, fields)
		if err != nil {
			s.mu.Unlock()
			return errors.Wrapf(err, "document %s", id)
		}
		s.cache[id] = merged
	}
	s.mu.Unlock()

	s.send(Message{MessageType: mtUpdate, Doc: id, Fields: fields})
	return nil
}

func (s *WebSocketStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.cancel()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}
