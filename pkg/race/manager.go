package race

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"lemansstrat/pkg/docstore"
	"lemansstrat/pkg/model"
	"lemansstrat/pkg/pubsub"
	"lemansstrat/pkg/strategy"
)

// running is a map entry for a session. ready is closed once the document
// has been loaded; until then session is nil.
type running struct {
	session *Session
	err     error
	ready   chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

func (r *running) loaded() bool {
	select {
	case <-r.ready:
		return r.err == nil
	default:
		return false
	}
}

type Manager struct {
	store    docstore.Store
	engine   *strategy.Engine
	ps       *pubsub.PubSub[model.PlanUpdate]
	defaults model.RaceConfiguration

	mu       sync.Mutex
	sessions map[string]*running
	closed   bool
}

func NewManager(store docstore.Store, engine *strategy.Engine, defaults model.RaceConfiguration) *Manager {
	return &Manager{
		store:    store,
		engine:   engine,
		ps:       pubsub.NewPubSub[model.PlanUpdate](),
		defaults: defaults,
		sessions: make(map[string]*running),
	}
}

func (m *Manager) PubSub() *pubsub.PubSub[model.PlanUpdate] {
	return m.ps
}

// Open returns the running session for id, creating its document with the
// default race configuration when the store does not have one. Store I/O runs
// outside the manager lock; concurrent calls for the same id wait for the
// first one.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.WithStack(docstore.ErrClosed)
	}
	if r, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		select {
		case <-r.ready:
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "waiting for session %s", id)
		}
		if r.err != nil {
			return nil, r.err
		}
		return r.session, nil
	}
	r := &running{ready: make(chan struct{}), done: make(chan struct{})}
	m.sessions[id] = r
	m.mu.Unlock()

	s, err := m.load(ctx, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil && m.closed {
		err = errors.WithStack(docstore.ErrClosed)
	}
	if err != nil {
		if m.sessions[id] == r {
			delete(m.sessions, id)
		}
		r.err = err
		close(r.ready)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.session, r.cancel = s, cancel
	close(r.ready)
	go func() {
		defer close(r.done)
		if err := s.Run(runCtx); err != nil {
			log.Error().Err(err).Str("session", id).Msg("session stopped")
		}
	}()
	return s, nil
}

func (m *Manager) load(ctx context.Context, id string) (*Session, error) {
	s := NewSession(id, m.store, m.engine, m.ps)
	body, err := m.store.Get(ctx, id)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		gs := NewGameState(m.defaults)
		fields, err := toFields(gs, allFields...)
		if err != nil {
			return nil, err
		}
		if err := m.store.Update(ctx, id, fields); err != nil {
			return nil, errors.Wrapf(err, "creating session %s", id)
		}
		s.ApplySnapshot(gs)
		log.Info().Str("session", id).Msg("session created")
	case err != nil:
		return nil, errors.Wrapf(err, "loading session %s", id)
	default:
		if err := s.applyDocument(body); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sessions[id]
	if !ok || !r.loaded() {
		return nil, false
	}
	return r.session, true
}

func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id, r := range m.sessions {
		if r.loaded() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Close stops every session and waits for them.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = map[string]*running{}
	m.mu.Unlock()

	for id, r := range sessions {
		if !r.loaded() {
			delete(sessions, id)
			continue
		}
		r.cancel()
	}
	for id, r := range sessions {
		<-r.done
		log.Debug().Str("session", id).Msg("session stopped")
	}
}
