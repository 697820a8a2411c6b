package docstore

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"lemansstrat/pkg/pubsub"
)

// SQLiteStore persists documents in a single table and fans changes out to
// subscribers of this process.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	ps     *pubsub.PubSub[string]
	done   chan struct{}
	closed bool
	now    func() time.Time
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "connecting to database")
	}
	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(buildCreateDocumentsTable()); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init database")
	}
	log.Debug().Str("path", path).Msg("sqlite store opened")

	return &SQLiteStore{
		db:   db,
		ps:   pubsub.NewPubSub[string](),
		done: make(chan struct{}),
		now:  time.Now,
	}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "executing %q", pragma)
		}
	}
	return nil
}

func (s *SQLiteStore) get(ctx context.Context, id string) (string, bool, error) {
	query, args, read := buildSelectDocumentCommand(id)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return "", false, errors.Wrapf(err, "reading document %s", id)
	}
	return read(rows)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", errors.WithStack(ErrClosed)
	}
	body, ok, err := s.get(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "document %s", id)
	}
	return body, nil
}

func (s *SQLiteStore) Subscribe(ctx context.Context, id string) (<-chan string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.WithStack(ErrClosed)
	}
	in, cancel := s.ps.Subscribe(pubsub.PubSubDocPreffix + id)
	body, ok, err := s.get(ctx, id)
	if err != nil {
		cancel()
		return nil, err
	}
	return follow(ctx, s.done, body, ok, in, cancel), nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.WithStack(ErrClosed)
	}
	current, _, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	body, err := Merge(current, fields)
	if err != nil {
		return errors.Wrapf(err, "document %s", id)
	}
	stmt, args := buildUpsertDocumentCommand(id, body, s.now())
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrapf(err, "writing document %s", id)
	}
	s.ps.Publish(pubsub.PubSubDocPreffix+id, body)
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return s.db.Close()
}
