package docstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lemansstrat/pkg/caster"
	"lemansstrat/pkg/model"
)

const waitFor = 2 * time.Second

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case body, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return body
	case <-time.After(waitFor):
		require.FailNow(t, "no document received")
		return ""
	}
}

func TestMerge(t *testing.T) {
	body, err := Merge("", map[string]any{"currentStint": 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"currentStint":2}`, body)

	body, err = Merge(body, map[string]any{"isRaceRunning": true, "currentStint": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"currentStint":3,"isRaceRunning":true}`, body)

	_, err = Merge("{", nil)
	assert.Error(t, err)
}

func TestMerge_TypedFieldsDecodeIntoGameState(t *testing.T) {
	body, err := Merge("", map[string]any{
		"stintAssignments": model.StintAssignments{2: "b"},
		"stintNotes":       model.StopNotes{1: "tyres"},
		"drivers":          []model.Driver{{ID: "b", Name: "Bob"}},
	})
	require.NoError(t, err)

	gs, err := caster.JSONChannelCaster[model.GameState]{}.From(body)
	require.NoError(t, err)
	assert.Equal(t, "b", gs.StintAssignments[2])
	assert.Equal(t, "tyres", gs.StopNotes[1])
	assert.Equal(t, "Bob", gs.Drivers[0].Name)
}

func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "nope")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("update merges", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Update(ctx, "car-7", map[string]any{"currentStint": 1, "isRaceRunning": true}))
		require.NoError(t, s.Update(ctx, "car-7", map[string]any{"currentStint": 2}))

		body, err := s.Get(ctx, "car-7")
		require.NoError(t, err)
		assert.JSONEq(t, `{"currentStint":2,"isRaceRunning":true}`, body)
	})

	t.Run("subscribe gets current then changes", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Update(ctx, "car-8", map[string]any{"currentStint": 0}))

		sctx, cancel := context.WithCancel(ctx)
		defer cancel()
		ch, err := s.Subscribe(sctx, "car-8")
		require.NoError(t, err)
		assert.JSONEq(t, `{"currentStint":0}`, receive(t, ch))

		require.NoError(t, s.Update(ctx, "car-8", map[string]any{"currentStint": 1}))
		assert.JSONEq(t, `{"currentStint":1}`, receive(t, ch))

		cancel()
		require.Eventually(t, func() bool {
			_, ok := <-ch
			return !ok
		}, waitFor, 10*time.Millisecond)
	})

	t.Run("closed", func(t *testing.T) {
		s := newStore(t)
		ch, err := s.Subscribe(ctx, "car-9")
		require.NoError(t, err)
		require.NoError(t, s.Close())

		_, err = s.Get(ctx, "car-9")
		assert.True(t, errors.Is(err, ErrClosed))
		assert.True(t, errors.Is(s.Update(ctx, "car-9", nil), ErrClosed))
		require.Eventually(t, func() bool {
			_, ok := <-ch
			return !ok
		}, waitFor, 10*time.Millisecond)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s := NewMemoryStore()
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "docs.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docs.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, "car-7", map[string]any{"currentStint": 4}))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	body, err := s.Get(ctx, "car-7")
	require.NoError(t, err)
	assert.JSONEq(t, `{"currentStint":4}`, body)
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, time.Millisecond, 2*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = retryWithBackoff(ctx, func() error { return errors.New("never") }, time.Hour, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
