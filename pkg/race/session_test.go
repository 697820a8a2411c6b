package race

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lemansstrat/pkg/caster"
	"lemansstrat/pkg/docstore"
	"lemansstrat/pkg/model"
	"lemansstrat/pkg/pubsub"
	"lemansstrat/pkg/strategy"
)

var testConfig = model.RaceConfiguration{
	FuelConsumptionPerLap: 3.5,
	TankCapacity:          100,
	RaceDurationSeconds:   3600,
	DefaultLapTimeSeconds: 100,
}

func newTestSession(t *testing.T) (*Session, *docstore.MemoryStore, *pubsub.PubSub[model.PlanUpdate]) {
	t.Helper()
	store := docstore.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	ps := pubsub.NewPubSub[model.PlanUpdate]()
	s := NewSession("car-7", store, strategy.New(), ps)
	s.ApplySnapshot(NewGameState(testConfig))
	return s, store, ps
}

func storedState(t *testing.T, store docstore.Store, id string) model.GameState {
	t.Helper()
	body, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	gs, err := caster.JSONChannelCaster[model.GameState]{}.From(body)
	require.NoError(t, err)
	return gs
}

func TestSession_EmptyRosterHasNoPlan(t *testing.T) {
	s, _, _ := newTestSession(t)

	_, err := s.Plan()
	var cfgErr *strategy.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestSession_EditsRecomputeAndPersist(t *testing.T) {
	ctx := context.Background()
	s, store, ps := newTestSession(t)
	updates, cancel := ps.Subscribe(pubsub.PubSubPlanPreffix + "car-7")
	defer cancel()

	alice, err := s.AddDriver(ctx, "Alice", "#ff0000")
	require.NoError(t, err)
	bob, err := s.AddDriver(ctx, "Bob", "#0000ff")
	require.NoError(t, err)

	plan, err := s.Plan()
	require.NoError(t, err)
	require.NotEmpty(t, plan.Stints)
	assert.Equal(t, alice.ID, plan.Stints[0].Driver.ID)

	select {
	case u := <-updates:
		assert.Equal(t, "car-7", u.SessionID)
		assert.Empty(t, u.Err)
	case <-time.After(time.Second):
		require.FailNow(t, "no plan update published")
	}

	gs, err := s.ConfirmPit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, gs.CurrentStint)
	assert.Equal(t, bob.ID, gs.ActiveDriverID)

	stored := storedState(t, store, "car-7")
	assert.Equal(t, 1, stored.CurrentStint)
	assert.Equal(t, bob.ID, stored.ActiveDriverID)
	assert.Equal(t, alice.ID, stored.StintAssignments[0])
	assert.Len(t, stored.Drivers, 2)

	_, err = s.SetNote(ctx, 3, "fresh tyres")
	require.NoError(t, err)
	plan, _ = s.Plan()
	next, ok := plan.NextStint()
	require.True(t, ok)
	assert.Equal(t, "fresh tyres", next.Note)
	assert.Equal(t, "fresh tyres", storedState(t, store, "car-7").StopNotes[3])
}

func TestSession_FailedEditLeavesState(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSession(t)

	_, err := s.UndoPit(ctx)
	assert.True(t, errors.Is(err, strategy.ErrNothingToUndo))

	_, err = s.AssignDriver(ctx, 1, "ghost")
	assert.True(t, errors.Is(err, strategy.ErrUnknownDriver))
	assert.Empty(t, s.State().StintAssignments)
}

func TestSession_Tick(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestSession(t)

	require.NoError(t, s.Tick(ctx, time.Second))
	assert.Equal(t, 3600.0, s.State().RaceTime, "stopped clock does not move")

	_, err := s.SetRaceRunning(ctx, true)
	require.NoError(t, err)
	require.NoError(t, s.Tick(ctx, 2*time.Second))

	gs := s.State()
	assert.Equal(t, 3598.0, gs.RaceTime)
	assert.Equal(t, 2.0, gs.StintDuration)
	assert.Equal(t, 3598.0, storedState(t, store, "car-7").RaceTime)

	require.NoError(t, s.Tick(ctx, 2*time.Hour))
	gs = s.State()
	assert.Zero(t, gs.RaceTime)
	assert.False(t, gs.IsRaceRunning)

	gs, err = s.SetRaceRunning(ctx, true)
	require.NoError(t, err)
	assert.False(t, gs.IsRaceRunning, "no time left")
}

func TestSession_LateEchoDoesNotRewindClock(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSession(t)
	apply := func(gs model.GameState) {
		t.Helper()
		body, err := json.Marshal(gs)
		require.NoError(t, err)
		require.NoError(t, s.applyDocument(string(body)))
	}

	_, err := s.SetRaceRunning(ctx, true)
	require.NoError(t, err)
	echo := s.State()
	require.NoError(t, s.Tick(ctx, time.Second))
	echo.RaceTime, echo.StintDuration = 3599, 1
	require.NoError(t, s.Tick(ctx, time.Second))

	echo.Telemetry.CurrentLap = 5
	apply(echo)
	gs := s.State()
	assert.Equal(t, 3598.0, gs.RaceTime)
	assert.Equal(t, 2.0, gs.StintDuration)
	assert.Equal(t, 5, gs.Telemetry.CurrentLap)

	echo.RaceTime = 7200
	apply(echo)
	assert.Equal(t, 7200.0, s.State().RaceTime, "a reset is not an echo")

	echo.CurrentStint, echo.StintDuration = 1, 0
	apply(echo)
	assert.Zero(t, s.State().StintDuration, "a new stint restarts its clock")

	echo.IsRaceRunning, echo.RaceTime = false, 7300
	apply(echo)
	assert.Equal(t, 7300.0, s.State().RaceTime)
}

func TestSession_RunAppliesStoreSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, store, _ := newTestSession(t)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	tel := model.LiveTelemetrySnapshot{CurrentLap: 12, FuelRemaining: 40}
	require.NoError(t, store.Update(context.Background(), "car-7", map[string]any{
		"drivers":   []model.Driver{{ID: "a", Name: "Alice"}},
		"telemetry": tel,
	}))

	require.Eventually(t, func() bool {
		return s.State().Telemetry.CurrentLap == 12
	}, 2*time.Second, 10*time.Millisecond)
	plan, err := s.Plan()
	require.NoError(t, err)
	current, ok := plan.CurrentStint()
	require.True(t, ok)
	assert.Equal(t, "a", current.Driver.ID)
	assert.GreaterOrEqual(t, current.EndLap, 12)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "Run did not stop")
	}
}

func TestSession_RunStopsWhenStoreCloses(t *testing.T) {
	s, store, _ := newTestSession(t)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	require.NoError(t, store.Close())

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, docstore.ErrClosed))
	case <-time.After(2 * time.Second):
		require.FailNow(t, "Run did not stop")
	}
}
