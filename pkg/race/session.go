package race

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"lemansstrat/pkg/caster"
	"lemansstrat/pkg/docstore"
	"lemansstrat/pkg/model"
	"lemansstrat/pkg/pubsub"
	"lemansstrat/pkg/strategy"
)

const (
	DefaultTickInterval = time.Second

	// a store document whose clock trails the local one by at most this much
	// is taken as a late echo of an earlier tick
	echoWindow = 5 * time.Second
)

// Session holds the game state of one car and its latest plan. Every change
// recomputes the plan and publishes it; local edits are also written back to
// the store.
type Session struct {
	id     string
	store  docstore.Store
	engine *strategy.Engine
	ps     *pubsub.PubSub[model.PlanUpdate]
	caster caster.ChannelCaster[model.GameState]

	tickInterval time.Duration

	mu      sync.RWMutex
	state   model.GameState
	plan    model.Plan
	planErr error
}

func NewSession(id string, store docstore.Store, engine *strategy.Engine, ps *pubsub.PubSub[model.PlanUpdate]) *Session {
	return &Session{
		id:           id,
		store:        store,
		engine:       engine,
		ps:           ps,
		caster:       caster.JSONChannelCaster[model.GameState]{},
		tickInterval: DefaultTickInterval,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() model.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Plan returns the latest plan, or the error the last computation failed with.
func (s *Session) Plan() (model.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan, s.planErr
}

// ApplySnapshot replaces the whole state, typically with a document pushed
// by the store.
func (s *Session) ApplySnapshot(gs model.GameState) (model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = gs.Clone()
	return s.recomputeLocked()
}

// applyDocument applies a store document. While the race is running, a
// document carrying an older clock does not rewind the local one.
func (s *Session) applyDocument(body string) error {
	gs, err := s.caster.From(body)
	if err != nil {
		return errors.Wrapf(err, "session %s", s.id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keepClock(&gs, s.state)
	s.state = gs.Clone()
	s.recomputeLocked()
	return nil
}

func keepClock(incoming *model.GameState, local model.GameState) {
	if !local.IsRaceRunning || !incoming.IsRaceRunning {
		return
	}
	window := echoWindow.Seconds()
	if d := incoming.RaceTime - local.RaceTime; d > 0 && d <= window {
		incoming.RaceTime = local.RaceTime
	}
	if incoming.CurrentStint != local.CurrentStint {
		return
	}
	if d := local.StintDuration - incoming.StintDuration; d > 0 && d <= window {
		incoming.StintDuration = local.StintDuration
	}
}

func (s *Session) recomputeLocked() (model.Plan, error) {
	plan, err := s.engine.Compute(strategy.InputFromGameState(s.state))
	s.plan, s.planErr = plan, err

	update := model.PlanUpdate{SessionID: s.id, Plan: plan}
	if err != nil {
		update.Err = err.Error()
		log.Debug().Err(err).Str("session", s.id).Msg("plan not computed")
	} else if plan.Truncated {
		log.Warn().Str("session", s.id).Int("stints", len(plan.Stints)).Msg("plan truncated at stint cap")
	}
	s.ps.Publish(pubsub.PubSubPlanPreffix+s.id, update)
	s.ps.Publish(pubsub.PubSubAllPlans, update)
	return plan, err
}

// edit applies f to a copy of the state, recomputes and writes the listed
// keys back to the store.
func (s *Session) edit(ctx context.Context, f func(model.GameState) (model.GameState, error), keys ...string) (model.GameState, error) {
	s.mu.Lock()
	next, err := f(s.state.Clone())
	if err != nil {
		s.mu.Unlock()
		return model.GameState{}, err
	}
	s.state = next
	s.recomputeLocked()
	s.mu.Unlock()

	fields, err := toFields(next, keys...)
	if err != nil {
		return next, err
	}
	if err := s.store.Update(ctx, s.id, fields); err != nil {
		return next, errors.Wrapf(err, "persisting session %s", s.id)
	}
	return next, nil
}

// Tick advances the race clock by elapsed when the race is running. The
// clock stops once no time is left.
func (s *Session) Tick(ctx context.Context, elapsed time.Duration) error {
	s.mu.RLock()
	running := s.state.IsRaceRunning
	s.mu.RUnlock()
	if !running {
		return nil
	}

	_, err := s.edit(ctx, func(gs model.GameState) (model.GameState, error) {
		if !gs.IsRaceRunning {
			return gs, nil
		}
		sec := elapsed.Seconds()
		gs.RaceTime = math.Max(0, gs.RaceTime-sec)
		gs.StintDuration += sec
		if gs.RaceTime == 0 {
			gs.IsRaceRunning = false
			log.Info().Str("session", s.id).Msg("race clock expired")
		}
		return gs, nil
	}, fieldRaceTime, fieldStintDuration, fieldIsRaceRunning)
	return err
}

// Run follows the session document and drives the race clock until ctx ends
// or the store closes the subscription.
func (s *Session) Run(ctx context.Context) error {
	docs, err := s.store.Subscribe(ctx, s.id)
	if err != nil {
		return errors.Wrapf(err, "subscribing to session %s", s.id)
	}

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case body, ok := <-docs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.Wrapf(docstore.ErrClosed, "session %s", s.id)
			}
			if err := s.applyDocument(body); err != nil {
				log.Error().Err(err).Str("session", s.id).Msg("bad session document")
			}
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			if err := s.Tick(ctx, elapsed); err != nil {
				log.Warn().Err(err).Str("session", s.id).Msg("race clock not persisted")
			}
		}
	}
}

func (s *Session) ConfirmPit(ctx context.Context) (model.GameState, error) {
	next, err := s.edit(ctx, strategy.ConfirmPitStop,
		fieldCurrentStint, fieldActiveDriver, fieldStintAssignments, fieldStintDuration)
	if err == nil {
		log.Info().Str("session", s.id).Int("stint", next.CurrentStint).Str("driver", next.ActiveDriverID).Msg("pit stop confirmed")
	}
	return next, err
}

func (s *Session) UndoPit(ctx context.Context) (model.GameState, error) {
	next, err := s.edit(ctx, strategy.UndoPitStop, fieldCurrentStint, fieldActiveDriver)
	if err == nil {
		log.Info().Str("session", s.id).Int("stint", next.CurrentStint).Msg("pit stop undone")
	}
	return next, err
}

func (s *Session) AssignDriver(ctx context.Context, stint int, driverID string) (model.GameState, error) {
	return s.edit(ctx, func(gs model.GameState) (model.GameState, error) {
		return strategy.AssignDriver(gs, stint, driverID)
	}, fieldStintAssignments)
}

func (s *Session) ClearAssignment(ctx context.Context, stint int) (model.GameState, error) {
	return s.edit(ctx, func(gs model.GameState) (model.GameState, error) {
		return strategy.ClearAssignment(gs, stint)
	}, fieldStintAssignments)
}

func (s *Session) SetNote(ctx context.Context, stop int, note string) (model.GameState, error) {
	return s.edit(ctx, func(gs model.GameState) (model.GameState, error) {
		return strategy.SetNote(gs, stop, note)
	}, fieldStopNotes)
}

func (s *Session) AddDriver(ctx context.Context, name, color string) (model.Driver, error) {
	var added model.Driver
	_, err := s.edit(ctx, func(gs model.GameState) (model.GameState, error) {
		var next model.GameState
		next, added = strategy.AddDriver(gs, name, color)
		return next, nil
	}, fieldDrivers, fieldActiveDriver)
	return added, err
}

func (s *Session) UpdateDriver(ctx context.Context, id, name, color string) (model.GameState, error) {
	return s.edit(ctx, func(gs model.GameState) (model.GameState, error) {
		return strategy.UpdateDriver(gs, id, name, color)
	}, fieldDrivers)
}

func (s *Session) RemoveDriver(ctx context.Context, id string) (model.GameState, error) {
	return s.edit(ctx, func(gs model.GameState) (model.GameState, error) {
		return strategy.RemoveDriver(gs, id)
	}, fieldDrivers, fieldActiveDriver, fieldStintAssignments)
}

func (s *Session) SetRaceRunning(ctx context.Context, running bool) (model.GameState, error) {
	return s.edit(ctx, func(gs model.GameState) (model.GameState, error) {
		gs.IsRaceRunning = running && gs.RaceTime > 0
		return gs, nil
	}, fieldIsRaceRunning)
}

func (s *Session) UpdateTelemetry(ctx context.Context, tel model.LiveTelemetrySnapshot) (model.GameState, error) {
	return s.edit(ctx, func(gs model.GameState) (model.GameState, error) {
		gs.Telemetry = tel
		return gs, nil
	}, fieldTelemetry)
}

func (s *Session) UpdateConfig(ctx context.Context, cfg model.RaceConfiguration) (model.GameState, error) {
	return s.edit(ctx, func(gs model.GameState) (model.GameState, error) {
		gs.Config = cfg
		return gs, nil
	}, fieldConfig)
}
