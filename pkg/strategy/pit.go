package strategy

import (
	"github.com/pkg/errors"

	"lemansstrat/pkg/model"
)

// CurrentDriverID is the driver of the running stint, resolved the same way
// Compute does it.
func CurrentDriverID(gs model.GameState) string {
	if id, ok := assigned(gs.StintAssignments, gs.CurrentStint); ok {
		return id
	}
	if gs.ActiveDriverID != "" {
		return gs.ActiveDriverID
	}
	if len(gs.Drivers) == 0 {
		return ""
	}
	return RoundRobin(gs.Drivers, gs.CurrentStint).ID
}

// ConfirmPitStop closes the running stint: the finished driver is recorded
// against it, the stint index moves on and the next driver takes the car.
func ConfirmPitStop(gs model.GameState) (model.GameState, error) {
	if len(gs.Drivers) == 0 {
		return gs, errors.WithStack(ErrEmptyRoster)
	}
	next := gs.Clone()
	old := max(gs.CurrentStint, 0)
	finished := CurrentDriverID(gs)

	next.StintAssignments[old] = finished
	next.CurrentStint = old + 1
	next.ActiveDriverID = NextDriver(gs.Drivers, finished).ID
	if id, ok := assigned(gs.StintAssignments, old+1); ok {
		next.ActiveDriverID = id
	}
	next.StintDuration = 0
	return next, nil
}

// UndoPitStop reverts ConfirmPitStop. The assignment recorded for the
// restored stint is kept.
func UndoPitStop(gs model.GameState) (model.GameState, error) {
	if gs.CurrentStint <= 0 {
		return gs, errors.WithStack(ErrNothingToUndo)
	}
	next := gs.Clone()
	next.CurrentStint = gs.CurrentStint - 1
	if id, ok := assigned(gs.StintAssignments, next.CurrentStint); ok {
		next.ActiveDriverID = id
	}
	return next, nil
}
