package strategy

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"lemansstrat/pkg/model"
)

// Roster and assignment edits. Each returns a new state and leaves gs untouched.

func AddDriver(gs model.GameState, name, color string) (model.GameState, model.Driver) {
	next := gs.Clone()
	d := model.Driver{ID: uuid.NewString(), Name: name, Color: color}
	next.Drivers = append(next.Drivers, d)
	if next.ActiveDriverID == "" {
		next.ActiveDriverID = d.ID
	}
	return next, d
}

func UpdateDriver(gs model.GameState, id, name, color string) (model.GameState, error) {
	i := indexOf(gs.Drivers, id)
	if i < 0 {
		return gs, errors.Wrapf(ErrUnknownDriver, "driver %s", id)
	}
	next := gs.Clone()
	if name != "" {
		next.Drivers[i].Name = name
	}
	if color != "" {
		next.Drivers[i].Color = color
	}
	return next, nil
}

// RemoveDriver drops a driver from the roster. Pending assignments of that
// driver are cleared; the ones recorded for finished stints stay.
func RemoveDriver(gs model.GameState, id string) (model.GameState, error) {
	i := indexOf(gs.Drivers, id)
	if i < 0 {
		return gs, errors.Wrapf(ErrUnknownDriver, "driver %s", id)
	}
	if len(gs.Drivers) == 1 {
		return gs, errors.WithStack(ErrLastDriver)
	}
	next := gs.Clone()
	if next.ActiveDriverID == id {
		next.ActiveDriverID = NextDriver(gs.Drivers, id).ID
	}
	next.Drivers = append(next.Drivers[:i], next.Drivers[i+1:]...)
	for stint, driverID := range next.StintAssignments {
		if driverID == id && stint >= gs.CurrentStint {
			delete(next.StintAssignments, stint)
		}
	}
	return next, nil
}

func AssignDriver(gs model.GameState, stint int, driverID string) (model.GameState, error) {
	if stint < 0 {
		return gs, errors.Wrapf(ErrInvalidStint, "stint %d", stint)
	}
	if indexOf(gs.Drivers, driverID) < 0 {
		return gs, errors.Wrapf(ErrUnknownDriver, "driver %s", driverID)
	}
	next := gs.Clone()
	next.StintAssignments[stint] = driverID
	return next, nil
}

func ClearAssignment(gs model.GameState, stint int) (model.GameState, error) {
	if stint < 0 {
		return gs, errors.Wrapf(ErrInvalidStint, "stint %d", stint)
	}
	next := gs.Clone()
	delete(next.StintAssignments, stint)
	return next, nil
}

// SetNote stores the note for a stop; an empty note removes it.
func SetNote(gs model.GameState, stop int, note string) (model.GameState, error) {
	if stop < 1 {
		return gs, errors.Wrapf(ErrInvalidStop, "stop %d", stop)
	}
	next := gs.Clone()
	if note == "" {
		delete(next.StopNotes, stop)
	} else {
		next.StopNotes[stop] = note
	}
	return next, nil
}
