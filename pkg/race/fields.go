package race

import (
	"encoding/json"

	"github.com/pkg/errors"

	"lemansstrat/pkg/model"
)

// Document keys of a session in the store.
const (
	fieldDrivers          = "drivers"
	fieldActiveDriver     = "activeDriverId"
	fieldCurrentStint     = "currentStint"
	fieldStintAssignments = "stintAssignments"
	fieldStopNotes        = "stintNotes"
	fieldConfig           = "config"
	fieldTelemetry        = "telemetry"
	fieldRaceTime         = "raceTime"
	fieldIsRaceRunning    = "isRaceRunning"
	fieldStintDuration    = "stintDuration"
)

var allFields = []string{
	fieldDrivers, fieldActiveDriver, fieldCurrentStint, fieldStintAssignments, fieldStopNotes,
	fieldConfig, fieldTelemetry, fieldRaceTime, fieldIsRaceRunning, fieldStintDuration,
}

// toFields picks keys out of the JSON form of gs.
func toFields(gs model.GameState, keys ...string) (map[string]any, error) {
	data, err := json.Marshal(gs)
	if err != nil {
		return nil, errors.Wrap(err, "encoding game state")
	}
	all := map[string]any{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, errors.Wrap(err, "decoding game state")
	}
	fields := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := all[k]; ok {
			fields[k] = v
		}
	}
	return fields, nil
}

// NewGameState is the document a new session starts from.
func NewGameState(cfg model.RaceConfiguration) model.GameState {
	return model.GameState{
		Drivers:          []model.Driver{},
		StintAssignments: model.StintAssignments{},
		StopNotes:        model.StopNotes{},
		Config:           cfg,
		RaceTime:         cfg.RaceDurationSeconds,
	}
}
