package model

import "fmt"

type Driver struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

type RaceConfiguration struct {
	FuelConsumptionPerLap   float64 `json:"fuelCons" yaml:"fuelCons"`
	EnergyConsumptionPerLap float64 `json:"veCons" yaml:"veCons"`
	TankCapacity            float64 `json:"tankCapacity" yaml:"tankCapacity"`
	UsesVirtualEnergy       bool    `json:"isHypercar" yaml:"isHypercar"`
	RaceDurationSeconds     float64 `json:"raceDuration" yaml:"raceDuration"`
	DefaultLapTimeSeconds   float64 `json:"defaultLapTime" yaml:"defaultLapTime"`
}

// LiveTelemetrySnapshot is the decoded live feed of the team car. Any value
// <= 0 means the reading is not available yet.
type LiveTelemetrySnapshot struct {
	CurrentLap                  int     `json:"curLap" yaml:"curLap"`
	AverageLapTimeSeconds       float64 `json:"avgLapTime" yaml:"avgLapTime"`
	LastThreeLapsAverageSeconds float64 `json:"last3LapAvg" yaml:"last3LapAvg"`
	FuelRemaining               float64 `json:"fuelRemaining" yaml:"fuelRemaining"`
	TankCapacityObserved        float64 `json:"fuelTankCapacity" yaml:"fuelTankCapacity"`
	FuelAverageConsumption      float64 `json:"fuelAvgCons" yaml:"fuelAvgCons"`
	EnergyRemaining             float64 `json:"veRemaining" yaml:"veRemaining"`
	EnergyAverageConsumption    float64 `json:"veAvgCons" yaml:"veAvgCons"`
}

type RaceClock struct {
	TimeRemainingSeconds float64 `json:"timeRemaining"`
	IsRunning            bool    `json:"isRunning"`
}

// StintAssignments maps a stint index to the driver id manually put in that stint.
type StintAssignments map[int]string

// StopNotes maps a stop number (stint index + 1) to a free text note.
type StopNotes map[int]string

type GameState struct {
	Drivers          []Driver              `json:"drivers" yaml:"drivers"`
	ActiveDriverID   string                `json:"activeDriverId" yaml:"activeDriverId"`
	CurrentStint     int                   `json:"currentStint" yaml:"currentStint"`
	StintAssignments StintAssignments      `json:"stintAssignments" yaml:"stintAssignments"`
	StopNotes        StopNotes             `json:"stintNotes" yaml:"stintNotes"`
	Config           RaceConfiguration     `json:"config" yaml:"config"`
	Telemetry        LiveTelemetrySnapshot `json:"telemetry" yaml:"telemetry"`
	RaceTime         float64               `json:"raceTime" yaml:"raceTime"`
	IsRaceRunning    bool                  `json:"isRaceRunning" yaml:"isRaceRunning"`
	StintDuration    float64               `json:"stintDuration" yaml:"stintDuration"` // seconds in current stint
}

func (gs GameState) Clock() RaceClock {
	return RaceClock{
		TimeRemainingSeconds: gs.RaceTime,
		IsRunning:            gs.IsRaceRunning,
	}
}

func (gs GameState) DriverByID(id string) (Driver, bool) {
	for _, d := range gs.Drivers {
		if d.ID == id {
			return d, true
		}
	}
	return Driver{}, false
}

// Clone returns a copy that shares no maps or slices with gs.
func (gs GameState) Clone() GameState {
	c := gs
	c.Drivers = append([]Driver(nil), gs.Drivers...)
	c.StintAssignments = make(StintAssignments, len(gs.StintAssignments))
	for k, v := range gs.StintAssignments {
		c.StintAssignments[k] = v
	}
	c.StopNotes = make(StopNotes, len(gs.StopNotes))
	for k, v := range gs.StopNotes {
		c.StopNotes[k] = v
	}
	return c
}

type Stint struct {
	Index                    int      `json:"id"`
	StopNumber               int      `json:"stopNum"`
	StartLap                 int      `json:"startLap"`
	EndLap                   int      `json:"endLap"`
	LapsCount                int      `json:"lapsCount"`
	Driver                   Driver   `json:"driver"`
	FuelPlan                 FuelPlan `json:"fuel"`
	IsCurrent                bool     `json:"isCurrent"`
	IsNext                   bool     `json:"isNext"`
	IsDone                   bool     `json:"isDone"`
	IsFinal                  bool     `json:"isFinal"`
	Note                     string   `json:"note"`
	EstimatedDurationSeconds float64  `json:"duration"`
}

type PitWindow struct {
	Known          bool    `json:"known"`
	LapsLeftInTank float64 `json:"lapsLeftInTank"`
	BoxLap         int     `json:"boxLap"` // last lap the car can safely box on
}

type Plan struct {
	Stints                []Stint   `json:"stints"`
	TotalLapsProjected    int       `json:"totalLaps"`
	LapsPerStint          int       `json:"lapsPerStint"`
	ActiveConsumptionRate float64   `json:"activeCons"`
	ActiveLapTimeSeconds  float64   `json:"activeLapTime"`
	PitStopsRemaining     int       `json:"pitStopsRemaining"`
	Truncated             bool      `json:"truncated"` // stint cap hit before race end
	PitWindow             PitWindow `json:"pitWindow"`
}

func (p Plan) CurrentStint() (Stint, bool) {
	for _, s := range p.Stints {
		if s.IsCurrent {
			return s, true
		}
	}
	return Stint{}, false
}

func (p Plan) NextStint() (Stint, bool) {
	for _, s := range p.Stints {
		if s.IsNext {
			return s, true
		}
	}
	return Stint{}, false
}

type PlanUpdate struct {
	SessionID string `json:"sessionId"`
	Plan      Plan   `json:"plan"`
	Err       string `json:"error,omitempty"`
}

func (pu PlanUpdate) String() string {
	if pu.Err != "" {
		return fmt.Sprintf("%s: %s", pu.SessionID, pu.Err)
	}
	return fmt.Sprintf("%s: %d stints, %d stops remaining", pu.SessionID, len(pu.Plan.Stints), pu.Plan.PitStopsRemaining)
}
