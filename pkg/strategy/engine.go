package strategy

import (
	"math"

	"github.com/pkg/errors"

	"lemansstrat/pkg/model"
)

const (
	DefaultMaxStints        = 200
	DefaultSafetyMarginLaps = 0.2

	NoteDone   = "Done"
	NoteBox    = "BOX"
	NoteFinish = "FINISH"

	// keeps float->int conversions defined for absurd clock values
	maxProjectedLaps = math.MaxInt32
)

type Input struct {
	Config            model.RaceConfiguration
	Roster            []model.Driver
	Telemetry         model.LiveTelemetrySnapshot
	Clock             model.RaceClock
	CurrentStintIndex int
	Assignments       model.StintAssignments
	Notes             model.StopNotes
	ActiveDriverID    string
}

func InputFromGameState(gs model.GameState) Input {
	return Input{
		Config:            gs.Config,
		Roster:            gs.Drivers,
		Telemetry:         gs.Telemetry,
		Clock:             gs.Clock(),
		CurrentStintIndex: gs.CurrentStint,
		Assignments:       gs.StintAssignments,
		Notes:             gs.StopNotes,
		ActiveDriverID:    gs.ActiveDriverID,
	}
}

type Option func(*Engine)

// WithMaxStints bounds how many future stints a single projection may generate.
func WithMaxStints(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxStints = n
		}
	}
}

// WithSafetyMarginLaps sets the fuel margin, in laps, kept when computing the pit window.
func WithSafetyMarginLaps(laps float64) Option {
	return func(e *Engine) {
		if laps >= 0 {
			e.safetyMarginLaps = laps
		}
	}
}

// Engine derives stint plans. It holds configuration only and is safe for
// concurrent use.
type Engine struct {
	maxStints        int
	safetyMarginLaps float64
}

func New(opts ...Option) *Engine {
	e := &Engine{
		maxStints:        DefaultMaxStints,
		safetyMarginLaps: DefaultSafetyMarginLaps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

func Compute(in Input) (model.Plan, error) {
	return defaultEngine.Compute(in)
}

func (e *Engine) Compute(in Input) (model.Plan, error) {
	roster := in.Roster
	if len(roster) == 0 {
		return model.Plan{}, errors.WithStack(ErrEmptyRoster)
	}

	eff := Resolve(in.Config, in.Telemetry)
	lps := eff.LapsPerStint
	currentLap := min(max(in.Telemetry.CurrentLap, 0), maxProjectedLaps)
	current := max(in.CurrentStintIndex, 0)
	// only the most recent completed stints are rebuilt
	firstPast := max(0, current-e.maxStints)

	remaining := in.Clock.TimeRemainingSeconds
	if math.IsNaN(remaining) || remaining < 0 {
		remaining = 0
	}
	lapsRemaining := int(math.Min(math.Ceil(remaining/eff.LapTime), maxProjectedLaps))
	if lapsRemaining < 1 {
		lapsRemaining = 1
	}
	total := currentLap + lapsRemaining

	plan := model.Plan{
		Stints:                make([]model.Stint, 0, current-firstPast+1+min(e.maxStints, lapsRemaining/lps+1)),
		TotalLapsProjected:    total,
		LapsPerStint:          lps,
		ActiveConsumptionRate: eff.ActiveRate(in.Config),
		ActiveLapTimeSeconds:  eff.LapTime,
		PitWindow:             e.pitWindow(in, eff, currentLap),
	}

	// Completed stints are not tracked lap by lap, so they are rebuilt from an
	// even split of the laps run so far. The last one always ends where the
	// current stint starts.
	avgPast := float64(lps)
	if current > 0 {
		avgPast = math.Max(0, float64(currentLap)-float64(lps)/2) / float64(current)
	}
	for i := firstPast; i < current; i++ {
		start := int(math.Round(float64(i) * avgPast))
		end := int(math.Round(float64(i+1) * avgPast))
		if i == current-1 {
			end = currentLap
		}
		driver := RoundRobin(roster, i)
		if id, ok := assigned(in.Assignments, i); ok {
			driver = LookupDriver(roster, id)
		}
		plan.Stints = append(plan.Stints, e.stint(i, start, end, eff, model.Stint{
			Driver:   driver,
			FuelPlan: model.FuelPlan{Kind: model.FuelPlanDone},
			IsDone:   true,
			Note:     noteFor(in.Notes, i, NoteDone),
		}))
	}

	// An assignment on the current stint wins over the active driver.
	driver := RoundRobin(roster, current)
	if in.ActiveDriverID != "" {
		driver = LookupDriver(roster, in.ActiveDriverID)
	}
	if id, ok := assigned(in.Assignments, current); ok {
		driver = LookupDriver(roster, id)
	}
	plan.Stints = append(plan.Stints, e.stint(current, currentLap, currentLap+lps, eff, model.Stint{
		Driver:    driver,
		FuelPlan:  model.FuelPlan{Kind: model.FuelPlanInProgress},
		IsCurrent: true,
		IsFinal:   currentLap+lps >= total,
		Note:      noteFor(in.Notes, current, ""),
	}))

	prev := driver
	lapCounter := currentLap + lps
	generated := 0
	for next := current + 1; lapCounter < total; next, generated = next+1, generated+1 {
		if generated == e.maxStints {
			plan.Truncated = true
			break
		}

		driver := RoundRobin(roster, next)
		if indexOf(roster, prev.ID) >= 0 {
			driver = NextDriver(roster, prev.ID)
		}
		if id, ok := assigned(in.Assignments, next); ok {
			driver = LookupDriver(roster, id)
		}

		last := lapCounter+lps >= total
		laps := lps
		if last {
			laps = total - lapCounter
		}
		if laps < 1 {
			laps = 1
		}

		fuel := model.FuelPlan{Kind: model.FuelPlanFullTank}
		note := NoteBox
		switch {
		case last:
			fuel = model.AmountPlan(float64(laps+1) * eff.FuelRate)
			note = NoteFinish
		case in.Config.UsesVirtualEnergy:
			fuel = model.FuelPlan{Kind: model.FuelPlanEnergyReset}
		}

		plan.Stints = append(plan.Stints, e.stint(next, lapCounter, lapCounter+laps, eff, model.Stint{
			Driver:   driver,
			FuelPlan: fuel,
			IsNext:   next == current+1,
			IsFinal:  last,
			Note:     noteFor(in.Notes, next, note),
		}))

		lapCounter += laps
		prev = driver
	}

	plan.PitStopsRemaining = generated
	return plan, nil
}

func (e *Engine) stint(index, start, end int, eff Effective, s model.Stint) model.Stint {
	s.Index = index
	s.StopNumber = index + 1
	s.StartLap = start
	s.EndLap = end
	s.LapsCount = max(1, end-start)
	s.EstimatedDurationSeconds = float64(s.LapsCount) * eff.LapTime
	return s
}

func (e *Engine) pitWindow(in Input, eff Effective, currentLap int) model.PitWindow {
	left, rate := in.Telemetry.FuelRemaining, eff.FuelRate
	if in.Config.UsesVirtualEnergy {
		left, rate = in.Telemetry.EnergyRemaining, eff.EnergyRate
	}
	if left <= 0 || math.IsInf(left, 0) {
		return model.PitWindow{}
	}
	laps := math.Max(left/rate-e.safetyMarginLaps, 0)
	return model.PitWindow{
		Known:          true,
		LapsLeftInTank: laps,
		BoxLap:         currentLap + int(math.Min(math.Floor(laps), maxProjectedLaps)),
	}
}

func assigned(assignments model.StintAssignments, index int) (string, bool) {
	id, ok := assignments[index]
	return id, ok && id != ""
}

func noteFor(notes model.StopNotes, index int, fallback string) string {
	if n, ok := notes[index+1]; ok && n != "" {
		return n
	}
	return fallback
}
