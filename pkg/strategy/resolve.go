package strategy

import (
	"math"

	"lemansstrat/pkg/model"
)

const (
	minConsumption = 0.1
	minLapTime     = 1.0
	fullEnergy     = 100.0 // percent of the virtual energy allowance
)

// Effective holds the live readings after every fallback and clamp has been
// applied. Nothing downstream of Resolve looks at raw telemetry again.
type Effective struct {
	FuelRate     float64
	EnergyRate   float64
	LapTime      float64
	TankCapacity float64
	LapsPerStint int
}

// ActiveRate is the consumption figure that binds the stint length.
func (e Effective) ActiveRate(cfg model.RaceConfiguration) float64 {
	if cfg.UsesVirtualEnergy {
		return e.EnergyRate
	}
	return e.FuelRate
}

func Resolve(cfg model.RaceConfiguration, tel model.LiveTelemetrySnapshot) Effective {
	e := Effective{
		FuelRate:     firstPositive(tel.FuelAverageConsumption, cfg.FuelConsumptionPerLap),
		EnergyRate:   firstPositive(tel.EnergyAverageConsumption, cfg.EnergyConsumptionPerLap),
		LapTime:      firstPositive(tel.LastThreeLapsAverageSeconds, tel.AverageLapTimeSeconds, cfg.DefaultLapTimeSeconds),
		TankCapacity: firstPositive(tel.TankCapacityObserved, cfg.TankCapacity),
	}
	e.FuelRate = math.Max(e.FuelRate, minConsumption)
	e.EnergyRate = math.Max(e.EnergyRate, minConsumption)
	e.LapTime = math.Max(e.LapTime, minLapTime)

	lapsPerTank := int(math.Floor(e.TankCapacity / e.FuelRate))
	lapsPerEnergy := int(math.Floor(fullEnergy / e.EnergyRate))
	e.LapsPerStint = lapsPerTank
	if cfg.UsesVirtualEnergy {
		e.LapsPerStint = lapsPerEnergy
	}
	if e.LapsPerStint < 1 {
		e.LapsPerStint = 1
	}
	return e
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 && !math.IsInf(v, 0) {
			return v
		}
	}
	return 0
}
