package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type FuelPlanKind int

const (
	FuelPlanDone FuelPlanKind = iota
	FuelPlanInProgress
	FuelPlanFullTank
	FuelPlanEnergyReset
	FuelPlanAmount
)

const (
	FuelMarkerDone        = "DONE"
	FuelMarkerInProgress  = "IN PROGRESS"
	FuelMarkerFullTank    = "FULL TANK"
	FuelMarkerEnergyReset = "VE RESET"
	litersSuffix          = " L"
)

// FuelPlan is what the crew has to put in the car at the stop that starts a stint.
type FuelPlan struct {
	Kind   FuelPlanKind
	Liters float64
}

func AmountPlan(liters float64) FuelPlan {
	return FuelPlan{Kind: FuelPlanAmount, Liters: liters}
}

func (f FuelPlan) String() string {
	switch f.Kind {
	case FuelPlanDone:
		return FuelMarkerDone
	case FuelPlanInProgress:
		return FuelMarkerInProgress
	case FuelPlanFullTank:
		return FuelMarkerFullTank
	case FuelPlanEnergyReset:
		return FuelMarkerEnergyReset
	default:
		return fmt.Sprintf("%.1f%s", f.Liters, litersSuffix)
	}
}

func (f FuelPlan) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *FuelPlan) UnmarshalText(text []byte) error {
	s := string(text)
	switch s {
	case FuelMarkerDone:
		*f = FuelPlan{Kind: FuelPlanDone}
	case FuelMarkerInProgress:
		*f = FuelPlan{Kind: FuelPlanInProgress}
	case FuelMarkerFullTank:
		*f = FuelPlan{Kind: FuelPlanFullTank}
	case FuelMarkerEnergyReset:
		*f = FuelPlan{Kind: FuelPlanEnergyReset}
	default:
		liters, err := strconv.ParseFloat(strings.TrimSuffix(s, litersSuffix), 64)
		if err != nil {
			return errors.Errorf("invalid fuel plan %q", s)
		}
		*f = AmountPlan(liters)
	}
	return nil
}
