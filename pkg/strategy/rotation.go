package strategy

import "lemansstrat/pkg/model"

const UnknownDriverName = "Unknown driver"

// UnknownDriver is the placeholder used when an id does not match anyone in the roster.
func UnknownDriver(id string) model.Driver {
	return model.Driver{ID: id, Name: UnknownDriverName, Color: "#808080"}
}

func indexOf(roster []model.Driver, id string) int {
	for i, d := range roster {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// LookupDriver never fails: a missing id resolves to UnknownDriver.
func LookupDriver(roster []model.Driver, id string) model.Driver {
	if i := indexOf(roster, id); i >= 0 {
		return roster[i]
	}
	return UnknownDriver(id)
}

// NextDriver returns the successor of id in roster order, wrapping around.
// An id that is not in the roster yields the first driver. The roster must
// not be empty.
func NextDriver(roster []model.Driver, id string) model.Driver {
	i := indexOf(roster, id)
	return roster[(i+1)%len(roster)]
}

// RoundRobin is the default driver for a stint index when nothing else is known.
func RoundRobin(roster []model.Driver, index int) model.Driver {
	if index < 0 {
		index = 0
	}
	return roster[index%len(roster)]
}
