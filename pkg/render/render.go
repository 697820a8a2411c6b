package render

import (
	"bytes"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"lemansstrat/pkg/helper"
	"lemansstrat/pkg/model"
)

const (
	tableStop     = "Stop"
	tableLaps     = "Laps"
	tableCount    = "#"
	tableDriver   = "Driver"
	tableFuel     = "Fuel"
	tableDuration = "Duration"
	tableNote     = "Note"
	tableStatus   = "Status"

	statusDone    = "done"
	statusCurrent = "on track"
	statusNext    = "next"
)

func status(s model.Stint) string {
	switch {
	case s.IsDone:
		return statusDone
	case s.IsCurrent:
		return statusCurrent
	case s.IsNext:
		return statusNext
	}
	return ""
}

// PlanTable renders the stints of plan as a text table.
func PlanTable(plan model.Plan) string {
	var b bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&b)
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: tableCount, Align: text.AlignRight},
		{Name: tableDuration, Align: text.AlignRight},
	})

	t.AppendHeader(table.Row{tableStop, tableLaps, tableCount, tableDriver, tableFuel, tableDuration, tableNote, tableStatus})
	for _, s := range plan.Stints {
		t.AppendRow(table.Row{
			s.StopNumber,
			fmt.Sprintf("%d-%d", s.StartLap, s.EndLap),
			s.LapsCount,
			s.Driver.Name,
			s.FuelPlan.String(),
			helper.SecondsToDuration(s.EstimatedDurationSeconds),
			s.Note,
			status(s),
		})
	}
	t.AppendFooter(table.Row{"", "", plan.TotalLapsProjected, "", "", "", fmt.Sprintf("%d stops left", plan.PitStopsRemaining), ""})
	t.Render()
	return b.String()
}

// Summary is the one-paragraph digest shown above the table.
func Summary(plan model.Plan, gs model.GameState) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Time left: %s", helper.SecondsToClock(gs.RaceTime))
	if gs.IsRaceRunning {
		b.WriteString(" (running)")
	}
	fmt.Fprintf(&b, "\nLap time: %s  Consumption: %.2f/lap  Laps per stint: %d\n",
		helper.SecondsToLapTime(plan.ActiveLapTimeSeconds), plan.ActiveConsumptionRate, plan.LapsPerStint)
	if plan.PitWindow.Known {
		fmt.Fprintf(&b, "Pit window: %.1f laps in tank, box by lap %d\n", plan.PitWindow.LapsLeftInTank, plan.PitWindow.BoxLap)
	}
	if plan.Truncated {
		b.WriteString("Projection truncated at the stint limit\n")
	}
	return b.String()
}

// CompactTable fits chat screens: driver code names and no durations or notes.
func CompactTable(plan model.Plan) string {
	var b bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&b)
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{tableStop, tableLaps, "Drv", tableFuel})
	for _, s := range plan.Stints {
		if s.IsDone {
			continue
		}
		marker := ""
		if s.IsCurrent {
			marker = "*"
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%d%s", s.StopNumber, marker),
			fmt.Sprintf("%d-%d", s.StartLap, s.EndLap),
			helper.GetDriverCodeName(s.Driver.Name),
			s.FuelPlan.String(),
		})
	}
	t.Render()
	return b.String()
}
