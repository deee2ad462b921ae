package workshift

import (
	"time"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/sfmutils"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/types"
)

// Efficiency is the filled weight in kg per hour between start and end, rounded to 2 decimals.
// Returns 0 when nothing was filled or no time has passed.
func Efficiency(weightGrams int64, start, end time.Time) float64 {
	if weightGrams <= 0 || start.IsZero() {
		return 0
	}
	hours := end.Sub(start).Hours()
	if hours <= 0 {
		return 0
	}
	return sfmutils.Round2(sfmutils.GramsToKg(weightGrams) / hours)
}

// Open shifts are measured up to the poll time.
func shiftEfficiency(ws *types.WorkShift, now time.Time) float64 {
	end := now
	if ws.EndTime != nil {
		end = *ws.EndTime
	}
	return Efficiency(ws.TotalWeightFilled, ws.StartTime, end)
}
