package types

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/registers"
)

var ErrShiftNotFound = errors.New("work shift not found")

type ShiftStatus string

const (
	StatusActive    ShiftStatus = "active"
	StatusCompleted ShiftStatus = "completed"
	// Written by other tooling, never by the tracker.
	StatusIncomplete  ShiftStatus = "incomplete"
	StatusInterrupted ShiftStatus = "interrupted"
)

func (s ShiftStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusIncomplete, StatusInterrupted:
		return true
	}
	return false
}

type WorkShift struct {
	ShiftKey      string `json:"shiftKey"`
	MachineID     string `json:"machineId"`
	MachineName   string `json:"machineName"`
	UserID        string `json:"userId"`
	MachineNumber int    `json:"machineNumber"`
	ShiftSequence uint32 `json:"shiftSequence"`

	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	// Milliseconds between StartTime and EndTime, only set once completed.
	DurationMs *int64      `json:"durationMs"`
	Status     ShiftStatus `json:"status"`

	TotalBottlesProduced int     `json:"totalBottlesProduced"`
	TotalWeightFilled    int64   `json:"totalWeightFilled"` // grams
	Efficiency           float64 `json:"efficiency"`        // kg/hour

	FinalData registers.Snapshot `json:"finalData"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Complete moves the shift to its terminal state.
func (ws *WorkShift) Complete(end time.Time) {
	ms := end.Sub(ws.StartTime).Milliseconds()
	ws.EndTime = &end
	ws.DurationMs = &ms
	ws.Status = StatusCompleted
}

// Duration returns the completed shift length, false while the shift is open.
func (ws *WorkShift) Duration() (time.Duration, bool) {
	if ws.DurationMs == nil {
		return 0, false
	}
	return time.Duration(*ws.DurationMs) * time.Millisecond, true
}

func (ws *WorkShift) IsActive() bool {
	return ws.Status == StatusActive
}

func (ws *WorkShift) ToJsonBytes() []byte {
	data, err := json.Marshal(ws)
	if err != nil {
		return nil
	}
	return data
}
