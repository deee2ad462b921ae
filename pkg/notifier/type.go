package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/types"
	"github.com/google/uuid"
)

type EventType string

const (
	ShiftStarted   EventType = "shift_started"
	ShiftCompleted EventType = "shift_completed"
)

// Event is the payload every sink receives for a shift transition.
type Event struct {
	ID    string           `json:"id"`
	Type  EventType        `json:"type"`
	Time  time.Time        `json:"time"`
	Shift *types.WorkShift `json:"shift"`
}

// Sink delivers events to one target.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

func NewEvent(eventType EventType, ws *types.WorkShift, now time.Time) Event {
	return Event{
		ID:    uuid.NewString(),
		Type:  eventType,
		Time:  now,
		Shift: ws,
	}
}

func (e Event) ToJsonBytes() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// EventFromJsonBytes returns nil when data is not a shift event.
func EventFromJsonBytes(data []byte) *Event {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil
	}
	if ev.Type != ShiftStarted && ev.Type != ShiftCompleted {
		return nil
	}
	if ev.Shift == nil {
		return nil
	}
	return &ev
}
