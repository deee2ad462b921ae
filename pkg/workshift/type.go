package workshift

import (
	"context"
	"errors"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/types"
)

var (
	ErrStore       = errors.New("work shift store failed")
	ErrMachineBusy = errors.New("machine poll already in progress")
	// ErrKeyConflict means the shift key is already held by a record of another machine.
	ErrKeyConflict = errors.New("shift key belongs to another machine")
)

// Store persists shifts. FindByKey returns types.ErrShiftNotFound when no record exists,
// Save inserts or updates by ShiftKey.
type Store interface {
	FindByKey(ctx context.Context, shiftKey string) (*types.WorkShift, error)
	Save(ctx context.Context, ws *types.WorkShift) error
}

// Notifier receives lifecycle events. Delivery is best effort.
type Notifier interface {
	NotifyShiftStarted(ctx context.Context, ws *types.WorkShift) error
	NotifyShiftCompleted(ctx context.Context, ws *types.WorkShift) error
}

// Outcome is what one Track call did.
type Outcome string

const (
	OutcomeNoShift          Outcome = "no_shift"
	OutcomeStarted          Outcome = "started"
	OutcomeStartedCompleted Outcome = "started_completed"
	OutcomeUpdated          Outcome = "updated"
	OutcomeCompleted        Outcome = "completed"
	OutcomeBusy             Outcome = "busy"
	OutcomeConflict         Outcome = "conflict"
	OutcomeFailed           Outcome = "failed"
)
