package workshift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EagleChen/mapmutex"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/registers"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/shiftid"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/shifttime"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/types"
	"go.uber.org/zap"
)

const (
	defaultStoreTimeout  = 5 * time.Second
	defaultNotifyTimeout = 5 * time.Second
)

type Options struct {
	// Time zone the machine firmware writes its clock in. Defaults to time.Local.
	Location      *time.Location
	StoreTimeout  time.Duration
	NotifyTimeout time.Duration
	// Per machine lock, shared when several trackers poll the same machines.
	Locks *mapmutex.Mutex
	Now   func() time.Time
}

// Tracker turns register snapshots into work shift records.
// It keeps no shift state of its own, the store is the only source of truth.
type Tracker struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger

	loc           *time.Location
	storeTimeout  time.Duration
	notifyTimeout time.Duration
	locks         *mapmutex.Mutex
	now           func() time.Time
}

func NewTracker(store Store, notifier Notifier, logger *zap.Logger, opts Options) *Tracker {
	t := &Tracker{
		store:         store,
		notifier:      notifier,
		logger:        logger.With(zap.String("component", "workshift_tracker")),
		loc:           opts.Location,
		storeTimeout:  opts.StoreTimeout,
		notifyTimeout: opts.NotifyTimeout,
		locks:         opts.Locks,
		now:           opts.Now,
	}
	if t.loc == nil {
		t.loc = time.Local
	}
	if t.storeTimeout <= 0 {
		t.storeTimeout = defaultStoreTimeout
	}
	if t.notifyTimeout <= 0 {
		t.notifyTimeout = defaultNotifyTimeout
	}
	if t.locks == nil {
		// 1ms base delay growing to 100ms, gives up after 30 attempts
		t.locks = mapmutex.NewCustomizedMapMutex(30, 1e8, 1e6, 1.5, 0.2)
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// Track handles one poll of one machine.
// A zero shift sequence is a no-op. Store failures are logged and returned wrapped in ErrStore;
// notification failures are only logged.
func (t *Tracker) Track(ctx context.Context, machine types.Machine, values []uint16) (Outcome, error) {
	now := t.now()
	snap := registers.Decode(values)
	id := shiftid.Resolve(snap.Admin, shiftid.ParseMachineNumber(machine.MachineID))
	if !id.Active() {
		return OutcomeNoShift, nil
	}

	// Records are keyed by machine number, so polls sharing a number are serialised together
	lock := lockKey(id)
	if !t.locks.TryLock(lock) {
		return OutcomeBusy, fmt.Errorf("%w: %s", ErrMachineBusy, machine.MachineID)
	}
	defer t.locks.Unlock(lock)

	logger := t.logger.With(
		zap.String("machine_id", machine.MachineID),
		zap.String("machine_name", machine.Name),
		zap.String("shift_key", id.Key),
	)

	existing, err := t.find(ctx, id.Key)
	if errors.Is(err, types.ErrShiftNotFound) {
		return t.start(ctx, logger, machine, id, snap, now)
	}
	if err != nil {
		logger.Error("failed to load work shift", zap.Error(err))
		return OutcomeFailed, fmt.Errorf("%w: find %s: %w", ErrStore, id.Key, err)
	}
	if existing.MachineID != machine.MachineID {
		logger.Error("work shift key held by another machine", zap.String("stored_machine_id", existing.MachineID))
		return OutcomeConflict, fmt.Errorf("%w: %s is stored for %s", ErrKeyConflict, id.Key, existing.MachineID)
	}
	return t.update(ctx, logger, existing, snap, now)
}

func lockKey(id shiftid.Identity) string {
	return fmt.Sprintf("M%d", id.MachineNumber)
}

func (t *Tracker) start(
	ctx context.Context,
	logger *zap.Logger,
	machine types.Machine,
	id shiftid.Identity,
	snap registers.Snapshot,
	now time.Time,
) (Outcome, error) {
	start, startErr := shifttime.Extract(snap.Admin, shifttime.Start, t.loc, now)
	if startErr != nil {
		start = now
	}

	ws := &types.WorkShift{
		ShiftKey:      id.Key,
		MachineID:     machine.MachineID,
		MachineName:   machine.Name,
		UserID:        machine.UserID,
		MachineNumber: id.MachineNumber,
		ShiftSequence: id.Sequence,
		StartTime:     start,
		Status:        types.StatusActive,
		CreatedAt:     now,
	}
	applySnapshot(ws, snap)

	outcome := OutcomeStarted
	if end, err := shifttime.Extract(snap.Admin, shifttime.End, t.loc, now); err == nil && end.After(ws.StartTime) {
		ws.Complete(end)
		outcome = OutcomeStartedCompleted
	}
	ws.Efficiency = shiftEfficiency(ws, now)
	ws.UpdatedAt = now

	if err := t.save(ctx, ws); err != nil {
		logger.Error("failed to create work shift", zap.Error(err))
		return OutcomeFailed, fmt.Errorf("%w: create %s: %w", ErrStore, ws.ShiftKey, err)
	}

	fields := []zap.Field{
		zap.String("status", string(ws.Status)),
		zap.Time("start_time", ws.StartTime),
		zap.Int("total_bottles", ws.TotalBottlesProduced),
		zap.Int64("total_weight_g", ws.TotalWeightFilled),
	}
	if startErr != nil {
		fields = append(fields, zap.NamedError("start_time_error", startErr))
	}
	if outcome == OutcomeStartedCompleted {
		fields = append(fields, zap.Timep("end_time", ws.EndTime), zap.Int64p("duration_ms", ws.DurationMs))
		logger.Info("work shift recorded already completed", fields...)
		t.notify(ctx, logger, ws, OutcomeCompleted)
		return outcome, nil
	}

	logger.Info("work shift started", fields...)
	t.notify(ctx, logger, ws, OutcomeStarted)
	return outcome, nil
}

func (t *Tracker) update(
	ctx context.Context,
	logger *zap.Logger,
	ws *types.WorkShift,
	snap registers.Snapshot,
	now time.Time,
) (Outcome, error) {
	applySnapshot(ws, snap)

	outcome := OutcomeUpdated
	if ws.IsActive() {
		if end, err := shifttime.Extract(snap.Admin, shifttime.End, t.loc, now); err == nil && end.After(ws.StartTime) {
			ws.Complete(end)
			outcome = OutcomeCompleted
		}
	}
	ws.Efficiency = shiftEfficiency(ws, now)
	ws.UpdatedAt = now

	if err := t.save(ctx, ws); err != nil {
		logger.Error("failed to update work shift", zap.Error(err), zap.String("outcome", string(outcome)))
		return OutcomeFailed, fmt.Errorf("%w: update %s: %w", ErrStore, ws.ShiftKey, err)
	}

	if outcome == OutcomeCompleted {
		logger.Info("work shift completed",
			zap.Time("start_time", ws.StartTime),
			zap.Timep("end_time", ws.EndTime),
			zap.Int64p("duration_ms", ws.DurationMs),
			zap.Int("total_bottles", ws.TotalBottlesProduced),
			zap.Int64("total_weight_g", ws.TotalWeightFilled),
			zap.Float64("efficiency_kg_h", ws.Efficiency),
		)
		t.notify(ctx, logger, ws, OutcomeCompleted)
	}
	return outcome, nil
}

// Counters are cumulative on the machine, so they replace the stored values.
func applySnapshot(ws *types.WorkShift, snap registers.Snapshot) {
	ws.FinalData = snap
	ws.TotalBottlesProduced = snap.TotalBottles()
	ws.TotalWeightFilled = snap.TotalWeight()
}

func (t *Tracker) find(ctx context.Context, shiftKey string) (*types.WorkShift, error) {
	ctx, cancel := context.WithTimeout(ctx, t.storeTimeout)
	defer cancel()
	return t.store.FindByKey(ctx, shiftKey)
}

func (t *Tracker) save(ctx context.Context, ws *types.WorkShift) error {
	ctx, cancel := context.WithTimeout(ctx, t.storeTimeout)
	defer cancel()
	return t.store.Save(ctx, ws)
}

func (t *Tracker) notify(ctx context.Context, logger *zap.Logger, ws *types.WorkShift, event Outcome) {
	if t.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, t.notifyTimeout)
	defer cancel()

	var err error
	switch event {
	case OutcomeStarted:
		err = t.notifier.NotifyShiftStarted(ctx, ws)
	case OutcomeCompleted:
		err = t.notifier.NotifyShiftCompleted(ctx, ws)
	}
	if err != nil {
		logger.Warn("failed to send shift notification", zap.String("event", string(event)), zap.Error(err))
	}
}
