package shiftdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/types"
)

// FindByKey returns types.ErrShiftNotFound when no row has the key.
func (s *ShiftDB) FindByKey(ctx context.Context, shiftKey string) (*types.WorkShift, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+shiftColumns+" FROM work_shifts WHERE shift_key = ?",
		shiftKey,
	)

	var r shiftRow
	if err := r.scan(row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrShiftNotFound
		}
		return nil, err
	}
	return r.toWorkShift()
}

// Save inserts the shift or overwrites the row with the same shift key.
// created_at of an existing row is kept.
func (s *ShiftDB) Save(ctx context.Context, ws *types.WorkShift) error {
	finalData, err := json.Marshal(ws.FinalData)
	if err != nil {
		return fmt.Errorf("encode final data: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO work_shifts ("+shiftColumns+") "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT(shift_key) DO UPDATE SET "+
			"machine_id = excluded.machine_id, "+
			"machine_name = excluded.machine_name, "+
			"user_id = excluded.user_id, "+
			"machine_number = excluded.machine_number, "+
			"shift_sequence = excluded.shift_sequence, "+
			"start_time = excluded.start_time, "+
			"end_time = excluded.end_time, "+
			"duration_ms = excluded.duration_ms, "+
			"status = excluded.status, "+
			"total_bottles_produced = excluded.total_bottles_produced, "+
			"total_weight_filled = excluded.total_weight_filled, "+
			"efficiency = excluded.efficiency, "+
			"final_data = excluded.final_data, "+
			"updated_at = excluded.updated_at",
		ws.ShiftKey,
		ws.MachineID,
		ws.MachineName,
		ws.UserID,
		ws.MachineNumber,
		int64(ws.ShiftSequence),
		ws.StartTime.UnixMilli(),
		nullTime(ws.EndTime),
		nullInt(ws.DurationMs),
		string(ws.Status),
		ws.TotalBottlesProduced,
		ws.TotalWeightFilled,
		ws.Efficiency,
		string(finalData),
		ws.CreatedAt.UnixMilli(),
		ws.UpdatedAt.UnixMilli(),
	)
	return err
}

// ListActive returns every active shift ordered by machine number, then shift sequence.
func (s *ShiftDB) ListActive(ctx context.Context) ([]types.WorkShift, error) {
	return s.query(ctx,
		"SELECT "+shiftColumns+" FROM work_shifts WHERE status = ? "+
			"ORDER BY machine_number, shift_sequence",
		string(types.StatusActive),
	)
}

// ListByMachine returns the shifts of one machine, optionally filtered by status.
// An empty status returns all of them.
func (s *ShiftDB) ListByMachine(ctx context.Context, machineID string, status types.ShiftStatus) ([]types.WorkShift, error) {
	if status == "" {
		return s.query(ctx,
			"SELECT "+shiftColumns+" FROM work_shifts WHERE machine_id = ? "+
				"ORDER BY machine_number, shift_sequence",
			machineID,
		)
	}
	return s.query(ctx,
		"SELECT "+shiftColumns+" FROM work_shifts WHERE machine_id = ? AND status = ? "+
			"ORDER BY machine_number, shift_sequence",
		machineID,
		string(status),
	)
}

func (s *ShiftDB) query(ctx context.Context, query string, args ...any) ([]types.WorkShift, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := []types.WorkShift{}
	for rows.Next() {
		var r shiftRow
		if err := r.scan(rows); err != nil {
			return nil, err
		}
		ws, err := r.toWorkShift()
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, *ws)
	}
	return shifts, rows.Err()
}

func (r *shiftRow) toWorkShift() (*types.WorkShift, error) {
	ws := &types.WorkShift{
		ShiftKey:             r.ShiftKey,
		MachineID:            r.MachineID,
		MachineName:          r.MachineName,
		UserID:               r.UserID,
		MachineNumber:        r.MachineNumber,
		ShiftSequence:        uint32(r.ShiftSequence),
		StartTime:            fromMillis(r.StartTime),
		Status:               types.ShiftStatus(r.Status),
		TotalBottlesProduced: r.TotalBottlesProduced,
		TotalWeightFilled:    r.TotalWeightFilled,
		Efficiency:           r.Efficiency.Float64,
		CreatedAt:            fromMillis(r.CreatedAt),
		UpdatedAt:            fromMillis(r.UpdatedAt),
	}
	if r.EndTime.Valid {
		end := fromMillis(r.EndTime.Int64)
		ws.EndTime = &end
	}
	if r.DurationMs.Valid {
		ms := r.DurationMs.Int64
		ws.DurationMs = &ms
	}
	if err := json.Unmarshal([]byte(r.FinalData), &ws.FinalData); err != nil {
		return nil, fmt.Errorf("decode final data of %s: %w", r.ShiftKey, err)
	}
	return ws, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
