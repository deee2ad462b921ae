package shiftdb

import "database/sql"

const shiftColumns = "shift_key, machine_id, machine_name, user_id, machine_number, shift_sequence, " +
	"start_time, end_time, duration_ms, status, total_bottles_produced, total_weight_filled, " +
	"efficiency, final_data, created_at, updated_at"

// shiftRow holds one work_shifts row in shiftColumns order. Times are unix milliseconds.
type shiftRow struct {
	ShiftKey             string
	MachineID            string
	MachineName          string
	UserID               string
	MachineNumber        int
	ShiftSequence        int64
	StartTime            int64
	EndTime              sql.NullInt64
	DurationMs           sql.NullInt64
	Status               string
	TotalBottlesProduced int
	TotalWeightFilled    int64
	Efficiency           sql.NullFloat64
	FinalData            string
	CreatedAt            int64
	UpdatedAt            int64
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *shiftRow) scan(s scanner) error {
	return s.Scan(
		&r.ShiftKey,
		&r.MachineID,
		&r.MachineName,
		&r.UserID,
		&r.MachineNumber,
		&r.ShiftSequence,
		&r.StartTime,
		&r.EndTime,
		&r.DurationMs,
		&r.Status,
		&r.TotalBottlesProduced,
		&r.TotalWeightFilled,
		&r.Efficiency,
		&r.FinalData,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
}
