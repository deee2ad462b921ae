package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	start := time.Date(2025, time.June, 8, 6, 0, 0, 0, time.UTC)
	ws := &WorkShift{ShiftKey: "M2_S7", StartTime: start, Status: StatusActive}

	_, ok := ws.Duration()
	assert.False(t, ok)

	ws.Complete(start.Add(8*time.Hour + 30*time.Minute))

	assert.Equal(t, StatusCompleted, ws.Status)
	assert.False(t, ws.IsActive())
	require.NotNil(t, ws.EndTime)
	d, ok := ws.Duration()
	require.True(t, ok)
	assert.Equal(t, 8*time.Hour+30*time.Minute, d)
	assert.Equal(t, int64(30600000), *ws.DurationMs)
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusActive.Valid())
	assert.True(t, StatusInterrupted.Valid())
	assert.False(t, ShiftStatus("paused").Valid())
}

func TestToJsonBytes(t *testing.T) {
	ws := &WorkShift{ShiftKey: "M1_S5", Status: StatusActive}
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(ws.ToJsonBytes(), &decoded))
	assert.Equal(t, "M1_S5", decoded["shiftKey"])
	assert.Nil(t, decoded["endTime"])
	assert.Nil(t, decoded["durationMs"])
}
