package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePointWriter struct {
	points []*write.Point
	err    error
}

func (w *fakePointWriter) WritePoint(_ context.Context, point ...*write.Point) error {
	w.points = append(w.points, point...)
	return w.err
}

func TestInfluxRecorderWritesPoint(t *testing.T) {
	writer := &fakePointWriter{}
	rec := &InfluxRecorder{api: writer}
	ws := testWorkShift()
	ws.Complete(ws.StartTime.Add(8 * time.Hour))
	at := time.Date(2025, time.June, 8, 14, 0, 1, 0, time.UTC)

	require.NoError(t, rec.Publish(context.Background(), NewEvent(ShiftCompleted, ws, at)))
	require.Len(t, writer.points, 1)

	p := writer.points[0]
	assert.Equal(t, "work_shift_events", p.Name())
	assert.Equal(t, at, p.Time())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, "machine-2", tags["machineId"])
	assert.Equal(t, "M2_S7", tags["shiftKey"])
	assert.Equal(t, "shift_completed", tags["event"])

	fields := map[string]interface{}{}
	for _, field := range p.FieldList() {
		fields[field.Key] = field.Value
	}
	assert.Equal(t, int64(120), fields["totalBottlesProduced"])
	assert.Equal(t, int64(45000), fields["totalWeightFilled"])
	assert.Equal(t, "completed", fields["status"])
	assert.Equal(t, (8 * time.Hour).Milliseconds(), fields["durationMs"])
}

func TestInfluxRecorderActiveShiftHasNoDuration(t *testing.T) {
	writer := &fakePointWriter{}
	rec := &InfluxRecorder{api: writer}

	require.NoError(t, rec.Publish(context.Background(), NewEvent(ShiftStarted, testWorkShift(), time.Now())))
	for _, field := range writer.points[0].FieldList() {
		assert.NotEqual(t, "durationMs", field.Key)
	}
}

func TestInfluxRecorderError(t *testing.T) {
	errWrite := errors.New("bucket not found")
	rec := &InfluxRecorder{api: &fakePointWriter{err: errWrite}}

	err := rec.Publish(context.Background(), NewEvent(ShiftStarted, testWorkShift(), time.Now()))
	assert.ErrorIs(t, err, errWrite)
	rec.Close()
}
