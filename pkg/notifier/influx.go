package notifier

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const measurement = "work_shift_events"

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxRecorder writes one point per shift transition.
type InfluxRecorder struct {
	client influxdb2.Client
	api    pointWriter
}

func NewInfluxRecorder(url, token, org, bucket string) *InfluxRecorder {
	client := influxdb2.NewClient(url, token)
	return &InfluxRecorder{client: client, api: client.WriteAPIBlocking(org, bucket)}
}

func (r *InfluxRecorder) Name() string {
	return "influx"
}

func (r *InfluxRecorder) Close() {
	if r.client != nil {
		r.client.Close()
	}
}

func (r *InfluxRecorder) Publish(ctx context.Context, ev Event) error {
	if err := r.api.WritePoint(ctx, eventPoint(ev)); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

func eventPoint(ev Event) *write.Point {
	ws := ev.Shift
	p := influxdb2.NewPointWithMeasurement(measurement).
		AddTag("machineId", ws.MachineID).
		AddTag("machineName", ws.MachineName).
		AddTag("shiftKey", ws.ShiftKey).
		AddTag("event", string(ev.Type)).
		AddField("shiftSequence", int64(ws.ShiftSequence)).
		AddField("status", string(ws.Status)).
		AddField("totalBottlesProduced", ws.TotalBottlesProduced).
		AddField("totalWeightFilled", ws.TotalWeightFilled).
		AddField("efficiency", ws.Efficiency).
		AddField("start_ms", ws.StartTime.UnixMilli()).
		SetTime(ev.Time)
	if ws.DurationMs != nil {
		p.AddField("durationMs", *ws.DurationMs)
	}
	return p
}
