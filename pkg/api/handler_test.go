package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeShifts struct {
	shifts []types.WorkShift
	err    error

	lastMachine string
	lastStatus  types.ShiftStatus
}

func (f *fakeShifts) FindByKey(_ context.Context, shiftKey string) (*types.WorkShift, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, ws := range f.shifts {
		if ws.ShiftKey == shiftKey {
			return &ws, nil
		}
	}
	return nil, types.ErrShiftNotFound
}

func (f *fakeShifts) ListActive(context.Context) ([]types.WorkShift, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []types.WorkShift{}
	for _, ws := range f.shifts {
		if ws.IsActive() {
			out = append(out, ws)
		}
	}
	return out, nil
}

func (f *fakeShifts) ListByMachine(_ context.Context, machineID string, status types.ShiftStatus) ([]types.WorkShift, error) {
	f.lastMachine = machineID
	f.lastStatus = status
	if f.err != nil {
		return nil, f.err
	}
	out := []types.WorkShift{}
	for _, ws := range f.shifts {
		if ws.MachineID == machineID && (status == "" || ws.Status == status) {
			out = append(out, ws)
		}
	}
	return out, nil
}

type fakeMachines []types.Machine

func (f fakeMachines) Machines() []types.Machine {
	return f
}

func (f fakeMachines) Machine(machineID string) (types.Machine, bool) {
	for _, m := range f {
		if m.MachineID == machineID {
			return m, true
		}
	}
	return types.Machine{}, false
}

func newTestServer(t *testing.T, shifts *fakeShifts) *httptest.Server {
	machines := fakeMachines{
		{MachineID: "machine-1", Name: "Filler 1", IsConnected: true},
		{MachineID: "machine-2", Name: "Filler 2"},
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter_total", Help: "test"}))

	rt := Router{
		Handler: NewHandler(shifts, machines, zaptest.NewLogger(t)),
		Events: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
		Metrics: reg,
	}
	srv := httptest.NewServer(rt.Setup())
	t.Cleanup(srv.Close)
	return srv
}

func sampleShifts() []types.WorkShift {
	start := time.Date(2025, time.June, 8, 6, 0, 0, 0, time.UTC)
	done := types.WorkShift{ShiftKey: "M1_S1", MachineID: "machine-1", MachineNumber: 1, ShiftSequence: 1, StartTime: start, Status: types.StatusActive}
	done.Complete(start.Add(8 * time.Hour))
	return []types.WorkShift{
		done,
		{ShiftKey: "M1_S2", MachineID: "machine-1", MachineNumber: 1, ShiftSequence: 2, StartTime: start, Status: types.StatusActive},
		{ShiftKey: "M2_S5", MachineID: "machine-2", MachineNumber: 2, ShiftSequence: 5, StartTime: start, Status: types.StatusActive},
	}
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestGetStatus(t *testing.T) {
	srv := newTestServer(t, &fakeShifts{})

	var body map[string]string
	resp := getJSON(t, srv.URL+"/", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestGetActiveShifts(t *testing.T) {
	srv := newTestServer(t, &fakeShifts{shifts: sampleShifts()})

	var shifts []types.WorkShift
	resp := getJSON(t, srv.URL+"/shifts/active", &shifts)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, shifts, 2)
	assert.Equal(t, "M1_S2", shifts[0].ShiftKey)
	assert.Equal(t, "M2_S5", shifts[1].ShiftKey)
}

func TestGetShift(t *testing.T) {
	srv := newTestServer(t, &fakeShifts{shifts: sampleShifts()})

	var ws types.WorkShift
	resp := getJSON(t, srv.URL+"/shifts/M1_S1", &ws)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.StatusCompleted, ws.Status)
	require.NotNil(t, ws.DurationMs)
	assert.Equal(t, (8 * time.Hour).Milliseconds(), *ws.DurationMs)

	var errBody map[string]string
	resp = getJSON(t, srv.URL+"/shifts/M9_S9", &errBody)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "work shift not found", errBody["error"])
}

func TestGetMachineShifts(t *testing.T) {
	shifts := &fakeShifts{shifts: sampleShifts()}
	srv := newTestServer(t, shifts)

	var all []types.WorkShift
	resp := getJSON(t, srv.URL+"/machines/machine-1/shifts", &all)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, all, 2)
	assert.Empty(t, shifts.lastStatus)

	var completed []types.WorkShift
	getJSON(t, srv.URL+"/machines/machine-1/shifts?status=completed", &completed)
	require.Len(t, completed, 1)
	assert.Equal(t, "M1_S1", completed[0].ShiftKey)
	assert.Equal(t, types.StatusCompleted, shifts.lastStatus)

	resp = getJSON(t, srv.URL+"/machines/machine-1/shifts?status=paused", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/machines/machine-9/shifts", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetMachines(t *testing.T) {
	srv := newTestServer(t, &fakeShifts{})

	var machines []types.Machine
	getJSON(t, srv.URL+"/machines", &machines)
	require.Len(t, machines, 2)
	assert.True(t, machines[0].IsConnected)
	assert.False(t, machines[1].IsConnected)
}

func TestStoreErrorIsHidden(t *testing.T) {
	srv := newTestServer(t, &fakeShifts{err: errors.New("database is locked")})

	var body map[string]string
	resp := getJSON(t, srv.URL+"/shifts/active", &body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal server error", body["error"])
}

func TestEventsAndMetricsMounted(t *testing.T) {
	srv := newTestServer(t, &fakeShifts{})

	resp := getJSON(t, srv.URL+"/ws", nil)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "test_counter_total")
}
