package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/types"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/workshift"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type scriptedReader struct {
	mu      sync.Mutex
	results []error
	reads   int
	closed  bool
}

func (r *scriptedReader) ReadRegisters(ctx context.Context) ([]uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.reads
	r.reads++
	if i < len(r.results) && r.results[i] != nil {
		return nil, r.results[i]
	}
	values := make([]uint16, 48)
	values[8] = 7
	return values, nil
}

func (r *scriptedReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *scriptedReader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type recordingTracker struct {
	mu       sync.Mutex
	machines []types.Machine
	outcome  workshift.Outcome
	err      error
}

func (t *recordingTracker) Track(_ context.Context, machine types.Machine, values []uint16) (workshift.Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.machines = append(t.machines, machine)
	return t.outcome, t.err
}

func (t *recordingTracker) calls() []types.Machine {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]types.Machine(nil), t.machines...)
}

func (t *recordingTracker) count(machineID string) int {
	n := 0
	for _, m := range t.calls() {
		if m.MachineID == machineID {
			n++
		}
	}
	return n
}

func TestRunPollsEveryMachine(t *testing.T) {
	tracker := &recordingTracker{outcome: workshift.OutcomeUpdated}
	first := &scriptedReader{}
	second := &scriptedReader{}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	p := New(tracker, []Target{
		{Machine: types.Machine{MachineID: "machine-1", Name: "Filler 1"}, Reader: first},
		{Machine: types.Machine{MachineID: "machine-2", Name: "Filler 2"}, Reader: second},
	}, Options{Interval: 10 * time.Millisecond, Metrics: metrics}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		return tracker.count("machine-1") >= 2 && tracker.count("machine-2") >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.True(t, first.isClosed())
	assert.True(t, second.isClosed())
	for _, m := range tracker.calls() {
		assert.True(t, m.IsConnected, "tracker sees the connection state")
	}
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.polls.WithLabelValues("machine-1", "updated")), 2.0)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.connected.WithLabelValues("machine-2")))
}

func TestPollErrorBudget(t *testing.T) {
	errTimeout := errors.New("i/o timeout")
	reader := &scriptedReader{results: []error{nil, errTimeout, errTimeout, errTimeout, nil}}
	tracker := &recordingTracker{outcome: workshift.OutcomeStarted}
	metrics := NewMetrics(prometheus.NewRegistry())
	target := Target{Machine: types.Machine{MachineID: "machine-1"}, Reader: reader}
	p := New(tracker, []Target{target}, Options{MaxConsecutiveErrors: 2, Metrics: metrics}, zaptest.NewLogger(t))
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	connected := func() bool {
		m, ok := p.Machine("machine-1")
		require.True(t, ok)
		return m.IsConnected
	}

	n := p.poll(ctx, logger, target, 0)
	assert.Zero(t, n)
	assert.True(t, connected())

	n = p.poll(ctx, logger, target, n)
	assert.Equal(t, 1, n)
	assert.True(t, connected(), "one failure stays within budget")

	n = p.poll(ctx, logger, target, n)
	assert.Equal(t, 2, n)
	assert.False(t, connected())

	n = p.poll(ctx, logger, target, n)
	assert.Equal(t, 3, n)
	assert.False(t, connected())

	n = p.poll(ctx, logger, target, n)
	assert.Zero(t, n)
	assert.True(t, connected())

	assert.Len(t, tracker.calls(), 2, "failed reads never reach the tracker")
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.readErrors.WithLabelValues("machine-1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.polls.WithLabelValues("machine-1", "started")))
}

func TestPollTrackerErrorResetsStreak(t *testing.T) {
	tracker := &recordingTracker{outcome: workshift.OutcomeFailed, err: workshift.ErrStore}
	target := Target{Machine: types.Machine{MachineID: "machine-1"}, Reader: &scriptedReader{}}
	p := New(tracker, []Target{target}, Options{}, zaptest.NewLogger(t))

	n := p.poll(context.Background(), zaptest.NewLogger(t), target, 2)
	assert.Zero(t, n, "a good read resets the read error streak")
}

func TestPollCanceledContextDoesNotCount(t *testing.T) {
	target := Target{Machine: types.Machine{MachineID: "machine-1"}, Reader: &scriptedReader{results: []error{context.Canceled}}}
	p := New(&recordingTracker{}, []Target{target}, Options{}, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 1, p.poll(ctx, zaptest.NewLogger(t), target, 1))
}

func TestMachinesSorted(t *testing.T) {
	p := New(&recordingTracker{}, []Target{
		{Machine: types.Machine{MachineID: "machine-3"}, Reader: &scriptedReader{}},
		{Machine: types.Machine{MachineID: "machine-1"}, Reader: &scriptedReader{}},
	}, Options{}, zaptest.NewLogger(t))

	machines := p.Machines()
	require.Len(t, machines, 2)
	assert.Equal(t, "machine-1", machines[0].MachineID)
	assert.Equal(t, "machine-3", machines[1].MachineID)

	_, ok := p.Machine("machine-9")
	assert.False(t, ok)
}
