package poller

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/types"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/workshift"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultInterval  = 5 * time.Second
	defaultMaxErrors = 3
)

func New(tracker Tracker, targets []Target, opts Options, logger *zap.Logger) *Poller {
	p := &Poller{
		tracker:   tracker,
		targets:   targets,
		interval:  opts.Interval,
		maxErrors: opts.MaxConsecutiveErrors,
		metrics:   opts.Metrics,
		logger:    logger.With(zap.String("component", "poller")),
		machines:  make(map[string]types.Machine, len(targets)),
	}
	if p.interval <= 0 {
		p.interval = defaultInterval
	}
	if p.maxErrors <= 0 {
		p.maxErrors = defaultMaxErrors
	}
	for _, t := range targets {
		p.machines[t.Machine.MachineID] = t.Machine
	}
	return p
}

// Run polls every machine on its own goroutine until ctx is done, then closes the readers.
func (p *Poller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, target := range p.targets {
		target := target
		g.Go(func() error {
			defer target.Reader.Close()
			p.runMachine(ctx, target)
			return nil
		})
	}
	return g.Wait()
}

func (p *Poller) runMachine(ctx context.Context, target Target) {
	logger := p.logger.With(zap.String("machine_id", target.Machine.MachineID), zap.String("machine_name", target.Machine.Name))
	logger.Info("polling machine", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	consecutiveErrors := 0
	for {
		consecutiveErrors = p.poll(ctx, logger, target, consecutiveErrors)

		select {
		case <-ctx.Done():
			logger.Info("stopped polling machine")
			return
		case <-ticker.C:
		}
	}
}

// poll runs one read and track cycle and returns the updated error streak.
func (p *Poller) poll(ctx context.Context, logger *zap.Logger, target Target, consecutiveErrors int) int {
	machineID := target.Machine.MachineID
	started := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.pollDuration.WithLabelValues(machineID).Observe(time.Since(started).Seconds())
		}
	}()

	values, err := target.Reader.ReadRegisters(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return consecutiveErrors
		}
		consecutiveErrors++
		if p.metrics != nil {
			p.metrics.readErrors.WithLabelValues(machineID).Inc()
		}
		logger.Warn("failed to read registers",
			zap.Int("consecutive_errors", consecutiveErrors),
			zap.Int("max_errors", p.maxErrors),
			zap.Error(err),
		)
		if consecutiveErrors >= p.maxErrors {
			p.setConnected(logger, machineID, false)
		}
		return consecutiveErrors
	}
	p.setConnected(logger, machineID, true)

	machine, _ := p.Machine(machineID)
	outcome, err := p.tracker.Track(ctx, machine, values)
	if p.metrics != nil {
		p.metrics.polls.WithLabelValues(machineID, string(outcome)).Inc()
	}
	if err != nil && !errors.Is(err, workshift.ErrStore) {
		// Store failures are already logged by the tracker
		logger.Warn("failed to track work shift", zap.String("outcome", string(outcome)), zap.Error(err))
	}
	return 0
}

func (p *Poller) setConnected(logger *zap.Logger, machineID string, connected bool) {
	p.mu.Lock()
	machine := p.machines[machineID]
	changed := machine.IsConnected != connected
	machine.IsConnected = connected
	p.machines[machineID] = machine
	p.mu.Unlock()

	if p.metrics != nil {
		value := 0.0
		if connected {
			value = 1
		}
		p.metrics.connected.WithLabelValues(machineID).Set(value)
	}
	if !changed {
		return
	}
	if connected {
		logger.Info("machine connected")
	} else {
		logger.Warn("machine disconnected")
	}
}

func (p *Poller) Machine(machineID string) (types.Machine, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.machines[machineID]
	return m, ok
}

// Machines returns the polled machines with their connection state, sorted by id.
func (p *Poller) Machines() []types.Machine {
	p.mu.RLock()
	machines := make([]types.Machine, 0, len(p.machines))
	for _, m := range p.machines {
		machines = append(machines, m)
	}
	p.mu.RUnlock()

	sort.Slice(machines, func(i, j int) bool {
		return machines[i].MachineID < machines[j].MachineID
	})
	return machines
}
