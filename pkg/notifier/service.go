package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Notifier fans shift transitions out to every configured sink.
// Sinks run concurrently, one failing sink does not stop the others.
type Notifier struct {
	sinks  []Sink
	logger *zap.Logger
	now    func() time.Time
}

func New(logger *zap.Logger, sinks ...Sink) *Notifier {
	return &Notifier{
		sinks:  sinks,
		logger: logger.With(zap.String("component", "notifier")),
		now:    time.Now,
	}
}

func (n *Notifier) NotifyShiftStarted(ctx context.Context, ws *types.WorkShift) error {
	return n.Publish(ctx, NewEvent(ShiftStarted, ws, n.now()))
}

func (n *Notifier) NotifyShiftCompleted(ctx context.Context, ws *types.WorkShift) error {
	return n.Publish(ctx, NewEvent(ShiftCompleted, ws, n.now()))
}

// Publish returns the joined errors of all failed sinks.
func (n *Notifier) Publish(ctx context.Context, ev Event) error {
	errs := make([]error, len(n.sinks))
	var g errgroup.Group
	for i, sink := range n.sinks {
		i, sink := i, sink
		g.Go(func() error {
			if err := sink.Publish(ctx, ev); err != nil {
				errs[i] = fmt.Errorf("%s: %w", sink.Name(), err)
				return nil
			}
			n.logger.Debug("event delivered",
				zap.String("sink", sink.Name()),
				zap.String("event_id", ev.ID),
				zap.String("event", string(ev.Type)),
			)
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

func (n *Notifier) Sinks() []string {
	names := make([]string, 0, len(n.sinks))
	for _, s := range n.sinks {
		names = append(names, s.Name())
	}
	return names
}
