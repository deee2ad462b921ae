package poller

import (
	"context"
	"sync"
	"time"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/port_reader"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/types"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/workshift"
	"go.uber.org/zap"
)

type Tracker interface {
	Track(ctx context.Context, machine types.Machine, values []uint16) (workshift.Outcome, error)
}

// Target is one machine and the reader that polls it.
type Target struct {
	Machine types.Machine
	Reader  port_reader.RegisterReader
}

type Options struct {
	Interval time.Duration
	// Failed reads in a row before the machine counts as disconnected
	MaxConsecutiveErrors int
	Metrics              *Metrics
}

type Poller struct {
	tracker   Tracker
	targets   []Target
	interval  time.Duration
	maxErrors int
	metrics   *Metrics
	logger    *zap.Logger

	mu       sync.RWMutex
	machines map[string]types.Machine
}
