// Shift watcher follows the shift tracker event stream and logs every shift transition.
// Depends on the shift tracker being online.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/config"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/eventlistener"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/logging"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/notifier"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadWatcherConfig(); err != nil {
		log.Fatalf("Failed to load shift watcher config: %v", err)
	}
	cfg := config.ActiveWatcherConfig

	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// SHIFT_TRACKER_HOST overrides the configured host:port
	host := os.Getenv("SHIFT_TRACKER_HOST")
	if host == "" {
		host = cfg.ShiftTrackerHost
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Subscribe to websocket with revive
	eventlistener.StartListener(ctx, host, eventlistener.Options{TLS: cfg.TLSEnabled}, logger, func(ev *notifier.Event) {
		handleShiftEvent(logger, ev)
	})
}

func handleShiftEvent(logger *zap.Logger, ev *notifier.Event) {
	ws := ev.Shift
	fields := []zap.Field{
		zap.String("event_id", ev.ID),
		zap.Time("event_time", ev.Time),
		zap.String("machine_id", ws.MachineID),
		zap.String("machine_name", ws.MachineName),
		zap.String("shift_key", ws.ShiftKey),
		zap.String("status", string(ws.Status)),
		zap.Int("total_bottles", ws.TotalBottlesProduced),
		zap.Int64("total_weight_g", ws.TotalWeightFilled),
		zap.Float64("efficiency_kg_h", ws.Efficiency),
	}
	if d, ok := ws.Duration(); ok {
		fields = append(fields, zap.Duration("duration", d))
	}

	switch ev.Type {
	case notifier.ShiftStarted:
		logger.Info("shift started", fields...)
	case notifier.ShiftCompleted:
		logger.Info("shift completed", fields...)
	}
}
