// Shift tracker polls the filling machines, records their work shifts and serves them read-only.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/EagleChen/mapmutex"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/api"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/config"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/logging"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/notifier"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/poller"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/port_reader"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/shiftdb"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/types"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/workshift"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load config
	if err := config.LoadTrackerConfig(); err != nil {
		log.Fatalf("Failed to load shift tracker config: %v", err)
	}
	cfg := config.ActiveTrackerConfig

	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("shift tracker stopped", zap.Error(err))
	}
}

func run(cfg *config.TrackerConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Initialize database
	db, err := shiftdb.Open(cfg.ShiftDbPath())
	if err != nil {
		return err
	}
	defer db.Close()

	hub := notifier.NewHub(logger)
	defer hub.Close()
	sinks, closeSinks := buildSinks(cfg.Notifier, hub, logger)
	defer closeSinks()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tracker := workshift.NewTracker(db, notifier.New(logger, sinks...), logger, workshift.Options{
		Location:      loc,
		StoreTimeout:  cfg.StoreTimeout(),
		NotifyTimeout: cfg.NotifyTimeout(),
		// Backoff between lock attempts is capped at a tenth of the poll interval
		Locks: mapmutex.NewCustomizedMapMutex(50, float64(cfg.PollInterval()/10), 1e6, 1.5, 0.2),
	})

	targets := make([]poller.Target, 0, len(cfg.Machines))
	for _, m := range cfg.Machines {
		reader, err := port_reader.NewFromConfig(m, logger)
		if err != nil {
			return err
		}
		targets = append(targets, poller.Target{
			Machine: types.Machine{MachineID: m.MachineID, Name: m.Name, UserID: m.UserID},
			Reader:  reader,
		})
	}
	if len(targets) == 0 {
		logger.Warn("no machines configured, only serving the api")
	}

	machinePoller := poller.New(tracker, targets, poller.Options{
		Interval:             cfg.PollInterval(),
		MaxConsecutiveErrors: cfg.MaxConsecutiveErrors,
		Metrics:              poller.NewMetrics(registry),
	}, logger)

	router := api.Router{
		Handler: api.NewHandler(db, machinePoller, logger),
		Events:  hub,
		Metrics: registry,
	}
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return machinePoller.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("starting shift tracker api",
			zap.String("listen", server.Addr),
			zap.Strings("notifier_sinks", sinkNames(sinks)),
			zap.Int("machines", len(targets)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildSinks enables every configured notification target. The websocket hub is always on.
func buildSinks(cfg config.NotifierConfig, hub *notifier.Hub, logger *zap.Logger) ([]notifier.Sink, func()) {
	sinks := []notifier.Sink{hub}
	var closers []func()

	if cfg.WebhookURL != "" {
		sinks = append(sinks, notifier.NewWebhook(cfg.WebhookURL, cfg.WebhookToken, logger))
	}

	if cfg.MQTT.Broker != "" {
		client, err := notifier.ConnectMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Username, cfg.MQTT.Password)
		if err != nil {
			logger.Warn("mqtt disabled", zap.Error(err))
		} else {
			sinks = append(sinks, notifier.NewMQTTPublisher(client, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS))
			closers = append(closers, func() { client.Disconnect(250) })
		}
	}

	if cfg.Influx.URL != "" {
		recorder := notifier.NewInfluxRecorder(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
		sinks = append(sinks, recorder)
		closers = append(closers, recorder.Close)
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}

func sinkNames(sinks []notifier.Sink) []string {
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	return names
}
