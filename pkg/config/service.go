package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/pathing"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/shiftid"
)

var (
	ActiveTrackerConfig *TrackerConfig
	ActiveWatcherConfig *WatcherConfig
)

var ErrInvalidConfig = errors.New("invalid config")

func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		ListenAddress:        "0.0.0.0",
		ListenPort:           9040,
		PollIntervalMs:       5000,
		MaxConsecutiveErrors: 3,
		StoreTimeoutMs:       5000,
		NotifyTimeoutMs:      5000,
		LogLevel:             "info",
		LogJSON:              true,
		Notifier: NotifierConfig{
			MQTT: MQTTConfig{
				ClientID:    "shift_tracker",
				TopicPrefix: "filling_machines",
				QoS:         1,
			},
		},
		Machines: []MachineConfig{},
	}
}

func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		ShiftTrackerHost: "localhost:9040",
		TLSEnabled:       false,
		LogLevel:         "info",
	}
}

func LoadTrackerConfig() error {
	cfg, err := LoadTrackerConfigFrom(filepath.Join(pathing.GetConfigDir(), "shift_tracker.toml"))
	if err != nil {
		return err
	}
	ActiveTrackerConfig = cfg
	return nil
}

// LoadTrackerConfigFrom writes the default config to configPath if it does not exist yet.
func LoadTrackerConfigFrom(configPath string) (*TrackerConfig, error) {
	cfg := DefaultTrackerConfig()
	if err := loadOrCreate(configPath, cfg); err != nil {
		return nil, err
	}
	cfg.applyMachineDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadWatcherConfig() error {
	cfg, err := LoadWatcherConfigFrom(filepath.Join(pathing.GetConfigDir(), "shift_watcher.toml"))
	if err != nil {
		return err
	}
	ActiveWatcherConfig = cfg
	return nil
}

func LoadWatcherConfigFrom(configPath string) (*WatcherConfig, error) {
	cfg := DefaultWatcherConfig()
	if err := loadOrCreate(configPath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadOrCreate decodes configPath over the defaults in cfg, or writes cfg there when missing.
func loadOrCreate(configPath string, cfg any) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		return toml.NewEncoder(cfgFile).Encode(cfg)
	}

	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return fmt.Errorf("decode %s: %w", configPath, err)
	}
	return nil
}

func (c *TrackerConfig) applyMachineDefaults() {
	for i := range c.Machines {
		m := &c.Machines[i]
		if m.Transport == "" {
			m.Transport = TransportTCP
		}
		if m.Name == "" {
			m.Name = m.MachineID
		}
		if m.RegisterCount == 0 {
			m.RegisterCount = 48
		}
	}
}

func (c *TrackerConfig) Validate() error {
	var errs []error
	if c.PollIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval_ms must be positive, got %d", c.PollIntervalMs))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool, len(c.Machines))
	// Shift keys carry the machine number only, so it must be unique too
	numbers := make(map[int]string, len(c.Machines))
	for i, m := range c.Machines {
		if m.MachineID == "" {
			errs = append(errs, fmt.Errorf("machines[%d]: machine_id is required", i))
			continue
		}
		if seen[m.MachineID] {
			errs = append(errs, fmt.Errorf("machines[%d]: duplicate machine_id %q", i, m.MachineID))
		} else if n := shiftid.ParseMachineNumber(m.MachineID); numbers[n] != "" {
			errs = append(errs, fmt.Errorf("machine %s: machine number %d already used by %s", m.MachineID, n, numbers[n]))
		} else {
			numbers[n] = m.MachineID
		}
		seen[m.MachineID] = true

		switch m.Transport {
		case TransportTCP:
			if m.Host == "" {
				errs = append(errs, fmt.Errorf("machine %s: host is required for tcp", m.MachineID))
			}
		case TransportRTU:
			if m.SerialDevice == "" {
				errs = append(errs, fmt.Errorf("machine %s: serial_device is required for rtu", m.MachineID))
			}
		default:
			errs = append(errs, fmt.Errorf("machine %s: unknown transport %q", m.MachineID, m.Transport))
		}
		if m.RegisterCount > 125 {
			errs = append(errs, fmt.Errorf("machine %s: register_count %d exceeds 125", m.MachineID, m.RegisterCount))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

// Location resolves Timezone, the host zone when empty.
func (c *TrackerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *TrackerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *TrackerConfig) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMs) * time.Millisecond
}

func (c *TrackerConfig) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutMs) * time.Millisecond
}

func (c *TrackerConfig) ShiftDbPath() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return pathing.GetShiftDbPath()
}
