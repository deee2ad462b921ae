package config

const (
	TransportTCP = "tcp"
	TransportRTU = "rtu"
)

type TrackerConfig struct {
	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`
	// Empty uses the default path in the data directory
	DatabasePath string `toml:"database_path"`

	PollIntervalMs int `toml:"poll_interval_ms"`
	// Failed polls in a row before a machine is marked disconnected
	MaxConsecutiveErrors int `toml:"max_consecutive_errors"`
	StoreTimeoutMs       int `toml:"store_timeout_ms"`
	NotifyTimeoutMs      int `toml:"notify_timeout_ms"`
	// IANA zone the machine clocks run in, empty for the host zone
	Timezone string `toml:"timezone"`

	LogLevel string `toml:"log_level"`
	LogJSON  bool   `toml:"log_json"`

	Notifier NotifierConfig  `toml:"notifier"`
	Machines []MachineConfig `toml:"machines"`
}

type MachineConfig struct {
	MachineID string `toml:"machine_id"`
	Name      string `toml:"name"`
	UserID    string `toml:"user_id"`

	// tcp or rtu
	Transport string `toml:"transport"`

	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	PingCheck bool   `toml:"ping_check"`

	SerialDevice string `toml:"serial_device"`
	Baudrate     uint   `toml:"baudrate"`
	DataBits     uint   `toml:"data_bits"`
	StopBits     uint   `toml:"stop_bits"`
	Parity       string `toml:"parity"`

	SlaveID       byte   `toml:"slave_id"`
	StartRegister uint16 `toml:"start_register"`
	RegisterCount uint16 `toml:"register_count"`
	TimeoutMs     int    `toml:"timeout_ms"`
	Retries       int    `toml:"retries"`
	RetryDelayMs  int    `toml:"retry_delay_ms"`
}

// Every target is optional, empty values disable it.
type NotifierConfig struct {
	WebhookURL   string       `toml:"webhook_url"`
	WebhookToken string       `toml:"webhook_token"`
	MQTT         MQTTConfig   `toml:"mqtt"`
	Influx       InfluxConfig `toml:"influx"`
}

type MQTTConfig struct {
	Broker      string `toml:"broker"`
	ClientID    string `toml:"client_id"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	TopicPrefix string `toml:"topic_prefix"`
	QoS         byte   `toml:"qos"`
}

type InfluxConfig struct {
	URL    string `toml:"url"`
	Token  string `toml:"token"`
	Org    string `toml:"org"`
	Bucket string `toml:"bucket"`
}

type WatcherConfig struct {
	ShiftTrackerHost string `toml:"shift_tracker_host"`
	TLSEnabled       bool   `toml:"tls_enabled"`
	LogLevel         string `toml:"log_level"`
	LogJSON          bool   `toml:"log_json"`
}
