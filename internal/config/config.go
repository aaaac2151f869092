package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReportDef defines a single report from the config file.
type ReportDef struct {
	Type       string   `yaml:"type" json:"type"`
	Name       string   `yaml:"name" json:"name"`
	TimeWindow string   `yaml:"time_window" json:"time_window"`
	TickCount  int      `yaml:"tick_count" json:"tick_count"`
	KeyFields  []string `yaml:"key_fields" json:"key_fields"`
}

// CoordinatorConfig holds the coordinator's channel sizing.
type CoordinatorConfig struct {
	InputBuffer   int `yaml:"input_buffer"`
	HostQueueSize int `yaml:"host_queue_size"`
}

// NATSConfig holds the connection details for the packet feed.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// GobConfig holds settings for the gob snapshot writer.
type GobConfig struct {
	RootPath string `yaml:"root_path"`
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WriterDef defines a single snapshot writer from the config file.
type WriterDef struct {
	Type             string           `yaml:"type"`
	Enabled          bool             `yaml:"enabled"`
	SnapshotInterval string           `yaml:"snapshot_interval"`
	Gob              GobConfig        `yaml:"gob"`
	ClickHouse       ClickHouseConfig `yaml:"clickhouse"`
}

// AlerterRule defines a threshold rule evaluated against report snapshots.
type AlerterRule struct {
	ReportName string  `yaml:"report_name"`
	Metric     string  `yaml:"metric"`   // total_packets | total_bytes | total_flows
	Operator   string  `yaml:"operator"` // > | <
	Threshold  float64 `yaml:"threshold"`
}

// AlerterConfig holds the configuration for the alerter.
type AlerterConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CheckInterval string        `yaml:"check_interval"`
	Rules         []AlerterRule `yaml:"rules"`
}

// SMTPConfig holds the settings for the email notifier.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// EngineConfig groups everything the np-engine daemon needs.
type EngineConfig struct {
	NATS        NATSConfig        `yaml:"nats"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Reports     []ReportDef       `yaml:"reports"`
	Writers     []WriterDef       `yaml:"writers"`
	Alerter     AlerterConfig     `yaml:"alerter"`
}

// ProbeConfig holds the settings for the capture probe.
type ProbeConfig struct {
	NATSURL       string `yaml:"nats_url"`
	Subject       string `yaml:"subject"`
	Interface     string `yaml:"interface"`
	SnapshotLen   int32  `yaml:"snapshot_len"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval string `yaml:"flush_interval"`
}

// APIConfig holds the settings for the HTTP API server.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Probe  ProbeConfig  `yaml:"probe"`
	API    APIConfig    `yaml:"api"`
	SMTP   SMTPConfig   `yaml:"smtp"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	return &cfg, nil
}
