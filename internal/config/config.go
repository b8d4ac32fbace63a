package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	MetersFile       string     `yaml:"meters_file,omitempty"`       // meterNum,building table (fallback: meters.csv)
	OccupancyFile    string     `yaml:"occupancy_file,omitempty"`    // building,occupancy table (fallback: occupancy.csv)
	OutputFile       string     `yaml:"output_file,omitempty"`       // Consolidated CSV (fallback: output.csv)
	HeaderRows       *int       `yaml:"header_rows,omitempty"`       // Metadata rows above the export header (fallback: 4)
	Timezone         string     `yaml:"timezone,omitempty"`          // IANA zone the exports are recorded in (fallback: UTC)
	TimestampLayouts []string   `yaml:"timestamp_layouts,omitempty"` // Go layouts for "<Date> <Start Time>"
	SkipErrors       bool       `yaml:"skip_errors,omitempty"`       // Skip failing files instead of aborting
	Log              LogConfig  `yaml:"log,omitempty"`
	MQTT             MQTTConfig `yaml:"mqtt,omitempty"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
	File  string `yaml:"file,omitempty"`  // Rotated log file, stderr only when empty
}

// MQTTConfig holds MQTT broker settings for publishing aggregated usage
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`                 // e.g., "localhost:1883"
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // e.g., "building_usage"
	ClientID    string `yaml:"client_id,omitempty"`
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetMetersFile returns the meter-to-building table path
func (c *Config) GetMetersFile() string {
	if c.MetersFile == "" {
		return "meters.csv"
	}
	return c.MetersFile
}

// GetOccupancyFile returns the building-to-occupancy table path
func (c *Config) GetOccupancyFile() string {
	if c.OccupancyFile == "" {
		return "occupancy.csv"
	}
	return c.OccupancyFile
}

// GetOutputFile returns the consolidated output path
func (c *Config) GetOutputFile() string {
	if c.OutputFile == "" {
		return "output.csv"
	}
	return c.OutputFile
}

// GetHeaderRows returns the number of metadata rows to skip, default 4.
// An explicit 0 is honored.
func (c *Config) GetHeaderRows() int {
	if c.HeaderRows == nil || *c.HeaderRows < 0 {
		return 4
	}
	return *c.HeaderRows
}

// GetLocation returns the time zone exports are recorded in, default UTC
func (c *Config) GetLocation() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// GetLogLevel returns the log level, default info
func (c *Config) GetLogLevel() string {
	if c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}

// GetTopicPrefix returns the MQTT topic prefix, default building_usage
func (m MQTTConfig) GetTopicPrefix() string {
	if m.TopicPrefix == "" {
		return "building_usage"
	}
	return m.TopicPrefix
}

// GetClientID returns the MQTT client id, default meterdata
func (m MQTTConfig) GetClientID() string {
	if m.ClientID == "" {
		return "meterdata"
	}
	return m.ClientID
}
