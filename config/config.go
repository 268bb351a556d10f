package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDatalogDirectory = "./datalog"
	DefaultDatalogTTL       = 24 * time.Hour
	DefaultPollInterval     = 60 * time.Second
	DefaultPreviewWindow    = 5 * time.Minute
	DefaultRequestTimeout   = 30 * time.Second
	DefaultNumberOfResults  = 40
	DefaultSubjectPrefix    = "ticktrack.trips"
)

// Returned when the configuration is missing something required, or
// holds something invalid.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

type AppConfig struct {
	Endpoint         string        `yaml:"endpoint" validate:"required,url"`
	APIKey           string        `yaml:"api_key" validate:"required"`
	DatalogEnabled   bool          `yaml:"datalog_enabled"`
	DatalogDirectory string        `yaml:"datalog_directory"`
	DatalogTTL       time.Duration `yaml:"datalog_ttl" validate:"gte=0"`
	PollInterval     time.Duration `yaml:"poll_interval" validate:"gte=0"`
	PreviewWindow    time.Duration `yaml:"preview_window" validate:"gte=0"`
	RequestTimeout   time.Duration `yaml:"request_timeout" validate:"gte=0"`
	NumberOfResults  int           `yaml:"number_of_results" validate:"gte=0"`

	// Upper bound on concurrent polls per tick. 0 means one per
	// station.
	MaxConcurrent int `yaml:"max_concurrent" validate:"gte=0"`
}

// Optional status API. Disabled unless Listen is set.
type ServerConfig struct {
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

// Optional trip event publishing. Disabled unless URL is set.
type NATSConfig struct {
	URL           string `yaml:"url" validate:"omitempty,url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type Config struct {
	App      AppConfig    `yaml:"app"`
	Stations []string     `yaml:"stations" validate:"min=1,dive,required"`
	Lines    []string     `yaml:"lines" validate:"dive,required"`
	Server   ServerConfig `yaml:"server"`
	NATS     NATSConfig   `yaml:"nats"`
}

// Loads configuration from a YAML file. Variables from a .env file in
// the working directory, if any, are loaded into the environment
// first, and TICKTRACK_* variables override what the file says.
func Load(path string) (*Config, error) {
	err := loadDotenv(".env")
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return Parse(data)
}

// A missing file is fine, a malformed one is not.
func loadDotenv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !os.IsNotExist(err) {
		return &ConfigurationError{Err: fmt.Errorf("loading %s: %w", path, err)}
	}
	return nil
}

// Parses, completes and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	err := yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("parsing yaml: %w", err)}
	}

	err = cfg.applyEnv()
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}

	cfg.applyDefaults()

	err = validator.New().Struct(cfg)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.DatalogDirectory == "" {
		c.App.DatalogDirectory = DefaultDatalogDirectory
	}
	if c.App.DatalogTTL == 0 {
		c.App.DatalogTTL = DefaultDatalogTTL
	}
	if c.App.PollInterval == 0 {
		c.App.PollInterval = DefaultPollInterval
	}
	if c.App.PreviewWindow == 0 {
		c.App.PreviewWindow = DefaultPreviewWindow
	}
	if c.App.RequestTimeout == 0 {
		c.App.RequestTimeout = DefaultRequestTimeout
	}
	if c.App.NumberOfResults == 0 {
		c.App.NumberOfResults = DefaultNumberOfResults
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.Lines == nil {
		c.Lines = []string{}
	}

	c.Stations = trimAll(c.Stations)
	c.Lines = trimAll(c.Lines)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TICKTRACK_ENDPOINT"); v != "" {
		c.App.Endpoint = v
	}
	if v := os.Getenv("TICKTRACK_API_KEY"); v != "" {
		c.App.APIKey = v
	}
	if v := os.Getenv("TICKTRACK_DATALOG_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TICKTRACK_DATALOG_ENABLED: %w", err)
		}
		c.App.DatalogEnabled = enabled
	}
	if v := os.Getenv("TICKTRACK_STATIONS"); v != "" {
		c.Stations = strings.Split(v, ",")
	}
	if v := os.Getenv("TICKTRACK_LINES"); v != "" {
		c.Lines = strings.Split(v, ",")
	}
	if v := os.Getenv("TICKTRACK_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("TICKTRACK_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	return nil
}

func trimAll(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, v := range values {
		trimmed = append(trimmed, strings.TrimSpace(v))
	}
	return trimmed
}
