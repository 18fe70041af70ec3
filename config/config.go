package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/semqueue/errors"
)

// DefaultEnvPrefix is the prefix for environment variable overrides
const DefaultEnvPrefix = "SEMQUEUE"

// Config represents the complete load driver configuration
type Config struct {
	Queue    QueueConfig    `yaml:"queue" json:"queue"`
	Workload WorkloadConfig `yaml:"workload" json:"workload"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// QueueConfig describes the blocking queue under test
type QueueConfig struct {
	Name     string `yaml:"name" json:"name"`
	Capacity int    `yaml:"capacity" json:"capacity"`
}

// WorkloadConfig describes the producers and consumers driving the queue
type WorkloadConfig struct {
	Producers        int `yaml:"producers" json:"producers"`
	Consumers        int `yaml:"consumers" json:"consumers"`
	ItemsPerProducer int `yaml:"items_per_producer" json:"items_per_producer"`

	// Workers > 0 replaces plain consumers with a worker pool of that size
	Workers int `yaml:"workers" json:"workers"`

	// ProcessDelay is the simulated cost of handling one item
	ProcessDelay time.Duration `yaml:"process_delay" json:"process_delay"`

	// ClearInterval > 0 clears the queue periodically while traffic runs
	ClearInterval time.Duration `yaml:"clear_interval" json:"clear_interval"`

	// Rate caps production across all producers in items per second; 0 is unlimited
	Rate float64 `yaml:"rate" json:"rate"`

	// Backoff makes producers try the non-blocking path with retries
	// before falling back to a blocking enqueue
	Backoff bool `yaml:"backoff" json:"backoff"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Queue: QueueConfig{
			Name:     "semqueue",
			Capacity: 64,
		},
		Workload: WorkloadConfig{
			Producers:        4,
			Consumers:        4,
			ItemsPerProducer: 10000,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Parse decodes a YAML (or JSON) document over the defaults and validates it
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.merge(data); err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Parse", "decode document")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads, parses and validates a single config file
func Load(path string) (*Config, error) {
	loader := NewLoader()
	loader.AddLayer(path)
	return loader.Load()
}

// merge decodes data over c. Keys absent from data leave fields unchanged.
func (c *Config) merge(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Validate checks every field and reports all problems at once
func (c *Config) Validate() error {
	var problems []string

	if c.Queue.Capacity <= 0 {
		problems = append(problems, fmt.Sprintf("queue.capacity must be positive, got %d", c.Queue.Capacity))
	}
	if c.Workload.Producers <= 0 {
		problems = append(problems, fmt.Sprintf("workload.producers must be positive, got %d", c.Workload.Producers))
	}
	if c.Workload.Workers < 0 {
		problems = append(problems, fmt.Sprintf("workload.workers must not be negative, got %d", c.Workload.Workers))
	}
	if c.Workload.Workers == 0 && c.Workload.Consumers <= 0 {
		problems = append(problems, fmt.Sprintf("workload.consumers must be positive, got %d", c.Workload.Consumers))
	}
	if c.Workload.ItemsPerProducer < 0 {
		problems = append(problems,
			fmt.Sprintf("workload.items_per_producer must not be negative, got %d", c.Workload.ItemsPerProducer))
	}
	if c.Workload.ProcessDelay < 0 {
		problems = append(problems, "workload.process_delay must not be negative")
	}
	if c.Workload.ClearInterval < 0 {
		problems = append(problems, "workload.clear_interval must not be negative")
	}
	if c.Workload.Rate < 0 {
		problems = append(problems, fmt.Sprintf("workload.rate must not be negative, got %g", c.Workload.Rate))
	}
	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			problems = append(problems, fmt.Sprintf("metrics.port out of range: %d", c.Metrics.Port))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			problems = append(problems, fmt.Sprintf("metrics.path must start with '/', got %q", c.Metrics.Path))
		}
	}

	if len(problems) > 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(problems, "; ")),
			"Config", "Validate", "field validation")
	}
	return nil
}

// TotalItems returns the number of items the producers will enqueue
func (c *Config) TotalItems() int {
	return c.Workload.Producers * c.Workload.ItemsPerProducer
}

// String renders the configuration as YAML
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(data)
}

// Loader loads configuration from layered files plus environment overrides.
// Later layers override earlier ones key by key.
type Loader struct {
	layers           []string
	envPrefix        string
	enableValidation bool
}

// NewLoader creates a loader with validation enabled and the default env prefix
func NewLoader() *Loader {
	return &Loader{
		envPrefix:        DefaultEnvPrefix,
		enableValidation: true,
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation controls whether Load validates the result
func (l *Loader) EnableValidation(enable bool) {
	l.enableValidation = enable
}

// SetEnvPrefix changes the environment variable prefix
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// Load applies defaults, every layer in order, then environment overrides
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		data, err := safeReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("read layer %s", path))
		}
		if err := cfg.merge(data); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("decode layer %s", path))
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.enableValidation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	ints := []struct {
		key    string
		target *int
	}{
		{"_QUEUE_CAPACITY", &cfg.Queue.Capacity},
		{"_PRODUCERS", &cfg.Workload.Producers},
		{"_CONSUMERS", &cfg.Workload.Consumers},
		{"_ITEMS_PER_PRODUCER", &cfg.Workload.ItemsPerProducer},
		{"_WORKERS", &cfg.Workload.Workers},
		{"_METRICS_PORT", &cfg.Metrics.Port},
	}

	if val, ok, err := l.lookupEnv("_QUEUE_NAME"); err != nil {
		return err
	} else if ok {
		cfg.Queue.Name = val
	}

	for _, o := range ints {
		val, ok, err := l.lookupEnv(o.key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides", "parse "+l.envPrefix+o.key)
		}
		*o.target = n
	}

	bools := []struct {
		key    string
		target *bool
	}{
		{"_METRICS_ENABLED", &cfg.Metrics.Enabled},
		{"_BACKOFF", &cfg.Workload.Backoff},
	}

	for _, o := range bools {
		val, ok, err := l.lookupEnv(o.key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides", "parse "+l.envPrefix+o.key)
		}
		*o.target = b
	}

	return nil
}

func (l *Loader) lookupEnv(suffix string) (string, bool, error) {
	key := l.envPrefix + suffix
	val := os.Getenv(key)
	if val == "" {
		return "", false, nil
	}
	if err := validateEnvVar(key, val); err != nil {
		return "", false, errors.WrapInvalid(err, "Loader", "applyEnvOverrides", "validate "+key)
	}
	return val, true, nil
}
