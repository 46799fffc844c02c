// Package config loads the forecast job configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"menu-forecast/internal/domain"
	"menu-forecast/internal/forecaster"
)

// Storage backends.
const (
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
)

// Environment overrides applied by LoadWithEnv.
const (
	EnvPostgresDSN   = "FORECAST_POSTGRES_DSN"
	EnvClickhouseDSN = "FORECAST_CLICKHOUSE_DSN"
	EnvStorage       = "FORECAST_STORAGE"
)

// Config is the full job configuration.
type Config struct {
	Forecast Forecast `yaml:"forecast"`
	Series   Series   `yaml:"series"`
	Storage  Storage  `yaml:"storage"`
	Logging  Logging  `yaml:"logging"`
	Metrics  Metrics  `yaml:"metrics"`
	Report   Report   `yaml:"report"`
}

// Forecast configures the models, the backtest and the worker pool.
type Forecast struct {
	EvalWeeks       int           `yaml:"eval_weeks" default:"2" validate:"min=1"`
	KWeeks          int           `yaml:"k_weeks" default:"4" validate:"min=1"`
	HorizonDays     int           `yaml:"horizon_days" default:"7" validate:"min=1"`
	MinHistory      int           `yaml:"min_history" default:"14" validate:"min=1"`
	Baseline        string        `yaml:"baseline" default:"seasonal_ma" validate:"required"`
	Candidate       string        `yaml:"candidate" default:"ridge" validate:"oneof=ridge lasso decomposition"`
	SelectionMetric string        `yaml:"selection_metric" default:"smape" validate:"oneof=mape smape"`
	IntervalZ       float64       `yaml:"interval_z" default:"1.96" validate:"gte=0"`
	RidgeAlpha      float64       `yaml:"ridge_alpha" default:"1.0" validate:"gt=0"`
	LassoAlpha      float64       `yaml:"lasso_alpha" default:"0.0005" validate:"gt=0"`
	Workers         int           `yaml:"workers" default:"1" validate:"min=1"`
	EntityTimeout   time.Duration `yaml:"entity_timeout" default:"30s" validate:"gte=0"`
}

// Series configures the date range and calendar of the built series.
type Series struct {
	Start        string `yaml:"start" validate:"omitempty,datetime=2006-01-02"`
	End          string `yaml:"end" validate:"omitempty,datetime=2006-01-02"`
	HolidaysFile string `yaml:"holidays_file"`
	Timezone     string `yaml:"timezone" default:"Asia/Tokyo" validate:"timezone"`
}

// Storage selects the observation source and the forecast store.
type Storage struct {
	Backend       string `yaml:"backend" default:"memory" validate:"oneof=memory postgres clickhouse"`
	PostgresDSN   string `yaml:"postgres_dsn" validate:"required_if=Backend postgres"`
	ClickhouseDSN string `yaml:"clickhouse_dsn" validate:"required_if=Backend clickhouse"`
	Migrate       bool   `yaml:"migrate"`
	// Fixture is an observation CSV loaded by the memory backend.
	Fixture string `yaml:"fixture" validate:"required_if=Backend memory"`
}

// Logging configures the zerolog output.
type Logging struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
}

// Metrics configures the Pushgateway export. An empty URL disables it.
type Metrics struct {
	PushURL string `yaml:"push_url" validate:"omitempty,url"`
	Job     string `yaml:"job" default:"menu_forecast"`
}

// Report configures the output directory.
type Report struct {
	OutputDir string `yaml:"output_dir" default:"reports" validate:"required"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	// defaults only fails on malformed tags
	if err := defaults.Set(c); err != nil {
		panic(err)
	}
	return c
}

// Parse decodes YAML and applies defaults to unset fields. It does not validate.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads, parses and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// An empty path starts from the defaults.
func LoadWithEnv(path string) (*Config, error) {
	c := Default()
	if path != "" {
		var err error
		if c, err = read(path); err != nil {
			return nil, err
		}
	}

	// Override with environment variables
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv(EnvClickhouseDSN); v != "" {
		c.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv(EnvStorage); v != "" {
		c.Storage.Backend = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Validate checks field constraints, the model names and the date range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, _, err := forecaster.FromConfig(c.ForecasterConfig(), nil); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	start, end, err := c.Range()
	if err != nil {
		return err
	}
	if start != nil && end != nil && start.After(*end) {
		return fmt.Errorf("series: start %s is after end %s", c.Series.Start, c.Series.End)
	}
	return nil
}

// ForecasterConfig maps the forecast section onto the model factory config.
func (c *Config) ForecasterConfig() forecaster.Config {
	f := c.Forecast
	return forecaster.Config{
		Baseline:   f.Baseline,
		Candidate:  f.Candidate,
		KWeeks:     f.KWeeks,
		MinHistory: f.MinHistory,
		RidgeAlpha: f.RidgeAlpha,
		LassoAlpha: f.LassoAlpha,
		IntervalZ:  f.IntervalZ,
	}
}

// Range parses the optional series bounds.
func (c *Config) Range() (start, end *time.Time, err error) {
	if c.Series.Start != "" {
		t, err := domain.ParseDate(c.Series.Start)
		if err != nil {
			return nil, nil, fmt.Errorf("series.start: %w", err)
		}
		start = &t
	}
	if c.Series.End != "" {
		t, err := domain.ParseDate(c.Series.End)
		if err != nil {
			return nil, nil, fmt.Errorf("series.end: %w", err)
		}
		end = &t
	}
	return start, end, nil
}
