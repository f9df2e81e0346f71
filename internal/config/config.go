// Package config loads and validates the twilight configuration file and
// turns it into a schedule table.
package config

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/vherrmann/twilight/pkg/env"
	"github.com/vherrmann/twilight/pkg/logger"
	"github.com/vherrmann/twilight/pkg/schedule"
	"github.com/vherrmann/twilight/pkg/solar"
	"github.com/vherrmann/twilight/pkg/timespec"
)

// Config is the on-disk configuration.
type Config struct {
	Location LocationConfig `mapstructure:"location"`
	Entries  []EntryConfig  `mapstructure:"entries" validate:"min=1,dive"`

	// FallbackDelaySeconds overrides the empty-schedule retry interval.
	FallbackDelaySeconds int `mapstructure:"fallback_delay_seconds" validate:"gte=0"`
}

// LocationConfig holds the coordinates and timezone solar markers resolve
// against.
type LocationConfig struct {
	Latitude  float64 `mapstructure:"latitude" validate:"latitude"`
	Longitude float64 `mapstructure:"longitude" validate:"longitude"`
	Timezone  string  `mapstructure:"timezone"`
}

// EntryConfig is one schedule table row: activate `run` at `at`.
type EntryConfig struct {
	At    string `mapstructure:"at" validate:"required,timespec"`
	Run   string `mapstructure:"run" validate:"required"`
	Label string `mapstructure:"label"`
}

// newValidator builds the validator with the timespec rule registered.
func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("timespec", func(fl validator.FieldLevel) bool {
		_, err := timespec.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

// Load reads the configuration from path (or the default search locations
// when path is empty), applies TWILIGHT_* environment overrides, and
// validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("twilight")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/twilight")
		v.AddConfigPath("/etc/twilight")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Environment overrides.
	cfg.Location.Latitude = env.Latitude(cfg.Location.Latitude)
	cfg.Location.Longitude = env.Longitude(cfg.Location.Longitude)
	cfg.Location.Timezone = env.Timezone(cfg.Location.Timezone)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration, including every entry's time string.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Place returns the configured coordinates.
func (c *Config) Place() solar.Place {
	return solar.Place{
		Latitude:  c.Location.Latitude,
		Longitude: c.Location.Longitude,
	}
}

// TimeLocation resolves the configured timezone, defaulting to the local
// one.
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Location.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Location.Timezone, err)
	}
	return loc, nil
}

// FallbackDelay returns the configured empty-schedule retry interval, or 0
// when unset so the scheduler applies its default.
func (c *Config) FallbackDelay() time.Duration {
	return time.Duration(c.FallbackDelaySeconds) * time.Second
}

// Table converts the validated entries into a schedule table with
// shell-command callbacks. Commands are fire-and-forget: twilight starts
// them and logs the exit status without blocking the cycle.
func (c *Config) Table(log *logger.Logger) ([]schedule.Entry, error) {
	table := make([]schedule.Entry, 0, len(c.Entries))
	for i, ec := range c.Entries {
		spec, err := timespec.Parse(ec.At)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		label := ec.Label
		if label == "" {
			label = spec.String()
		}
		table = append(table, schedule.Entry{
			Label: label,
			Spec:  spec,
			Run:   commandCallback(ec.Run, log.Scope(logger.LogScope{Entry: label})),
		})
	}
	return table, nil
}

// commandCallback wraps a shell command as a schedule callback.
func commandCallback(command string, log *logger.Logger) schedule.Callback {
	return func() {
		cmd := exec.Command("/bin/sh", "-c", command)
		if err := cmd.Start(); err != nil {
			log.Error("Failed to start command", logger.LogMeta{
				"command": command,
				"error":   err.Error(),
			})
			return
		}
		go func() {
			if err := cmd.Wait(); err != nil {
				log.Error("Command exited with error", logger.LogMeta{
					"command": command,
					"error":   err.Error(),
				})
			}
		}()
	}
}
