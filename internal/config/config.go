// Package config reads server settings from the environment.
//
// Every variable is optional. Unset variables keep the defaults of
// deskew.DefaultOptions. Malformed ones are reported together by Load so a
// misconfigured server fails at start-up rather than on the first call.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/ironsheep/deskew-mcp/internal/deskew"
	"github.com/ironsheep/deskew-mcp/internal/logging"
	"github.com/ironsheep/deskew-mcp/internal/skew"
)

// EnvPrefix starts every variable read by Load.
const EnvPrefix = "DESKEW_MCP_"

// Environment variables read by Load.
const (
	EnvLogLevel        = EnvPrefix + "LOG_LEVEL"
	EnvLogFormat       = EnvPrefix + "LOG_FORMAT"
	EnvStrategy        = EnvPrefix + "STRATEGY"
	EnvPolicy          = EnvPrefix + "POLICY"
	EnvWorkers         = EnvPrefix + "WORKERS"
	EnvTopK            = EnvPrefix + "TOP_K"
	EnvLuminanceCutoff = EnvPrefix + "LUMINANCE_CUTOFF"
	EnvBinarize        = EnvPrefix + "BINARIZE"
	EnvThresholdLevel  = EnvPrefix + "THRESHOLD_LEVEL"
	EnvBlurRadius      = EnvPrefix + "BLUR_RADIUS"
)

// Config holds the process-wide settings.
type Config struct {
	LogLevel  zerolog.Level
	LogFormat string

	// Deskew is the baseline for every estimate. Tool arguments override
	// individual fields per call.
	Deskew deskew.Options
}

// settings mirrors the variables above without the prefix. Fields are
// pre-filled with defaults, which env keeps for unset variables.
type settings struct {
	LogLevel        string          `env:"LOG_LEVEL"`
	LogFormat       string          `env:"LOG_FORMAT"`
	Strategy        deskew.Strategy `env:"STRATEGY"`
	Policy          skew.Policy     `env:"POLICY"`
	Workers         int             `env:"WORKERS"`
	TopK            int             `env:"TOP_K"`
	LuminanceCutoff int             `env:"LUMINANCE_CUTOFF"`
	Binarize        bool            `env:"BINARIZE"`
	ThresholdLevel  int             `env:"THRESHOLD_LEVEL"`
	BlurRadius      float64         `env:"BLUR_RADIUS"`
}

// Load reads the process environment.
func Load() (*Config, error) {
	return FromEnv(nil)
}

// FromEnv builds a Config from environ, a map of variable names to values.
// A nil map reads the process environment.
func FromEnv(environ map[string]string) (*Config, error) {
	opts := deskew.DefaultOptions()
	s := settings{
		Strategy:        opts.Strategy,
		Policy:          opts.Policy,
		Workers:         opts.Workers,
		TopK:            opts.TopK,
		LuminanceCutoff: opts.LuminanceCutoff,
		Binarize:        opts.Binarize,
		ThresholdLevel:  opts.ThresholdLevel,
		BlurRadius:      opts.BlurRadius,
	}

	var errs []error
	if err := env.ParseWithOptions(&s, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		var agg env.AggregateError
		if errors.As(err, &agg) {
			errs = append(errs, agg.Errors...)
		} else {
			errs = append(errs, err)
		}
	}

	cfg := &Config{}
	var err error
	if cfg.LogLevel, err = logging.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvLogLevel, err))
	}
	if cfg.LogFormat, err = logging.ParseFormat(s.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvLogFormat, err))
	}

	opts.Strategy = s.Strategy
	opts.Policy = s.Policy
	opts.Workers = s.Workers
	opts.TopK = s.TopK
	opts.LuminanceCutoff = s.LuminanceCutoff
	opts.Binarize = s.Binarize
	opts.ThresholdLevel = s.ThresholdLevel
	opts.BlurRadius = s.BlurRadius
	cfg.Deskew = opts

	if len(errs) == 0 {
		if err := cfg.Deskew.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}
