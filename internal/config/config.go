package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"regnet/adapters/stats/regression"
	"regnet/internal/alignment"
	"regnet/internal/errors"
	"regnet/internal/inference"
	"regnet/internal/transition"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Log      LogConfig
	Analysis AnalysisConfig
}

// DatabaseConfig holds database connection settings. An empty URL disables
// report persistence.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// AnalysisConfig holds the default inference, transition and null settings
type AnalysisConfig struct {
	Method           inference.Method
	Backend          inference.Backend
	Weight           float64
	Lambda           float64
	PValueCutoff     float64
	MotifIncluded    bool
	MaxIterations    int
	FitTimeout       time.Duration
	TransitionLambda float64
	FallbackLambda   float64
	NullCount        int
	NullWorkers      int
	NullSeed         int64
	Randomization    alignment.Randomization
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Server:   *loadServerConfig(),
		Log:      LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "INFO")},
	}

	analysisConfig, err := loadAnalysisConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load analysis configuration")
	}
	config.Analysis = *analysisConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// InferenceOptions converts the analysis defaults into inference options
func (a AnalysisConfig) InferenceOptions() inference.Options {
	opts := inference.DefaultOptions()
	opts.Method = a.Method
	opts.Backend = a.Backend
	opts.Weight = a.Weight
	opts.Lambda = a.Lambda
	opts.PValueCutoff = a.PValueCutoff
	opts.MotifIncluded = a.MotifIncluded
	opts.MaxIterations = a.MaxIterations
	opts.FitTimeout = a.FitTimeout
	opts.RankTransform = a.Method == inference.Bere
	return opts
}

// TransitionOptions converts the analysis defaults into transition options
func (a AnalysisConfig) TransitionOptions() transition.Options {
	return transition.Options{Lambda: a.TransitionLambda, FallbackLambda: a.FallbackLambda}
}

// NullConfig converts the analysis defaults into a null ensemble configuration
func (a AnalysisConfig) NullConfig() transition.NullConfig {
	return transition.NullConfig{Count: a.NullCount, Workers: a.NullWorkers, Seed: a.NullSeed}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadAnalysisConfig() (*AnalysisConfig, error) {
	method, err := inference.ParseMethod(getEnvOrDefault("REGNET_METHOD", "bere"))
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("REGNET_METHOD: %v", err))
	}
	backend, err := inference.ParseBackend(getEnvOrDefault("REGNET_BACKEND", "ridge"))
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("REGNET_BACKEND: %v", err))
	}
	randomization, err := alignment.ParseRandomization(getEnvOrDefault("REGNET_RANDOMIZATION", "within-gene"))
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("REGNET_RANDOMIZATION: %v", err))
	}

	defaults := regression.DefaultLogisticConfig()
	cfg := &AnalysisConfig{Method: method, Backend: backend, Randomization: randomization}
	p := &envParser{}
	cfg.Weight = p.float("REGNET_WEIGHT", 1.0)
	cfg.Lambda = p.float("REGNET_LAMBDA", defaults.Lambda)
	cfg.PValueCutoff = p.float("REGNET_PVALUE_CUTOFF", 0)
	cfg.MotifIncluded = p.bool("REGNET_MOTIF_INCLUDED", false)
	cfg.MaxIterations = p.int("REGNET_MAX_ITERATIONS", defaults.MaxIterations)
	cfg.FitTimeout = p.duration("REGNET_FIT_TIMEOUT", 0)
	cfg.TransitionLambda = p.float("REGNET_TRANSITION_LAMBDA", 0)
	cfg.FallbackLambda = p.float("REGNET_FALLBACK_LAMBDA", transition.DefaultFallbackLambda)
	cfg.NullCount = p.int("REGNET_NULL_COUNT", 100)
	cfg.NullWorkers = p.int("REGNET_NULL_WORKERS", 4)
	cfg.NullSeed = int64(p.int("REGNET_NULL_SEED", 1))
	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

func validateConfig(config *Config) error {
	a := config.Analysis
	if a.Weight < 0 || a.Weight > 1 {
		return errors.ConfigInvalid("REGNET_WEIGHT must be in [0,1]")
	}
	if a.Lambda < 0 || a.TransitionLambda < 0 || a.FallbackLambda < 0 {
		return errors.ConfigInvalid("penalty strengths must be non-negative")
	}
	if a.PValueCutoff < 0 || a.PValueCutoff > 1 {
		return errors.ConfigInvalid("REGNET_PVALUE_CUTOFF must be in [0,1]")
	}
	if a.NullCount < 0 || a.NullWorkers < 1 {
		return errors.ConfigInvalid("REGNET_NULL_COUNT must be non-negative and REGNET_NULL_WORKERS positive")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envParser reads typed variables and keeps the first parse error
type envParser struct {
	err error
}

func (p *envParser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = errors.ConfigInvalid(fmt.Sprintf("%s=%q: %v", key, value, err))
	}
}

func (p *envParser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return intValue
}

func (p *envParser) float(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return floatValue
}

func (p *envParser) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return boolValue
}

func (p *envParser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return duration
}
