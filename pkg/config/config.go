// Package config loads the evaluation configuration.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the full evaluation configuration.
type Config struct {
	Scenarios  []Scenario `mapstructure:"scenarios"`
	Evaluation Evaluation `mapstructure:"evaluation"`
	ConvNet    ConvNet    `mapstructure:"convnet"`
	Logging    Logging    `mapstructure:"logging"`
}

// Scenario names one attack condition and its telemetry CSV.
type Scenario struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

// Evaluation holds the batch policy knobs.
type Evaluation struct {
	Task         string  `mapstructure:"task"`
	Mode         string  `mapstructure:"mode"`
	Threshold    float64 `mapstructure:"threshold"`
	TestFraction float64 `mapstructure:"test_fraction"`
	Seed         int64   `mapstructure:"seed"`
	Workers      int     `mapstructure:"workers"`
}

// ConvNet holds the convolutional model's training budget.
type ConvNet struct {
	Epochs       int     `mapstructure:"epochs"`
	BatchSize    int     `mapstructure:"batch_size"`
	LearningRate float64 `mapstructure:"learning_rate"`
}

// Logging configures the zap logger.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads a yaml config file and applies defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("evaluation.task", "regression")
	v.SetDefault("evaluation.mode", "in_sample")
	v.SetDefault("evaluation.threshold", 0.85)
	v.SetDefault("evaluation.test_fraction", 0.2)
	v.SetDefault("evaluation.seed", 42)
	v.SetDefault("evaluation.workers", 1)
	v.SetDefault("convnet.epochs", 50)
	v.SetDefault("convnet.batch_size", 8)
	v.SetDefault("convnet.learning_rate", 0.001)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.Scenarios) == 0 {
		return nil, fmt.Errorf("config %q lists no scenarios", path)
	}
	for _, s := range cfg.Scenarios {
		if s.Name == "" || s.Path == "" {
			return nil, fmt.Errorf("scenario entries need both name and path")
		}
	}
	if cfg.Evaluation.TestFraction <= 0 || cfg.Evaluation.TestFraction >= 1 {
		return nil, fmt.Errorf("test_fraction must be in (0, 1), got %v", cfg.Evaluation.TestFraction)
	}

	return &cfg, nil
}
