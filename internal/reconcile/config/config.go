package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/anthanhphan/gosdk/conflux"
	"github.com/anthanhphan/gosdk/logger"
	"github.com/go-playground/validator/v10"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds reconciliation harness configuration
type Config struct {
	Filter  FilterConfig  `json:"filter" yaml:"filter"`
	Dataset DatasetConfig `json:"dataset" yaml:"dataset"`
	Round   RoundConfig   `json:"round" yaml:"round"`
	Logger  logger.Config `json:"logger" yaml:"logger"`
}

// FilterConfig tunes the artifacts the master publishes.
type FilterConfig struct {
	// CapacityHint sizes the filter; 0 sizes it from the master's actual cardinality.
	CapacityHint      uint    `json:"capacity_hint" yaml:"capacity_hint"`
	FalsePositiveRate float64 `json:"false_positive_rate" yaml:"false_positive_rate" validate:"gt=0,lt=1"`
	// Buckets is the bucket tree leaf count; 0 disables the tree.
	Buckets int `json:"buckets" yaml:"buckets" validate:"pow2orzero"`
}

// DatasetConfig drives sample data generation only. It never sizes the filter.
type DatasetConfig struct {
	Replicas        int    `json:"replicas" yaml:"replicas" validate:"gte=1"`
	MaxItemsPerNode int32  `json:"max_items_per_node" yaml:"max_items_per_node" validate:"gte=1"`
	MaxItemValue    int32  `json:"max_item_value" yaml:"max_item_value" validate:"gte=1"`
	Seed            uint64 `json:"seed" yaml:"seed"`
}

type RoundConfig struct {
	Count   int `json:"count" yaml:"count" validate:"gte=1"`
	Workers int `json:"workers" yaml:"workers" validate:"gte=1"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Filter: FilterConfig{
			FalsePositiveRate: 0.01,
			Buckets:           64,
		},
		Dataset: DatasetConfig{
			Replicas:        2,
			MaxItemsPerNode: 100,
			MaxItemValue:    100,
		},
		Round: RoundConfig{
			Count:   5,
			Workers: 4,
		},
		Logger: logger.Config{
			LogLevel:    logger.LevelInfo,
			LogEncoding: logger.EncodingJSON,
		},
	}
}

// Validate checks field constraints. A false positive rate outside (0, 1) is
// rejected rather than clamped.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("pow2orzero", isPowerOfTwoOrZero); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func isPowerOfTwoOrZero(fl validator.FieldLevel) bool {
	n := fl.Field().Int()
	return n == 0 || (n >= 2 && n&(n-1) == 0)
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	configPath := path
	if configPath == "" {
		env := os.Getenv("ENV")
		if env == "" {
			env = "local"
		}
		configPath = filepath.Join("internal", "reconcile", "config", env+".yaml")
	}

	cfg := DefaultConfig()

	parsedCfg, err := conflux.ParseConfig(configPath, cfg)
	if err != nil {
		log.Printf("Config file not found or failed to parse, using defaults if file not specified. Path: %s, Error: %v", configPath, err)
		if path != "" {
			return nil, err
		}
		parsedCfg = cfg
	}

	if err := parsedCfg.Validate(); err != nil {
		return nil, err
	}
	return parsedCfg, nil
}

// MustLoad loads configuration or exits on error
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}
