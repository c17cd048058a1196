// Package config loads the YAML configuration with environment overrides.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSec     int      `yaml:"timeout_sec"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"log"`
	Models struct {
		Pricing struct {
			Kind string `yaml:"kind"`
			Path string `yaml:"path"`
		} `yaml:"pricing"`
		Availability struct {
			Kind string `yaml:"kind"`
			Path string `yaml:"path"`
		} `yaml:"availability"`
		WatchReload bool `yaml:"watch_reload"`
	} `yaml:"models"`
	Cache struct {
		Enabled bool `yaml:"enabled"`
		Size    int  `yaml:"size"`
		TTLSec  int  `yaml:"ttl_sec"`
	} `yaml:"cache"`
	Training struct {
		TestRatio float64 `yaml:"test_ratio"`
		Seed      int64   `yaml:"seed"`
		Samples   int     `yaml:"samples"`
		DataFile  string  `yaml:"data_file"`
	} `yaml:"training"`
}

// Default returns a config usable without any config file present.
func Default() *Config {
	cfg := &Config{}
	cfg.Http.Port = 8080
	cfg.Http.TimeoutSec = 30
	cfg.Database.Path = "parkml.db"
	cfg.Log.Level = "info"
	cfg.Log.File = "logs/parkml.log"
	cfg.Log.MaxSizeMB = 50
	cfg.Log.MaxBackups = 5
	cfg.Models.Pricing.Kind = "boosted_trees"
	cfg.Models.Pricing.Path = "models/pricing_model.json"
	cfg.Models.Availability.Kind = "random_forest"
	cfg.Models.Availability.Path = "models/availability_model.json"
	cfg.Cache.Enabled = true
	cfg.Cache.Size = 1024
	cfg.Cache.TTLSec = 300
	cfg.Training.TestRatio = 0.2
	cfg.Training.Seed = 42
	cfg.Training.Samples = 5000
	return cfg
}

// Load reads path and applies environment overrides on top. A missing
// file is not an error; defaults plus environment are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PARKML_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Http.Port = port
		}
	}
	if v := os.Getenv("PARKML_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PARKML_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PARKML_PRICING_MODEL"); v != "" {
		cfg.Models.Pricing.Path = v
	}
	if v := os.Getenv("PARKML_AVAILABILITY_MODEL"); v != "" {
		cfg.Models.Availability.Path = v
	}
}
