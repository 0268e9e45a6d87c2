package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	defaultOutputDir  = "."
	defaultDPI        = 300
	defaultColorScale = "extended_blackbody"
)

// Config holds runtime configuration for the geogrid CLI.
type Config struct {
	// OutputDir is where rendered figures go when no path is given
	OutputDir  string
	DPI        int
	ColorScale string
	LogLevel   logrus.Level
	// Store is the default zarr dataset directory, may be empty
	Store string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom reads configuration from environment variables, first loading
// any variables in envFile that are not already set. A missing envFile is
// ignored.
func LoadFrom(envFile string) (Config, error) {
	_ = godotenv.Load(envFile)

	cfg := Config{}

	cfg.OutputDir = strings.TrimSpace(os.Getenv("GEOGRID_OUTPUT_DIR"))
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir
	}

	cfg.DPI = defaultDPI
	if v := strings.TrimSpace(os.Getenv("GEOGRID_DPI")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid GEOGRID_DPI: %w", err)
		}
		if n <= 0 {
			return cfg, fmt.Errorf("invalid GEOGRID_DPI: %d is not positive", n)
		}
		cfg.DPI = n
	}

	cfg.ColorScale = strings.TrimSpace(os.Getenv("GEOGRID_COLOR_SCALE"))
	if cfg.ColorScale == "" {
		cfg.ColorScale = defaultColorScale
	}

	cfg.LogLevel = logrus.InfoLevel
	if v := strings.TrimSpace(os.Getenv("GEOGRID_LOG_LEVEL")); v != "" {
		lvl, err := logrus.ParseLevel(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid GEOGRID_LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = lvl
	}

	cfg.Store = strings.TrimSpace(os.Getenv("GEOGRID_STORE"))

	return cfg, nil
}
