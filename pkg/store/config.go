package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is everything the console reads from .colcon.yaml, the environment
// and .env.
type Config interface {
	BasePath() string
	APIURL() string
	CatalogPageSize() int
	ConstantsPageSize() int
	RequestTimeout() time.Duration
	LogFile() string
	LogLevel() string
}

const (
	defaultPath              = "~/.colcon"
	defaultCatalogPageSize   = 36
	defaultConstantsPageSize = 6
	logFileName              = "colcon.log"
)

// LoadConfig reads configuration. A .env file in the working directory is
// loaded into the environment first; variables already set win.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("store: read .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("path", defaultPath)
	v.SetDefault("api_url", "")
	v.SetDefault("catalog_page_size", defaultCatalogPageSize)
	v.SetDefault("constants_page_size", defaultConstantsPageSize)
	v.SetDefault("request_timeout", time.Duration(0))
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
	v.SetConfigName(".colcon") // .yaml is implicit
	v.SetEnvPrefix("COLCON")
	v.AutomaticEnv()

	if override := os.Getenv("COLCON_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("store: read config: %w", err)
		}
	}

	path, err := homedir.Expand(v.GetString("path"))
	if err != nil {
		return nil, fmt.Errorf("store: expand path: %w", err)
	}

	cfg := &fileConfig{
		Path:          path,
		API:           v.GetString("api_url"),
		CatalogSize:   v.GetInt("catalog_page_size"),
		ConstantsSize: v.GetInt("constants_page_size"),
		Timeout:       v.GetDuration("request_timeout"),
		Log:           v.GetString("log_file"),
		Level:         v.GetString("log_level"),
	}
	if cfg.Log != "" {
		if cfg.Log, err = homedir.Expand(cfg.Log); err != nil {
			return nil, fmt.Errorf("store: expand log_file: %w", err)
		}
	}
	return cfg, nil
}

// StaticConfig is a Config with fixed values. Zero fields fall back to the
// defaults.
type StaticConfig struct {
	Path      string
	API       string
	Catalog   int
	Constants int
	Timeout   time.Duration
	Log       string
	Level     string
}

func (c StaticConfig) BasePath() string { return c.Path }
func (c StaticConfig) APIURL() string   { return c.API }

func (c StaticConfig) CatalogPageSize() int {
	if c.Catalog <= 0 {
		return defaultCatalogPageSize
	}
	return c.Catalog
}

func (c StaticConfig) ConstantsPageSize() int {
	if c.Constants <= 0 {
		return defaultConstantsPageSize
	}
	return c.Constants
}

func (c StaticConfig) RequestTimeout() time.Duration { return c.Timeout }

func (c StaticConfig) LogFile() string {
	if c.Log == "" && c.Path != "" {
		return filepath.Join(c.Path, logFileName)
	}
	return c.Log
}

func (c StaticConfig) LogLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

type fileConfig struct {
	Path          string        `json:"path" yaml:"path"`
	API           string        `json:"apiUrl" yaml:"apiUrl"`
	CatalogSize   int           `json:"catalogPageSize" yaml:"catalogPageSize"`
	ConstantsSize int           `json:"constantsPageSize" yaml:"constantsPageSize"`
	Timeout       time.Duration `json:"requestTimeout" yaml:"requestTimeout"`
	Log           string        `json:"logFile" yaml:"logFile"`
	Level         string        `json:"logLevel" yaml:"logLevel"`
}

func (f *fileConfig) BasePath() string { return f.Path }
func (f *fileConfig) APIURL() string   { return f.API }

func (f *fileConfig) CatalogPageSize() int {
	if f.CatalogSize <= 0 {
		return defaultCatalogPageSize
	}
	return f.CatalogSize
}

func (f *fileConfig) ConstantsPageSize() int {
	if f.ConstantsSize <= 0 {
		return defaultConstantsPageSize
	}
	return f.ConstantsSize
}

func (f *fileConfig) RequestTimeout() time.Duration { return f.Timeout }

func (f *fileConfig) LogFile() string {
	if f.Log == "" {
		return filepath.Join(f.Path, logFileName)
	}
	return f.Log
}

func (f *fileConfig) LogLevel() string { return f.Level }
