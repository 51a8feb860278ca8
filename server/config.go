package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const devSecret = "dev-only-secret"

type Config struct {
	Addr        string        `yaml:"addr"`
	DatabaseURL string        `yaml:"database_url"`
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	UploadDir   string        `yaml:"upload_dir"`
	MaxUpload   string        `yaml:"max_upload"`
	LogLevel    string        `yaml:"log_level"`
	Dev         bool          `yaml:"dev"`

	maxUploadBytes int64
	logLevel       slog.Level
}

func defaultConfig() Config {
	return Config{
		Addr:        ":8080",
		DatabaseURL: "postgres://postgres:postgres@db:5432/trello?sslmode=disable",
		TokenTTL:    24 * time.Hour,
		UploadDir:   "./uploads",
		MaxUpload:   "10MB",
		LogLevel:    "info",
	}
}

// loadConfig layers defaults, an optional YAML file, the environment and
// finally command-line flags.
func loadConfig(args []string, lookup func(string) (string, bool)) (Config, error) {
	cfg := defaultConfig()

	fs := pflag.NewFlagSet("trello-clone", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	addr := fs.String("addr", cfg.Addr, "listen address")
	dbURL := fs.String("database-url", cfg.DatabaseURL, "postgres:// or file: database url")
	ttl := fs.Duration("token-ttl", cfg.TokenTTL, "bearer token lifetime")
	uploadDir := fs.String("upload-dir", cfg.UploadDir, "attachment storage directory")
	maxUpload := fs.String("max-upload", cfg.MaxUpload, "largest accepted attachment, e.g. 10MB")
	logLevel := fs.String("log-level", cfg.LogLevel, "debug, info, warn or error")
	dev := fs.Bool("dev", cfg.Dev, "development mode")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	path := *configPath
	if path == "" {
		path, _ = lookup("CONFIG_FILE")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	env := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	env("ADDR", &cfg.Addr)
	env("DATABASE_URL", &cfg.DatabaseURL)
	env("JWT_SECRET", &cfg.JWTSecret)
	env("UPLOAD_DIR", &cfg.UploadDir)
	env("MAX_UPLOAD_BYTES", &cfg.MaxUpload)
	env("LOG_LEVEL", &cfg.LogLevel)
	if v, ok := lookup("TOKEN_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = d
	}
	if v, ok := lookup("DEV"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("DEV: %w", err)
		}
		cfg.Dev = b
	}

	if fs.Changed("addr") {
		cfg.Addr = *addr
	}
	if fs.Changed("database-url") {
		cfg.DatabaseURL = *dbURL
	}
	if fs.Changed("token-ttl") {
		cfg.TokenTTL = *ttl
	}
	if fs.Changed("upload-dir") {
		cfg.UploadDir = *uploadDir
	}
	if fs.Changed("max-upload") {
		cfg.MaxUpload = *maxUpload
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("dev") {
		cfg.Dev = *dev
	}

	if err := cfg.finish(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	if c.JWTSecret == "" {
		if !c.Dev {
			return errors.New("JWT_SECRET is required outside dev mode")
		}
		c.JWTSecret = devSecret
	}
	if c.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	n, err := humanize.ParseBytes(c.MaxUpload)
	if err != nil {
		return fmt.Errorf("max upload %q: %w", c.MaxUpload, err)
	}
	if n == 0 {
		return errors.New("max upload must be positive")
	}
	c.maxUploadBytes = int64(n)
	if err := c.logLevel.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}
