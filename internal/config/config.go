// Package config resolves runtime settings from flags, the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Setting keys. Environment variables use the upper-cased key with dashes
// replaced by underscores (log-level -> LOG_LEVEL).
const (
	KeyPort            = "port"
	KeyLogLevel        = "log-level"
	KeyDocsPath        = "docs-path"
	KeyShutdownTimeout = "shutdown-timeout"
)

// Config holds the resolved server settings.
type Config struct {
	Port            string
	LogLevel        string
	DocsPath        string
	ShutdownTimeout time.Duration
}

// Addr returns the listen address for the configured port.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Defaults returns the settings used when nothing overrides them.
func Defaults() Config {
	return Config{
		Port:            "8080",
		LogLevel:        "info",
		DocsPath:        "/api-docs",
		ShutdownTimeout: 10 * time.Second,
	}
}

// RegisterFlags declares the command-line flags Load understands.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Defaults()
	flags.String(KeyPort, d.Port, "HTTP listen port")
	flags.String(KeyLogLevel, d.LogLevel, "minimum log level (debug, info, warn, error)")
	flags.String(KeyDocsPath, d.DocsPath, "path serving the OpenAPI docs")
	flags.Duration(KeyShutdownTimeout, d.ShutdownTimeout, "graceful shutdown deadline")
}

// Load resolves the configuration. Precedence, highest first: flags explicitly
// set on the command line, environment variables, the given .env files (".env"
// when none are named; missing files are ignored), defaults.
func Load(flags *pflag.FlagSet, envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	d := Defaults()
	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyDocsPath, d.DocsPath)
	v.SetDefault(KeyShutdownTimeout, d.ShutdownTimeout)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	cfg := Config{
		Port:            v.GetString(KeyPort),
		LogLevel:        strings.ToLower(v.GetString(KeyLogLevel)),
		DocsPath:        v.GetString(KeyDocsPath),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("invalid %s %q: must be a number between 0 and 65535", KeyPort, c.Port)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid %s %q: %w", KeyLogLevel, c.LogLevel, err)
	}
	if !strings.HasPrefix(c.DocsPath, "/") || c.DocsPath == "/" {
		return fmt.Errorf("invalid %s %q: must be an absolute path other than /", KeyDocsPath, c.DocsPath)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid %s %s: must be positive", KeyShutdownTimeout, c.ShutdownTimeout)
	}
	return nil
}
