// Package config loads dynforms settings from, in increasing precedence,
// built-in defaults, a YAML file, a .env file, DYNFORMS_* environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults.
const (
	DefaultPollInterval   = 60 * time.Second
	DefaultProbeInterval  = 15 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultCacheDriver    = "badger"
	DefaultLogLevel       = "info"
)

// CacheConfig selects the durable cache backend.
type CacheConfig struct {
	Driver string `yaml:"driver" validate:"oneof=badger sqlite memory"`
	Path   string `yaml:"path" validate:"required_unless=Driver memory"`
}

// Config is the resolved application configuration.
type Config struct {
	// CatalogURL and CatalogFile are alternatives. With neither set the
	// bundled sample catalog is used.
	CatalogURL     string        `yaml:"catalog_url" validate:"omitempty,url,excluded_with=CatalogFile"`
	CatalogFile    string        `yaml:"catalog_file"`
	PollInterval   time.Duration `yaml:"poll_interval" validate:"gte=1s"`
	SubmitURL      string        `yaml:"submit_url" validate:"omitempty,url"`
	Cache          CacheConfig   `yaml:"cache"`
	ProbeURL       string        `yaml:"probe_url" validate:"omitempty,url"`
	ProbeInterval  time.Duration `yaml:"probe_interval" validate:"gte=1s"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	LogLevel       string        `yaml:"log_level" validate:"oneof=info debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PollInterval:   DefaultPollInterval,
		Cache:          CacheConfig{Driver: DefaultCacheDriver, Path: defaultCachePath()},
		ProbeInterval:  DefaultProbeInterval,
		RequestTimeout: DefaultRequestTimeout,
		LogLevel:       DefaultLogLevel,
	}
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".dynforms", "cache")
	}
	return filepath.Join(home, ".dynforms", "cache")
}

// Probe returns the reachability probe target, falling back to CatalogURL.
func (c Config) Probe() string {
	if c.ProbeURL != "" {
		return c.ProbeURL
	}
	return c.CatalogURL
}

// Debug reports whether debug logging is requested.
func (c Config) Debug() bool {
	return c.LogLevel == "debug"
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field. Failures are joined, one per field, as
// "config: invalid <field>: <tag>".
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("config: invalid %s: %s", fieldName(fe.Namespace()), fe.Tag()))
	}
	return errors.Join(errs...)
}

// fieldName drops the root struct name: "Config.cache.driver" -> "cache.driver".
func fieldName(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}
