package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "DYNFORMS_"

// LoadOptions names the layered inputs. Empty paths are skipped.
type LoadOptions struct {
	File    string
	EnvFile string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves defaults, then File, then EnvFile, then the environment.
// Flags are applied afterwards by the caller with ApplyFlags. The result is
// not validated; call Validate once every layer is in.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		raw, err := os.ReadFile(opts.File)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", opts.File, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", opts.File, err)
		}
	}

	dotenv := map[string]string{}
	if opts.EnvFile != "" {
		values, err := godotenv.Read(opts.EnvFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", opts.EnvFile, err)
		default:
			dotenv = values
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(name string) (string, bool) {
		key := EnvPrefix + name
		if value, ok := lookup(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	}

	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, env func(string) (string, bool)) error {
	strs := map[string]*string{
		"CATALOG_URL":  &cfg.CatalogURL,
		"CATALOG_FILE": &cfg.CatalogFile,
		"SUBMIT_URL":   &cfg.SubmitURL,
		"CACHE_DRIVER": &cfg.Cache.Driver,
		"CACHE_PATH":   &cfg.Cache.Path,
		"PROBE_URL":    &cfg.ProbeURL,
		"LOG_LEVEL":    &cfg.LogLevel,
	}
	for name, target := range strs {
		if value, ok := env(name); ok {
			*target = strings.TrimSpace(value)
		}
	}

	durations := map[string]*time.Duration{
		"POLL_INTERVAL":   &cfg.PollInterval,
		"PROBE_INTERVAL":  &cfg.ProbeInterval,
		"REQUEST_TIMEOUT": &cfg.RequestTimeout,
	}
	for name, target := range durations {
		value, ok := env(name)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid %s%s: %w", EnvPrefix, name, err)
		}
		*target = parsed
	}
	return nil
}
