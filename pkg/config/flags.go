package config

import "github.com/spf13/pflag"

// Flag names.
const (
	FlagCatalogURL     = "catalog-url"
	FlagCatalogFile    = "catalog-file"
	FlagPollInterval   = "poll-interval"
	FlagSubmitURL      = "submit-url"
	FlagCacheDriver    = "cache-driver"
	FlagCachePath      = "cache-path"
	FlagProbeURL       = "probe-url"
	FlagProbeInterval  = "probe-interval"
	FlagRequestTimeout = "request-timeout"
	FlagDebug          = "debug"
)

// RegisterFlags declares every override flag on fs. Defaults shown in help
// come from Default.
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.String(FlagCatalogURL, "", "catalog endpoint URL")
	fs.String(FlagCatalogFile, "", "catalog file (JSON or YAML)")
	fs.Duration(FlagPollInterval, def.PollInterval, "catalog refresh interval")
	fs.String(FlagSubmitURL, "", "submission endpoint; submissions are logged when empty")
	fs.String(FlagCacheDriver, def.Cache.Driver, "cache backend: badger, sqlite or memory")
	fs.String(FlagCachePath, def.Cache.Path, "cache directory")
	fs.String(FlagProbeURL, "", "reachability probe URL (defaults to the catalog URL)")
	fs.Duration(FlagProbeInterval, def.ProbeInterval, "reachability probe interval")
	fs.Duration(FlagRequestTimeout, def.RequestTimeout, "HTTP request timeout")
	fs.Bool(FlagDebug, false, "enable debug logging")
}

// ApplyFlags copies every flag the user set on fs into cfg. Unset flags
// leave lower layers alone.
func ApplyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagCatalogURL:
			cfg.CatalogURL, err = fs.GetString(f.Name)
		case FlagCatalogFile:
			cfg.CatalogFile, err = fs.GetString(f.Name)
		case FlagPollInterval:
			cfg.PollInterval, err = fs.GetDuration(f.Name)
		case FlagSubmitURL:
			cfg.SubmitURL, err = fs.GetString(f.Name)
		case FlagCacheDriver:
			cfg.Cache.Driver, err = fs.GetString(f.Name)
		case FlagCachePath:
			cfg.Cache.Path, err = fs.GetString(f.Name)
		case FlagProbeURL:
			cfg.ProbeURL, err = fs.GetString(f.Name)
		case FlagProbeInterval:
			cfg.ProbeInterval, err = fs.GetDuration(f.Name)
		case FlagRequestTimeout:
			cfg.RequestTimeout, err = fs.GetDuration(f.Name)
		case FlagDebug:
			var debug bool
			debug, err = fs.GetBool(f.Name)
			if debug {
				cfg.LogLevel = "debug"
			}
		}
	})
	return err
}
