package config

const (
	defaultConfigPath                = "~/.config/mediatrack/config.toml"
	defaultDataDir                   = "~/.local/share/mediatrack"
	defaultLogDir                    = "~/.local/share/mediatrack/logs"
	defaultCacheDBName               = "cache.db"
	defaultTMDBLanguage              = "en-US"
	defaultTMDBBaseURL               = "https://api.themoviedb.org/3"
	defaultTMDBRequestsPerSecond     = 4.0
	defaultTMDBTimeoutSeconds        = 15
	defaultProgressUpdateWindowHours = 2
	defaultSweepIntervalSeconds      = 900
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		TMDB: TMDB{
			BaseURL:           defaultTMDBBaseURL,
			Language:          defaultTMDBLanguage,
			RequestsPerSecond: defaultTMDBRequestsPerSecond,
			TimeoutSeconds:    defaultTMDBTimeoutSeconds,
		},
		Cache: Cache{
			ProgressUpdateWindowHours: defaultProgressUpdateWindowHours,
			SweepIntervalSeconds:      defaultSweepIntervalSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
