package config

const (
	defaultLogLevel          = "warn"
	defaultLogFormat         = "text"
	defaultDebounceMs        = 2000
	defaultStableThresholdMs = 1000
)

// Default returns the built-in configuration used when no file is present.
func Default() Config {
	return Config{
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Watch: Watch{
			DebounceMs:        defaultDebounceMs,
			StableThresholdMs: defaultStableThresholdMs,
			IgnorePatterns:    DefaultIgnorePatterns(),
		},
		Lock: Lock{Enabled: true},
	}
}

// DefaultIgnorePatterns returns the default patterns for temporary files
// that watch mode leaves alone.
func DefaultIgnorePatterns() []string {
	return []string{
		"*.tmp",
		"*.part",
		"*.download",
		"*.crdownload", // Chrome partial downloads
		"*.partial",
		".~*", // Office lock files
	}
}
