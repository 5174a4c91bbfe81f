// Package config loads the application settings of the taskbridge binary:
// logging, tier file locations and bridge limits. Engine properties such as
// the executable path live in the tier files managed by engine/settings.
package config

// Config holds the application settings.
type Config struct {
	Log    LogConfig    `koanf:"log"    json:"log"`
	Store  StoreConfig  `koanf:"store"  json:"store"`
	Bridge BridgeConfig `koanf:"bridge" json:"bridge"`
}

type LogConfig struct {
	Level  string `koanf:"level"  json:"level"  env:"TASKBRIDGE_LOG_LEVEL"  validate:"oneof=debug info warn error disabled"`
	JSON   bool   `koanf:"json"   json:"json"   env:"TASKBRIDGE_LOG_JSON"`
	Source bool   `koanf:"source" json:"source" env:"TASKBRIDGE_LOG_SOURCE"`
}

// StoreConfig overrides the tier file locations. Empty means the OS default.
type StoreConfig struct {
	UserFile   string `koanf:"user_file"   json:"user_file"   env:"TASKBRIDGE_USER_CONFIG"`
	SystemFile string `koanf:"system_file" json:"system_file" env:"TASKBRIDGE_SYSTEM_CONFIG"`
}

type BridgeConfig struct {
	// StdoutLimit caps the captured engine response in bytes; 0 is unlimited.
	StdoutLimit int64 `koanf:"stdout_limit" json:"stdout_limit" env:"TASKBRIDGE_STDOUT_LIMIT" validate:"min=0"`
	// StderrLimit caps the captured engine error text in bytes; 0 is unlimited.
	StderrLimit   int64 `koanf:"stderr_limit"    json:"stderr_limit"    env:"TASKBRIDGE_STDERR_LIMIT"    validate:"min=0"`
	TaskCacheSize int   `koanf:"task_cache_size" json:"task_cache_size" env:"TASKBRIDGE_TASK_CACHE_SIZE" validate:"min=0"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Bridge: BridgeConfig{
			StdoutLimit:   0,
			StderrLimit:   1 << 20,
			TaskCacheSize: 128,
		},
	}
}
