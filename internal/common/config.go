package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Plugin  PluginConfig  `toml:"plugin"`
	Tracker TrackerConfig `toml:"tracker"`
	Cache   CacheConfig   `toml:"cache"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

type PluginConfig struct {
	Name        string `toml:"name"`
	Environment string `toml:"environment"`
	Port        int    `toml:"port"`
}

// TrackerConfig controls how the plugin talks to Unfuddle. Credentials live in
// the per-project option store; these values seed new projects and set the
// request policy (timeout, TLS) for every client the plugin builds.
type TrackerConfig struct {
	InstanceURL        string `toml:"instance_url"`
	Username           string `toml:"username"`
	Password           string `toml:"password"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

type CacheConfig struct {
	Backend    string `toml:"backend"`
	TTLSeconds int    `toml:"ttl_seconds"`
	BoltPath   string `toml:"bolt_path"`
}

type StorageConfig struct {
	DatabasePath string `toml:"database_path"`
	BackupDir    string `toml:"backup_dir"`
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Output     string `toml:"output"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
}

func DefaultConfig() *Config {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)
	execName := filepath.Base(execPath)
	execName = execName[:len(execName)-len(filepath.Ext(execName))]

	defaultDBPath := filepath.Join(execDir, "data", execName+".db")

	return &Config{
		Plugin: PluginConfig{
			Name:        execName,
			Environment: "development",
			Port:        8080,
		},
		Tracker: TrackerConfig{
			TimeoutSeconds:     5,
			InsecureSkipVerify: false,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTLSeconds: 60,
			BoltPath:   filepath.Join(execDir, "data", execName+"-cache.db"),
		},
		Storage: StorageConfig{
			DatabasePath: defaultDBPath,
			BackupDir:    "./backups",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "both",
			MaxSize:    100,
			MaxBackups: 3,
		},
	}
}

func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	if configFile == "" {
		// Auto-detect config file
		execPath, _ := os.Executable()
		execDir := filepath.Dir(execPath)
		execName := filepath.Base(execPath)
		execName = execName[:len(execName)-len(filepath.Ext(execName))]

		possiblePaths := []string{
			filepath.Join(execDir, execName+".toml"),
			filepath.Join(execDir, "config.toml"),
			"config.toml",
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			applyEnvOverrides(config)
			return config, nil
		}
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if instanceURL := os.Getenv("UNFUDDLE_INSTANCE_URL"); instanceURL != "" {
		config.Tracker.InstanceURL = instanceURL
	}
	if username := os.Getenv("UNFUDDLE_USERNAME"); username != "" {
		config.Tracker.Username = username
	}
	if password := os.Getenv("UNFUDDLE_PASSWORD"); password != "" {
		config.Tracker.Password = password
	}

	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		config.Storage.DatabasePath = dbPath
	}
	if backupDir := os.Getenv("BACKUP_DIR"); backupDir != "" {
		config.Storage.BackupDir = backupDir
	}
	if cacheBackend := os.Getenv("CACHE_BACKEND"); cacheBackend != "" {
		config.Cache.Backend = cacheBackend
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}
	if logOutput := os.Getenv("LOG_OUTPUT"); logOutput != "" {
		config.Logging.Output = logOutput
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		if portNum, err := strconv.Atoi(port); err == nil {
			config.Plugin.Port = portNum
		}
	}
}

func (c *Config) Validate() error {
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage database_path is required")
	}

	if c.Plugin.Port <= 0 {
		c.Plugin.Port = 8080
	}

	if c.Tracker.TimeoutSeconds <= 0 {
		c.Tracker.TimeoutSeconds = 5
	}

	// Stored without a trailing slash so request paths can be appended as-is.
	c.Tracker.InstanceURL = strings.TrimSuffix(c.Tracker.InstanceURL, "/")

	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 60
	}

	validBackends := []string{"memory", "bolt"}
	validBackend := false
	for _, backend := range validBackends {
		if c.Cache.Backend == backend {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid cache backend: %s", c.Cache.Backend)
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	validLevel := false
	for _, level := range validLogLevels {
		if c.Logging.Level == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validOutputs := []string{"console", "file", "both"}
	validOutput := false
	for _, output := range validOutputs {
		if c.Logging.Output == output {
			validOutput = true
			break
		}
	}
	if !validOutput {
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Plugin.Environment == "production"
}
