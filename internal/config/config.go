// Package config loads yuflow's TOML configuration, creating it with defaults on
// first launch, and applies environment overrides.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	AppName               = "yuflow"
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "yuflow.db"
	DefaultDataFileName   = "yuflow.json"
)

// Environment overrides
const (
	EnvPlatform = "YUFLOW_PLATFORM"
	EnvDBPath   = "YUFLOW_DB_PATH"
	EnvDBDriver = "YUFLOW_DB_DRIVER"
	EnvDataFile = "YUFLOW_DATA_FILE"
	EnvLogLevel = "YUFLOW_LOG_LEVEL"
)

type Storage struct {
	// DBPath is the SQLite database used by the desktop backend
	DBPath string `toml:"db_path"`
	// Driver is "sqlite3" (cgo) or "sqlite" (pure Go)
	Driver string `toml:"driver"`
	// DataFile is the document store file used by the web backend
	DataFile string `toml:"data_file"`
}

type Log struct {
	Level       string `toml:"level"`
	File        string `toml:"file"`
	Development bool   `toml:"development"`
}

type Backup struct {
	Dir string `toml:"dir"`
}

type UI struct {
	DefaultFilter string `toml:"default_filter"` // all, active, completed
	DefaultSort   string `toml:"default_sort"`   // created, priority, due_date, title
	Theme         string `toml:"theme"`          // tokyo-night, tokyo-night-day
}

type Config struct {
	// Platform selects the backend: auto, desktop or web
	Platform string  `toml:"platform"`
	Storage  Storage `toml:"storage"`
	Log      Log     `toml:"log"`
	Backup   Backup  `toml:"backup"`
	UI       UI      `toml:"ui"`
}

// DataDir returns the directory yuflow keeps its data in
func DataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}

// DefaultPath returns the config file location
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, DefaultConfigFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, DefaultConfigFileName), nil
}

// LoadOrCreate reads the config at path, writing the defaults there first when
// the file does not exist. A .env file next to it is loaded into the environment
// before overrides are applied; variables already set win over it.
func LoadOrCreate(path string) (Config, error) {
	dataDir, err := DataDir()
	if err != nil {
		return Config{}, err
	}
	cfg := Default(dataDir)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return cfg, err
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.fillDefaults(dataDir)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Platform, EnvPlatform)
	set(&c.Storage.DBPath, EnvDBPath)
	set(&c.Storage.Driver, EnvDBDriver)
	set(&c.Storage.DataFile, EnvDataFile)
	set(&c.Log.Level, EnvLogLevel)
}

// fillDefaults restores blanked fields so a partial config file still works
func (c *Config) fillDefaults(dataDir string) {
	d := Default(dataDir)
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&c.Platform, d.Platform)
	fill(&c.Storage.DBPath, d.Storage.DBPath)
	fill(&c.Storage.Driver, d.Storage.Driver)
	fill(&c.Storage.DataFile, d.Storage.DataFile)
	fill(&c.Log.Level, d.Log.Level)
	fill(&c.Log.File, d.Log.File)
	fill(&c.Backup.Dir, d.Backup.Dir)
	fill(&c.UI.DefaultFilter, d.UI.DefaultFilter)
	fill(&c.UI.DefaultSort, d.UI.DefaultSort)
	fill(&c.UI.Theme, d.UI.Theme)
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration written on first launch
func Default(dataDir string) Config {
	return Config{
		Platform: "auto",
		Storage: Storage{
			DBPath:   filepath.Join(dataDir, DefaultDBName),
			Driver:   "sqlite3",
			DataFile: filepath.Join(dataDir, DefaultDataFileName),
		},
		Log: Log{
			Level: "info",
			File:  filepath.Join(dataDir, AppName+".log"),
		},
		Backup: Backup{
			Dir: filepath.Join(dataDir, "backups"),
		},
		UI: UI{
			DefaultFilter: "all",
			DefaultSort:   "created",
			Theme:         "tokyo-night",
		},
	}
}
