package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const appDirName = "snapkeys"

type Config struct {
	Bindings BindingsConfig `toml:"bindings"`
	Log      LogConfig      `toml:"log"`
	History  HistoryConfig  `toml:"history"`
	Web      WebConfig      `toml:"web"`
	Tray     TrayConfig     `toml:"tray"`
	Feedback FeedbackConfig `toml:"feedback"`

	// dir is the directory relative paths resolve against.
	dir string
}

type BindingsConfig struct {
	Backend string `toml:"backend"` // "file" or "bolt"
	Path    string `toml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
}

type WebConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

type TrayConfig struct {
	Enabled bool `toml:"enabled"`
}

type FeedbackConfig struct {
	Sound  bool `toml:"sound"`
	Notify bool `toml:"notify"`
}

// Defaults returns the configuration written on first run.
func Defaults() *Config {
	return &Config{
		Bindings: BindingsConfig{
			Backend: "file",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Web: WebConfig{
			Enabled: false,
			Port:    8790,
		},
		Tray: TrayConfig{
			Enabled: false,
		},
		Feedback: FeedbackConfig{
			Sound:  false,
			Notify: true,
		},
	}
}

// Dir returns the per-user application directory, creating it if needed.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}

	dir := filepath.Join(base, appDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// ConfigPath returns the path to the configuration file
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the configuration at path, or the default location when
// path is empty. A missing file is created with default values.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Defaults()
	cfg.dir = filepath.Dir(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := save(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated and ranged values.
func (c *Config) Validate() error {
	switch c.Bindings.Backend {
	case "file", "bolt":
	default:
		return fmt.Errorf("bindings.backend must be \"file\" or \"bolt\", got %q", c.Bindings.Backend)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	return nil
}

// DataDir is the directory holding the config file and the default
// data files.
func (c *Config) DataDir() string {
	return c.dir
}

// BindingsPath resolves the bindings file location. The default name
// depends on the backend.
func (c *Config) BindingsPath() string {
	p := c.Bindings.Path
	if p == "" {
		if c.Bindings.Backend == "bolt" {
			p = "bindings.db"
		} else {
			p = "bindings.bin"
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// HistoryPath is the history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.dir, "snapkeys.db")
}

// save writes the configuration to the TOML file
func save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}
