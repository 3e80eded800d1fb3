package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"
)

type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Scale  int    `toml:"scale"`
	TPS    int    `toml:"tps"`
	Title  string `toml:"title"`
}

type SceneConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// LibraryConfig names a host directory whose .js files are copied into the
// module store at startup.
type LibraryConfig struct {
	Dir string `toml:"dir"`
}

type RemoteConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

type Config struct {
	Window  WindowConfig  `toml:"window"`
	Scene   SceneConfig   `toml:"scene"`
	Library LibraryConfig `toml:"library"`
	Remote  RemoteConfig  `toml:"remote"`
	Log     LogConfig     `toml:"log"`
}

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Width:  640,
			Height: 480,
			Scale:  2,
			TPS:    60,
			Title:  "DingCAD",
		},
		Scene:  SceneConfig{Path: "scene.js", Watch: true},
		Remote: RemoteConfig{Addr: "127.0.0.1:7878"},
		Log:    LogConfig{Level: "info"},
	}
}

// LoadConfig reads a TOML file over DefaultConfig. Unknown keys are errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := ParseConfig(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes TOML into cfg, keeping fields the document omits.
func ParseConfig(b []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Window.Scale < 1 {
		errs = append(errs, fmt.Errorf("window scale must be at least 1, got %d", c.Window.Scale))
	}
	if c.Window.TPS <= 0 {
		errs = append(errs, fmt.Errorf("window tps must be positive, got %d", c.Window.TPS))
	}
	if c.Scene.Watch && c.Scene.Path == "" {
		errs = append(errs, errors.New("scene watch needs a scene path"))
	}
	if c.Remote.Enabled && c.Remote.Addr == "" {
		errs = append(errs, errors.New("remote enabled without an address"))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	return errors.Join(errs...)
}
