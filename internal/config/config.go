package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"terraining/internal/noise"
	"terraining/internal/terrain"
)

// Config is the application configuration read from terraining.yaml.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Camera  CameraConfig  `yaml:"camera"`
	Terrain TerrainConfig `yaml:"terrain"`

	// FrameBudgetMs bounds the time spent merging finished tiles per frame.
	FrameBudgetMs int `yaml:"frame_budget_ms"`
	Workers       int `yaml:"workers"`

	DocumentPath string `yaml:"document_path"`
	JournalPath  string `yaml:"journal_path"`
}

type WindowConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Title     string `yaml:"title"`
	TargetFPS int    `yaml:"target_fps"`
}

type CameraConfig struct {
	Speed       float32 `yaml:"speed"`
	Sensitivity float32 `yaml:"sensitivity"`
	Height      float32 `yaml:"height"`
}

// TerrainConfig seeds a new terrain when no document exists yet.
type TerrainConfig struct {
	Radius   float32 `yaml:"radius"`
	MaxTiles int     `yaml:"max_tiles"`
	Verts    int     `yaml:"verts"`
	Spacing  float32 `yaml:"spacing"`
	Seed     int64   `yaml:"seed"`
	Async    bool    `yaml:"async"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Width:     1280,
			Height:    720,
			Title:     "terraining",
			TargetFPS: 60,
		},
		Camera: CameraConfig{
			Speed:       40,
			Sensitivity: 0.1,
			Height:      80,
		},
		Terrain: TerrainConfig{
			Radius:   200,
			MaxTiles: 500,
			Verts:    20,
			Spacing:  1,
			Async:    true,
		},
		FrameBudgetMs: 4,
		Workers:       4,
		DocumentPath:  "terrain.json.zst",
		JournalPath:   "terrain-journal.db",
	}
}

// Load reads path on top of Default. A missing file yields the defaults.
func Load(path string) (Config, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Window.TargetFPS < 0 {
		errs = append(errs, fmt.Errorf("target_fps %d", c.Window.TargetFPS))
	}
	if c.FrameBudgetMs < 0 {
		errs = append(errs, fmt.Errorf("frame_budget_ms %d", c.FrameBudgetMs))
	}
	if c.Terrain.Verts < 2 {
		errs = append(errs, fmt.Errorf("terrain.verts %d, need at least 2", c.Terrain.Verts))
	}
	if c.Terrain.Spacing <= 0 {
		errs = append(errs, fmt.Errorf("terrain.spacing %v", c.Terrain.Spacing))
	}
	return errors.Join(errs...)
}

// FrameBudget is FrameBudgetMs as a duration.
func (c Config) FrameBudget() time.Duration {
	return time.Duration(c.FrameBudgetMs) * time.Millisecond
}

// TerrainSettings builds the window settings for a fresh terrain.
func (c Config) TerrainSettings() terrain.Settings {
	s := terrain.DefaultSettings()
	s.SpawnRadius = c.Terrain.Radius
	s.MaxTiles = c.Terrain.MaxTiles
	s.VertsX, s.VertsZ = c.Terrain.Verts, c.Terrain.Verts
	s.Spacing = c.Terrain.Spacing
	s.AsyncRegen = c.Terrain.Async
	return s
}

// NoiseSettings returns the default layers, seeded from the config when a
// seed is set.
func (c Config) NoiseSettings() noise.Settings {
	ns := noise.DefaultSettings()
	if c.Terrain.Seed != 0 {
		ns.Seed = c.Terrain.Seed
	}
	return ns
}

// Save writes c as YAML.
func (c Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
