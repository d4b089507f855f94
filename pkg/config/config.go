// Package config loads the scriptvm.yaml host configuration.
//
// A config file names the script a host runs and how it is run:
//
//	script: scripts/ball.c
//	entry: Update
//	stack_size: 65536
//	poll_interval: 500ms
//	log_level: debug
//	window:
//	  width: 640
//	  height: 480
//	  title: Balls
//	render:
//	  width: 128
//	  height: 128
//
// Missing fields take the values of Default. Relative paths are resolved
// against the directory holding the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"scriptvm/pkg/logger"
)

// FileName is the config file FindConfig looks for.
const FileName = "scriptvm.yaml"

// Config is the top-level scriptvm.yaml document.
type Config struct {
	// Script is the path of the source file to compile.
	Script string `yaml:"script"`

	// Entry is the function a run starts at. Defaults to "main".
	Entry string `yaml:"entry,omitempty"`

	// StackSize is the number of bytes reserved after the code.
	StackSize int `yaml:"stack_size,omitempty"`

	// PollInterval is how often the script file is checked for changes.
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level,omitempty"`

	Window Window `yaml:"window,omitempty"`
	Render Render `yaml:"render,omitempty"`
}

// Window sizes the desktop host window.
type Window struct {
	Width  int    `yaml:"width,omitempty"`
	Height int    `yaml:"height,omitempty"`
	Title  string `yaml:"title,omitempty"`
}

// Render is the resolution an SDF script is sampled at before scaling.
type Render struct {
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Entry:        "main",
		StackSize:    64 * 1024,
		PollInterval: 500 * time.Millisecond,
		LogLevel:     "info",
		Window:       Window{Width: 640, Height: 480, Title: "scriptvm"},
		Render:       Render{Width: 128, Height: 128},
	}
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses config content. path is used for error messages and to
// resolve relative paths.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.setDefaults()
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	if cfg.Script != "" && !filepath.IsAbs(cfg.Script) {
		cfg.Script = filepath.Join(filepath.Dir(path), cfg.Script)
	}
	return &cfg, nil
}

// FindConfig looks for scriptvm.yaml in dir and its parents. It returns ""
// without error when none exists.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) setDefaults() {
	def := Default()
	if c.Entry == "" {
		c.Entry = def.Entry
	}
	if c.StackSize == 0 {
		c.StackSize = def.StackSize
	}
	if c.PollInterval == 0 {
		c.PollInterval = def.PollInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Window.Width == 0 {
		c.Window.Width = def.Window.Width
	}
	if c.Window.Height == 0 {
		c.Window.Height = def.Window.Height
	}
	if c.Window.Title == "" {
		c.Window.Title = def.Window.Title
	}
	if c.Render.Width == 0 {
		c.Render.Width = def.Render.Width
	}
	if c.Render.Height == 0 {
		c.Render.Height = def.Render.Height
	}
}

func (c *Config) validate(path string) error {
	if c.StackSize < 0 {
		return fmt.Errorf("%s: stack_size must not be negative", path)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("%s: poll_interval must not be negative", path)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if c.Window.Width < 0 || c.Window.Height < 0 {
		return fmt.Errorf("%s: window size must not be negative", path)
	}
	if c.Render.Width < 0 || c.Render.Height < 0 {
		return fmt.Errorf("%s: render size must not be negative", path)
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() logger.Level {
	l, _ := logger.ParseLevel(c.LogLevel)
	return l
}
