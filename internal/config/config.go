// Package config loads the project configuration file, codemod.toml or
// codemod.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the target directory.
// FileNameYAML is accepted when FileName is absent.
const (
	FileName     = "codemod.toml"
	FileNameYAML = "codemod.yaml"
)

type Config struct {
	DB         string  `toml:"db" yaml:"db"`
	ScriptsDir string  `toml:"scripts_dir" yaml:"scripts_dir"`
	LogLevel   string  `toml:"log_level" yaml:"log_level"`
	Run        Run     `toml:"run" yaml:"run"`
	Metrics    Metrics `toml:"metrics" yaml:"metrics"`
}

type Run struct {
	Parallel    bool     `toml:"parallel" yaml:"parallel"`
	Workers     int      `toml:"workers" yaml:"workers"` // 0 means one per CPU
	Incremental bool     `toml:"incremental" yaml:"incremental"`
	DryRun      bool     `toml:"dry_run" yaml:"dry_run"`
	Diff        bool     `toml:"diff" yaml:"diff"`
	Include     []string `toml:"include" yaml:"include"`
	Exclude     []string `toml:"exclude" yaml:"exclude"`
}

type Metrics struct {
	Textfile string `toml:"textfile" yaml:"textfile"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(false)
	return cfg
}

// Load reads and validates the configuration at path. Files ending in
// .yaml or .yml are decoded as YAML, everything else as TOML. Unknown keys
// are rejected in both formats.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var cfg *Config
	var parallelSet bool
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, parallelSet, err = decodeYAML(data)
	default:
		cfg, parallelSet, err = decodeTOML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	cfg.applyDefaults(parallelSet)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func decodeTOML(data []byte) (*Config, bool, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, false, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, false, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return &cfg, md.IsDefined("run", "parallel"), nil
}

func decodeYAML(data []byte) (*Config, bool, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}

	// A second pass only tells whether run.parallel was written down.
	var probe struct {
		Run struct {
			Parallel *bool `yaml:"parallel"`
		} `yaml:"run"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, false, err
	}
	return &cfg, probe.Run.Parallel != nil, nil
}

// LoadDir loads dir/codemod.toml, or dir/codemod.yaml, or returns Default
// when neither exists.
func LoadDir(dir string) (*Config, error) {
	for _, name := range []string{FileName, FileNameYAML} {
		cfg, err := Load(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return Default(), nil
}

func (c *Config) applyDefaults(parallelSet bool) {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if !parallelSet {
		c.Run.Parallel = true
	}
	if len(c.Run.Exclude) == 0 {
		c.Run.Exclude = []string{"**/node_modules/**", "**/.next/**"}
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("run.workers must not be negative, got %d", c.Run.Workers)
	}
	if c.Run.Diff && !c.Run.DryRun {
		return errors.New("run.diff requires run.dry_run")
	}
	for _, pattern := range append(append([]string{}, c.Run.Include...), c.Run.Exclude...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
