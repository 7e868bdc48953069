package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// IndexFileName is the name of the persisted index inside the data directory.
const IndexFileName = "logsift.index"

const defaultDataDir = "~/.logsift"

// ErrUnknownSet is returned when a log set name is not defined in the configuration.
var ErrUnknownSet = errors.New("unknown log set")

// Config holds log sets, label rules and persistent defaults.
type Config struct {
	DataDir  string               `yaml:"data_dir"`
	Defaults DefaultsConfig       `yaml:"defaults"`
	Sets     map[string]SetConfig `yaml:"sets"`
	Parsers  []ParserConfig       `yaml:"parsers"`
}

// DefaultsConfig holds global defaults.
type DefaultsConfig struct {
	Pager   string `yaml:"pager"`
	Jobs    int    `yaml:"jobs"`
	Verbose bool   `yaml:"verbose"`
}

// SetConfig describes one log set: where its files live and which file names belong to it.
type SetConfig struct {
	Directories     []string `yaml:"directories"`
	FilenamePattern string   `yaml:"filename_pattern"`
}

// ParserConfig is a group of label rules active for the listed rule sets.
type ParserConfig struct {
	Sets  []string     `yaml:"sets"`
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig pairs a regular expression with a positional label template.
type RuleConfig struct {
	Pattern string `yaml:"pattern"`
	Label   string `yaml:"label"`
}

// Load reads config from ~/.logsift/config.yaml then CWD .logsift.yaml.
// CWD config values override home config. Missing files are not errors,
// malformed ones are. Environment variables (LOGSIFT_*) override both.
func Load() (*Config, error) {
	cfg := &Config{}

	if home, err := os.UserHomeDir(); err == nil {
		if err := loadFile(filepath.Join(home, ".logsift", "config.yaml"), cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := loadFile(".logsift.yaml", cfg); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

// LoadFrom reads config from a specific path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOGSIFT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LOGSIFT_PAGER"); v != "" {
		cfg.Defaults.Pager = v
	}
	if v := os.Getenv("LOGSIFT_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.Jobs = n
		}
	}
	if v := os.Getenv("LOGSIFT_VERBOSE"); v != "" {
		cfg.Defaults.Verbose = strings.EqualFold(v, "true") || v == "1"
	}
}

// Set returns the named log set or an error wrapping ErrUnknownSet.
func (c *Config) Set(name string) (SetConfig, error) {
	set, ok := c.Sets[name]
	if !ok {
		return SetConfig{}, fmt.Errorf("%w: the log set '%s' not found in the configuration", ErrUnknownSet, name)
	}
	return set, nil
}

// IndexPath returns the location of the persisted index.
func (c *Config) IndexPath() string {
	dir := c.DataDir
	if dir == "" {
		dir = defaultDataDir
	}
	return filepath.Join(expandHome(dir), IndexFileName)
}

// Matcher compiles the set's filename pattern. The pattern is searched
// anywhere in the base name; an empty pattern matches every file.
func (s SetConfig) Matcher() (func(string) bool, error) {
	if s.FilenamePattern == "" {
		return func(string) bool { return true }, nil
	}
	re, err := regexp.Compile(s.FilenamePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid filename_pattern %q: %w", s.FilenamePattern, err)
	}
	return re.MatchString, nil
}

// Dirs returns the set's directories with a leading ~ expanded.
func (s SetConfig) Dirs() []string {
	dirs := make([]string, 0, len(s.Directories))
	for _, d := range s.Directories {
		dirs = append(dirs, expandHome(d))
	}
	return dirs
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
