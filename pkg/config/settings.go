package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// LocalSettingsFile is the per-directory settings file. It is not meant
	// to be committed.
	LocalSettingsFile = "resolver.local.toml"
	// EnvPrefix prefixes every environment override (RESOLVER_CACHE_ROOT, ...).
	EnvPrefix = "RESOLVER"

	defaultCacheDir   = "resolverCache"
	defaultRuntimeDir = "dependency-resolver-runtime"
	// LogFileName is the log file written under the log directory.
	LogFileName = "resolver.log"
)

// Settings holds runtime locations and switches. It is resolved with Viper
// precedence: flags > RESOLVER_* environment > resolver.local.toml >
// ~/.resolver/config.toml > defaults.
type Settings struct {
	Home       string `toml:"home,omitempty" mapstructure:"home"`
	CacheRoot  string `toml:"cache_root,omitempty" mapstructure:"cache_root"`
	RuntimeDir string `toml:"runtime_dir,omitempty" mapstructure:"runtime_dir"`
	LogDir     string `toml:"log_dir,omitempty" mapstructure:"log_dir"`
	Verbose    bool   `toml:"verbose,omitempty" mapstructure:"verbose"`

	// ProjectHome, when set, replaces the configuration file's directory as
	// the base of dependency target directories.
	ProjectHome string `toml:"project_home,omitempty" mapstructure:"project_home"`
}

// LogFile returns the path of the log file inside LogDir.
func (s *Settings) LogFile() string {
	return filepath.Join(s.LogDir, LogFileName)
}

// LoadSettings resolves settings from the global and local settings files,
// the environment, and the given flag overrides. Empty flag values are
// ignored.
func LoadSettings(flags map[string]any) (*Settings, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return nil, err
	}
	return loadSettings(flags, filepath.Join(dir, "config.toml"), LocalSettingsFile)
}

// loadSettings is the internal implementation that accepts explicit paths,
// making it testable without touching the real home directory.
func loadSettings(flags map[string]any, globalPath, localPath string) (*Settings, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range []string{"home", "cache_root", "runtime_dir", "log_dir", "verbose", "project_home"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	// Lowest priority: global settings; ignore if missing.
	v.SetConfigFile(globalPath)
	_ = v.ReadInConfig()

	if _, err := os.Stat(localPath); err == nil {
		v.SetConfigFile(localPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", localPath, err)
		}
	}

	// Highest priority: CLI flags.
	for key, val := range flags {
		if isZero(val) {
			continue
		}
		v.Set(key, val)
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}

	if s.Home == "" {
		s.Home = wd
	}
	if s.CacheRoot == "" {
		s.CacheRoot = filepath.Join(wd, defaultCacheDir)
	}
	if s.RuntimeDir == "" {
		s.RuntimeDir = filepath.Join(s.Home, defaultRuntimeDir)
	}
	if s.LogDir == "" {
		s.LogDir = s.RuntimeDir
	}

	return s, nil
}

func isZero(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	default:
		return false
	}
}

// GlobalConfigDir returns the path to ~/.resolver, creating it if necessary.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	dir := filepath.Join(home, ".resolver")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

// WriteLocalSettings persists settings to resolver.local.toml in dir.
func WriteLocalSettings(dir string, s *Settings) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	path := filepath.Join(dir, LocalSettingsFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
