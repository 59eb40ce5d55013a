package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentpkg/depresolver/pkg/action"
	"github.com/agentpkg/depresolver/pkg/errs"
	"github.com/agentpkg/depresolver/pkg/source"
	"github.com/pelletier/go-toml/v2"
	"sigs.k8s.io/yaml"
)

// DefaultFileName is the configuration filename written by init and used
// when no path is given.
const DefaultFileName = "resolver.json"

// Output formats understood by Marshal.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Attribute names as they appear in configuration documents. Validation
// messages refer to them by these names.
const (
	AttrProject       = "project"
	AttrSources       = "sources"
	AttrDependencies  = "dependencies"
	AttrName          = "name"
	AttrProtocol      = "protocol"
	AttrTargetDir     = "target_dir"
	AttrSource        = "source"
	AttrResolveAction = "resolve_action"
)

// Config is a dependency configuration document. All dependency targets are
// relative to the directory the document was loaded from.
type Config struct {
	Project      string             `json:"project" toml:"project"`
	Version      string             `json:"version,omitempty" toml:"version,omitempty"`
	Sources      []SourceConfig     `json:"sources" toml:"sources"`
	Dependencies []DependencyConfig `json:"dependencies" toml:"dependencies"`

	path string
}

type SourceConfig struct {
	Name        string `json:"name" toml:"name"`
	Protocol    string `json:"protocol" toml:"protocol"`
	Base        string `json:"base,omitempty" toml:"base,omitempty"`
	Description string `json:"description,omitempty" toml:"description,omitempty"`
}

func (s SourceConfig) String() string {
	return fmt.Sprintf("{name=%q protocol=%q base=%q}", s.Name, s.Protocol, s.Base)
}

type DependencyConfig struct {
	Name          string `json:"name,omitempty" toml:"name,omitempty"`
	Description   string `json:"description,omitempty" toml:"description,omitempty"`
	TargetDir     string `json:"target_dir" toml:"target_dir"`
	TargetName    string `json:"target_name,omitempty" toml:"target_name,omitempty"`
	Source        string `json:"source" toml:"source"`
	SourcePath    string `json:"source_path,omitempty" toml:"source_path,omitempty"`
	ResolveAction string `json:"resolve_action,omitempty" toml:"resolve_action,omitempty"`
}

func (d DependencyConfig) String() string {
	return fmt.Sprintf("{name=%q source=%q source_path=%q target_dir=%q target_name=%q}",
		d.Name, d.Source, d.SourcePath, d.TargetDir, d.TargetName)
}

// Unmarshal decodes a configuration document. TOML is selected by format;
// anything else is decoded as YAML, which also accepts JSON.
func Unmarshal(data []byte, format string) (*Config, error) {
	cfg := &Config{}
	var err error
	if format == FormatTOML {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and decodes the configuration at path. The returned config
// remembers its absolute location so Home can be derived from it.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, errs.Configf("the path to the configuration file was not specified")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &errs.ConfigError{Err: fmt.Errorf("resolving %s: %w", path, err)}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, &errs.ConfigError{Err: fmt.Errorf("cannot load configuration: %w", err)}
	}
	if info.IsDir() {
		return nil, errs.Configf("cannot load configuration: %s is a directory", abs)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &errs.ConfigError{Err: fmt.Errorf("reading %s: %w", abs, err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errs.Configf("unable to load the configuration in %s: file is empty", abs)
	}

	cfg, err := Unmarshal(data, FormatForPath(abs))
	if err != nil {
		return nil, &errs.ConfigError{Err: fmt.Errorf("parsing %s: %w", abs, err)}
	}
	cfg.path = abs

	return cfg, nil
}

// SaveFile encodes cfg in the format implied by path and writes it.
func SaveFile(path string, cfg *Config) error {
	data, err := cfg.Marshal(FormatForPath(path))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// FormatForPath picks the document format from a file extension.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Marshal encodes the configuration as json, yaml or toml.
func (c *Config) Marshal(format string) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(c)
	case FormatTOML:
		return toml.Marshal(c)
	default:
		return nil, fmt.Errorf("unsupported format %q (use json, yaml or toml)", format)
	}
}

// Path returns the absolute path the configuration was loaded from, or an
// empty string for configurations built in memory.
func (c *Config) Path() string {
	return c.path
}

// Home returns the directory containing the configuration file.
func (c *Config) Home() string {
	if c.path == "" {
		return "."
	}
	return filepath.Dir(c.path)
}

// Source returns the source definition with the given name.
func (c *Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// Validate returns one message per problem found. A configuration is usable
// only when the result is empty.
func (c *Config) Validate() []string {
	var problems []string

	if c.Project == "" {
		problems = append(problems, missing(AttrProject, ""))
	}

	declared := make(map[string]bool, len(c.Sources))
	if len(c.Sources) == 0 {
		problems = append(problems, missing(AttrSources, ""))
	}
	for _, s := range c.Sources {
		if s.Name == "" {
			problems = append(problems, missing(AttrName, s.String()))
		} else if declared[s.Name] {
			problems = append(problems, fmt.Sprintf("Source %q is declared more than once.", s.Name))
		}
		declared[s.Name] = true

		if s.Protocol == "" {
			problems = append(problems, missing(AttrProtocol, s.String()))
		} else if _, err := source.ProtocolFor(s.Protocol); err != nil {
			problems = append(problems, fmt.Sprintf("Unknown %s %q. In: %s.", AttrProtocol, s.Protocol, s))
		}
	}

	if len(c.Dependencies) == 0 {
		problems = append(problems, missing(AttrDependencies, ""))
	}
	for _, d := range c.Dependencies {
		if d.TargetDir == "" {
			problems = append(problems, missing(AttrTargetDir, d.String()))
		}
		if d.Source == "" {
			problems = append(problems, missing(AttrSource, d.String()))
		} else if !declared[d.Source] {
			problems = append(problems, fmt.Sprintf("Dependency refers to undeclared source %q. In: %s.", d.Source, d))
		}
		if _, err := action.Parse(d.ResolveAction); err != nil {
			problems = append(problems, fmt.Sprintf("Unknown %s %q. In: %s.", AttrResolveAction, d.ResolveAction, d))
		}
	}

	return problems
}

func missing(key, context string) string {
	msg := fmt.Sprintf("Required attribute %s is not specified or is empty.", key)
	if context != "" {
		msg += fmt.Sprintf(" In: %s.", context)
	}
	return msg
}
