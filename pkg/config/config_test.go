package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentpkg/depresolver/pkg/errs"
)

const jsonDoc = `{
  "project": "demo",
  "version": "1",
  "sources": [{"name": "local", "protocol": "filesystem", "base": "/tmp/srcs"}],
  "dependencies": [{"name": "pkg", "source": "local", "source_path": "pkg.zip", "target_dir": "vendor", "resolve_action": "unzip"}]
}`

const yamlDoc = `project: demo
version: "1"
sources:
  - name: local
    protocol: filesystem
    base: /tmp/srcs
dependencies:
  - name: pkg
    source: local
    source_path: pkg.zip
    target_dir: vendor
    resolve_action: unzip
`

const tomlDoc = `project = "demo"
version = "1"

[[sources]]
name = "local"
protocol = "filesystem"
base = "/tmp/srcs"

[[dependencies]]
name = "pkg"
source = "local"
source_path = "pkg.zip"
target_dir = "vendor"
resolve_action = "unzip"
`

func TestLoadFile(t *testing.T) {
	tests := map[string]struct {
		file    string
		content string
	}{
		"json": {file: "resolver.json", content: jsonDoc},
		"yaml": {file: "resolver.yaml", content: yamlDoc},
		"toml": {file: "resolver.toml", content: tomlDoc},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, tc.file)
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}

			cfg, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if cfg.Project != "demo" || cfg.Version != "1" {
				t.Errorf("project/version = %q/%q", cfg.Project, cfg.Version)
			}
			if len(cfg.Sources) != 1 || cfg.Sources[0].Base != "/tmp/srcs" {
				t.Errorf("Sources = %v", cfg.Sources)
			}
			if len(cfg.Dependencies) != 1 {
				t.Fatalf("Dependencies = %v", cfg.Dependencies)
			}
			d := cfg.Dependencies[0]
			if d.SourcePath != "pkg.zip" || d.TargetDir != "vendor" || d.ResolveAction != "unzip" {
				t.Errorf("dependency = %v", d)
			}
			if cfg.Home() != dir {
				t.Errorf("Home() = %q, want %q", cfg.Home(), dir)
			}
			if problems := cfg.Validate(); len(problems) != 0 {
				t.Errorf("Validate() = %v, want none", problems)
			}
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	os.WriteFile(empty, []byte("  \n"), 0o644)
	broken := filepath.Join(dir, "broken.json")
	os.WriteFile(broken, []byte(`{"project": `), 0o644)

	tests := map[string]string{
		"no path":   "",
		"missing":   filepath.Join(dir, "missing.json"),
		"directory": dir,
		"empty":     empty,
		"broken":    broken,
	}

	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(path)
			if !errs.IsConfig(err) {
				t.Errorf("LoadFile(%q) error = %v, want ConfigError", path, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Project:      "demo",
			Sources:      []SourceConfig{{Name: "local", Protocol: "filesystem"}},
			Dependencies: []DependencyConfig{{Name: "pkg", Source: "local", TargetDir: "vendor"}},
		}
	}

	tests := map[string]struct {
		mutate func(c *Config)
		want   []string
	}{
		"valid": {
			mutate: func(c *Config) {},
		},
		"missing project": {
			mutate: func(c *Config) { c.Project = "" },
			want:   []string{"Required attribute project is not specified or is empty."},
		},
		"empty sources and dependencies": {
			mutate: func(c *Config) { c.Sources, c.Dependencies = []SourceConfig{}, nil },
			want: []string{
				"Required attribute sources is not specified or is empty.",
				"Required attribute dependencies is not specified or is empty.",
			},
		},
		"source without name": {
			mutate: func(c *Config) { c.Sources = append(c.Sources, SourceConfig{Protocol: "https"}) },
			want:   []string{"Required attribute name is not specified or is empty. In: "},
		},
		"source without protocol": {
			mutate: func(c *Config) { c.Sources[0].Protocol = "" },
			want:   []string{"Required attribute protocol is not specified or is empty. In: "},
		},
		"unknown protocol": {
			mutate: func(c *Config) { c.Sources[0].Protocol = "gopher" },
			want:   []string{`Unknown protocol "gopher"`},
		},
		"duplicate source": {
			mutate: func(c *Config) { c.Sources = append(c.Sources, c.Sources[0]) },
			want:   []string{`Source "local" is declared more than once.`},
		},
		"dependency without target dir": {
			mutate: func(c *Config) { c.Dependencies[0].TargetDir = "" },
			want:   []string{"Required attribute target_dir is not specified or is empty. In: "},
		},
		"dependency without source": {
			mutate: func(c *Config) { c.Dependencies[0].Source = "" },
			want:   []string{"Required attribute source is not specified or is empty. In: "},
		},
		"undeclared source": {
			mutate: func(c *Config) { c.Dependencies[0].Source = "elsewhere" },
			want:   []string{`undeclared source "elsewhere"`},
		},
		"unknown resolve action": {
			mutate: func(c *Config) { c.Dependencies[0].ResolveAction = "explode" },
			want:   []string{`Unknown resolve_action "explode"`},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)

			got := cfg.Validate()
			if len(got) != len(tc.want) {
				t.Fatalf("Validate() = %q, want %d problem(s)", got, len(tc.want))
			}
			for i := range tc.want {
				if !strings.Contains(got[i], tc.want[i]) {
					t.Errorf("problem %d = %q, want it to contain %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestMarshalRoundTripsThroughFormats(t *testing.T) {
	cfg, err := Unmarshal([]byte(jsonDoc), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}

	for _, format := range []string{FormatJSON, FormatYAML, FormatTOML} {
		t.Run(format, func(t *testing.T) {
			data, err := cfg.Marshal(format)
			if err != nil {
				t.Fatalf("Marshal(%s) error = %v", format, err)
			}
			back, err := Unmarshal(data, format)
			if err != nil {
				t.Fatalf("Unmarshal(%s) error = %v\n%s", format, err, data)
			}
			if back.Project != cfg.Project || len(back.Dependencies) != 1 || back.Dependencies[0].ResolveAction != "unzip" {
				t.Errorf("%s round trip lost data:\n%s", format, data)
			}
		})
	}

	if _, err := cfg.Marshal("xml"); err == nil {
		t.Error("Marshal(xml) succeeded, want error")
	}
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]string{
		"resolver.json": FormatJSON,
		"resolver.JSON": FormatJSON,
		"resolver.yml":  FormatYAML,
		"resolver.yaml": FormatYAML,
		"resolver.toml": FormatTOML,
		"resolver":      FormatJSON,
	}
	for path, want := range tests {
		if got := FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %q, want %q", path, got, want)
		}
	}
}
