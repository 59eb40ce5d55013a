package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/agentpkg/depresolver/pkg/config"
	"github.com/agentpkg/depresolver/pkg/errs"
)

// runCmd executes the root command with args inside a fresh working
// directory and home, returning combined stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(closeLog)
	flagVerbose = false

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// newWorkspace creates a project with one filesystem source and chdirs
// into it.
func newWorkspace(t *testing.T, deps ...config.DependencyConfig) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", filepath.Join(tmp, "home"))
	for _, key := range []string{"RESOLVER_HOME", "RESOLVER_CACHE_ROOT", "RESOLVER_RUNTIME_DIR", "RESOLVER_LOG_DIR", "RESOLVER_VERBOSE", "RESOLVER_PROJECT_HOME"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	dir := filepath.Join(tmp, "work")
	srcs := filepath.Join(tmp, "srcs")
	for _, d := range []string{dir, srcs} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(srcs, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Project:      "demo",
		Sources:      []config.SourceConfig{{Name: "local", Protocol: "filesystem", Base: srcs}},
		Dependencies: deps,
	}
	if err := config.SaveFile(filepath.Join(dir, config.DefaultFileName), cfg); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	return dir
}

func TestValidateConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		newWorkspace(t, config.DependencyConfig{Name: "a", Source: "local", SourcePath: "a.txt", TargetDir: "out"})

		out, err := runCmd(t, "validate_config")
		if err != nil {
			t.Fatalf("validate_config: %v", err)
		}
		if !strings.Contains(out, "doesn't contain any errors") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		newWorkspace(t)

		out, err := runCmd(t, "validate_config", "-c", config.DefaultFileName)
		if !errs.IsConfig(err) {
			t.Fatalf("error = %v, want ConfigError", err)
		}
		if !strings.Contains(out, "contains 1 error(s):") {
			t.Errorf("output = %q", out)
		}
		if !strings.Contains(out, "1 -> Required attribute dependencies is not specified or is empty.") {
			t.Errorf("output = %q", out)
		}
	})
}

func TestPrintConfig(t *testing.T) {
	tests := map[string]struct {
		format string
		want   string
	}{
		"default json": {format: "", want: `"project": "demo"`},
		"yaml":         {format: "yaml", want: "project: demo"},
		"toml":         {format: "toml", want: "project = "},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			newWorkspace(t, config.DependencyConfig{Name: "a", Source: "local", SourcePath: "a.txt", TargetDir: "out"})

			args := []string{"print_config"}
			if tc.format != "" {
				args = append(args, "--format", tc.format)
			}
			out, err := runCmd(t, args...)
			if err != nil {
				t.Fatalf("print_config: %v", err)
			}
			if !strings.Contains(out, tc.want) {
				t.Errorf("output missing %q:\n%s", tc.want, out)
			}
		})
	}
}

func TestUpdateCacheThenResolve(t *testing.T) {
	dir := newWorkspace(t, config.DependencyConfig{Name: "a", Source: "local", SourcePath: "a.txt", TargetDir: "out"})
	cacheRoot := filepath.Join(dir, "c")

	out, err := runCmd(t, "update_cache", "-R", cacheRoot)
	if err != nil {
		t.Fatalf("update_cache: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1-a : Fetched.") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(cacheRoot, "demo", "local", "a.txt", "a.txt")); err != nil {
		t.Errorf("artifact not cached: %v", err)
	}

	out, err = runCmd(t, "resolve_from_cache", "-R", cacheRoot)
	if err != nil {
		t.Fatalf("resolve_from_cache: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1-a : Resolved.") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "a.txt")); err != nil {
		t.Errorf("dependency not resolved: %v", err)
	}

	logData, err := os.ReadFile(filepath.Join(dir, "dependency-resolver-runtime", config.LogFileName))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(logData), "resolved dependency") {
		t.Errorf("log missing resolve entry:\n%s", logData)
	}
}

func TestResolveReportsFailures(t *testing.T) {
	newWorkspace(t,
		config.DependencyConfig{Name: "a", Source: "local", SourcePath: "a.txt", TargetDir: "out"},
		config.DependencyConfig{Name: "gone", Source: "local", SourcePath: "gone.txt", TargetDir: "out"},
	)

	out, err := runCmd(t, "resolve")
	if err == nil {
		t.Fatal("resolve succeeded with a missing source")
	}
	if !errs.IsResolve(err) || !strings.Contains(err.Error(), "gone") {
		t.Errorf("error = %v, want the ResolveError of gone", err)
	}
	if !strings.Contains(out, "2-gone : Failed :: ") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "1-a : Resolved.") {
		t.Errorf("output = %q", out)
	}
}

func TestResolveProjectHome(t *testing.T) {
	dir := newWorkspace(t, config.DependencyConfig{Name: "a", Source: "local", SourcePath: "a.txt", TargetDir: "out"})
	checkout := filepath.Join(t.TempDir(), "checkout")

	out, err := runCmd(t, "resolve", "--project-home", checkout)
	if err != nil {
		t.Fatalf("resolve: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(checkout, "out", "a.txt")); err != nil {
		t.Errorf("dependency not placed under --project-home: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out")); !os.IsNotExist(err) {
		t.Error("dependency placed next to the configuration")
	}

	other := filepath.Join(t.TempDir(), "from-env")
	t.Setenv("RESOLVER_PROJECT_HOME", other)
	if out, err := runCmd(t, "resolve_from_cache"); err != nil {
		t.Fatalf("resolve_from_cache: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(other, "out", "a.txt")); err != nil {
		t.Errorf("dependency not placed under RESOLVER_PROJECT_HOME: %v", err)
	}
}

func TestUpdateCacheClean(t *testing.T) {
	dir := newWorkspace(t, config.DependencyConfig{Name: "a", Source: "local", SourcePath: "a.txt", TargetDir: "out"})
	stale := filepath.Join(dir, "resolverCache", "demo", "stale")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := runCmd(t, "update_cache", "--clean"); err != nil {
		t.Fatalf("update_cache --clean: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale cache entry survived --clean: %v", err)
	}
}

func TestCleanYes(t *testing.T) {
	dir := newWorkspace(t, config.DependencyConfig{Name: "a", Source: "local", SourcePath: "a.txt", TargetDir: "out"})

	if _, err := runCmd(t, "update_cache"); err != nil {
		t.Fatal(err)
	}
	if _, err := runCmd(t, "clean", "--yes"); err != nil {
		t.Fatalf("clean: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "resolverCache", "demo"))
	if err != nil {
		t.Fatalf("cache directory removed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("cache has %d entries after clean", len(entries))
	}
}

func TestInitCommand(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "my-app")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", filepath.Join(tmp, "home"))
	t.Chdir(dir)

	out, err := runCmd(t, "init", "--yes", "-R", "shared-cache")
	if err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}

	cfg, err := config.LoadFile(config.DefaultFileName)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Project != "my-app" {
		t.Errorf("Project = %q, want my-app", cfg.Project)
	}

	ignore, _ := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if !strings.Contains(string(ignore), "resolverCache/") {
		t.Errorf(".gitignore = %q", ignore)
	}
	if _, err := os.Stat(filepath.Join(dir, config.LocalSettingsFile)); err != nil {
		t.Errorf("local settings not written: %v", err)
	}

	out, err = runCmd(t, "validate_config")
	if err != nil {
		t.Errorf("validate_config after init: %v\n%s", err, out)
	}
}

func TestLogWriter(t *testing.T) {
	var file, stderr bytes.Buffer

	newLogger(logWriter(&file, &stderr, false), log.DebugLevel).Debug("quiet")
	if file.Len() == 0 || stderr.Len() != 0 {
		t.Errorf("non-verbose: file=%q stderr=%q", file.String(), stderr.String())
	}

	file.Reset()
	newLogger(logWriter(&file, &stderr, true), log.DebugLevel).Debug("loud")
	if file.Len() == 0 || stderr.Len() == 0 {
		t.Errorf("verbose: file=%q stderr=%q", file.String(), stderr.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("empty context should yield the default logger")
	}
	l := newLogger(&bytes.Buffer{}, log.InfoLevel)
	if loggerFromContext(withLogger(context.Background(), l)) != l {
		t.Error("logger not carried on context")
	}
}
