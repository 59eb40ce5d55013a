package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentpkg/depresolver/pkg/config"
	"github.com/agentpkg/depresolver/pkg/source"
)

// InferName derives a project name from the given directory path.
func InferName(dir string) string {
	return filepath.Base(dir)
}

// Init writes a skeleton configuration named config.DefaultFileName into
// dir for the given project. The skeleton declares one source and one
// example dependency so that it validates as written. Returns an error if
// the file already exists.
func Init(dir, name string) (string, error) {
	path := filepath.Join(dir, config.DefaultFileName)

	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", config.DefaultFileName)
	}

	cfg := &config.Config{
		Project: name,
		Version: "1",
		Sources: []config.SourceConfig{{
			Name:        "local",
			Protocol:    source.ProtocolFilesystem,
			Base:        "sources",
			Description: "Artifacts kept next to the project",
		}},
		Dependencies: []config.DependencyConfig{{
			Name:          "example",
			Description:   "Replace with a real artifact under sources/",
			Source:        "local",
			SourcePath:    "example.zip",
			TargetDir:     "vendor",
			ResolveAction: "unzip",
		}},
	}

	if err := config.SaveFile(path, cfg); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// EnsureGitignore ensures that each entry appears somewhere in the .gitignore
// file within dir. Only entries not already present are appended. Returns the
// list of entries that were actually added.
func EnsureGitignore(dir string, entries []string) ([]string, error) {
	path := filepath.Join(dir, ".gitignore")

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(existing), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var toAdd []string
	for _, entry := range entries {
		if !present[entry] && !present[strings.TrimSuffix(entry, "/")] {
			toAdd = append(toAdd, entry)
		}
	}

	if len(toAdd) == 0 {
		return nil, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		if _, err := f.WriteString("\n"); err != nil {
			return nil, err
		}
	}

	for _, entry := range toAdd {
		if _, err := f.WriteString(entry + "\n"); err != nil {
			return nil, err
		}
	}

	return toAdd, nil
}
