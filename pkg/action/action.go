// Package action implements the placement strategies applied to a fetched
// artifact when its dependency is resolved.
package action

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentpkg/depresolver/pkg/errs"
	"github.com/agentpkg/depresolver/pkg/fsutil"
)

// Action is one of Copy, Unzip or Untar. The set is closed: Resolve switches
// over it and Parse rejects anything else.
type Action string

const (
	Copy  Action = "copy"
	Unzip Action = "unzip"
	Untar Action = "untar"
)

// Parse maps a configuration value to an Action. An empty value means Copy.
func Parse(s string) (Action, error) {
	switch Action(s) {
	case "":
		return Copy, nil
	case Copy, Unzip, Untar:
		return Action(s), nil
	default:
		return "", fmt.Errorf("unknown resolve action %q (use %s, %s or %s)", s, Copy, Unzip, Untar)
	}
}

func (a Action) String() string { return string(a) }

// AlwaysRuns reports whether the action ignores onlyMissing.
func (a Action) AlwaysRuns() bool {
	return a == Unzip || a == Untar
}

// Resolve places the artifact at destDir. With onlyMissing set, Copy is
// skipped when its destination already exists; the archive actions run
// regardless. Failures are returned as *errs.ResolveError.
func (a Action) Resolve(artifact, destDir string, onlyMissing bool) error {
	if artifact == "" {
		return &errs.ResolveError{Err: fmt.Errorf("the artifact path was not set")}
	}
	if destDir == "" {
		return &errs.ResolveError{Err: fmt.Errorf("the destination directory was not set")}
	}

	var err error
	switch a {
	case Copy, "":
		err = copyArtifact(artifact, destDir, onlyMissing)
	case Unzip:
		err = unzip(artifact, destDir)
	case Untar:
		err = untar(artifact, destDir)
	default:
		err = fmt.Errorf("unknown resolve action %q", string(a))
	}
	if err != nil {
		return &errs.ResolveError{Err: err}
	}
	return nil
}

// copyArtifact copies a file into destDir under its own name, or merges the
// contents of a directory into destDir.
func copyArtifact(artifact, destDir string, onlyMissing bool) error {
	info, err := os.Stat(artifact)
	if err != nil {
		return fmt.Errorf("cannot copy: %w", err)
	}
	if err := fsutil.EnsureDir(destDir); err != nil {
		return err
	}

	if info.IsDir() {
		if onlyMissing {
			empty, err := fsutil.IsEmptyDir(destDir)
			if err != nil {
				return err
			}
			if !empty {
				return nil
			}
		}
		if err := fsutil.CopyDir(artifact, destDir); err != nil {
			return fmt.Errorf("copying %s to %s: %w", artifact, destDir, err)
		}
		return nil
	}

	dest := filepath.Join(destDir, filepath.Base(artifact))
	if fsutil.IsDir(dest) {
		return fmt.Errorf("cannot copy %s: %s is a directory", artifact, dest)
	}
	if onlyMissing {
		exists, err := fsutil.Exists(dest)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}
	if err := fsutil.CopyFile(artifact, dest); err != nil {
		return fmt.Errorf("copying %s to %s: %w", artifact, dest, err)
	}
	return nil
}

// prepareExtraction checks that the destination can receive archive entries,
// creating it when absent.
func prepareExtraction(artifact, destDir string) error {
	info, err := os.Stat(artifact)
	if err != nil {
		return fmt.Errorf("archive %s: %w", artifact, err)
	}
	if info.IsDir() {
		return fmt.Errorf("archive %s is a directory", artifact)
	}
	if err := fsutil.EnsureDir(destDir); err != nil {
		return fmt.Errorf("the target directory %s already exists but is a file: %w", destDir, err)
	}
	return nil
}

// entryPath returns the root-relative path of an archive entry. Names that
// would escape the destination are rejected.
func entryPath(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("archive entry %q escapes the target directory", name)
	}
	return clean, nil
}
