// Package dependency models a single "this source artifact goes there"
// declaration and the ordered set of them belonging to a project.
package dependency

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/agentpkg/depresolver/pkg/action"
	"github.com/agentpkg/depresolver/pkg/errs"
	"github.com/agentpkg/depresolver/pkg/source"
)

// Dependency binds a Source and a path inside it to a target directory in
// the consuming project. It is immutable after construction.
type Dependency struct {
	name        string
	targetDir   string
	targetName  string
	source      *source.Source
	sourcePath  string
	action      action.Action
	description string
}

// Spec carries the constructor arguments of a Dependency.
type Spec struct {
	Name        string
	TargetDir   string
	TargetName  string
	Source      *source.Source
	SourcePath  string
	Action      action.Action
	Description string
}

// New validates spec and builds a Dependency. A missing source or target
// directory is a configuration error. An empty name is derived from the
// target name, the source path, or the target directory, in that order.
func New(spec Spec) (*Dependency, error) {
	describe := fmt.Sprintf("target_dir=%q, target_name=%q, source_path=%q", spec.TargetDir, spec.TargetName, spec.SourcePath)
	if spec.Source == nil {
		return nil, errs.Configf("the source attribute must be specified in dependency: %s", describe)
	}
	if spec.TargetDir == "" {
		return nil, errs.Configf("the target_dir attribute must be set in dependency: source=%s, %s", spec.Source.Name(), describe)
	}

	act := spec.Action
	if act == "" {
		act = action.Copy
	}
	if _, err := action.Parse(string(act)); err != nil {
		return nil, &errs.ConfigError{Err: err}
	}

	name := spec.Name
	if name == "" {
		name = defaultName(spec)
	}

	return &Dependency{
		name:        name,
		targetDir:   spec.TargetDir,
		targetName:  spec.TargetName,
		source:      spec.Source,
		sourcePath:  spec.SourcePath,
		action:      act,
		description: spec.Description,
	}, nil
}

func defaultName(spec Spec) string {
	if spec.TargetName != "" {
		return spec.TargetName
	}
	if p := LastPathElement(spec.SourcePath); p != "" {
		return p
	}
	return spec.TargetDir
}

func (d *Dependency) Name() string           { return d.name }
func (d *Dependency) TargetDir() string      { return d.targetDir }
func (d *Dependency) TargetName() string     { return d.targetName }
func (d *Dependency) Source() *source.Source { return d.source }
func (d *Dependency) SourcePath() string     { return d.sourcePath }
func (d *Dependency) Action() action.Action  { return d.action }
func (d *Dependency) Description() string    { return d.description }

// IsTargetDirectory reports whether the target is a directory rather than a
// named file.
func (d *Dependency) IsTargetDirectory() bool {
	return d.targetName == ""
}

// TargetPath returns the project-relative target, including the target name
// when one is set.
func (d *Dependency) TargetPath() string {
	return filepath.Join(d.targetDir, d.targetName)
}

// AbsoluteSourcePath returns the full identifier of the artifact, as used
// for same-run fetch deduplication.
func (d *Dependency) AbsoluteSourcePath() string {
	return d.source.AbsolutePath(d.sourcePath)
}

// LastPathElement returns the final element of a slash or OS separated
// path, ignoring trailing separators.
func LastPathElement(p string) string {
	p = strings.TrimRight(filepath.ToSlash(p), "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}
