// Package cache implements the on-disk staging area that fetched artifacts
// live in between the fetch and resolve phases.
//
// Layout: <root>/<name>/<source name>/<source path...>/<file name>. Two
// dependencies share a cache entry exactly when they share both the source
// name and the source path.
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentpkg/depresolver/pkg/dependency"
	"github.com/agentpkg/depresolver/pkg/errs"
	"github.com/agentpkg/depresolver/pkg/fsutil"
)

const (
	// DefaultDirName is the cache root used when none is given, relative to
	// the working directory.
	DefaultDirName = "resolverCache"
	// DefaultName is the cache name used when Init is given none.
	DefaultName = "default"
	// DefaultArtifactName names a fetched artifact when the dependency has
	// neither a target name nor a source path. Two such dependencies on the
	// same source collide, which is accepted in exchange for determinism.
	DefaultArtifactName = "downloadedSource"
)

// Cache is a directory tree owned by a single project for the duration of a
// run. It is not safe for concurrent use, and separate processes sharing a
// root are not coordinated.
type Cache struct {
	root string
	name string
	path string
}

// New returns a cache rooted at root, or at <cwd>/resolverCache when root is
// empty. A root that exists as something other than a directory is a
// configuration error.
func New(root string) (*Cache, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		root = filepath.Join(wd, DefaultDirName)
	}

	info, err := os.Stat(root)
	if err == nil && !info.IsDir() {
		return nil, errs.Configf("unable to create cache with a root of %s: a file already exists at this location", root)
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, &errs.ConfigError{Err: fmt.Errorf("checking cache root %s: %w", root, err)}
	}

	return &Cache{root: root}, nil
}

// Init fixes the cache name and creates <root>/<name>. It must be called
// exactly once, before any other operation.
func (c *Cache) Init(name string) error {
	if c.path != "" {
		return errs.Configf("cache at %s is already initialised as %q", c.root, c.name)
	}
	if name == "" {
		name = DefaultName
	}
	if !filepath.IsLocal(name) {
		return errs.Configf("cache name %q must be a plain relative name", name)
	}

	path := filepath.Join(c.root, name)
	if err := fsutil.EnsureDir(path); err != nil {
		return &errs.ConfigError{Err: fmt.Errorf("creating cache directory: %w", err)}
	}

	c.name = name
	c.path = path
	return nil
}

func (c *Cache) Root() string { return c.root }
func (c *Cache) Name() string { return c.name }

// Path returns the absolute path for the given segments joined under the
// cache directory. Does not create or verify the path.
func (c *Cache) Path(segments ...string) string {
	return filepath.Join(append([]string{c.path}, segments...)...)
}

// Location returns the directory inside the cache that the dependency's
// artifact is fetched into.
func (c *Cache) Location(d *dependency.Dependency) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	segs := []string{d.Source().Name()}
	if rel := strings.TrimLeft(filepath.FromSlash(d.SourcePath()), string(filepath.Separator)); rel != "" {
		segs = append(segs, rel)
	}

	rel := filepath.Join(segs...)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("source %s with path %q resolves outside the cache", d.Source().Name(), d.SourcePath())
	}
	return c.Path(rel), nil
}

// FileName returns the name the dependency's artifact is stored under: the
// target name, else the last element of the source path, else
// DefaultArtifactName.
func FileName(d *dependency.Dependency) string {
	if d.TargetName() != "" {
		return d.TargetName()
	}
	if name := dependency.LastPathElement(d.SourcePath()); name != "" {
		return name
	}
	return DefaultArtifactName
}

// ArtifactPath returns the full path of the dependency's cached artifact.
func (c *Cache) ArtifactPath(d *dependency.Dependency) (string, error) {
	dir, err := c.Location(d)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName(d)), nil
}

// IsCached reports whether an artifact for d is present.
func (c *Cache) IsCached(d *dependency.Dependency) (bool, error) {
	p, err := c.ArtifactPath(d)
	if err != nil {
		return false, err
	}
	return fsutil.Exists(p)
}

// FetchDependency makes sure the artifact for d is in the cache. When it is
// already present and alwaysFetch is false nothing is transferred and
// fetched is false. Failures are returned as *errs.FetchError.
func (c *Cache) FetchDependency(ctx context.Context, d *dependency.Dependency, alwaysFetch bool) (fetched bool, err error) {
	dir, err := c.Location(d)
	if err != nil {
		return false, errs.Fetch(d.Name(), err)
	}
	name := FileName(d)
	artifact := filepath.Join(dir, name)

	if !alwaysFetch {
		cached, err := fsutil.Exists(artifact)
		if err != nil {
			return false, errs.Fetch(d.Name(), fmt.Errorf("checking cache: %w", err))
		}
		if cached {
			return false, nil
		}
	}

	if err := fsutil.EnsureDir(dir); err != nil {
		return false, errs.Fetch(d.Name(), fmt.Errorf("the cache already has a file (not a directory) at the target download location %s: %w", dir, err))
	}

	if err := os.RemoveAll(artifact); err != nil {
		return false, errs.Fetch(d.Name(), fmt.Errorf("removing stale artifact %s: %w", artifact, err))
	}

	if err := d.Source().Fetch(ctx, d.SourcePath(), dir, name); err != nil {
		return false, errs.Fetch(d.Name(), err)
	}
	return true, nil
}

// ResolveDependency applies d's action to its cached artifact, placing the
// result under homeDir/<target dir>. Failures, including a missing
// artifact, are returned as *errs.ResolveError.
func (c *Cache) ResolveDependency(d *dependency.Dependency, homeDir string, onlyMissing bool) error {
	artifact, err := c.ArtifactPath(d)
	if err != nil {
		return errs.Resolve(d.Name(), err)
	}

	cached, err := fsutil.Exists(artifact)
	if err != nil {
		return errs.Resolve(d.Name(), fmt.Errorf("checking cache: %w", err))
	}
	if !cached {
		return errs.Resolve(d.Name(), fmt.Errorf("the source has not been fetched to the cache"))
	}

	dest := filepath.Join(homeDir, d.TargetDir())
	if err := fsutil.EnsureDir(dest); err != nil {
		return errs.Resolve(d.Name(), fmt.Errorf("preparing target directory: %w", err))
	}

	return errs.Resolve(d.Name(), d.Action().Resolve(artifact, dest, onlyMissing))
}

// Clean empties the cache directory, keeping the directory itself.
func (c *Cache) Clean() error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := fsutil.RemoveContents(c.path); err != nil {
		return fmt.Errorf("cleaning cache %s: %w", c.path, err)
	}
	return nil
}

func (c *Cache) ready() error {
	if c.path == "" {
		return fmt.Errorf("cache at %s has not been initialised", c.root)
	}
	return nil
}
