// Package project runs the fetch and resolve phases over the dependencies
// declared in a configuration.
package project

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/agentpkg/depresolver/pkg/action"
	"github.com/agentpkg/depresolver/pkg/cache"
	"github.com/agentpkg/depresolver/pkg/config"
	"github.com/agentpkg/depresolver/pkg/dependency"
	"github.com/agentpkg/depresolver/pkg/errs"
	"github.com/agentpkg/depresolver/pkg/source"
)

// Project owns the sources, dependencies and cache built from one
// configuration. It keeps no state between runs.
type Project struct {
	name     string
	version  string
	home     string
	sources  *source.Sources
	deps     *dependency.Dependencies
	cache    *cache.Cache
	reporter Reporter
	logger   *log.Logger
}

type Option func(*Project)

// WithReporter sets where per-dependency progress goes. The default is
// NopReporter.
func WithReporter(r Reporter) Option {
	return func(p *Project) { p.reporter = r }
}

func WithLogger(l *log.Logger) Option {
	return func(p *Project) { p.logger = l }
}

// WithHomeDir overrides the directory that dependency target directories are
// relative to. The default is the directory of the configuration file.
func WithHomeDir(dir string) Option {
	return func(p *Project) { p.home = dir }
}

// New builds a project from cfg and initialises c under the project name. An
// invalid configuration is returned as *errs.ConfigError before anything
// touches the disk.
func New(cfg *config.Config, c *cache.Cache, opts ...Option) (*Project, error) {
	if cfg == nil {
		return nil, errs.Configf("configuration is not set")
	}
	if c == nil {
		return nil, errs.Configf("cache is not set")
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, &errs.ConfigError{Problems: problems}
	}

	p := &Project{
		name:     cfg.Project,
		version:  cfg.Version,
		home:     cfg.Home(),
		cache:    c,
		reporter: NopReporter{},
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}

	home, err := filepath.Abs(p.home)
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	p.home = home

	if p.sources, err = buildSources(cfg); err != nil {
		return nil, err
	}
	if p.deps, err = buildDependencies(cfg, p.sources); err != nil {
		return nil, err
	}

	if err := c.Init(p.name); err != nil {
		return nil, err
	}

	p.logger.Debug("loaded project", "name", p.name, "version", p.version, "sources", p.sources.Names(),
		"dependencies", p.deps.Len(), "home", p.home, "cache", c.Path())
	return p, nil
}

func buildSources(cfg *config.Config) (*source.Sources, error) {
	sources := source.NewSources()
	for _, sc := range cfg.Sources {
		s, err := source.Parse(sc.Name, sc.Protocol, sc.Base, sc.Description)
		if err != nil {
			return nil, err
		}
		if err := sources.Add(s); err != nil {
			return nil, err
		}
	}
	return sources, nil
}

func buildDependencies(cfg *config.Config, sources *source.Sources) (*dependency.Dependencies, error) {
	deps := dependency.NewDependencies()
	for _, dc := range cfg.Dependencies {
		src, ok := sources.Get(dc.Source)
		if !ok {
			return nil, errs.Configf("dependency %s refers to source %q which is not declared", dc.Name, dc.Source)
		}
		act, err := action.Parse(dc.ResolveAction)
		if err != nil {
			return nil, &errs.ConfigError{Err: err}
		}

		d, err := dependency.New(dependency.Spec{
			Name:        dc.Name,
			TargetDir:   dc.TargetDir,
			TargetName:  dc.TargetName,
			Source:      src,
			SourcePath:  dc.SourcePath,
			Action:      act,
			Description: dc.Description,
		})
		if err != nil {
			return nil, err
		}
		deps.Add(d)
	}
	return deps, nil
}

func (p *Project) Name() string                           { return p.name }
func (p *Project) Version() string                        { return p.version }
func (p *Project) Home() string                           { return p.home }
func (p *Project) Cache() *cache.Cache                    { return p.cache }
func (p *Project) Sources() *source.Sources               { return p.sources }
func (p *Project) Dependencies() *dependency.Dependencies { return p.deps }

// FetchDependencies brings every dependency's artifact into the cache, in
// declaration order. A dependency whose absolute source path was already
// fetched earlier in this call is skipped as AlreadyFetched, even when
// alwaysFetch is set. A failure is recorded in the report and the loop moves
// on to the next dependency.
func (p *Project) FetchDependencies(ctx context.Context, alwaysFetch bool) Report {
	p.logger.Debug("fetching all dependencies", "force", alwaysFetch)

	all := p.deps.All()
	report := make(Report, 0, len(all))
	seen := make(map[string]bool)

	p.reporter.Begin(PhaseFetch, len(all))
	for i, d := range all {
		o := Outcome{Phase: PhaseFetch, Index: i + 1, Name: d.Name()}
		key := d.AbsoluteSourcePath()

		if seen[key] {
			o.Status = AlreadyFetched
			p.reporter.Done(o)
			report = append(report, o)
			continue
		}

		p.reporter.Start(o)
		fetched, err := p.cache.FetchDependency(ctx, d, alwaysFetch)
		switch {
		case err != nil:
			o.Status, o.Err = Failed, err
			p.logger.Error("fetch failed", "dependency", d.Name(), "err", err)
		case fetched:
			o.Status = Fetched
			seen[key] = true
			p.logger.Debug("fetched dependency", "dependency", d.Name(), "from", key)
		default:
			o.Status = Cached
			seen[key] = true
			p.logger.Debug("dependency already cached", "dependency", d.Name())
		}
		p.reporter.Done(o)
		report = append(report, o)
	}

	p.logger.Debug("fetched dependencies", "failed", report.Failed())
	return report
}

// ResolveFetchedDependencies places every cached artifact into the project,
// in declaration order. Nothing is fetched. With onlyMissing, Copy skips
// targets that already exist; archive actions always run.
func (p *Project) ResolveFetchedDependencies(ctx context.Context, onlyMissing bool) Report {
	p.logger.Debug("resolving all dependencies", "only_missing", onlyMissing)

	all := p.deps.All()
	report := make(Report, 0, len(all))

	p.reporter.Begin(PhaseResolve, len(all))
	for i, d := range all {
		o := Outcome{Phase: PhaseResolve, Index: i + 1, Name: d.Name()}
		p.reporter.Start(o)

		if err := ctx.Err(); err != nil {
			o.Status, o.Err = Failed, errs.Resolve(d.Name(), err)
		} else if err := p.cache.ResolveDependency(d, p.home, onlyMissing); err != nil {
			o.Status, o.Err = Failed, err
		} else {
			o.Status = Resolved
		}

		if o.Err != nil {
			p.logger.Error("resolve failed", "dependency", d.Name(), "err", o.Err)
		} else {
			p.logger.Debug("resolved dependency", "dependency", d.Name(), "action", d.Action(),
				"target", filepath.Join(p.home, d.TargetPath()), "only_missing", onlyMissing && !d.Action().AlwaysRuns())
		}
		p.reporter.Done(o)
		report = append(report, o)
	}

	p.logger.Debug("resolved dependencies", "failed", report.Failed())
	return report
}

// ResolveDependencies fetches everything, then resolves everything. A
// dependency that failed to fetch normally fails again when resolved.
func (p *Project) ResolveDependencies(ctx context.Context, alwaysFetch, onlyMissing bool) (fetch, resolve Report) {
	fetch = p.FetchDependencies(ctx, alwaysFetch)
	resolve = p.ResolveFetchedDependencies(ctx, onlyMissing)
	return fetch, resolve
}

// Clean empties this project's cache directory.
func (p *Project) Clean() error {
	p.logger.Debug("cleaning cache", "path", p.cache.Path())
	return p.cache.Clean()
}
