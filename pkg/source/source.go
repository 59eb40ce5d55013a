package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agentpkg/depresolver/pkg/errs"
)

// Protocol names accepted in configuration.
const (
	ProtocolHTTPS      = "https"
	ProtocolFilesystem = "filesystem"
)

// Protocol transfers the artifact at an absolute source location to a local
// destination path. Implementations must leave nothing at dest when they
// fail.
type Protocol interface {
	// Name returns the configuration name of the protocol.
	Name() string
	// ValidateBase reports whether base is usable as a source base.
	ValidateBase(base string) error
	// Join appends rel to base using the protocol's path rules.
	Join(base, rel string) string
	// Fetch places the artifact found at absPath at dest.
	Fetch(ctx context.Context, absPath, dest string) error
}

// ProtocolFor returns the Protocol registered under name.
func ProtocolFor(name string) (Protocol, error) {
	switch name {
	case ProtocolHTTPS:
		return NewHTTPSProtocol(nil), nil
	case ProtocolFilesystem:
		return &FilesystemProtocol{}, nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q (use %s or %s)", name, ProtocolHTTPS, ProtocolFilesystem)
	}
}

// Source names an origin and the protocol used to fetch from it. A Source
// is immutable after construction.
type Source struct {
	name        string
	protocol    Protocol
	base        string
	description string
}

// New builds a Source. A missing name or protocol is a configuration error.
func New(name string, protocol Protocol, base, description string) (*Source, error) {
	if name == "" {
		return nil, errs.Configf("the source name attribute must be set (base=%q, description=%q)", base, description)
	}
	if protocol == nil {
		return nil, errs.Configf("the protocol attribute must be set in source %s", name)
	}
	if base != "" {
		if err := protocol.ValidateBase(base); err != nil {
			return nil, &errs.ConfigError{Err: fmt.Errorf("source %s: %w", name, err)}
		}
	}

	return &Source{
		name:        name,
		protocol:    protocol,
		base:        base,
		description: description,
	}, nil
}

// Parse builds a Source from configuration values, resolving the protocol by
// name.
func Parse(name, protocol, base, description string) (*Source, error) {
	if protocol == "" {
		return New(name, nil, base, description)
	}
	p, err := ProtocolFor(protocol)
	if err != nil {
		return nil, &errs.ConfigError{Err: fmt.Errorf("source %s: %w", name, err)}
	}
	return New(name, p, base, description)
}

func (s *Source) Name() string        { return s.name }
func (s *Source) Protocol() Protocol  { return s.protocol }
func (s *Source) Base() string        { return s.base }
func (s *Source) Description() string { return s.description }

// AbsolutePath joins the source base with sourcePath. It performs no I/O.
func (s *Source) AbsolutePath(sourcePath string) string {
	rel := strings.TrimLeft(sourcePath, "/"+string(filepath.Separator))
	switch {
	case sourcePath == "":
		return s.base
	case s.base == "":
		return sourcePath
	default:
		return s.protocol.Join(s.base, rel)
	}
}

// Fetch transfers the artifact at sourcePath (relative to the base) to
// targetDir/targetName. Any failure is returned as an *errs.FetchError.
func (s *Source) Fetch(ctx context.Context, sourcePath, targetDir, targetName string) error {
	if targetDir == "" {
		return &errs.FetchError{Err: fmt.Errorf("cannot fetch from source %s: the target destination was not specified", s.name)}
	}
	if targetName == "" {
		return &errs.FetchError{Err: fmt.Errorf("cannot fetch from source %s: the target filename was not specified", s.name)}
	}

	abs := s.AbsolutePath(sourcePath)
	if abs == "" {
		return &errs.FetchError{Err: fmt.Errorf("source %s has no base and no source path was given", s.name)}
	}

	if err := s.protocol.Fetch(ctx, abs, filepath.Join(targetDir, targetName)); err != nil {
		return &errs.FetchError{Err: fmt.Errorf("%s %s: %w", s.protocol.Name(), abs, err)}
	}
	return nil
}
