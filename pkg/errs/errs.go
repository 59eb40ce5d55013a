// Package errs defines the error taxonomy shared by the fetch and resolve
// pipeline.
//
// Configuration problems are fatal and surface before any work starts.
// FetchError and ResolveError describe a single dependency and are recovered
// by the project's batch loops.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports an invalid or incomplete configuration. Problems holds
// one entry per validation failure; Err is set when a single underlying error
// caused it.
type ConfigError struct {
	Problems []string
	Err      error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Err != nil:
		return "configuration error: " + e.Err.Error()
	case len(e.Problems) == 1:
		return "configuration error: " + e.Problems[0]
	default:
		return fmt.Sprintf("configuration contains %d error(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configf returns a ConfigError with a single formatted problem.
func Configf(format string, args ...any) error {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

// FetchError wraps a transport failure, local copy failure, or cache-path
// collision for one dependency.
type FetchError struct {
	Dependency string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Dependency == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("fetching %s: %v", e.Dependency, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetch wraps err as a FetchError for dependency. A FetchError that already
// names a dependency is returned unchanged; an anonymous one is named.
func Fetch(dependency string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.Dependency != "" {
			return err
		}
		return &FetchError{Dependency: dependency, Err: fe.Err}
	}
	return &FetchError{Dependency: dependency, Err: err}
}

// ResolveError reports that a dependency could not be placed at its target.
type ResolveError struct {
	Dependency string
	Err        error
}

func (e *ResolveError) Error() string {
	if e.Dependency == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("resolving %s: %v", e.Dependency, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Resolve wraps err as a ResolveError for dependency, with the same naming
// rules as Fetch.
func Resolve(dependency string, err error) error {
	if err == nil {
		return nil
	}
	var re *ResolveError
	if errors.As(err, &re) {
		if re.Dependency != "" {
			return err
		}
		return &ResolveError{Dependency: dependency, Err: re.Err}
	}
	return &ResolveError{Dependency: dependency, Err: err}
}

// IsConfig reports whether err is, or wraps, a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsFetch reports whether err is, or wraps, a FetchError.
func IsFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsResolve reports whether err is, or wraps, a ResolveError.
func IsResolve(err error) bool {
	var re *ResolveError
	return errors.As(err, &re)
}
