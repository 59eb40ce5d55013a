package source

import (
	"sort"

	"github.com/agentpkg/depresolver/pkg/errs"
)

// Sources is a set of sources keyed by their unique name.
type Sources struct {
	byName map[string]*Source
}

func NewSources() *Sources {
	return &Sources{byName: make(map[string]*Source)}
}

// Add registers s. A second source with the same name is a configuration
// error.
func (ss *Sources) Add(s *Source) error {
	if _, ok := ss.byName[s.Name()]; ok {
		return errs.Configf("source %q is declared more than once", s.Name())
	}
	ss.byName[s.Name()] = s
	return nil
}

func (ss *Sources) Get(name string) (*Source, bool) {
	s, ok := ss.byName[name]
	return s, ok
}

// Names returns all source names in sorted order.
func (ss *Sources) Names() []string {
	names := make([]string, 0, len(ss.byName))
	for name := range ss.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ss *Sources) Len() int {
	return len(ss.byName)
}
