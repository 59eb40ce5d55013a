package dependency

// Dependencies keeps dependencies in declaration order and indexes them by
// name. Names are not required to be unique; Get returns the first match.
type Dependencies struct {
	list   []*Dependency
	byName map[string]*Dependency
}

func NewDependencies() *Dependencies {
	return &Dependencies{byName: make(map[string]*Dependency)}
}

func (ds *Dependencies) Add(d *Dependency) {
	ds.list = append(ds.list, d)
	if _, ok := ds.byName[d.Name()]; !ok {
		ds.byName[d.Name()] = d
	}
}

// All returns the dependencies in declaration order. The slice must not be
// modified.
func (ds *Dependencies) All() []*Dependency {
	return ds.list
}

func (ds *Dependencies) Get(name string) (*Dependency, bool) {
	d, ok := ds.byName[name]
	return d, ok
}

func (ds *Dependencies) Len() int {
	return len(ds.list)
}
