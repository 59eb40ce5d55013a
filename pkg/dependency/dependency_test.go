package dependency

import (
	"fmt"
	"testing"

	"github.com/agentpkg/depresolver/pkg/action"
	"github.com/agentpkg/depresolver/pkg/errs"
	"github.com/agentpkg/depresolver/pkg/source"
)

func testSource(t *testing.T) *source.Source {
	t.Helper()
	s, err := source.Parse("local", source.ProtocolFilesystem, "/srv", "")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNew(t *testing.T) {
	src := testSource(t)

	tests := map[string]struct {
		spec       Spec
		wantErr    bool
		wantName   string
		wantAction action.Action
	}{
		"explicit name": {
			spec:       Spec{Name: "lib", Source: src, TargetDir: "vendor", SourcePath: "a/lib.zip", Action: action.Unzip},
			wantName:   "lib",
			wantAction: action.Unzip,
		},
		"name from target name": {
			spec:       Spec{Source: src, TargetDir: "vendor", TargetName: "renamed.zip", SourcePath: "a/lib.zip"},
			wantName:   "renamed.zip",
			wantAction: action.Copy,
		},
		"name from source path": {
			spec:       Spec{Source: src, TargetDir: "vendor", SourcePath: "a/lib.zip/"},
			wantName:   "lib.zip",
			wantAction: action.Copy,
		},
		"name from target dir": {
			spec:       Spec{Source: src, TargetDir: "vendor"},
			wantName:   "vendor",
			wantAction: action.Copy,
		},
		"missing source": {
			spec:    Spec{Name: "x", TargetDir: "vendor"},
			wantErr: true,
		},
		"missing target dir": {
			spec:    Spec{Name: "x", Source: src},
			wantErr: true,
		},
		"unknown action": {
			spec:    Spec{Name: "x", Source: src, TargetDir: "vendor", Action: action.Action("explode")},
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d, err := New(tc.spec)
			if tc.wantErr {
				if !errs.IsConfig(err) {
					t.Fatalf("New() error = %v, want ConfigError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}
			if d.Name() != tc.wantName {
				t.Errorf("Name() = %q, want %q", d.Name(), tc.wantName)
			}
			if d.Action() != tc.wantAction {
				t.Errorf("Action() = %q, want %q", d.Action(), tc.wantAction)
			}
		})
	}
}

func TestAbsoluteSourcePath(t *testing.T) {
	src := testSource(t)
	a, _ := New(Spec{Name: "a", Source: src, TargetDir: "x", SourcePath: "lib.zip"})
	b, _ := New(Spec{Name: "b", Source: src, TargetDir: "y", SourcePath: "/lib.zip"})

	if a.AbsoluteSourcePath() != b.AbsoluteSourcePath() {
		t.Errorf("AbsoluteSourcePath() differs: %q vs %q", a.AbsoluteSourcePath(), b.AbsoluteSourcePath())
	}
	if !a.IsTargetDirectory() {
		t.Error("IsTargetDirectory() = false with no target name")
	}
}

func TestDependencies(t *testing.T) {
	src := testSource(t)
	ds := NewDependencies()
	for i, name := range []string{"b", "a", "b"} {
		d, err := New(Spec{Name: name, Source: src, TargetDir: fmt.Sprintf("%s-%d", name, i)})
		if err != nil {
			t.Fatal(err)
		}
		ds.Add(d)
	}

	if ds.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", ds.Len())
	}
	var order []string
	for _, d := range ds.All() {
		order = append(order, d.Name())
	}
	if order[0] != "b" || order[1] != "a" || order[2] != "b" {
		t.Errorf("All() order = %v, want declaration order", order)
	}

	got, ok := ds.Get("b")
	if !ok || got.TargetDir() != "b-0" {
		t.Errorf("Get(b) = %v, %v; want the first declaration", got, ok)
	}
}

func TestLastPathElement(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"empty":          {in: "", want: ""},
		"file":           {in: "a.zip", want: "a.zip"},
		"nested":         {in: "a/b/c.zip", want: "c.zip"},
		"trailing slash": {in: "a/b/", want: "b"},
		"only slashes":   {in: "///", want: ""},
		"url":            {in: "https://example.com/x/y.tar", want: "y.tar"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := LastPathElement(tc.in); got != tc.want {
				t.Errorf("LastPathElement(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
