package action

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentpkg/depresolver/pkg/fsutil"
)

// extractor writes archive entries below a destination directory. Every
// filesystem call goes through an os.Root, so links created by earlier
// entries cannot redirect a later write outside the destination.
type extractor struct {
	root *os.Root
	// dir is the destination with symlinks evaluated.
	dir string
}

func newExtractor(destDir string) (*extractor, error) {
	dir, err := filepath.EvalSymlinks(destDir)
	if err != nil {
		return nil, err
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	return &extractor{root: root, dir: dir}, nil
}

func (x *extractor) Close() error {
	return x.root.Close()
}

func (x *extractor) mkdir(name string) error {
	if name == "." {
		return nil
	}
	return x.root.MkdirAll(name, fsutil.DirPerm)
}

func (x *extractor) writeFile(name string, r io.Reader, perm fs.FileMode) error {
	if err := x.mkdir(filepath.Dir(name)); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := x.root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (x *extractor) symlink(name, target string) error {
	if name == "." {
		return fmt.Errorf("symlink entry has no name")
	}
	if err := x.mkdir(filepath.Dir(name)); err != nil {
		return err
	}
	if !x.linkAllowed(name, target) {
		return fmt.Errorf("symlink %q points outside the target directory", name)
	}
	if err := x.root.RemoveAll(name); err != nil {
		return err
	}
	return x.root.Symlink(target, name)
}

// hardlink makes name another link to the earlier entry target. Where the
// filesystem refuses hard links the content is copied instead.
func (x *extractor) hardlink(name, target string) error {
	if name == "." {
		return fmt.Errorf("hard link entry has no name")
	}
	old, err := entryPath(target)
	if err != nil {
		return err
	}
	if err := x.mkdir(filepath.Dir(name)); err != nil {
		return err
	}
	if err := x.root.RemoveAll(name); err != nil {
		return err
	}
	if err := x.root.Link(old, name); err == nil {
		return nil
	}

	src, err := x.root.Open(old)
	if err != nil {
		return fmt.Errorf("hard link %q: %w", name, err)
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("hard link %q does not point to a regular file", name)
	}
	return x.writeFile(name, src, info.Mode().Perm())
}

// linkAllowed reports whether a symlink at name pointing to target stays
// inside the destination. The target may only climb with leading ".."
// elements, and it is measured from the real location of the link's
// parent so that links created earlier are taken into account.
func (x *extractor) linkAllowed(name, target string) bool {
	if target == "" || filepath.IsAbs(target) {
		return false
	}
	target = filepath.FromSlash(target)

	named := false
	for _, elem := range strings.Split(target, string(filepath.Separator)) {
		switch elem {
		case "", ".":
		case "..":
			if named {
				return false
			}
		default:
			named = true
		}
	}

	parent, err := filepath.EvalSymlinks(filepath.Join(x.dir, filepath.Dir(name)))
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(x.dir, filepath.Join(parent, target))
	return err == nil && filepath.IsLocal(rel)
}
