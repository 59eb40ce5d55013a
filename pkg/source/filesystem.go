package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentpkg/depresolver/pkg/fsutil"
)

// FilesystemProtocol copies artifacts (files or whole directories) from the
// local filesystem.
type FilesystemProtocol struct{}

var _ Protocol = &FilesystemProtocol{}

func (f *FilesystemProtocol) Name() string { return ProtocolFilesystem }

func (f *FilesystemProtocol) ValidateBase(base string) error { return nil }

func (f *FilesystemProtocol) Join(base, rel string) string {
	return filepath.Join(base, rel)
}

func (f *FilesystemProtocol) Fetch(ctx context.Context, absPath, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, absPath)
		}
		return fmt.Errorf("checking %s: %w", absPath, err)
	}

	tmp := partialPath(dest)
	if err := fsutil.Copy(absPath, tmp); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("copying %s: %w", absPath, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("moving copy into place: %w", err)
	}
	return nil
}
