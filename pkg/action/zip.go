package action

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
)

func unzip(artifact, destDir string) error {
	if err := prepareExtraction(artifact, destDir); err != nil {
		return err
	}

	zr, err := zip.OpenReader(artifact)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return fmt.Errorf("%s is not a zip file", artifact)
		}
		return fmt.Errorf("unable to open zip file at %s: %w", artifact, err)
	}
	defer zr.Close()

	x, err := newExtractor(destDir)
	if err != nil {
		return err
	}
	defer x.Close()

	for _, f := range zr.File {
		if err := extractZipEntry(x, f); err != nil {
			return fmt.Errorf("unable to extract zip file at %s: %w", artifact, err)
		}
	}
	return nil
}

func extractZipEntry(x *extractor, f *zip.File) error {
	name, err := entryPath(f.Name)
	if err != nil {
		return err
	}

	mode := f.Mode()
	if mode.IsDir() {
		return x.mkdir(name)
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	if mode&fs.ModeSymlink != 0 {
		target, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		return x.symlink(name, string(target))
	}
	return x.writeFile(name, rc, mode.Perm())
}
