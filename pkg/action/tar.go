package action

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
)

var gzipMagic = []byte{0x1f, 0x8b}

// untar extracts a plain or gzip-compressed tarball into destDir.
func untar(artifact, destDir string) error {
	if err := prepareExtraction(artifact, destDir); err != nil {
		return err
	}

	f, err := os.Open(artifact)
	if err != nil {
		return fmt.Errorf("unable to open tar file at %s: %w", artifact, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if head, _ := br.Peek(len(gzipMagic)); bytes.Equal(head, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("%s is not a valid gzip stream: %w", artifact, err)
		}
		defer gz.Close()
		r = gz
	}

	x, err := newExtractor(destDir)
	if err != nil {
		return err
	}
	defer x.Close()

	tr := tar.NewReader(r)
	for n := 0; ; n++ {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			if n == 0 {
				return fmt.Errorf("%s is not a tar file: no entries", artifact)
			}
			return nil
		}
		if err != nil {
			if n == 0 {
				return fmt.Errorf("%s is not a tar file: %w", artifact, err)
			}
			return fmt.Errorf("unable to extract tar file at %s: %w", artifact, err)
		}
		if err := extractTarEntry(x, tr, hdr); err != nil {
			return fmt.Errorf("unable to extract tar file at %s: %w", artifact, err)
		}
	}
}

func extractTarEntry(x *extractor, tr *tar.Reader, hdr *tar.Header) error {
	name, err := entryPath(hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return x.mkdir(name)
	case tar.TypeReg:
		return x.writeFile(name, tr, os.FileMode(hdr.Mode).Perm())
	case tar.TypeSymlink:
		return x.symlink(name, hdr.Linkname)
	case tar.TypeLink:
		return x.hardlink(name, hdr.Linkname)
	case tar.TypeXGlobalHeader:
		return nil
	default:
		return fmt.Errorf("unsupported entry type %q for %q", hdr.Typeflag, hdr.Name)
	}
}
