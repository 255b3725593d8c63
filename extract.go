package nodeup

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nodeup/nodeup/dist"
)

// extract unpacks a downloaded release archive into the destination
// directory, stripping the single leading path component that release
// archives carry (node-v6.0.0-linux-x64/bin/node lands in bin/node).
// The source archive is removed after successful extraction.
func extract(archive, destination string, kind dist.ArchiveKind) (err error) {
	logdetail(fmt.Sprintf("extracting %s", archive))

	file, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("%w: open %s: %s", ErrExtractionFailure, archive, err)
	}
	defer file.Close()
	defer func() {
		if err == nil {
			err = os.Remove(archive)
		}
	}()

	switch kind {
	case dist.TarGz:
		return untar(file, destination)
	case dist.Zip:
		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("%w: %s", ErrExtractionFailure, err)
		}
		return unzip(file, info.Size(), destination)
	default:
		return fmt.Errorf("%w: nothing to extract from %s", ErrExtractionFailure, archive)
	}
}

// handles .tar.gz files
func untar(file io.Reader, destination string) error {
	decompressor, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("%w: create gzip reader: %s", ErrExtractionFailure, err)
	}
	defer decompressor.Close()

	reader := tar.NewReader(decompressor)

	for {
		header, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("%w: %s", ErrExtractionFailure, err)
		}

		stripped, ok := stripLeading(header.Name)
		if !ok {
			continue
		}
		target := filepath.Join(destination, filepath.FromSlash(stripped))

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: create directory %s: %s", ErrExtractionFailure, target, err)
			}

		case tar.TypeSymlink:
			// release tarballs link bin/npm at the bundled npm cli
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("%w: create directory %s: %s", ErrExtractionFailure, filepath.Dir(target), err)
			}
			_ = os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("%w: create symlink %s: %s", ErrExtractionFailure, target, err)
			}

		case tar.TypeReg:
			if err := writeEntry(target, reader, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		}
	}

	return nil
}

// handles .zip files
func unzip(file io.ReaderAt, size int64, destination string) error {
	reader, err := zip.NewReader(file, size)
	if err != nil {
		return fmt.Errorf("%w: create zip reader: %s", ErrExtractionFailure, err)
	}

	for _, entry := range reader.File {
		stripped, ok := stripLeading(entry.Name)
		if !ok {
			continue
		}
		target := filepath.Join(destination, filepath.FromSlash(stripped))

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: create directory %s: %s", ErrExtractionFailure, target, err)
			}
			continue
		}

		contents, err := entry.Open()
		if err != nil {
			return fmt.Errorf("%w: open %s: %s", ErrExtractionFailure, entry.Name, err)
		}

		err = writeEntry(target, contents, entry.FileInfo().Mode().Perm())
		contents.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

func writeEntry(target string, contents io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: create directory %s: %s", ErrExtractionFailure, filepath.Dir(target), err)
	}

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("%w: create file %s: %s", ErrExtractionFailure, target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, contents); err != nil {
		return fmt.Errorf("%w: copy data to %s: %s", ErrExtractionFailure, target, err)
	}

	return nil
}

// stripLeading drops the first path component of an archive entry name.
// Entries without anything below the leading component, and entries trying
// to climb out of the destination, are skipped entirely.
func stripLeading(name string) (string, bool) {
	name = path.Clean(strings.TrimPrefix(name, "./"))

	idx := strings.IndexByte(name, '/')
	if idx < 0 {
		return "", false
	}

	rest := name[idx+1:]
	if rest == "" || rest == "." || rest == ".." || strings.HasPrefix(rest, "../") {
		return "", false
	}

	return rest, true
}
