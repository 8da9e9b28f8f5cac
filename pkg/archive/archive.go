// Package archive extracts vendor zip exports and picks the DICOM file inside
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrArchiveStructure is returned when no single DICOM file can be chosen
	ErrArchiveStructure = errors.New("unexpected archive structure")
	// ErrUnsafePath is returned for entries that would extract outside the target dir
	ErrUnsafePath = errors.New("unsafe path in archive")
)

// WithExtracted unpacks zipPath into a temp dir and calls fn with the sorted
// absolute paths of every extracted file. The temp dir is removed on return.
func WithExtracted(ctx context.Context, zipPath string, fn func(dir string, files []string) error) error {
	dir, err := os.MkdirTemp("", "fairdata-*")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.WarnContext(ctx, "removing temp dir", "dir", dir, "error", err)
		}
	}()

	if err := Extract(ctx, zipPath, dir); err != nil {
		return err
	}
	files, err := List(dir)
	if err != nil {
		return err
	}
	return fn(dir, files)
}

// Extract unpacks every entry of zipPath under dir
func Extract(ctx context.Context, zipPath, dir string) error {
	rc, err := zip.OpenReader(zipPath)
	if errors.Is(err, zip.ErrInsecurePath) {
		rc.Close()
		return fmt.Errorf("%s: %w", zipPath, ErrUnsafePath)
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", zipPath, err)
	}
	defer rc.Close()

	root := filepath.Clean(dir) + string(os.PathSeparator)
	for _, zf := range rc.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := filepath.Join(dir, zf.Name)
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("%s: %w", zf.Name, ErrUnsafePath)
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
			continue
		}
		if err := extractFile(zf, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}
	in, err := zf.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", zf.Name, err)
	}
	defer in.Close()
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", zf.Name, err)
	}
	return out.Close()
}

// List returns the regular files under dir, recursively, sorted
func List(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// SelectDICOM picks the file to read from an extracted export. Candidates end
// in .dcm and are not under a "__" directory (__MACOSX and friends). A lone
// candidate wins; among several the first non-hidden one ending .1.1.dcm
// wins. An archive with no candidate but exactly one file yields that file.
func SelectDICOM(files []string) (string, error) {
	var candidates []string
	for _, f := range files {
		slashed := filepath.ToSlash(f)
		if strings.HasSuffix(slashed, ".dcm") && !strings.Contains(slashed, "/__") {
			candidates = append(candidates, f)
		}
	}
	switch {
	case len(candidates) == 1:
		return candidates[0], nil
	case len(candidates) > 1:
		for _, f := range candidates {
			slashed := filepath.ToSlash(f)
			if strings.HasSuffix(slashed, ".1.1.dcm") && !strings.Contains(slashed, "/.") {
				return f, nil
			}
		}
		return "", fmt.Errorf("%d dicom files and none ends in .1.1.dcm: %w", len(candidates), ErrArchiveStructure)
	case len(files) == 1:
		return files[0], nil
	}
	return "", fmt.Errorf("no dicom file in archive: %w", ErrArchiveStructure)
}

// Walk lists files under root whose slash path relative to root matches any
// of the glob patterns. No patterns matches everything.
func Walk(root string, patterns ...string) ([]string, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	files, err := List(root)
	if err != nil {
		return nil, err
	}
	if len(globs) == 0 {
		return files, nil
	}
	var out []string
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			return nil, err
		}
		rel = filepath.ToSlash(rel)
		for _, g := range globs {
			if g.Match(rel) {
				out = append(out, f)
				break
			}
		}
	}
	return out, nil
}
