package decode

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
)

// extract unpacks every entry of the zip at archivePath under dir and
// returns the paths of the .csv files found, sorted.
func extract(archivePath, dir string) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		name := entryName(f)
		target, err := safeJoin(dir, name)
		if err != nil {
			return nil, err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, fmt.Errorf("extract %s: %w", name, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}
	}

	var csvs []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			csvs = append(csvs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan extracted files: %w", err)
	}
	sort.Strings(csvs)
	return csvs, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// entryName returns the entry's name as UTF-8. Archives built on Korean
// Windows store CP949 names without the UTF-8 flag.
func entryName(f *zip.File) string {
	if f.NonUTF8 && !utf8.ValidString(f.Name) {
		if s, err := korean.EUCKR.NewDecoder().String(f.Name); err == nil {
			return s
		}
	}
	return f.Name
}

// safeJoin resolves an archive entry name under root and rejects names that
// would land outside it.
func safeJoin(root, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	target := filepath.Join(root, clean)

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes extraction dir", name)
	}
	return target, nil
}

// regionLabel returns the raw region label of a registry file: the third
// underscore-delimited segment of its base name, extension removed.
func regionLabel(path string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(base, "_")
	if len(parts) < 3 || strings.TrimSpace(parts[2]) == "" {
		return "", fmt.Errorf("file name %q has no region segment", filepath.Base(path))
	}
	return parts[2], nil
}
