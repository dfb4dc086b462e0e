package snippets

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// ScanOptions controls which files Scan parses.
type ScanOptions struct {
	// Extensions lists the file extensions to parse. Defaults to ".go".
	Extensions []string

	// IncludeTests also parses _test.go files.
	IncludeTests bool
}

// Wants reports whether a file at path would be parsed, ignoring the
// directories it is in.
func (o ScanOptions) Wants(path string) bool {
	exts := o.Extensions
	if len(exts) == 0 {
		exts = []string{".go"}
	}
	if !slices.Contains(exts, filepath.Ext(path)) {
		return false
	}
	return o.IncludeTests || !strings.HasSuffix(path, "_test.go")
}

// Scan parses every matching file under root and returns those with at
// least one region, sorted by path.
//
// Directories whose names start with an underscore or a dot are skipped,
// as are testdata and vendor. Parse errors from all files are joined.
func Scan(root string, opts ScanOptions) ([]*File, error) {
	var (
		files []*File
		errs  []error
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !opts.Wants(path) {
			return nil
		}

		file, err := ParseFile(path)
		if err != nil {
			errs = append(errs, err)
		}
		if file != nil && len(file.Regions) > 0 {
			files = append(files, file)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(files, func(a, b *File) int { return strings.Compare(a.Name, b.Name) })
	return files, errors.Join(errs...)
}

// SkipDir reports whether Scan skips directories named name.
func SkipDir(name string) bool {
	return strings.HasPrefix(name, "_") ||
		strings.HasPrefix(name, ".") ||
		name == "testdata" ||
		name == "vendor"
}

// Find returns the first file among files that has tag.
func Find(files []*File, tag string) (*File, bool) {
	for _, f := range files {
		if len(f.Lookup(tag)) > 0 {
			return f, true
		}
	}
	return nil, false
}
