// Package snippets reads the documentation tag regions embedded in source
// files.
//
// A region starts at a line comment holding an opening directive such as
// tag::<name>[] and runs until the matching end::<name>[] directive. The
// directive lines themselves are not part of the region. Regions may nest
// and overlap, and a tag may be opened again after it has been closed, in
// which case its regions are concatenated on extraction.
package snippets

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
)

var directive = regexp.MustCompile(`#?(tag|end)::([A-Za-z0-9_.-]+)\[\]`)

var (
	ErrTagReopened = errors.New("tag opened again before it was closed")
	ErrTagNotOpen  = errors.New("tag closed but not open")
	ErrTagUnclosed = errors.New("tag never closed")
	ErrTagNotFound = errors.New("tag not found")
)

// TagError reports a malformed directive.
type TagError struct {
	File string
	Line int
	Tag  string
	Err  error
}

func (e *TagError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %v", e.File, e.Line, e.Tag, e.Err)
}

func (e *TagError) Unwrap() error {
	return e.Err
}

// Region is one tagged span of a file.
type Region struct {
	Tag string

	// StartLine and EndLine are the 1-based lines of the opening and
	// closing directives.
	StartLine int
	EndLine   int

	Lines []string
}

// File holds the regions found in one source file.
type File struct {
	Name    string
	Regions []Region
}

// ParseFile parses the file at path.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f, path)
}

// Parse reads source from r. name is used in errors and as File.Name.
//
// All malformed directives are reported, joined into one error. The
// returned File holds every region that was closed properly, even when an
// error is returned.
func Parse(r io.Reader, name string) (*File, error) {
	file := &File{Name: name}
	open := map[string]*Region{}
	var errs []error

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		matches := directive.FindAllStringSubmatch(line, -1)
		if len(matches) == 0 {
			for _, region := range open {
				region.Lines = append(region.Lines, line)
			}
			continue
		}

		for _, m := range matches {
			kind, tag := m[1], m[2]
			switch kind {
			case "tag":
				if _, ok := open[tag]; ok {
					errs = append(errs, &TagError{File: name, Line: lineNo, Tag: tag, Err: ErrTagReopened})
					continue
				}
				open[tag] = &Region{Tag: tag, StartLine: lineNo}
			case "end":
				region, ok := open[tag]
				if !ok {
					errs = append(errs, &TagError{File: name, Line: lineNo, Tag: tag, Err: ErrTagNotOpen})
					continue
				}
				region.EndLine = lineNo
				file.Regions = append(file.Regions, *region)
				delete(open, tag)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	unclosed := make([]*Region, 0, len(open))
	for _, region := range open {
		unclosed = append(unclosed, region)
	}
	sort.Slice(unclosed, func(i, j int) bool { return unclosed[i].StartLine < unclosed[j].StartLine })
	for _, region := range unclosed {
		errs = append(errs, &TagError{File: name, Line: region.StartLine, Tag: region.Tag, Err: ErrTagUnclosed})
	}

	sort.SliceStable(file.Regions, func(i, j int) bool {
		return file.Regions[i].StartLine < file.Regions[j].StartLine
	})

	return file, errors.Join(errs...)
}

// Tags lists the tags of the file in order of first appearance.
func (f *File) Tags() []string {
	seen := map[string]bool{}
	var tags []string
	for _, region := range f.Regions {
		if !seen[region.Tag] {
			seen[region.Tag] = true
			tags = append(tags, region.Tag)
		}
	}
	return tags
}

// Lookup returns the regions of tag in file order.
func (f *File) Lookup(tag string) []Region {
	var regions []Region
	for _, region := range f.Regions {
		if region.Tag == tag {
			regions = append(regions, region)
		}
	}
	return regions
}

type extractConfig struct {
	dedent bool
}

// ExtractOption configures Extract.
type ExtractOption func(*extractConfig)

// WithDedent removes the indentation common to all non-blank lines.
func WithDedent() ExtractOption {
	return func(c *extractConfig) {
		c.dedent = true
	}
}

// Extract returns the text of tag, with every region of the tag joined in
// file order. The result ends in a newline unless it is empty.
func (f *File) Extract(tag string, opts ...ExtractOption) (string, error) {
	var cfg extractConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	regions := f.Lookup(tag)
	if len(regions) == 0 {
		return "", fmt.Errorf("%w: %s in %s", ErrTagNotFound, tag, f.Name)
	}

	var lines []string
	for _, region := range regions {
		lines = append(lines, region.Lines...)
	}
	if cfg.dedent {
		lines = dedent(lines)
	}
	if len(lines) == 0 {
		return "", nil
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func dedent(lines []string) []string {
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return lines
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if len(line) >= indent {
			out[i] = line[indent:]
		} else {
			out[i] = strings.TrimLeft(line, " \t")
		}
	}
	return out
}
