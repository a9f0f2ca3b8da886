package consolidate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jackzampolin/shotlist/internal/textio"
)

// Format identifies how a source's content is parsed.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// FormatFor maps a file extension to a source format.
func FormatFor(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, true
	case ".txt", ".md":
		return FormatText, true
	}
	return "", false
}

// Source is a single consolidation input.
type Source interface {
	// ID identifies the source; sources are processed in natural order of ID.
	ID() string
	Format() Format
	Read(ctx context.Context) ([]byte, error)
}

// FileSource reads its content from disk.
type FileSource struct {
	Path string
	Name string
	Kind Format
}

func (f FileSource) ID() string     { return f.Name }
func (f FileSource) Format() Format { return f.Kind }

func (f FileSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(f.Path)
}

// MemorySource holds its content in memory.
type MemorySource struct {
	Name    string
	Kind    Format
	Content []byte
}

func (m MemorySource) ID() string     { return m.Name }
func (m MemorySource) Format() Format { return m.Kind }

func (m MemorySource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Content, nil
}

// DiscoverOptions controls source discovery.
type DiscoverOptions struct {
	// Formats to include. Defaults to CSV only.
	Formats []Format
	// Recursive descends into subdirectories.
	Recursive bool
	// Exclude lists paths that are never sources, typically the output file.
	Exclude []string
}

// Discover finds sources under root. A file root yields that file alone.
// Hidden files and in-progress temp files are ignored. Source IDs are
// slash-separated paths relative to root.
func Discover(root string, opts DiscoverOptions) ([]Source, error) {
	formats := opts.Formats
	if len(formats) == 0 {
		formats = []Format{FormatCSV}
	}
	excluded := pathSet(opts.Exclude)

	accept := func(path string) (Format, bool) {
		if ignored(path, excluded) {
			return "", false
		}
		f, ok := FormatFor(path)
		if !ok || !slices.Contains(formats, f) {
			return "", false
		}
		return f, true
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		f, ok := FormatFor(root)
		if !ok {
			return nil, fmt.Errorf("unsupported source file: %s", root)
		}
		return []Source{FileSource{Path: root, Name: filepath.Base(root), Kind: f}}, nil
	}

	var sources []Source
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (!opts.Recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		f, ok := accept(path)
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sources = append(sources, FileSource{Path: path, Name: filepath.ToSlash(rel), Kind: f})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return sources, nil
}

// pathSet returns paths in absolute form.
func pathSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			set[abs] = true
		}
	}
	return set
}

// ignored reports whether path is hidden, an in-progress temp file or one
// of the excluded paths.
func ignored(path string, excluded map[string]bool) bool {
	if strings.HasPrefix(filepath.Base(path), ".") || textio.IsTemp(path) {
		return true
	}
	abs, err := filepath.Abs(path)
	return err == nil && excluded[abs]
}
