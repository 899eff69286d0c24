// Package delivery looks up book files inside a fixed directory.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/m3rciful/bookbot/core/logger"
)

// ErrMissing reports that no regular file with the requested name exists in the library.
var ErrMissing = errors.New("file not found")

// Library serves files from a single flat directory.
type Library struct {
	dir string
}

// NewLibrary returns a library rooted at dir.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Dir returns the library directory.
func (l *Library) Dir() string {
	return l.dir
}

// Info describes a resolved file.
type Info struct {
	Name string
	Path string
	Size int64
	// Pages is zero for non-PDF files or when the page count cannot be read.
	Pages int
}

// Resolve checks that filename names a regular file directly inside the library.
// Names with path separators or ".." never resolve.
func (l *Library) Resolve(filename string) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") ||
		filepath.Base(name) != name {
		return "", fmt.Errorf("delivery: %q: %w", filename, ErrMissing)
	}
	path := filepath.Join(l.dir, name)
	st, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("delivery: %q: %w", filename, ErrMissing)
	case err != nil:
		return "", fmt.Errorf("delivery: stat %q: %w", filename, err)
	case !st.Mode().IsRegular():
		return "", fmt.Errorf("delivery: %q: %w", filename, ErrMissing)
	}
	return path, nil
}

// Stat resolves filename and describes it.
func (l *Library) Stat(ctx context.Context, filename string) (Info, error) {
	path, err := l.Resolve(filename)
	if err != nil {
		logger.Debug(ctx, "delivery", "file.missing", slog.String("file", filename))
		return Info{}, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("delivery: stat %q: %w", filename, err)
	}
	info := Info{Name: st.Name(), Path: path, Size: st.Size()}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		info.Pages = pageCount(ctx, path)
	}
	return info, nil
}

// Open resolves filename and opens it for reading. The caller closes the reader.
func (l *Library) Open(ctx context.Context, filename string) (io.ReadCloser, Info, error) {
	info, err := l.Stat(ctx, filename)
	if err != nil {
		return nil, Info{}, err
	}
	f, err := os.Open(info.Path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("delivery: open %q: %w", filename, err)
	}
	logger.Debug(ctx, "delivery", "file.open",
		slog.String("file", info.Name),
		slog.Int64("bytes", info.Size),
		slog.Int("pages", info.Pages),
	)
	return f, info, nil
}

func pageCount(ctx context.Context, path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(f, conf)
	if err != nil {
		logger.Debug(ctx, "delivery", "pdf.pages",
			slog.String("file", filepath.Base(path)),
			slog.String("err", err.Error()),
		)
		return 0
	}
	return n
}
