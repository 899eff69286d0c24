package catalog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/m3rciful/bookbot/core/logger"
)

const fileSchemaURL = "bookbot://catalog.schema.json"

// fileSchema accepts the current object records and the legacy list of display strings.
const fileSchema = `{
  "type": "array",
  "items": {
    "oneOf": [
      {"type": "string"},
      {
        "type": "object",
        "required": ["title"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "integer", "minimum": 0},
          "title": {"type": "string"},
          "author": {"type": "string"},
          "filename": {"type": "string"}
        }
      }
    ]
  }
}`

var compiledFileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(fileSchemaURL, strings.NewReader(fileSchema)); err != nil {
		return nil, err
	}
	return c.Compile(fileSchemaURL)
})

// JSONStore keeps the catalog in a JSON file, rewritten atomically on every add.
type JSONStore struct {
	path string

	mu      sync.RWMutex
	books   []Book
	lastSum [sha256.Size]byte
}

var _ Store = (*JSONStore)(nil)

// OpenJSONStore loads the catalog at path. A missing file is an empty catalog.
func OpenJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, storageErr("open", err)
	}
	books, err := decodeFile(data)
	if err != nil {
		return nil, storageErr("open", fmt.Errorf("%s: %w", path, err))
	}
	s.books = books
	s.lastSum = sha256.Sum256(data)
	logger.Catalog.Info("catalog loaded",
		slog.String("event", "catalog.load"),
		slog.String("backend", "json"),
		slog.String("path", path),
		slog.Int("books", len(books)),
	)
	return s, nil
}

// Path returns the backing file path.
func (s *JSONStore) Path() string {
	return s.path
}

func (s *JSONStore) snapshot() []Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Book, len(s.books))
	copy(out, s.books)
	return out
}

func (s *JSONStore) ListAll(_ context.Context) ([]Book, error) {
	return s.snapshot(), nil
}

func (s *JSONStore) SampleRandom(_ context.Context, n int) ([]Book, error) {
	return sample(s.snapshot(), n), nil
}

func (s *JSONStore) FindByKeyword(_ context.Context, text string) (Book, error) {
	return firstMatch("find_by_keyword", s.snapshot(), text)
}

func (s *JSONStore) FindByID(_ context.Context, id int64) (Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findID("find_by_id", s.books, id)
}

func (s *JSONStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books), nil
}

// Add appends the book and rewrites the file before the new record becomes visible.
func (s *JSONStore) Add(ctx context.Context, nb NewBook) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := nb.book(nextID(s.books))
	next := make([]Book, len(s.books), len(s.books)+1)
	copy(next, s.books)
	next = append(next, b)

	sum, err := writeFileAtomic(s.path, next)
	if err != nil {
		return Book{}, storageErr("add", err)
	}
	s.books = next
	s.lastSum = sum

	logger.Debug(ctx, "catalog", "book.added",
		slog.String("backend", "json"),
		slog.Int64("book_id", b.ID),
	)
	return b, nil
}

// Reload re-reads the file. It reports whether the in-memory catalog changed.
func (s *JSONStore) Reload() (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, storageErr("reload", err)
	}
	sum := sha256.Sum256(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sum == s.lastSum {
		return false, nil
	}
	books, err := decodeFile(data)
	if err != nil {
		return false, storageErr("reload", err)
	}
	s.books = books
	s.lastSum = sum
	return true, nil
}

func decodeFile(data []byte) ([]Book, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Book{}, nil
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	schema, err := compiledFileSchema()
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	books := make([]Book, 0, len(raw))
	for _, item := range raw {
		var b Book
		if len(item) > 0 && item[0] == '"' {
			var line string
			if err := json.Unmarshal(item, &line); err != nil {
				return nil, fmt.Errorf("decode: %w", err)
			}
			b = parseLegacyLine(line)
		} else if err := json.Unmarshal(item, &b); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		books = append(books, b)
	}
	for i := range books {
		if books[i].ID <= 0 {
			books[i].ID = nextID(books)
		}
	}
	return books, nil
}

// parseLegacyLine reads a "📘 <title> — <author>" display string.
func parseLegacyLine(line string) Book {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "📘"))
	title, author := line, ""
	if i := strings.LastIndex(line, " — "); i >= 0 {
		title, author = line[:i], strings.TrimSpace(line[i+len(" — "):])
	}
	return Book{Title: title, Author: author, Filename: DeriveFilename(title)}
}

func writeFileAtomic(path string, books []Book) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(books); err != nil {
		return sum, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sum, err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return sum, err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return sum, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return sum, err
	}
	if err := tmp.Close(); err != nil {
		return sum, err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return sum, err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return sum, err
	}
	return sha256.Sum256(buf.Bytes()), nil
}
