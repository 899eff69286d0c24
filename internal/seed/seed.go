// Package seed fills an empty or partial catalog with reference books.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/bookbot/core/bootstrap"
	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/internal/catalog"
)

// Entry is a book to seed.
type Entry struct {
	Title    string `yaml:"title"`
	Author   string `yaml:"author"`
	Filename string `yaml:"filename"`
}

// File is the layout of a seed YAML file.
type File struct {
	Books []Entry `yaml:"books"`
}

// Defaults are seeded when no file is given.
var Defaults = []Entry{
	{Title: "Людина в пошуках сенсу", Author: "Віктор Франкл", Filename: "людина_в_пошуках_сенсу.pdf"},
}

// LoadFile reads seed entries from a YAML file.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: parse %s: %w", path, err)
	}
	for i, e := range f.Books {
		if strings.TrimSpace(e.Title) == "" {
			return nil, fmt.Errorf("seed: %s: book #%d has no title", path, i+1)
		}
	}
	return f.Books, nil
}

// Books adds every entry whose title and author are not in the catalog yet.
// It returns the number of books added.
func Books(ctx context.Context, store catalog.Store, entries []Entry) (int, error) {
	existing, err := store.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: list: %w", err)
	}
	seen := make(map[string]struct{}, len(existing)+len(entries))
	for _, b := range existing {
		seen[identity(b.Title, b.Author)] = struct{}{}
	}

	added := 0
	for _, e := range entries {
		id := identity(e.Title, e.Author)
		if _, ok := seen[id]; ok {
			continue
		}
		b, err := store.Add(ctx, catalog.NewBook{Title: e.Title, Author: e.Author, Filename: e.Filename})
		if err != nil {
			return added, fmt.Errorf("seed: add %q: %w", e.Title, err)
		}
		seen[id] = struct{}{}
		added++
		logger.SEED.Debug("book seeded",
			slog.String("event", "seed.book"),
			slog.Int64("book_id", b.ID),
		)
	}

	logger.SEED.Info("seed summary",
		slog.String("event", "summary"),
		slog.Int("added", added),
		slog.Int("skipped", len(entries)-added),
	)
	return added, nil
}

// Seeder adapts Books to the bootstrap module hook. The storage must be a catalog.Store.
func Seeder(entries []Entry) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, storage bootstrap.Storage) error {
		store, ok := storage.(catalog.Store)
		if !ok {
			return fmt.Errorf("seed: storage %T is not a catalog", storage)
		}
		_, err := Books(ctx, store, entries)
		return err
	})
}

func identity(title, author string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(author))
}
