package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/bookbot/core/logger"
)

const selectBooks = `SELECT id, title, COALESCE(author, '') AS author, COALESCE(filename, '') AS filename FROM books`

// SQLStore keeps the catalog in the books table of a SQLite or Postgres database.
type SQLStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open connection. The schema is managed by migrations.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) ListAll(ctx context.Context) ([]Book, error) {
	books := []Book{}
	if err := s.db.SelectContext(ctx, &books, selectBooks+` ORDER BY id`); err != nil {
		return nil, storageErr("list_all", err)
	}
	return books, nil
}

func (s *SQLStore) SampleRandom(ctx context.Context, n int) ([]Book, error) {
	books := []Book{}
	if n <= 0 {
		return books, nil
	}
	q := s.db.Rebind(selectBooks + ` ORDER BY RANDOM() LIMIT ?`)
	if err := s.db.SelectContext(ctx, &books, q, n); err != nil {
		return nil, storageErr("sample_random", err)
	}
	return books, nil
}

// FindByKeyword matches in Go so transliterated keywords behave the same on every backend.
func (s *SQLStore) FindByKeyword(ctx context.Context, text string) (Book, error) {
	const op = "find_by_keyword"
	if _, err := parseKeyword(op, text); err != nil {
		return Book{}, err
	}
	books, err := s.ListAll(ctx)
	if err != nil {
		return Book{}, err
	}
	return firstMatch(op, books, text)
}

func (s *SQLStore) FindByID(ctx context.Context, id int64) (Book, error) {
	var b Book
	err := s.db.GetContext(ctx, &b, s.db.Rebind(selectBooks+` WHERE id = ?`), id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Book{}, notFound("find_by_id")
	case err != nil:
		return Book{}, storageErr("find_by_id", err)
	}
	return b, nil
}

// Add inserts the record in a transaction; the id comes from the table's sequence.
func (s *SQLStore) Add(ctx context.Context, nb NewBook) (Book, error) {
	b := nb.book(0)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Book{}, storageErr("add", fmt.Errorf("begin: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	q := tx.Rebind(`INSERT INTO books (title, author, filename) VALUES (?, ?, NULLIF(?, '')) RETURNING id`)
	if err := tx.GetContext(ctx, &b.ID, q, b.Title, b.Author, b.Filename); err != nil {
		return Book{}, storageErr("add", fmt.Errorf("insert: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return Book{}, storageErr("add", fmt.Errorf("commit: %w", err))
	}

	logger.Debug(ctx, "catalog", "book.added",
		slog.String("backend", "sql"),
		slog.Int64("book_id", b.ID),
	)
	return b, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM books`); err != nil {
		return 0, storageErr("count", err)
	}
	return n, nil
}
