// Package catalog stores book records and answers the catalog queries used by the bot.
package catalog

import (
	"context"
	"strings"
	"unicode"
)

// Book is a catalog record.
type Book struct {
	ID       int64  `json:"id" db:"id"`
	Title    string `json:"title" db:"title"`
	Author   string `json:"author" db:"author"`
	Filename string `json:"filename,omitempty" db:"filename"`
}

// NewBook carries the fields supplied when adding a book.
// An empty Filename is derived from Title.
type NewBook struct {
	Title    string
	Author   string
	Filename string
}

// Display renders "<title> — <author>". A blank author still keeps the separator.
func (b Book) Display() string {
	return b.Title + " — " + b.Author
}

// Line renders the book as a catalog list entry.
func (b Book) Line() string {
	return "📘 " + b.Display()
}

// Store is the catalog contract shared by every backend.
type Store interface {
	// ListAll returns every record in storage order.
	ListAll(ctx context.Context) ([]Book, error)
	// SampleRandom returns min(n, size) distinct records; an empty catalog yields an empty slice.
	SampleRandom(ctx context.Context, n int) ([]Book, error)
	// FindByKeyword returns the first record whose title contains text, ignoring case.
	FindByKeyword(ctx context.Context, text string) (Book, error)
	// FindByID returns the record with the given id.
	FindByID(ctx context.Context, id int64) (Book, error)
	// Add persists a new record before returning it with its assigned id.
	Add(ctx context.Context, nb NewBook) (Book, error)
	// Count returns the number of records.
	Count(ctx context.Context) (int, error)
}

// DeriveFilename builds "<title>.pdf" from a title: lowercased, whitespace runs
// replaced by "_", and anything other than letters, digits, "_" and "-" dropped.
// It returns "" when nothing usable remains.
func DeriveFilename(title string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsSpace(r):
			sep = b.Len() > 0
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-':
			if sep {
				b.WriteByte('_')
				sep = false
			}
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + ".pdf"
}

func (nb NewBook) book(id int64) Book {
	filename := strings.TrimSpace(nb.Filename)
	if filename == "" {
		filename = DeriveFilename(nb.Title)
	}
	return Book{ID: id, Title: nb.Title, Author: nb.Author, Filename: filename}
}
