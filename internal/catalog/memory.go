package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m3rciful/bookbot/core/logger"
)

// MemoryStore keeps the catalog in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	books []Book
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store holding a copy of books. Missing ids are assigned.
func NewMemoryStore(books ...Book) *MemoryStore {
	m := &MemoryStore{books: make([]Book, 0, len(books))}
	for _, b := range books {
		if b.ID <= 0 {
			b.ID = nextID(m.books)
		}
		m.books = append(m.books, b)
	}
	return m
}

func (m *MemoryStore) snapshot() []Book {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Book, len(m.books))
	copy(out, m.books)
	return out
}

func (m *MemoryStore) ListAll(_ context.Context) ([]Book, error) {
	return m.snapshot(), nil
}

func (m *MemoryStore) SampleRandom(_ context.Context, n int) ([]Book, error) {
	return sample(m.snapshot(), n), nil
}

func (m *MemoryStore) FindByKeyword(_ context.Context, text string) (Book, error) {
	return firstMatch("find_by_keyword", m.snapshot(), text)
}

func (m *MemoryStore) FindByID(_ context.Context, id int64) (Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return findID("find_by_id", m.books, id)
}

func (m *MemoryStore) Add(ctx context.Context, nb NewBook) (Book, error) {
	m.mu.Lock()
	b := nb.book(nextID(m.books))
	m.books = append(m.books, b)
	m.mu.Unlock()

	logger.Debug(ctx, "catalog", "book.added",
		slog.String("backend", "memory"),
		slog.Int64("book_id", b.ID),
	)
	return b, nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books), nil
}
