package catalog_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/bookbot/core/database"
	"github.com/m3rciful/bookbot/internal/catalog"
)

type storeFactory func(t *testing.T) catalog.Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) catalog.Store {
			return catalog.NewMemoryStore()
		},
		"json": func(t *testing.T) catalog.Store {
			s, err := catalog.OpenJSONStore(filepath.Join(t.TempDir(), "books.json"))
			require.NoError(t, err)
			return s
		},
		"sql": func(t *testing.T) catalog.Store {
			return newSQLStore(t)
		},
	}
}

func newSQLStore(t *testing.T) *catalog.SQLStore {
	t.Helper()
	cfg := database.Config{
		Driver:        database.DriverSQLite,
		Path:          filepath.Join(t.TempDir(), "books.db"),
		MigrationsDir: filepath.Join("..", "..", "migrations", "sqlite"),
	}
	require.NoError(t, database.RunMigrations(cfg))
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return catalog.NewSQLStore(db)
}

func TestStore_AddThenListKeepsCallOrder(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)

			input := []catalog.NewBook{
				{Title: "Title X", Author: "Author Y"},
				{Title: "Кобзар", Author: "Тарас Шевченко"},
				{Title: "Title X", Author: "Author Y"},
				{Title: "   ", Author: ""},
			}
			for _, nb := range input {
				b, err := s.Add(ctx, nb)
				require.NoError(t, err)
				require.Positive(t, b.ID)
			}

			books, err := s.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, books, len(input))
			for i, b := range books {
				require.Equal(t, input[i].Title, b.Title)
				require.Equal(t, input[i].Author, b.Author)
				if i > 0 {
					require.Greater(t, b.ID, books[i-1].ID)
				}
			}
			require.Equal(t, "title_x.pdf", books[0].Filename)
			require.Equal(t, "кобзар.pdf", books[1].Filename)
			require.Empty(t, books[3].Filename)

			n, err := s.Count(ctx)
			require.NoError(t, err)
			require.Equal(t, len(input), n)
		})
	}
}

func TestStore_SampleRandom(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)

			empty, err := s.SampleRandom(ctx, 3)
			require.NoError(t, err)
			require.NotNil(t, empty)
			require.Empty(t, empty)

			for _, title := range []string{"A", "B", "C", "D", "E"} {
				_, err := s.Add(ctx, catalog.NewBook{Title: title})
				require.NoError(t, err)
			}

			for _, tc := range []struct{ n, want int }{{0, 0}, {-1, 0}, {3, 3}, {5, 5}, {10, 5}} {
				got, err := s.SampleRandom(ctx, tc.n)
				require.NoError(t, err)
				require.Len(t, got, tc.want)
				seen := map[int64]bool{}
				for _, b := range got {
					require.False(t, seen[b.ID], "duplicate id %d", b.ID)
					seen[b.ID] = true
					found, err := s.FindByID(ctx, b.ID)
					require.NoError(t, err)
					require.Equal(t, b, found)
				}
			}
		})
	}
}

func TestStore_FindByKeyword(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)

			_, err := s.FindByKeyword(ctx, "принц")
			require.ErrorIs(t, err, catalog.ErrNotFound)

			_, err = s.Add(ctx, catalog.NewBook{Title: "Маленький принц", Author: "Екзюпері"})
			require.NoError(t, err)
			_, err = s.Add(ctx, catalog.NewBook{Title: "Людина в пошуках сенсу", Author: "Віктор Франкл"})
			require.NoError(t, err)

			b, err := s.FindByKeyword(ctx, "принц")
			require.NoError(t, err)
			require.Equal(t, "Маленький принц", b.Title)
			require.Equal(t, "Екзюпері", b.Author)

			b, err = s.FindByKeyword(ctx, "ПРИНЦ")
			require.NoError(t, err)
			require.Equal(t, "Маленький принц", b.Title)

			b, err = s.FindByKeyword(ctx, "sens")
			require.NoError(t, err)
			require.Equal(t, "Людина в пошуках сенсу", b.Title)

			_, err = s.FindByKeyword(ctx, "xyz")
			require.ErrorIs(t, err, catalog.ErrNotFound)

			_, err = s.FindByKeyword(ctx, "  ")
			require.ErrorIs(t, err, catalog.ErrInvalidInput)
		})
	}
}

func TestStore_FindByKeywordReturnsFirstOfHomonyms(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			first, err := s.Add(ctx, catalog.NewBook{Title: "Дюна", Author: "Френк Герберт"})
			require.NoError(t, err)
			_, err = s.Add(ctx, catalog.NewBook{Title: "Дюна", Author: "Інший автор"})
			require.NoError(t, err)

			b, err := s.FindByKeyword(ctx, "дюна")
			require.NoError(t, err)
			require.Equal(t, first.ID, b.ID)
		})
	}
}

func TestStore_FindByID(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			added, err := s.Add(ctx, catalog.NewBook{Title: "1984", Author: "Джордж Орвелл", Filename: "orwell.pdf"})
			require.NoError(t, err)

			b, err := s.FindByID(ctx, added.ID)
			require.NoError(t, err)
			require.Equal(t, added, b)
			require.Equal(t, "orwell.pdf", b.Filename)

			_, err = s.FindByID(ctx, added.ID+100)
			require.ErrorIs(t, err, catalog.ErrNotFound)
		})
	}
}

func TestStore_ConcurrentAddAndList(t *testing.T) {
	const writers, perWriter = 20, 5

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)

			done := make(chan struct{})
			var readers sync.WaitGroup
			for range 4 {
				readers.Add(1)
				go func() {
					defer readers.Done()
					for {
						select {
						case <-done:
							return
						default:
						}
						books, err := s.ListAll(ctx)
						if !assert.NoError(t, err) {
							return
						}
						for _, b := range books {
							assert.Positive(t, b.ID)
							assert.NotEmpty(t, b.Title)
							assert.NotEmpty(t, b.Author)
						}
					}
				}()
			}

			var wg sync.WaitGroup
			for w := range writers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := range perWriter {
						_, err := s.Add(ctx, catalog.NewBook{
							Title:  fmt.Sprintf("Книжка %d-%d", w, i),
							Author: fmt.Sprintf("Автор %d", w),
						})
						assert.NoError(t, err)
					}
				}()
			}
			wg.Wait()
			close(done)
			readers.Wait()

			n, err := s.Count(ctx)
			require.NoError(t, err)
			require.Equal(t, writers*perWriter, n)

			books, err := s.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, books, writers*perWriter)
			ids := make(map[int64]bool, len(books))
			for _, b := range books {
				ids[b.ID] = true
			}
			require.Len(t, ids, writers*perWriter, "ids are unique")
		})
	}
}
