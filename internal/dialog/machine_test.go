package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/bookbot/core/telegram/state"
	"github.com/m3rciful/bookbot/internal/catalog"
)

const user int64 = 42

func newMachine(t *testing.T) (*Machine, *state.MemoryStore, *catalog.MemoryStore) {
	t.Helper()
	sessions := state.NewMemoryStore()
	books := catalog.NewMemoryStore()
	return New(sessions, books), sessions, books
}

func requireState(t *testing.T, m *Machine, want state.State) {
	t.Helper()
	got, err := m.State(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestMachine_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m, sessions, books := newMachine(t)
	requireState(t, m, state.StateIdle)

	r, err := m.Start(ctx, user)
	require.NoError(t, err)
	require.Equal(t, PromptTitle, r.Text)
	requireState(t, m, StateAwaitTitle)

	r, err = m.Input(ctx, user, Text("Title X"))
	require.NoError(t, err)
	require.Equal(t, PromptAuthor, r.Text)
	requireState(t, m, StateAwaitAuthor)

	r, err = m.Input(ctx, user, Text("Author Y"))
	require.NoError(t, err)
	require.True(t, r.Handled)
	require.Equal(t, "✅ Книжку додано: 📘 Title X — Author Y", r.Text)
	require.NotNil(t, r.Added)
	requireState(t, m, state.StateIdle)
	require.Zero(t, sessions.Len())

	all, err := books.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Title X", all[0].Title)
	require.Equal(t, "Author Y", all[0].Author)
	require.Equal(t, *r.Added, all[0])
}

func TestMachine_TitleIsKeptRaw(t *testing.T) {
	ctx := context.Background()
	m, _, books := newMachine(t)

	_, err := m.Start(ctx, user)
	require.NoError(t, err)
	_, err = m.Input(ctx, user, Text("  "))
	require.NoError(t, err)
	r, err := m.Input(ctx, user, Text("Хтось"))
	require.NoError(t, err)
	require.Equal(t, "  ", r.Added.Title)

	all, err := books.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestMachine_BlankAuthorKeepsSeparator(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newMachine(t)

	_, err := m.Start(ctx, user)
	require.NoError(t, err)
	_, err = m.Input(ctx, user, Text("Кобзар"))
	require.NoError(t, err)
	r, err := m.Input(ctx, user, Text(""))
	require.NoError(t, err)
	require.Equal(t, "✅ Книжку додано: 📘 Кобзар — ", r.Text)
}

func TestMachine_CancelIdempotence(t *testing.T) {
	ctx := context.Background()
	m, _, books := newMachine(t)

	r, err := m.Cancel(ctx, user)
	require.NoError(t, err)
	require.Equal(t, NothingToStop, r.Text)
	requireState(t, m, state.StateIdle)

	for _, steps := range [][]string{{}, {"Title X"}} {
		_, err := m.Start(ctx, user)
		require.NoError(t, err)
		for _, s := range steps {
			_, err := m.Input(ctx, user, Text(s))
			require.NoError(t, err)
		}
		r, err := m.Cancel(ctx, user)
		require.NoError(t, err)
		require.Equal(t, CancelledText, r.Text)
		requireState(t, m, state.StateIdle)
	}

	n, err := books.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMachine_StartRestartsAndDropsPendingTitle(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newMachine(t)

	_, err := m.Start(ctx, user)
	require.NoError(t, err)
	_, err = m.Input(ctx, user, Text("Перша"))
	require.NoError(t, err)

	_, err = m.Start(ctx, user)
	require.NoError(t, err)
	requireState(t, m, StateAwaitTitle)

	_, err = m.Input(ctx, user, Text("Друга"))
	require.NoError(t, err)
	r, err := m.Input(ctx, user, Text("Автор"))
	require.NoError(t, err)
	require.Equal(t, "Друга", r.Added.Title)
}

func TestMachine_IgnoresNonTextAndCommands(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newMachine(t)

	r, err := m.Input(ctx, user, Text("hello"))
	require.NoError(t, err)
	require.False(t, r.Handled, "idle users are not handled")

	_, err = m.Start(ctx, user)
	require.NoError(t, err)

	for _, msg := range []Message{{IsText: false}, Text("/recommend")} {
		r, err := m.Input(ctx, user, msg)
		require.NoError(t, err)
		require.True(t, r.Handled)
		require.Empty(t, r.Text)
		requireState(t, m, StateAwaitTitle)
	}
}

func TestMachine_MissingTitleUsesPlaceholder(t *testing.T) {
	ctx := context.Background()
	m, sessions, _ := newMachine(t)
	require.NoError(t, sessions.Save(ctx, user, state.Session{State: StateAwaitAuthor}))

	r, err := m.Input(ctx, user, Text("Невідомий"))
	require.NoError(t, err)
	require.Equal(t, UntitledTitle, r.Added.Title)
}

type failingCatalog struct {
	catalog.Store
}

var errDisk = errors.New("disk full")

func (failingCatalog) Add(context.Context, catalog.NewBook) (catalog.Book, error) {
	return catalog.Book{}, &catalog.Error{Op: "add", Kind: catalog.ErrStorage, Err: errDisk}
}

func TestMachine_StorageFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	sessions := state.NewMemoryStore()
	m := New(sessions, failingCatalog{})

	_, err := m.Start(ctx, user)
	require.NoError(t, err)
	_, err = m.Input(ctx, user, Text("Title X"))
	require.NoError(t, err)

	_, err = m.Input(ctx, user, Text("Author Y"))
	require.ErrorIs(t, err, catalog.ErrStorage)
	require.ErrorIs(t, err, errDisk)

	s, err := sessions.Get(ctx, user)
	require.NoError(t, err)
	require.Equal(t, StateAwaitAuthor, s.State)
	title, ok := s.Temp(tempTitle)
	require.True(t, ok)
	require.Equal(t, "Title X", title)
}

func TestMachine_UsersAreIndependent(t *testing.T) {
	ctx := context.Background()
	m, _, books := newMachine(t)

	const users = 20
	var wg sync.WaitGroup
	for i := int64(1); i <= users; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := m.Start(ctx, id)
			assert.NoError(t, err)
			_, err = m.Input(ctx, id, Text(fmt.Sprintf("Book %d", id)))
			assert.NoError(t, err)
			_, err = m.Input(ctx, id, Text(fmt.Sprintf("Author %d", id)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := books.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, users)
	for _, b := range all {
		var id int64
		_, err := fmt.Sscanf(b.Title, "Book %d", &id)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("Author %d", id), b.Author)
	}
	require.Zero(t, m.locks.len())
}

func TestKeyedMutexSerializesSameUser(t *testing.T) {
	var k keyedMutex
	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.lock(7)
			defer unlock()
			mu.Lock()
			inside++
			maxInside = max(maxInside, inside)
			mu.Unlock()
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxInside)
	require.Zero(t, k.len())
}
