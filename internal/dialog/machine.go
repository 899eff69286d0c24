// Package dialog implements the two-step "add a book" conversation.
//
// The machine is transport-agnostic: it reads and writes sessions through
// state.Store, commits finished entries to catalog.Store and returns the text
// to show the user. Transitions of a single user are serialized; different
// users proceed concurrently.
package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/core/telegram/state"
	"github.com/m3rciful/bookbot/internal/catalog"
)

const (
	// StateAwaitTitle waits for the title of the new book.
	StateAwaitTitle state.State = "await_title"
	// StateAwaitAuthor waits for the author; the title is kept in temp data.
	StateAwaitAuthor state.State = "await_author"

	// UntitledTitle replaces a pending title lost between the two steps.
	UntitledTitle = "Без назви"

	tempTitle = "title"
)

// User-facing texts.
const (
	PromptTitle   = "Введи назву книжки 📖:"
	PromptAuthor  = "Хто автор цієї книжки? ✍️"
	AddedPrefix   = "✅ Книжку додано: "
	CancelledText = "❌ Додавання скасовано."
	NothingToStop = "Зараз нічого не додається. Натисни «➕ Додати книжку», щоб почати."
)

// Message is an inbound user message. Only text drives the dialog.
type Message struct {
	Text   string
	IsText bool
}

// Text builds a text message.
func Text(s string) Message {
	return Message{Text: s, IsText: true}
}

// Reply is the outcome of a transition.
type Reply struct {
	// Text is shown to the user; empty means stay silent.
	Text string
	// Handled is false when the machine did not consume the input.
	Handled bool
	// Added is set when the dialog committed a book.
	Added *catalog.Book
}

// Machine drives add-book dialogs.
type Machine struct {
	sessions state.Store
	books    catalog.Store
	locks    keyedMutex
}

// New constructs a Machine over a session store and a catalog.
func New(sessions state.Store, books catalog.Store) *Machine {
	return &Machine{sessions: sessions, books: books}
}

// States lists the waiting states so the transport can route them back to Input.
func (m *Machine) States() []state.State {
	return []state.State{StateAwaitTitle, StateAwaitAuthor}
}

// State returns the user's current dialog state.
func (m *Machine) State(ctx context.Context, userID int64) (state.State, error) {
	s, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("dialog: load session: %w", err)
	}
	if s.Idle() {
		return state.StateIdle, nil
	}
	return s.State, nil
}

// Start begins (or restarts) the dialog, discarding any pending title.
func (m *Machine) Start(ctx context.Context, userID int64) (Reply, error) {
	unlock := m.locks.lock(userID)
	defer unlock()

	prev, err := m.State(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	if err := m.sessions.Save(ctx, userID, state.Session{State: StateAwaitTitle}); err != nil {
		return Reply{}, fmt.Errorf("dialog: save session: %w", err)
	}
	logger.Debug(ctx, "dialog", "dialog.start",
		slog.Int64("user_id", userID),
		slog.String("from", string(prev)),
	)
	return Reply{Text: PromptTitle, Handled: true}, nil
}

// Input feeds a user message into the dialog.
// Non-text input and commands are swallowed while waiting; idle users are not handled.
func (m *Machine) Input(ctx context.Context, userID int64, msg Message) (Reply, error) {
	unlock := m.locks.lock(userID)
	defer unlock()

	s, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("dialog: load session: %w", err)
	}
	if s.Idle() {
		return Reply{}, nil
	}
	if !msg.IsText || strings.HasPrefix(msg.Text, "/") {
		logger.Debug(ctx, "dialog", "dialog.ignored",
			slog.Int64("user_id", userID),
			slog.String("state", string(s.State)),
		)
		return Reply{Handled: true}, nil
	}

	switch s.State {
	case StateAwaitTitle:
		next := s.WithTemp(tempTitle, msg.Text)
		next.State = StateAwaitAuthor
		if err := m.sessions.Save(ctx, userID, next); err != nil {
			return Reply{}, fmt.Errorf("dialog: save session: %w", err)
		}
		logger.Debug(ctx, "dialog", "dialog.title", slog.Int64("user_id", userID))
		return Reply{Text: PromptAuthor, Handled: true}, nil

	case StateAwaitAuthor:
		title, ok := s.Temp(tempTitle)
		if !ok {
			title = UntitledTitle
		}
		book, err := m.books.Add(ctx, catalog.NewBook{Title: title, Author: msg.Text})
		if err != nil {
			return Reply{}, fmt.Errorf("dialog: add book: %w", err)
		}
		if err := m.sessions.Clear(ctx, userID); err != nil {
			// The book is already stored; report success and log the stale session.
			logger.Warn(ctx, "dialog", "session.clear",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
		logger.Info(ctx, "dialog", "dialog.added",
			slog.Int64("user_id", userID),
			slog.Int64("book_id", book.ID),
		)
		return Reply{Text: AddedPrefix + book.Line(), Handled: true, Added: &book}, nil
	}

	// Unknown state left by an older build: reset it.
	if err := m.sessions.Clear(ctx, userID); err != nil {
		return Reply{}, fmt.Errorf("dialog: clear session: %w", err)
	}
	return Reply{}, nil
}

// Cancel abandons the dialog without persisting anything.
func (m *Machine) Cancel(ctx context.Context, userID int64) (Reply, error) {
	unlock := m.locks.lock(userID)
	defer unlock()

	s, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("dialog: load session: %w", err)
	}
	if s.Idle() {
		return Reply{Text: NothingToStop, Handled: true}, nil
	}
	if err := m.sessions.Clear(ctx, userID); err != nil {
		return Reply{}, fmt.Errorf("dialog: clear session: %w", err)
	}
	logger.Debug(ctx, "dialog", "dialog.cancel",
		slog.Int64("user_id", userID),
		slog.String("from", string(s.State)),
	)
	return Reply{Text: CancelledText, Handled: true}, nil
}
