package state

import (
	"log/slog"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/bookbot/core/logger"
	tghelpers "github.com/m3rciful/bookbot/core/telegram/helpers"
)

// Manager routes updates of users with an active session to the handler bound to their state.
type Manager struct {
	store    Store
	mu       sync.RWMutex
	handlers map[State]tele.HandlerFunc
}

// NewManager constructs a Manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		handlers: make(map[State]tele.HandlerFunc),
	}
}

// Store returns the underlying session store.
func (m *Manager) Store() Store {
	return m.store
}

// Handle associates a state with its handler.
func (m *Manager) Handle(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[st] = h
}

func (m *Manager) handler(st State) (tele.HandlerFunc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handlers[st]
	return h, ok
}

// InProgress reports whether the user has a non-idle state with a bound handler.
// Store failures are logged and treated as idle.
func (m *Manager) InProgress(userID int64) bool {
	s, err := m.store.Get(logger.Background(), userID)
	if err != nil {
		logger.Sessions.Warn("session lookup failed",
			slog.String("event", "session.get"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return false
	}
	if s.Idle() {
		return false
	}
	_, ok := m.handler(s.State)
	return ok
}

// ManagerHandler executes the handler registered for the user's current state, if any.
func (m *Manager) ManagerHandler(c tele.Context) error {
	userID := c.Sender().ID
	ctx := tghelpers.BuildContext(c)
	s, err := m.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(s.State)),
	)
	if h, ok := m.handler(s.State); ok {
		return h(c)
	}
	return nil
}
