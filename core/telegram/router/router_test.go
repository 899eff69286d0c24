package router

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/bookbot/core/telegram"
	"github.com/m3rciful/bookbot/core/telegram/commands"
)

type fakeContext struct {
	tele.Context
	update    tele.Update
	user      *tele.User
	store     map[string]any
	responded int
}

func newText(id int, text string) *fakeContext {
	user := &tele.User{ID: 7}
	return &fakeContext{
		update: tele.Update{ID: id, Message: &tele.Message{Sender: user, Chat: &tele.Chat{ID: 7}, Text: text}},
		user:   user,
		store:  map[string]any{},
	}
}

func newButton(id int, unique string) *fakeContext {
	c := newText(id, "")
	c.update.Callback = &tele.Callback{Sender: c.user, Unique: unique, Message: c.update.Message}
	return c
}

func (f *fakeContext) Sender() *tele.User        { return f.user }
func (f *fakeContext) Chat() *tele.Chat          { return f.update.Message.Chat }
func (f *fakeContext) Update() tele.Update       { return f.update }
func (f *fakeContext) Message() *tele.Message    { return f.update.Message }
func (f *fakeContext) Callback() *tele.Callback  { return f.update.Callback }
func (f *fakeContext) Query() *tele.Query        { return f.update.Query }
func (f *fakeContext) Text() string              { return f.update.Message.Text }
func (f *fakeContext) Get(key string) any        { return f.store[key] }
func (f *fakeContext) Set(key string, val any)   { f.store[key] = val }
func (f *fakeContext) Send(any, ...any) error    { return nil }
func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.responded++
	return nil
}

type fakeConversations struct {
	active map[int64]bool
	served int
}

func (f *fakeConversations) InProgress(id int64) bool { return f.active[id] }
func (f *fakeConversations) ManagerHandler(tele.Context) error {
	f.served++
	return nil
}

func routeFor(t *testing.T, routes []tg.Route, endpoint any) tele.HandlerFunc {
	t.Helper()
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	t.Fatalf("no route for %v", endpoint)
	return nil
}

func TestTextRoutesOrder(t *testing.T) {
	var calls []string
	record := func(name string) tele.HandlerFunc {
		return func(tele.Context) error {
			calls = append(calls, name)
			return nil
		}
	}

	reg := tg.NewRegistry()
	reg.RegisterCommand("/books", commands.Command{Handler: record("books"), Description: "list", Aliases: []string{"list"}})
	conv := &fakeConversations{active: map[int64]bool{}}
	routes := TextRoutes(conv, reg, TextOptions{
		UnknownText:     record("unknown"),
		UnknownDocument: record("document"),
	})
	text := routeFor(t, routes, tele.OnText)
	doc := routeFor(t, routes, tele.OnDocument)

	require.NoError(t, text(newText(1, "/list")))
	require.NoError(t, text(newText(2, "привіт")))
	require.NoError(t, doc(newText(3, "")))
	require.Equal(t, []string{"books", "unknown", "document"}, calls)

	conv.active[7] = true
	require.NoError(t, text(newText(4, "/list")))
	require.NoError(t, doc(newText(5, "")))
	require.Equal(t, 2, conv.served)
	require.Len(t, calls, 3)
}

func TestCallbackRoute(t *testing.T) {
	reg := tg.NewRegistry()
	ran := 0
	require.NoError(t, reg.RegisterCallback("books", func(tele.Context) error {
		ran++
		return nil
	}))
	notFound := 0
	route := CallbackRoute(reg, CallbackOptions{NotFound: func(c tele.Context) error {
		notFound++
		return c.Respond(&tele.CallbackResponse{Text: "?"})
	}})
	require.Equal(t, tele.OnCallback, route.Endpoint)

	c := newButton(10, "books")
	require.NoError(t, route.Handler(c))
	require.Equal(t, 1, ran)
	require.Equal(t, 1, c.responded)

	c = newButton(11, "nope")
	require.NoError(t, route.Handler(c))
	require.Equal(t, 1, notFound)
	require.Equal(t, 1, c.responded)
}

func TestCommandRoutesKeepRegistrationOrder(t *testing.T) {
	reg := tg.NewRegistry()
	noop := func(tele.Context) error { return nil }
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "menu", Aliases: []string{"menu"}})
	reg.RegisterCommand("/books", commands.Command{Handler: noop, Description: "list"})

	var endpoints []any
	for _, r := range CommandRoutes(reg, CommandRouteOptions{}) {
		endpoints = append(endpoints, r.Endpoint)
	}
	require.Equal(t, []any{"/start", "/menu", "/books"}, endpoints)
}
