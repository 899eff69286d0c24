package bot

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/bookbot/core/telegram"
	"github.com/m3rciful/bookbot/core/telegram/commands"
	"github.com/m3rciful/bookbot/core/telegram/router"
	"github.com/m3rciful/bookbot/core/telegram/state"
	"github.com/m3rciful/bookbot/core/telegram/ui"
)

// Register adds the bot commands and buttons to reg and binds the dialog
// states to mgr.
func Register(reg *tg.Registry, mgr *state.Manager, h *Handlers) error {
	for _, c := range []struct {
		name string
		cmd  commands.Command
	}{
		{"/start", commands.Command{Handler: h.Start, Description: "Меню", Aliases: []string{"menu"}}},
		{"/books", commands.Command{Handler: h.Books, Description: "Список книжок", Aliases: []string{"list"}}},
		{"/add", commands.Command{Handler: h.Add, Description: "Додати книжку"}},
		{"/cancel", commands.Command{Handler: h.Cancel, Description: "Скасувати додавання"}},
		{"/recommend", commands.Command{Handler: h.Recommend, Description: "Порадити книжку"}},
		{"/get", commands.Command{Handler: h.Get, Description: "Отримати файл книжки", Usage: "<назва або номер>"}},
		{"/help", commands.Command{Handler: h.Help, Description: "Довідка"}},
		{"/stats", commands.Command{Handler: h.Stats, Description: "Статистика", AdminOnly: true, Hidden: true}},
	} {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			return err
		}
	}

	for _, key := range []string{keyBooks, keyAdd, keyRecommend, keyCancel, keyGet} {
		if err := reg.RegisterCallback(key, h.Button); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(Fallbacks{}.UnknownCallback())
	h.help = reg.HelpLines()

	for _, st := range h.dialog.States() {
		mgr.Handle(st, h.DialogInput)
	}
	return nil
}

// Routes builds every telebot route of the bot.
func Routes(reg *tg.Registry, mgr *state.Manager, h *Handlers, fb ui.FallbackProvider, adminID int64) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: adminID,
		OnAdminReject: func(c tele.Context) error {
			return c.Send(adminOnlyText)
		},
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{NotFound: fb.UnknownCallback()}))
	routes = append(routes, router.TextRoutes(mgr, reg, router.TextOptions{
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
	})...)
	routes = append(routes, router.InlineRoute(h.InlineQuery))
	return routes
}
