// Package bot turns Telegram updates into catalog queries and dialog
// transitions, and renders their results.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/bookbot/core/telegram/helpers"
	"github.com/m3rciful/bookbot/core/telegram/ui"
	"github.com/m3rciful/bookbot/internal/catalog"
	"github.com/m3rciful/bookbot/internal/delivery"
	"github.com/m3rciful/bookbot/internal/dialog"
)

const (
	defaultRecommendSize = 3
	inlineResultLimit    = 10
)

// SessionCounter is implemented by session stores that can report their size.
type SessionCounter interface {
	Len() int
}

// Deps are the collaborators of Handlers.
type Deps struct {
	Books  catalog.Store
	Dialog *dialog.Machine
	Files  *delivery.Library
	// Sessions is optional; /stats reports active dialogs when set.
	Sessions SessionCounter
	// RecommendSize defaults to 3.
	RecommendSize int
}

// Handlers serves bot commands, buttons, dialog input and inline queries.
type Handlers struct {
	books         catalog.Store
	dialog        *dialog.Machine
	files         *delivery.Library
	sessions      SessionCounter
	recommendSize int
	// help is filled by Register from the registry.
	help []string
}

// NewHandlers builds Handlers from deps.
func NewHandlers(d Deps) *Handlers {
	size := d.RecommendSize
	if size <= 0 {
		size = defaultRecommendSize
	}
	return &Handlers{
		books:         d.Books,
		dialog:        d.Dialog,
		files:         d.Files,
		sessions:      d.Sessions,
		recommendSize: size,
	}
}

// Start shows the main menu.
func (h *Handlers) Start(c tele.Context) error { return h.Handle(c, Intent{Kind: ShowMenu}) }

// Books lists the catalog.
func (h *Handlers) Books(c tele.Context) error { return h.Handle(c, Intent{Kind: ListBooks}) }

// Add starts the add-book dialog.
func (h *Handlers) Add(c tele.Context) error { return h.Handle(c, Intent{Kind: StartAdd}) }

// Cancel stops the add-book dialog.
func (h *Handlers) Cancel(c tele.Context) error { return h.Handle(c, Intent{Kind: Cancel}) }

// Recommend suggests random books.
func (h *Handlers) Recommend(c tele.Context) error { return h.Handle(c, Intent{Kind: Recommend}) }

// Help describes the commands.
func (h *Handlers) Help(c tele.Context) error {
	return tghelpers.SendText(c, helpText(h.help))
}

// Get sends a book file found by the /get argument.
func (h *Handlers) Get(c tele.Context) error {
	var arg string
	if m := c.Message(); m != nil {
		arg = m.Payload
	}
	in, err := DecodeGet(arg)
	if err != nil {
		return h.present(c, err)
	}
	return h.Handle(c, in)
}

// Button dispatches an inline button press.
func (h *Handlers) Button(c tele.Context) error {
	key, payload := callbacks.ParseCallbackData(c.Callback())
	in, ok := DecodeCallback(key, payload)
	if !ok {
		return tghelpers.SendText(c, unknownText)
	}
	return h.Handle(c, in)
}

// Stats reports catalog size to the admin.
func (h *Handlers) Stats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	books, err := h.books.ListAll(ctx)
	if err != nil {
		return h.present(c, err)
	}
	active := -1
	if h.sessions != nil {
		active = h.sessions.Len()
	}
	return tghelpers.SendMDV2(c, statsText(books, active))
}

// DialogInput feeds a message from a user with an active dialog into the machine.
func (h *Handlers) DialogInput(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	msg := dialog.Message{}
	if m := c.Message(); m != nil && m.Text != "" {
		msg = dialog.Text(m.Text)
	}
	r, err := h.dialog.Input(ctx, c.Sender().ID, msg)
	if err != nil {
		return h.present(c, err)
	}
	return h.sendReply(c, r)
}

// InlineQuery answers "@bot <text>" with matching catalog entries.
func (h *Handlers) InlineQuery(c tele.Context) error {
	q := c.Query()
	if q == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	books, err := catalog.Search(ctx, h.books, q.Text, inlineResultLimit)
	if err != nil {
		return err
	}
	items := make([]ui.Article, 0, len(books))
	for _, b := range books {
		items = append(items, ui.Article{
			ID:          strconv.FormatInt(b.ID, 10),
			Title:       b.Title,
			Description: b.Author,
			Text:        b.Line(),
		})
	}
	return c.Answer(&tele.QueryResponse{Results: ui.Articles(items), CacheTime: 30})
}

// Handle executes a decoded intent.
func (h *Handlers) Handle(c tele.Context, in Intent) error {
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "intent",
		slog.String("intent", string(in.Kind)),
	)

	switch in.Kind {
	case ShowMenu:
		return h.reply(c, menuText, menuMarkup())

	case ListBooks:
		books, err := h.books.ListAll(ctx)
		if err != nil {
			return h.present(c, err)
		}
		return h.reply(c, listText(books), downloadMarkup(books))

	case Recommend:
		books, err := h.books.SampleRandom(ctx, h.recommendSize)
		if err != nil {
			return h.present(c, err)
		}
		return h.reply(c, recommendText(books), downloadMarkup(books))

	case StartAdd, Cancel:
		if c.Sender() == nil {
			return nil
		}
		var (
			r   dialog.Reply
			err error
		)
		if in.Kind == StartAdd {
			r, err = h.dialog.Start(ctx, c.Sender().ID)
		} else {
			r, err = h.dialog.Cancel(ctx, c.Sender().ID)
		}
		if err != nil {
			return h.present(c, err)
		}
		if c.Callback() != nil {
			return h.reply(c, r.Text, replyMarkup(r))
		}
		return h.sendReply(c, r)

	case GetByID:
		b, err := h.books.FindByID(ctx, in.ID)
		if errors.Is(err, catalog.ErrNotFound) && in.Keyword != "" {
			// Numeric titles such as "1984".
			b, err = h.books.FindByKeyword(ctx, in.Keyword)
		}
		if errors.Is(err, catalog.ErrNotFound) {
			return tghelpers.SendText(c, fmt.Sprintf(idNotFoundText, in.ID))
		}
		if err != nil {
			return h.present(c, err)
		}
		return h.deliver(ctx, c, b)

	case GetByKeyword:
		b, err := h.books.FindByKeyword(ctx, in.Keyword)
		if errors.Is(err, catalog.ErrNotFound) {
			return tghelpers.SendText(c, fmt.Sprintf(notFoundText, in.Keyword))
		}
		if err != nil {
			return h.present(c, err)
		}
		return h.deliver(ctx, c, b)
	}
	return nil
}

func (h *Handlers) deliver(ctx context.Context, c tele.Context, b catalog.Book) error {
	if b.Filename == "" {
		return tghelpers.SendText(c, b.Line()+"\n"+noFileText)
	}
	rc, info, err := h.files.Open(ctx, b.Filename)
	if errors.Is(err, delivery.ErrMissing) {
		return tghelpers.SendText(c, fmt.Sprintf(fileMissingText, b.Filename))
	}
	if err != nil {
		_ = tghelpers.SendText(c, storageFailText)
		return err
	}
	defer rc.Close()

	logger.Info(ctx, "delivery", "file.send",
		slog.Int64("book_id", b.ID),
		slog.String("file", info.Name),
		slog.Int("pages", info.Pages),
	)
	return tghelpers.SendDocument(c, documentFor(b, info, rc))
}

// present renders a catalog or dialog error. Only storage failures are returned to the router.
func (h *Handlers) present(c tele.Context, err error) error {
	switch {
	case errors.Is(err, catalog.ErrInvalidInput):
		return tghelpers.SendText(c, getUsageText)
	case errors.Is(err, catalog.ErrEmptyCatalog):
		return tghelpers.SendText(c, emptyListText)
	case errors.Is(err, catalog.ErrNotFound):
		return tghelpers.SendText(c, nothingFoundText)
	}
	_ = tghelpers.SendText(c, storageFailText)
	return err
}

// reply edits the message under a pressed button, or sends a new one.
func (h *Handlers) reply(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if c.Callback() != nil && c.Callback().Message != nil {
		var err error
		if markup != nil {
			err = c.Edit(text, markup)
		} else {
			err = c.Edit(text)
		}
		if err == nil {
			return nil
		}
		logger.Debug(tghelpers.BuildContext(c), "tg", "edit.fallback",
			slog.String("err", logger.SanitizeLimit(err.Error(), 128)),
		)
	}
	return tghelpers.SendTextMarkup(c, text, markup)
}

func (h *Handlers) sendReply(c tele.Context, r dialog.Reply) error {
	if r.Text == "" {
		return nil
	}
	return tghelpers.SendTextMarkup(c, r.Text, replyMarkup(r))
}

func replyMarkup(r dialog.Reply) *tele.ReplyMarkup {
	switch r.Text {
	case dialog.PromptTitle, dialog.PromptAuthor:
		return cancelMarkup()
	case dialog.NothingToStop:
		return menuMarkup()
	}
	return nil
}

// Fallbacks implements ui.FallbackProvider.
type Fallbacks struct{}

var _ ui.FallbackProvider = Fallbacks{}

func (Fallbacks) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error { return tghelpers.SendText(c, unknownText) }
}

func (Fallbacks) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error { return tghelpers.SendText(c, unknownDocText) }
}

func (Fallbacks) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "Невідома дія"})
	}
}

func (Fallbacks) RateLimited() tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Callback() != nil {
			return c.Respond(&tele.CallbackResponse{Text: rateLimitedText})
		}
		return nil
	}
}
