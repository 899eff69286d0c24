package bot

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/bookbot/core/telegram/format"
	"github.com/m3rciful/bookbot/core/telegram/keyboard"
	"github.com/m3rciful/bookbot/internal/catalog"
	"github.com/m3rciful/bookbot/internal/delivery"
)

const (
	menuText         = "Привіт! Обери дію нижче:"
	listHeader       = "Ось мої книжки:\n\n"
	emptyListText    = "Список книжок порожній 😔"
	recommendHeader  = "Раджу почитати:\n\n"
	emptyRecommend   = "Поки нічого порадити: каталог порожній 😔"
	getUsageText     = "Напиши, що шукати: /get <назва або номер>\nНаприклад: /get принц"
	storageFailText  = "Щось пішло не так зі сховищем книжок. Спробуй трохи пізніше 🙏"
	noFileText       = "Для цієї книжки ще немає файлу 😔"
	fileMissingText  = "Файл «%s» не знайдено 😔"
	notFoundText     = "Не знайшов книжку за запитом «%s» 🤷"
	nothingFoundText = "Нічого не знайшов 🤷"
	idNotFoundText   = "Книжки з номером %d немає 🤷"
	adminOnlyText    = "Ця команда лише для адміністратора."
	unknownText      = "Не зрозумів 🙈 Спробуй /start або /help."
	unknownDocText   = "Файли я поки не приймаю 📎"
	rateLimitedText  = "Забагато запитів, зачекай секунду ⏳"

	helpHeader = "Я бот-бібліотека 📚\n\n"
	helpFooter = "\n\nУ будь-якому чаті: @бот <назва> — пошук у каталозі."

	maxBookButtons = 20
)

func menuMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "📚 Список книжок", Unique: keyBooks},
			{Text: "➕ Додати книжку", Unique: keyAdd},
		},
		[]keyboard.InlineBtn{
			{Text: "🎲 Порадь книжку", Unique: keyRecommend},
		},
	)
}

func cancelMarkup() *tele.ReplyMarkup {
	return keyboard.SingleCancelMarkup(keyCancel)
}

func renderLines(books []catalog.Book) string {
	lines := make([]string, len(books))
	for i, b := range books {
		lines[i] = b.Line()
	}
	return strings.Join(lines, "\n")
}

func listText(books []catalog.Book) string {
	if len(books) == 0 {
		return emptyListText
	}
	return listHeader + renderLines(books)
}

func recommendText(books []catalog.Book) string {
	if len(books) == 0 {
		return emptyRecommend
	}
	return recommendHeader + renderLines(books)
}

// downloadMarkup offers one "get" button per book that has a file.
func downloadMarkup(books []catalog.Book) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, min(len(books), maxBookButtons))
	for _, b := range books {
		if b.Filename == "" {
			continue
		}
		btns = append(btns, keyboard.InlineBtn{
			Text:   "⬇️ " + b.Title,
			Unique: keyGet,
			Data:   strconv.FormatInt(b.ID, 10),
		})
		if len(btns) == maxBookButtons {
			break
		}
	}
	if len(btns) == 0 {
		return nil
	}
	return keyboard.InlineButtons(btns)
}

func documentFor(b catalog.Book, info delivery.Info, r io.Reader) *tele.Document {
	caption := b.Line()
	if info.Pages > 0 {
		caption += fmt.Sprintf("\n📄 %d стор.", info.Pages)
	}
	return &tele.Document{
		File:     tele.FromReader(r),
		FileName: info.Name,
		Caption:  caption,
		MIME:     mimeFor(info.Name),
	}
}

func mimeFor(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return "application/pdf"
	}
	return ""
}

// helpText frames the registry's command lines with the intro and the inline search hint.
func helpText(lines []string) string {
	return helpHeader + strings.Join(lines, "\n") + helpFooter
}

// statsText renders MarkdownV2. A negative sessions count omits the line.
func statsText(books []catalog.Book, sessions int) string {
	text := fmt.Sprintf("📊 Книжок у каталозі: *%d*", len(books))
	if sessions >= 0 {
		text += fmt.Sprintf("\n💬 Активних діалогів: *%d*", sessions)
	}
	if len(books) > 0 {
		text += "\n🆕 Остання: " + format.EscapeV2(books[len(books)-1].Line())
	}
	return text
}
