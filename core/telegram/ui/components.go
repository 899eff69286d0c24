package ui

import tele "gopkg.in/telebot.v4"

// Article is a text answer to an inline query.
type Article struct {
	ID          string
	Title       string
	Description string
	// Text is sent to the chat when the article is picked.
	Text string
}

// Articles converts items to inline results, keeping their order.
func Articles(items []Article) tele.Results {
	results := make(tele.Results, 0, len(items))
	for _, it := range items {
		r := &tele.ArticleResult{
			Title:       it.Title,
			Description: it.Description,
			Text:        it.Text,
		}
		r.SetResultID(it.ID)
		results = append(results, r)
	}
	return results
}
