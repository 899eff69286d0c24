package bot

import (
	"strconv"
	"strings"

	"github.com/m3rciful/bookbot/internal/catalog"
)

// Kind names what the user asked for.
type Kind string

const (
	ShowMenu     Kind = "show_menu"
	ListBooks    Kind = "list_books"
	StartAdd     Kind = "start_add"
	Recommend    Kind = "recommend"
	GetByKeyword Kind = "get_by_keyword"
	GetByID      Kind = "get_by_id"
	Cancel       Kind = "cancel"
)

// Button and command keys.
const (
	keyBooks     = "books"
	keyAdd       = "add"
	keyRecommend = "recommend"
	keyCancel    = "cancel"
	keyGet       = "get"
)

// Intent is a decoded user request.
type Intent struct {
	Kind    Kind
	Keyword string
	ID      int64
}

// DecodeCallback maps an inline button key and payload to an intent.
func DecodeCallback(key, payload string) (Intent, bool) {
	switch key {
	case keyBooks:
		return Intent{Kind: ListBooks}, true
	case keyAdd:
		return Intent{Kind: StartAdd}, true
	case keyRecommend:
		return Intent{Kind: Recommend}, true
	case keyCancel:
		return Intent{Kind: Cancel}, true
	case keyGet:
		id, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
		if err != nil || id <= 0 {
			return Intent{}, false
		}
		return Intent{Kind: GetByID, ID: id}, true
	}
	return Intent{}, false
}

// DecodeGet parses the argument of /get. A positive integer selects by id,
// anything else is a title keyword.
func DecodeGet(arg string) (Intent, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return Intent{}, &catalog.Error{Op: "get", Kind: catalog.ErrInvalidInput}
	}
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id > 0 {
		return Intent{Kind: GetByID, ID: id, Keyword: arg}, nil
	}
	return Intent{Kind: GetByKeyword, Keyword: arg}, nil
}
