package catalog

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/gosimple/unidecode"
)

// keyword is a case-folded search term plus its Latin transliteration,
// so "sens" finds "Людина в пошуках сенсу".
type keyword struct {
	plain string
	latin string
}

func parseKeyword(op, text string) (keyword, error) {
	plain := strings.ToLower(strings.TrimSpace(text))
	if plain == "" {
		return keyword{}, invalidInput(op, "keyword is empty")
	}
	return keyword{plain: plain, latin: strings.ToLower(unidecode.Unidecode(plain))}, nil
}

func (k keyword) matches(title string) bool {
	lower := strings.ToLower(title)
	if strings.Contains(lower, k.plain) {
		return true
	}
	return k.latin != "" && strings.Contains(strings.ToLower(unidecode.Unidecode(lower)), k.latin)
}

// firstMatch scans books in order. Homonymous titles collapse to the first one;
// an empty catalog simply has no match.
func firstMatch(op string, books []Book, text string) (Book, error) {
	kw, err := parseKeyword(op, text)
	if err != nil {
		return Book{}, err
	}
	for _, b := range books {
		if kw.matches(b.Title) {
			return b, nil
		}
	}
	return Book{}, notFound(op)
}

func findID(op string, books []Book, id int64) (Book, error) {
	for _, b := range books {
		if b.ID == id {
			return b, nil
		}
	}
	return Book{}, notFound(op)
}

// sample returns min(n, len(books)) distinct books in random order.
func sample(books []Book, n int) []Book {
	if n <= 0 || len(books) == 0 {
		return []Book{}
	}
	out := make([]Book, len(books))
	copy(out, books)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out[:min(n, len(out))]
}

func nextID(books []Book) int64 {
	var last int64
	for _, b := range books {
		if b.ID > last {
			last = b.ID
		}
	}
	return last + 1
}

// Search returns up to limit books whose title contains text, in storage order.
// An empty text matches every book.
func Search(ctx context.Context, s Store, text string, limit int) ([]Book, error) {
	books, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Book, 0, min(limit, len(books)))
	if limit <= 0 {
		return out, nil
	}
	kw, kwErr := parseKeyword("search", text)
	for _, b := range books {
		if kwErr == nil && !kw.matches(b.Title) {
			continue
		}
		out = append(out, b)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
