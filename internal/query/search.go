package query

import (
	"encoding/json"
	"unicode/utf8"
)

// MinSearchLength: минимальная длина строки поиска, уходящей в запрос.
const MinSearchLength = 2

type SearchKind int

const (
	NoSearch SearchKind = iota
	PendingSearch
	ActiveSearch
)

func (k SearchKind) String() string {
	switch k {
	case PendingSearch:
		return "pending"
	case ActiveSearch:
		return "active"
	default:
		return "none"
	}
}

// Search хранит состояние полнотекстового поиска и введённую строку.
type Search struct {
	Kind SearchKind
	Term string
}

// ParseSearch классифицирует введённый текст.
func ParseSearch(term string) Search {
	switch n := utf8.RuneCountInString(term); {
	case n == 0:
		return Search{Kind: NoSearch}
	case n < MinSearchLength:
		return Search{Kind: PendingSearch, Term: term}
	default:
		return Search{Kind: ActiveSearch, Term: term}
	}
}

// Active возвращает строку поиска, если поиск активен.
func (s Search) Active() (string, bool) {
	if s.Kind != ActiveSearch {
		return "", false
	}
	return s.Term, true
}

// ShowClear: показывать ли кнопку очистки поиска.
func (s Search) ShowClear() bool {
	return utf8.RuneCountInString(s.Term) > 1
}

func (s Search) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		State string `json:"state"`
		Term  string `json:"term,omitempty"`
	}{State: s.Kind.String(), Term: s.Term})
}
