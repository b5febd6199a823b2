package table

import (
	"sort"

	"vista/internal/query"
	"vista/internal/view"
)

// Snapshot: согласованный срез состояния таблицы для отдачи наружу.
type Snapshot struct {
	View            string          `json:"view"`
	Table           string          `json:"table"`
	Columns         []Column        `json:"columns"`
	Rows            []query.Row     `json:"rows"`
	Total           int             `json:"total"`
	Page            query.PageState `json:"page"`
	PageNumber      int             `json:"pageNumber"`
	Search          query.Search    `json:"search"`
	ShowSearchClear bool            `json:"showSearchClear"`
	Filter          string          `json:"filter,omitempty"`
	Filters         []string        `json:"filters"`
	Menu            []view.MenuItem `json:"menu"`
	Expanded        []int           `json:"expanded"`
	Loading         bool            `json:"loading"`
	Error           string          `json:"error,omitempty"`
	Seq             uint64          `json:"seq"`
}

func (s *Session) Snapshot() Snapshot {
	loading := s.Loading()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		View:            s.view.ID,
		Table:           s.view.Table,
		Columns:         append([]Column{}, s.columns...),
		Rows:            append([]query.Row{}, s.rows...),
		Total:           s.total,
		Page:            s.page,
		PageNumber:      s.page.Page(),
		Search:          s.search,
		ShowSearchClear: s.search.ShowClear(),
		Filters:         make([]string, 0, len(s.view.Filters)),
		Menu:            s.view.MenuItems(),
		Expanded:        make([]int, 0, len(s.expanded)),
		Loading:         loading,
		Seq:             s.applied,
	}
	if s.filter != nil {
		snap.Filter = s.filter.Name
	}
	for _, f := range s.view.Filters {
		snap.Filters = append(snap.Filters, f.Name)
	}
	for i, open := range s.expanded {
		if open {
			snap.Expanded = append(snap.Expanded, i)
		}
	}
	sort.Ints(snap.Expanded)
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}
