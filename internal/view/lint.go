package view

import (
	"fmt"
	"sort"
	"strings"

	"vista/internal/query"
)

type Issue struct {
	View    string `json:"view"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	// Blocking=false: предупреждение, каталог всё равно можно загрузить.
	Blocking bool `json:"blocking"`
}

// Lint проверяет базовые противоречия в описаниях видов.
func Lint(views map[string]*Descriptor) []Issue {
	var issues []Issue

	for _, d := range Sorted(views) {
		if len(d.Columns) == 0 {
			issues = append(issues, Issue{
				View: d.ID, Code: "no_columns", Blocking: true,
				Message: "view has no columns",
			})
		}

		seen := map[string]struct{}{}
		var pks []string
		for _, c := range d.Columns {
			name := strings.TrimSpace(c.Name)
			if name == "" {
				issues = append(issues, Issue{
					View: d.ID, Code: "column_name_empty", Blocking: true,
					Message: "column has empty name",
				})
				continue
			}
			if _, dup := seen[strings.ToLower(name)]; dup {
				issues = append(issues, Issue{
					View: d.ID, Column: name, Code: "column_duplicate", Blocking: true,
					Message: fmt.Sprintf("column %q declared twice", name),
				})
			}
			seen[strings.ToLower(name)] = struct{}{}

			if c.IsPrimary() {
				pks = append(pks, name)
			}

			// пустая цель ссылки
			if c.Ref != nil && (strings.TrimSpace(c.Ref.Table) == "" || strings.TrimSpace(c.Ref.MatchColumn) == "") {
				issues = append(issues, Issue{
					View: d.ID, Column: name, Code: "ref_target_empty", Blocking: true,
					Message: "ref needs both table and match_column",
				})
			}
		}

		switch {
		case len(pks) == 0:
			issues = append(issues, Issue{
				View: d.ID, Code: "primary_key_missing",
				Message: "no primary key column; edit and delete will be unavailable",
			})
		case len(pks) > 1:
			issues = append(issues, Issue{
				View: d.ID, Column: pks[0], Code: "primary_key_ambiguous",
				Message: fmt.Sprintf("several primary key columns %v; %q is used", pks, pks[0]),
			})
		}

		for _, f := range d.Filters {
			for _, w := range f.Where {
				if _, err := query.ParseOperator(string(w.Operator)); err != nil {
					issues = append(issues, Issue{
						View: d.ID, Column: w.Column, Code: "filter_operator_unknown", Blocking: true,
						Message: fmt.Sprintf("filter %q: %v", f.Name, err),
					})
				}
			}
		}
	}

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].View < issues[j].View })
	return issues
}

// Blocking оставляет только блокирующие замечания.
func Blocking(issues []Issue) []Issue {
	var out []Issue
	for _, it := range issues {
		if it.Blocking {
			out = append(out, it)
		}
	}
	return out
}
