package table

import (
	"sort"

	"vista/internal/payload"
	"vista/internal/query"
	"vista/internal/view"
)

type ColumnKind string

const (
	KindData    ColumnKind = "data"
	KindSubview ColumnKind = "subview"
	KindMenu    ColumnKind = "menu"
)

// Служебные имена колонок действий.
const (
	SubviewProp = "$subview"
	MenuProp    = "$menu"
)

// Column: колонка для отображения.
type Column struct {
	Name   string     `json:"name"`
	Prop   string     `json:"prop"`
	Kind   ColumnKind `json:"kind"`
	Frozen bool       `json:"frozen,omitempty"`
	Width  int        `json:"width,omitempty"`
}

// dataColumns: схема от источника, иначе ключи первой строки.
// Ключи идут в порядке запрошенных колонок, незнакомые — по алфавиту в конце.
// Пустой результат без схемы даёт пустой набор колонок.
func dataColumns(res query.ReadResult, requested []string) []string {
	if len(res.Columns) > 0 {
		return append([]string(nil), res.Columns...)
	}
	if len(res.Data) == 0 {
		return []string{}
	}
	first := res.Data[0]
	out := make([]string, 0, len(first))
	seen := make(map[string]struct{}, len(first))
	for _, c := range requested {
		if _, ok := first[c]; ok {
			if _, dup := seen[c]; !dup {
				out = append(out, c)
				seen[c] = struct{}{}
			}
		}
	}
	var rest []string
	for k := range first {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Project строит колонки для отображения: иконка подвида (если есть), данные, меню.
func Project(d *view.Descriptor, res query.ReadResult, requested []string) []Column {
	names := dataColumns(res, requested)
	cols := make([]Column, 0, len(names)+2)
	if d.HasSubview() {
		cols = append(cols, Column{Prop: SubviewProp, Kind: KindSubview, Frozen: true, Width: 30})
	}
	for _, n := range names {
		cols = append(cols, Column{Name: n, Prop: n, Kind: KindData})
	}
	cols = append(cols, Column{Prop: MenuProp, Kind: KindMenu, Frozen: true, Width: 30})
	return cols
}

// Materialize подставляет ссылки на скачивание в ячейки с встроенными файлами.
func Materialize(rows []query.Row) ([]query.Row, int) {
	if rows == nil {
		rows = []query.Row{}
	}
	n := 0
	for _, r := range rows {
		n += payload.Substitute(r)
	}
	return rows, n
}
