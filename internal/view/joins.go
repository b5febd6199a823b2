package view

import "vista/internal/query"

// ResolveJoins строит по одному join на каждую колонку со ссылкой.
// Дешёвая чистая функция, поэтому не кэшируется.
func ResolveJoins(columns []Column) []query.JoinSpec {
	joins := make([]query.JoinSpec, 0)
	for _, c := range columns {
		if c.Ref == nil {
			continue
		}
		joins = append(joins, query.JoinSpec{
			Table: c.Ref.Table,
			On: query.JoinOn{
				Local:    c.Name,
				Target:   c.Ref.MatchColumn,
				Operator: query.OpEq,
			},
		})
	}
	return joins
}

func (d *Descriptor) Joins() []query.JoinSpec { return ResolveJoins(d.Columns) }
