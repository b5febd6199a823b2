// Package request собирает запросы чтения и удаления из описания вида и
// текущего состояния таблицы.
package request

import (
	"errors"
	"strings"

	"vista/internal/query"
	"vista/internal/view"
)

var ErrNoPrimaryKey = errors.New("no primary key")

// ReadParams: состояние таблицы, из которого строится чтение.
type ReadParams struct {
	Page   query.PageState
	Search query.Search
	Filter *view.Filter
	// Initial: первая загрузка вида, только включённые колонки, без поиска и фильтра.
	Initial bool
}

// BuildRead собирает запрос чтения страницы.
func BuildRead(d *view.Descriptor, p ReadParams) query.ReadRequest {
	req := query.ReadRequest{
		Table:  d.Table,
		Limit:  p.Page.Limit,
		Offset: p.Page.Offset,
		Joins:  d.Joins(),
	}
	if p.Initial {
		req.Columns = d.EnabledColumns()
		return req
	}

	req.Columns = d.ColumnNames()
	if cols := d.SearchableColumns(); len(cols) > 0 {
		req.SearchColumns = cols
	}
	if term, ok := p.Search.Active(); ok {
		req.SearchTerm = term
	}
	if p.Filter != nil && len(p.Filter.Where) > 0 {
		req.Where = append([]query.WhereClause(nil), p.Filter.Where...)
	}
	return req
}

// BuildDelete: удаление одной строки по первичному ключу.
func BuildDelete(table, pkColumn string, pkValue any) (query.DeleteRequest, error) {
	if strings.TrimSpace(pkColumn) == "" {
		return query.DeleteRequest{}, ErrNoPrimaryKey
	}
	return query.DeleteRequest{
		Table: table,
		Where: []query.WhereClause{query.Eq(pkColumn, pkValue)},
	}, nil
}

// DeleteRow берёт ключ из вида и значение из строки.
func DeleteRow(d *view.Descriptor, row query.Row) (query.DeleteRequest, error) {
	pk, ok := d.PrimaryKey()
	if !ok {
		return query.DeleteRequest{}, ErrNoPrimaryKey
	}
	return BuildDelete(d.Table, pk, row[pk])
}
