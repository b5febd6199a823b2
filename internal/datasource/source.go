// Package datasource задаёт границу доступа к данным: чтение страницы и удаление строк.
package datasource

import (
	"context"
	"errors"

	"vista/internal/query"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownDriver = errors.New("unknown data driver")
	ErrUnknownColumn = errors.New("unknown column")
)

// Source выполняет запросы, собранные построителем.
// Ошибка — сбой доступа; отказ хранилища в удалении приходит в DeleteResult.Error.
type Source interface {
	Read(ctx context.Context, req query.ReadRequest) (query.ReadResult, error)
	Delete(ctx context.Context, req query.DeleteRequest) (query.DeleteResult, error)
}

// normalizeWhere приводит операторы к каноническим кодам.
func normalizeWhere(where []query.WhereClause) ([]query.WhereClause, error) {
	if len(where) == 0 {
		return nil, nil
	}
	out := make([]query.WhereClause, len(where))
	for i, w := range where {
		op, err := query.ParseOperator(string(w.Operator))
		if err != nil {
			return nil, err
		}
		w.Operator = op
		out[i] = w
	}
	return out, nil
}
