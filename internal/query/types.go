// Package query описывает запросы к источнику данных: чтение страницы и удаление строк.
package query

import (
	"errors"
	"fmt"
	"strings"
)

// Operator: оператор сравнения в условии where/join.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNe      Operator = "ne"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpLike    Operator = "like"
	OpIn      Operator = "in"
	OpIsNull  Operator = "is_null"
	OpNotNull Operator = "is_not_null"
)

var ErrUnsupportedOperator = errors.New("unsupported operator")

// ParseOperator принимает как коды ("gte"), так и символы ("<=").
func ParseOperator(s string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "eq", "=", "==":
		return OpEq, nil
	case "ne", "!=", "<>":
		return OpNe, nil
	case "gt", ">":
		return OpGt, nil
	case "gte", ">=":
		return OpGte, nil
	case "lt", "<":
		return OpLt, nil
	case "lte", "<=":
		return OpLte, nil
	case "like":
		return OpLike, nil
	case "in":
		return OpIn, nil
	case "is_null":
		return OpIsNull, nil
	case "is_not_null":
		return OpNotNull, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedOperator, s)
}

// WhereClause: одно условие. Or=true связывает условие с предыдущим через OR.
type WhereClause struct {
	Column   string   `json:"column" yaml:"column"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
	Or       bool     `json:"or" yaml:"or"`
}

// Eq: условие равенства, связанное через AND.
func Eq(column string, value any) WhereClause {
	return WhereClause{Column: column, Operator: OpEq, Value: value}
}

// JoinOn задаёт условие соединения: local (колонка вида) против target (колонка join-таблицы).
type JoinOn struct {
	Local    string   `json:"local"`
	Target   string   `json:"target"`
	Operator Operator `json:"operator"`
}

type JoinSpec struct {
	Table string `json:"table"`
	On    JoinOn `json:"on"`
}

// PageState: окно выборки. Offset всегда в строках, не в страницах.
type PageState struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Page возвращает номер текущей страницы (с нуля).
func (p PageState) Page() int {
	if p.Limit <= 0 {
		return 0
	}
	return p.Offset / p.Limit
}

type ReadRequest struct {
	Table         string        `json:"table"`
	Columns       []string      `json:"columns"`
	Limit         int           `json:"limit"`
	Offset        int           `json:"offset"`
	SearchColumns []string      `json:"searchColumns,omitempty"`
	SearchTerm    string        `json:"searchTerm,omitempty"`
	Where         []WhereClause `json:"where,omitempty"`
	Joins         []JoinSpec    `json:"joins"`
}

// Row: имя колонки -> значение.
type Row map[string]any

// ReadResult: ответ на чтение. Count — общее число совпавших строк без учёта пагинации.
// Columns заполняется источником, если он знает порядок колонок; иначе схема
// выводится из первой строки.
type ReadResult struct {
	Data    []Row    `json:"data"`
	Count   int      `json:"count"`
	Columns []string `json:"columns,omitempty"`
}

type DeleteRequest struct {
	Table string        `json:"table"`
	Where []WhereClause `json:"where"`
}

// DeleteResult повторяет ответ хранилища: {valid, error?}.
type DeleteResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Failed: источник сообщил об ошибке в теле ответа.
func (r DeleteResult) Failed() bool { return r.Error != "" }
