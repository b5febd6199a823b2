package datasource

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"vista/internal/query"
)

// Dialect: различия SQL между драйверами.
type Dialect struct {
	Name string
	// Placeholder возвращает n-й параметр (с единицы).
	Placeholder func(n int) string
	// ILike: оператор поиска подстроки без учёта регистра.
	ILike string
}

var (
	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		ILike:       "ILIKE",
	}
	SQLite = Dialect{
		Name:        "sqlite",
		Placeholder: func(int) string { return "?" },
		ILike:       "LIKE",
	}
)

const baseAlias = "t"

func sqlIdent(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

// escapeLike экранирует спецсимволы LIKE; используется с ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

type sqlBuilder struct {
	d    Dialect
	args []any
	// qualify=false: колонки без алиаса таблицы (DELETE).
	qualify bool
	joins   []query.JoinSpec
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

func joinAlias(i int) string { return "j" + strconv.Itoa(i+1) }

// col разрешает имя колонки: "таблица.колонка" — колонка первого join'а с этой таблицей.
func (b *sqlBuilder) col(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnknownColumn)
	}
	if !b.qualify {
		if strings.Contains(name, ".") {
			return "", fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		return sqlIdent(name), nil
	}
	if i := strings.Index(name, "."); i > 0 {
		table, column := name[:i], name[i+1:]
		for n, j := range b.joins {
			if j.Table == table {
				return sqlIdent(joinAlias(n)) + "." + sqlIdent(column), nil
			}
		}
		return "", fmt.Errorf("%w: %s (no join with %s)", ErrUnknownColumn, name, table)
	}
	return sqlIdent(baseAlias) + "." + sqlIdent(name), nil
}

func sqlOperator(op query.Operator) (string, error) {
	switch op {
	case query.OpEq:
		return "=", nil
	case query.OpNe:
		return "<>", nil
	case query.OpGt:
		return ">", nil
	case query.OpGte:
		return ">=", nil
	case query.OpLt:
		return "<", nil
	case query.OpLte:
		return "<=", nil
	case query.OpLike:
		return "LIKE", nil
	}
	return "", fmt.Errorf("%w: %q", query.ErrUnsupportedOperator, op)
}

func listValues(v any) []any {
	switch t := v.(type) {
	case string:
		return anySlice(inValues(t))
	case []any:
		return t
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func (b *sqlBuilder) clause(w query.WhereClause) (string, error) {
	col, err := b.col(w.Column)
	if err != nil {
		return "", err
	}
	switch w.Operator {
	case query.OpIsNull:
		return col + " IS NULL", nil
	case query.OpNotNull:
		return col + " IS NOT NULL", nil
	case query.OpIn:
		vals := listValues(w.Value)
		if len(vals) == 0 {
			return "1 = 0", nil
		}
		ph := make([]string, len(vals))
		for i, v := range vals {
			ph[i] = b.arg(v)
		}
		return col + " IN (" + strings.Join(ph, ", ") + ")", nil
	}
	op, err := sqlOperator(w.Operator)
	if err != nil {
		return "", err
	}
	if w.Operator == query.OpLike {
		// like без учёта регистра на всех драйверах, как и в Memory
		op = b.d.ILike
	}
	return col + " " + op + " " + b.arg(w.Value), nil
}

// where сворачивает условия слева направо, как и Memory: ((a AND b) OR c).
func (b *sqlBuilder) where(where []query.WhereClause) (string, error) {
	if len(where) == 0 {
		return "", nil
	}
	acc, err := b.clause(where[0])
	if err != nil {
		return "", err
	}
	for _, w := range where[1:] {
		next, err := b.clause(w)
		if err != nil {
			return "", err
		}
		link := " AND "
		if w.Or {
			link = " OR "
		}
		acc = "(" + acc + link + next + ")"
	}
	return acc, nil
}

func (b *sqlBuilder) search(columns []string, term string) (string, error) {
	if term == "" || len(columns) == 0 {
		return "", nil
	}
	pattern := "%" + escapeLike(term) + "%"
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		col, err := b.col(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, "CAST("+col+" AS TEXT) "+b.d.ILike+" "+b.arg(pattern)+` ESCAPE '\'`)
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

func (b *sqlBuilder) from(req query.ReadRequest) string {
	var sb strings.Builder
	sb.WriteString(" FROM ")
	sb.WriteString(sqlIdent(req.Table))
	sb.WriteString(" AS ")
	sb.WriteString(sqlIdent(baseAlias))
	for i, j := range req.Joins {
		a := joinAlias(i)
		fmt.Fprintf(&sb, " LEFT JOIN %s AS %s ON %s.%s = %s.%s",
			sqlIdent(j.Table), sqlIdent(a),
			sqlIdent(baseAlias), sqlIdent(j.On.Local),
			sqlIdent(a), sqlIdent(j.On.Target))
	}
	return sb.String()
}

func (b *sqlBuilder) filter(req query.ReadRequest, where []query.WhereClause) (string, error) {
	var parts []string
	s, err := b.search(req.SearchColumns, req.SearchTerm)
	if err != nil {
		return "", err
	}
	if s != "" {
		parts = append(parts, s)
	}
	w, err := b.where(where)
	if err != nil {
		return "", err
	}
	if w != "" {
		parts = append(parts, w)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

// SelectSQL строит выборку страницы. Колонки получают алиасы с исходными именами.
func (d Dialect) SelectSQL(req query.ReadRequest) (string, []any, error) {
	where, err := normalizeWhere(req.Where)
	if err != nil {
		return "", nil, err
	}
	if len(req.Columns) == 0 {
		return "", nil, fmt.Errorf("%w: no columns requested", ErrUnknownColumn)
	}
	b := &sqlBuilder{d: d, qualify: true, joins: req.Joins}

	cols := make([]string, 0, len(req.Columns))
	for _, c := range req.Columns {
		expr, err := b.col(c)
		if err != nil {
			return "", nil, err
		}
		cols = append(cols, expr+" AS "+sqlIdent(c))
	}
	cond, err := b.filter(req, where)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(b.from(req))
	sb.WriteString(cond)
	sb.WriteString(" ORDER BY 1")
	if req.Limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(req.Offset))
	}
	return sb.String(), b.args, nil
}

// CountSQL: общее число совпавших строк без пагинации.
func (d Dialect) CountSQL(req query.ReadRequest) (string, []any, error) {
	where, err := normalizeWhere(req.Where)
	if err != nil {
		return "", nil, err
	}
	b := &sqlBuilder{d: d, qualify: true, joins: req.Joins}
	cond, err := b.filter(req, where)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*)" + b.from(req) + cond, b.args, nil
}

// DeleteSQL строит DELETE; условия без алиасов и без join'ов.
func (d Dialect) DeleteSQL(req query.DeleteRequest) (string, []any, error) {
	where, err := normalizeWhere(req.Where)
	if err != nil {
		return "", nil, err
	}
	if len(where) == 0 {
		return "", nil, fmt.Errorf("delete from %s without conditions", req.Table)
	}
	b := &sqlBuilder{d: d}
	cond, err := b.where(where)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + sqlIdent(req.Table) + " WHERE " + cond, b.args, nil
}
