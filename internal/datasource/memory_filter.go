package datasource

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"vista/internal/query"
)

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int, int8, int16, int32, int64:
		return float64(reflect.ValueOf(x).Int()), true
	case uint, uint8, uint16, uint32, uint64:
		return float64(reflect.ValueOf(x).Uint()), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// order сравнивает got и want: числа, потом даты, потом строки.
func order(got, want any) int {
	if g, ok := toFloat(got); ok {
		if w, ok := toFloat(want); ok {
			switch {
			case g < w:
				return -1
			case g > w:
				return 1
			}
			return 0
		}
	}
	if g, ok := toTime(got); ok {
		if w, ok := toTime(want); ok {
			return g.Compare(w)
		}
	}
	return strings.Compare(toString(got), toString(want))
}

func inValues(want any) []string {
	switch t := want.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			out = append(out, toString(v))
		}
		return out
	case string:
		parts := strings.Split(t, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return []string{toString(want)}
}

// likePattern переводит SQL-шаблон (% и _) в регулярку без учёта регистра.
func likePattern(p string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range p {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// compare проверяет одно условие для значения ячейки.
func compare(got any, op query.Operator, want any) bool {
	switch op {
	case query.OpIsNull:
		return got == nil
	case query.OpNotNull:
		return got != nil
	}
	if got == nil {
		return false
	}

	switch op {
	case query.OpEq:
		if _, ok := toFloat(got); ok {
			if _, ok := toFloat(want); ok {
				return order(got, want) == 0
			}
		}
		// регистр учитывается, как у "=" в SQL
		return toString(got) == toString(want)
	case query.OpNe:
		return !compare(got, query.OpEq, want)
	case query.OpIn:
		for _, w := range inValues(want) {
			if compare(got, query.OpEq, w) {
				return true
			}
		}
		return false
	case query.OpLike:
		return likePattern(toString(want)).MatchString(toString(got))
	case query.OpGt:
		return order(got, want) > 0
	case query.OpGte:
		return order(got, want) >= 0
	case query.OpLt:
		return order(got, want) < 0
	case query.OpLte:
		return order(got, want) <= 0
	}
	// неизвестный оператор — не совпало
	return false
}

// matchWhere сворачивает условия слева направо: Or связывает с накопленным через OR.
func matchWhere(row query.Row, where []query.WhereClause) bool {
	if len(where) == 0 {
		return true
	}
	acc := compare(row[where[0].Column], where[0].Operator, where[0].Value)
	for _, w := range where[1:] {
		ok := compare(row[w.Column], w.Operator, w.Value)
		if w.Or {
			acc = acc || ok
		} else {
			acc = acc && ok
		}
	}
	return acc
}

// matchSearch: подстрока без учёта регистра хотя бы в одной колонке.
func matchSearch(row query.Row, columns []string, term string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	for _, c := range columns {
		v := row[c]
		if v == nil {
			continue
		}
		if strings.Contains(strings.ToLower(toString(v)), needle) {
			return true
		}
	}
	return false
}
