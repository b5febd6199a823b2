package query

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// MaxLimit: верхняя граница размера страницы из query-параметров.
const MaxLimit = 1000

// ListParams: параметры листинга из URL (?limit=&page=&q=&status__in=a,b).
type ListParams struct {
	Limit  int
	Offset int
	Page   int
	Q      string
	HasQ   bool
	Where  []WhereClause
}

var reservedKeys = map[string]struct{}{
	"q": {}, "offset": {}, "limit": {}, "page": {}, "sort": {}, "order": {},
	"_offset": {}, "_limit": {}, "_page": {}, "_sort": {}, "_order": {},
	"filter": {},
}

func firstOf(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// ParseListParams разбирает query-параметры. Невалидные значения игнорируются
// и заменяются умолчаниями.
func ParseListParams(q url.Values, defaultLimit int) ListParams {
	lp := ListParams{Limit: defaultLimit}

	// limit
	if lv := firstOf(q, "_limit", "limit"); lv != "" {
		if n, err := strconv.Atoi(lv); err == nil && n > 0 && n <= MaxLimit {
			lp.Limit = n
		}
	}

	// page имеет приоритет над offset: offset = page * limit
	if pv := firstOf(q, "_page", "page"); pv != "" {
		if n, err := strconv.Atoi(pv); err == nil && n >= 0 && (lp.Limit <= 0 || n <= math.MaxInt/lp.Limit) {
			lp.Page = n
			lp.Offset = n * lp.Limit
		}
	} else if ov := firstOf(q, "_offset", "offset"); ov != "" {
		if n, err := strconv.Atoi(ov); err == nil && n >= 0 {
			lp.Offset = n
			if lp.Limit > 0 {
				lp.Page = n / lp.Limit
			}
		}
	}

	if _, ok := q["q"]; ok {
		lp.HasQ = true
		lp.Q = q.Get("q")
	}

	lp.Where = BuildConds(q)
	return lp
}

// BuildConds собирает условия из ключей вида field или field__op:
//
//	status__in=Draft,Booked
//	amount__gte=1000
//	name=bob
//
// Ключи обходятся в отсортированном порядке, чтобы запрос был детерминированным.
func BuildConds(q url.Values) []WhereClause {
	keys := make([]string, 0, len(q))
	for k := range q {
		if _, skip := reservedKeys[k]; skip {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []WhereClause
	for _, key := range keys {
		vals := q[key]
		if len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
			continue
		}
		field := key
		opRaw := "eq"
		if i := strings.LastIndex(key, "__"); i > 0 {
			field = key[:i]
			opRaw = key[i+2:]
		}
		op, err := ParseOperator(opRaw)
		if err != nil || field == "" {
			continue
		}
		v := vals[0]
		if strings.HasPrefix(v, "in:") {
			op = OpIn
			v = strings.TrimPrefix(v, "in:")
		}
		var value any = v
		if op == OpIn {
			var parts []string
			for _, p := range strings.Split(v, ",") {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, p)
				}
			}
			if len(parts) == 0 {
				continue
			}
			value = parts
		}
		out = append(out, WhereClause{Column: field, Operator: op, Value: value})
	}
	return out
}
