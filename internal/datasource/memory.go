package datasource

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"vista/internal/query"
)

// IDColumn: колонка, которую Memory заполняет ulid'ом, если строка пришла без неё.
const IDColumn = "id"

type memTable struct {
	order []string // порядок вставки
	rows  map[string]query.Row
}

// Memory: хранилище таблиц в памяти. Строки лежат в порядке вставки.
type Memory struct {
	mu      sync.RWMutex
	tables  map[string]*memTable
	entropy io.Reader
	log     zerolog.Logger
}

func NewMemory(logger zerolog.Logger) *Memory {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Memory{
		tables:  make(map[string]*memTable),
		entropy: ulid.Monotonic(src, 0),
		log:     logger,
	}
}

func (m *Memory) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), m.entropy).String()
}

// Insert добавляет строку и возвращает её ключ.
func (m *Memory) Insert(table string, row query.Row) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tables[table]
	if t == nil {
		t = &memTable{rows: make(map[string]query.Row)}
		m.tables[table] = t
	}
	key := m.newID()
	rec := make(query.Row, len(row)+1)
	for k, v := range row {
		rec[k] = v
	}
	if _, ok := rec[IDColumn]; !ok {
		rec[IDColumn] = key
	}
	t.order = append(t.order, key)
	t.rows[key] = rec
	return key
}

// Fixtures: YAML вида {tables: {accounts: [{id: 1, email: ...}]}}.
type Fixtures struct {
	Tables map[string][]map[string]any `yaml:"tables"`
}

// LoadFixtures наполняет хранилище из YAML-файла.
func (m *Memory) LoadFixtures(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	total := 0
	for table, rows := range fx.Tables {
		for _, r := range rows {
			m.Insert(table, r)
			total++
		}
	}
	m.log.Info().Str("path", path).Int("tables", len(fx.Tables)).Int("rows", total).Msg("fixtures loaded")
	return nil
}

// snapshot копирует строки таблицы под read-lock.
func (m *Memory) snapshot(table string) ([]query.Row, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := m.tables[table]
	if t == nil {
		return nil, false
	}
	out := make([]query.Row, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.rows[key])
	}
	return out, true
}

// joined возвращает строку с присоединёнными колонками в виде "таблица.колонка".
// Первая совпавшая строка join-таблицы выигрывает; нет совпадения — колонок нет (LEFT JOIN).
func joined(base query.Row, joins []query.JoinSpec, targets map[string][]query.Row) query.Row {
	out := make(query.Row, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, j := range joins {
		local := base[j.On.Local]
		if local == nil {
			continue
		}
		for _, tr := range targets[j.Table] {
			if !compare(tr[j.On.Target], query.OpEq, local) {
				continue
			}
			for k, v := range tr {
				key := j.Table + "." + k
				if _, taken := out[key]; !taken {
					out[key] = v
				}
			}
			break
		}
	}
	return out
}

func (m *Memory) Read(ctx context.Context, req query.ReadRequest) (query.ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return query.ReadResult{}, err
	}
	where, err := normalizeWhere(req.Where)
	if err != nil {
		return query.ReadResult{}, err
	}
	rows, ok := m.snapshot(req.Table)
	if !ok {
		return query.ReadResult{}, fmt.Errorf("%w: %s", ErrUnknownTable, req.Table)
	}
	targets := make(map[string][]query.Row)
	for _, j := range req.Joins {
		if _, seen := targets[j.Table]; seen {
			continue
		}
		tr, ok := m.snapshot(j.Table)
		if !ok {
			return query.ReadResult{}, fmt.Errorf("%w: join %s", ErrUnknownTable, j.Table)
		}
		targets[j.Table] = tr
	}

	var matched []query.Row
	for _, r := range rows {
		full := joined(r, req.Joins, targets)
		if !matchWhere(full, where) || !matchSearch(full, req.SearchColumns, req.SearchTerm) {
			continue
		}
		matched = append(matched, full)
	}

	start := req.Offset
	if start < 0 {
		start = 0
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if req.Limit > 0 && start+req.Limit < end {
		end = start + req.Limit
	}

	data := make([]query.Row, 0, end-start)
	for _, r := range matched[start:end] {
		data = append(data, project(r, req.Columns))
	}
	return query.ReadResult{Data: data, Count: len(matched)}, nil
}

// project оставляет только запрошенные колонки; пустой список — вся строка.
func project(r query.Row, columns []string) query.Row {
	if len(columns) == 0 {
		return r
	}
	out := make(query.Row, len(columns))
	for _, c := range columns {
		out[c] = r[c]
	}
	return out
}

func (m *Memory) Delete(ctx context.Context, req query.DeleteRequest) (query.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return query.DeleteResult{}, err
	}
	where, err := normalizeWhere(req.Where)
	if err != nil {
		return query.DeleteResult{Error: err.Error()}, nil
	}
	if len(where) == 0 {
		return query.DeleteResult{Error: "delete without conditions is refused"}, nil
	}
	for _, w := range where {
		if strings.Contains(w.Column, ".") {
			return query.DeleteResult{Error: fmt.Sprintf("%v: %s", ErrUnknownColumn, w.Column)}, nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tables[req.Table]
	if t == nil {
		return query.DeleteResult{Error: fmt.Sprintf("%v: %s", ErrUnknownTable, req.Table)}, nil
	}
	kept := t.order[:0]
	removed := 0
	for _, key := range t.order {
		if matchWhere(t.rows[key], where) {
			delete(t.rows, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	t.order = kept

	m.log.Debug().Str("table", req.Table).Int("removed", removed).Msg("memory delete")
	return query.DeleteResult{Valid: removed > 0}, nil
}

// Len: число строк таблицы.
func (m *Memory) Len(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t := m.tables[table]; t != nil {
		return len(t.order)
	}
	return 0
}
