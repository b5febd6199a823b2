package table

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vista/internal/datasource"
	"vista/internal/query"
	"vista/internal/request"
	"vista/internal/view"
)

const DefaultLimit = 10

var ErrInvalidPage = errors.New("page must not be negative")

type Options struct {
	// Limit: размер страницы до первого SelectLimit.
	Limit int
	// MinDisplay: минимальное время показа индикатора загрузки.
	MinDisplay time.Duration

	Notifier  Notifier
	Navigator Navigator
	Refresher Refresher
	Views     ViewDeleter

	Logger zerolog.Logger
	Now    func() time.Time
}

// Session: состояние одной открытой таблицы.
//
// Каждое чтение получает номер; ответ применяется, только если после него не
// было выпущено более нового чтения. Мьютекс не держится во время обращения к источнику.
type Session struct {
	mu   sync.Mutex
	view *view.Descriptor
	src  datasource.Source
	opts Options
	log  zerolog.Logger

	page     query.PageState
	search   query.Search
	filter   *view.Filter
	columns  []Column
	schema   bool
	rows     []query.Row
	total    int
	err      error
	expanded map[int]bool

	issued   uint64
	applied  uint64
	inflight int
	since    time.Time
	closed   bool
}

func New(d *view.Descriptor, src datasource.Source, opts Options) *Session {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Navigator == nil {
		opts.Navigator = nopNavigator{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		view:     d,
		src:      src,
		opts:     opts,
		log:      opts.Logger.With().Str("view", d.ID).Logger(),
		page:     query.PageState{Limit: opts.Limit},
		expanded: make(map[int]bool),
	}
}

func (s *Session) View() *view.Descriptor { return s.view }

// Load делает первую загрузку: включённые колонки, первая страница, колонки пересчитываются.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	s.page.Offset = 0
	s.mu.Unlock()
	if err := s.fetch(ctx, true); err != nil {
		return err
	}
	if s.opts.Refresher != nil {
		s.opts.Refresher.Refresh(ctx, s.view.ID)
	}
	return nil
}

// SelectLimit меняет размер страницы и всегда возвращает на первую страницу.
func (s *Session) SelectLimit(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	s.mu.Lock()
	s.page = query.PageState{Offset: 0, Limit: n}
	s.mu.Unlock()
	return s.fetch(ctx, false)
}

func (s *Session) reset(ctx context.Context) error {
	s.mu.Lock()
	limit := s.page.Limit
	s.mu.Unlock()
	return s.SelectLimit(ctx, limit)
}

// SetPage переходит на страницу page (с нуля) при размере pageSize; лимит не меняется.
func (s *Session) SetPage(ctx context.Context, page, pageSize int) error {
	if page < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}
	if pageSize <= 0 {
		return fmt.Errorf("%w: page size %d", ErrInvalidLimit, pageSize)
	}
	if page > math.MaxInt/pageSize {
		return fmt.Errorf("%w: %d overflows offset", ErrInvalidPage, page)
	}
	s.mu.Lock()
	s.page.Offset = page * pageSize
	s.mu.Unlock()
	return s.fetch(ctx, false)
}

// SelectFilter выбирает именованный фильтр вида.
func (s *Session) SelectFilter(ctx context.Context, name string) error {
	f, ok := s.view.Filter(name)
	if !ok {
		return fmt.Errorf("filter %q: %w", name, ErrFilterNotFound)
	}
	s.mu.Lock()
	s.filter = &f
	s.mu.Unlock()
	return s.reset(ctx)
}

func (s *Session) DeselectFilter(ctx context.Context) error {
	s.mu.Lock()
	s.filter = nil
	s.mu.Unlock()
	return s.reset(ctx)
}

// Search: пустая строка сбрасывает поиск, один символ только запоминается.
func (s *Session) Search(ctx context.Context, term string) error {
	next := query.ParseSearch(term)
	s.mu.Lock()
	s.search = next
	s.mu.Unlock()
	if next.Kind == query.PendingSearch {
		return nil
	}
	return s.reset(ctx)
}

func (s *Session) ClearSearch(ctx context.Context) error {
	s.mu.Lock()
	s.search = query.Search{Kind: query.NoSearch}
	s.mu.Unlock()
	return s.reset(ctx)
}

// Reload перечитывает текущую страницу.
func (s *Session) Reload(ctx context.Context) error {
	return s.fetch(ctx, false)
}

func (s *Session) fetch(ctx context.Context, initial bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.issued++
	seq := s.issued
	req := request.BuildRead(s.view, request.ReadParams{
		Page:    s.page,
		Search:  s.search,
		Filter:  s.filter,
		Initial: initial,
	})
	if s.inflight == 0 {
		s.since = s.opts.Now()
	}
	s.inflight++
	s.mu.Unlock()

	s.log.Debug().Uint64("seq", seq).Bool("initial", initial).
		Int("limit", req.Limit).Int("offset", req.Offset).
		Str("search", req.SearchTerm).Int("where", len(req.Where)).
		Msg("read issued")
	readsTotal.WithLabelValues(s.view.ID).Inc()
	started := time.Now()

	res, err := s.src.Read(ctx, req)

	readDuration.WithLabelValues(s.view.ID).Observe(time.Since(started).Seconds())

	s.mu.Lock()
	s.inflight--
	if s.closed || seq != s.issued {
		s.mu.Unlock()
		staleResponsesTotal.WithLabelValues(s.view.ID).Inc()
		s.log.Debug().Uint64("seq", seq).Msg("stale read discarded")
		return nil
	}
	s.applied = seq
	if err != nil {
		s.rows = []query.Row{}
		s.columns = nil
		s.schema = false
		s.total = 0
		s.err = err
		s.expanded = make(map[int]bool)
		s.mu.Unlock()

		readFailuresTotal.WithLabelValues(s.view.ID).Inc()
		s.log.Error().Err(err).Uint64("seq", seq).Msg("read failed")
		s.opts.Notifier.Notify(Notification{Severity: SeverityDanger, Title: "Error", Message: err.Error()})
		return err
	}

	rows, payloads := Materialize(res.Data)
	if initial || !s.schema {
		s.columns = Project(s.view, res, req.Columns)
		s.schema = true
	}
	s.rows = rows
	s.total = res.Count
	s.err = nil
	s.expanded = make(map[int]bool)
	s.mu.Unlock()

	s.log.Debug().Uint64("seq", seq).Int("rows", len(rows)).Int("total", res.Count).
		Int("payloads", payloads).Msg("read applied")
	return nil
}

// Loading: есть незавершённое чтение или не истёк минимальный показ индикатора.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight > 0 {
		return true
	}
	if s.since.IsZero() {
		return false
	}
	return s.opts.Now().Before(s.since.Add(s.opts.MinDisplay))
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) Page() query.PageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *Session) SearchState() query.Search {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search
}

func (s *Session) ShowSearchClear() bool { return s.SearchState().ShowClear() }

// ActiveFilter возвращает имя выбранного фильтра.
func (s *Session) ActiveFilter() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter == nil {
		return "", false
	}
	return s.filter.Name, true
}

func (s *Session) Columns() []Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Column(nil), s.columns...)
}

func (s *Session) Rows() []query.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]query.Row{}, s.rows...)
}

func (s *Session) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Row возвращает строку текущей страницы по индексу.
func (s *Session) Row(i int) (query.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.rows) {
		return nil, fmt.Errorf("%w: %d", ErrRowNotFound, i)
	}
	return s.rows[i], nil
}

// ToggleSubview раскрывает/сворачивает подвид строки и возвращает новое состояние.
func (s *Session) ToggleSubview(i int) (bool, error) {
	if !s.view.HasSubview() {
		return false, ErrNoSubview
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.rows) {
		return false, fmt.Errorf("%w: %d", ErrRowNotFound, i)
	}
	s.expanded[i] = !s.expanded[i]
	return s.expanded[i], nil
}

// Close: поздние ответы после закрытия отбрасываются.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
