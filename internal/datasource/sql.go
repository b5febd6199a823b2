package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // driver: sqlite

	"vista/internal/query"
)

// DialectFor сопоставляет имя драйвера из конфига с диалектом и именем database/sql.
func DialectFor(driver string) (Dialect, string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, "pgx", nil
	case "sqlite", "sqlite3":
		return SQLite, "sqlite", nil
	}
	return Dialect{}, "", fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

// Open открывает пул и проверяет соединение.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	dialect, name, err := DialectFor(driver)
	if err != nil {
		return nil, Dialect{}, err
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, Dialect{}, err
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	if dialect.Name == SQLite.Name {
		// одна запись за раз; для :memory: ещё и одна база на соединение
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, Dialect{}, err
	}
	return db, dialect, nil
}

// SQL исполняет запросы на database/sql.
type SQL struct {
	db      *sql.DB
	dialect Dialect
	log     zerolog.Logger
}

func NewSQL(db *sql.DB, dialect Dialect, logger zerolog.Logger) *SQL {
	return &SQL{db: db, dialect: dialect, log: logger}
}

func (s *SQL) DB() *sql.DB { return s.db }

func (s *SQL) Read(ctx context.Context, req query.ReadRequest) (query.ReadResult, error) {
	countSQL, countArgs, err := s.dialect.CountSQL(req)
	if err != nil {
		return query.ReadResult{}, err
	}
	selectSQL, selectArgs, err := s.dialect.SelectSQL(req)
	if err != nil {
		return query.ReadResult{}, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return query.ReadResult{}, fmt.Errorf("count %s: %w", req.Table, err)
	}

	rows, err := s.db.QueryContext(ctx, selectSQL, selectArgs...)
	if err != nil {
		return query.ReadResult{}, fmt.Errorf("select %s: %w", req.Table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return query.ReadResult{}, err
	}
	data := make([]query.Row, 0)
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return query.ReadResult{}, err
		}
		r := make(query.Row, len(columns))
		for i, c := range columns {
			if b, ok := vals[i].([]byte); ok {
				r[c] = string(b)
				continue
			}
			r[c] = vals[i]
		}
		data = append(data, r)
	}
	if err := rows.Err(); err != nil {
		return query.ReadResult{}, err
	}

	s.log.Debug().Str("table", req.Table).Int("rows", len(data)).Int("total", total).Msg("sql read")
	return query.ReadResult{Data: data, Count: total, Columns: columns}, nil
}

func (s *SQL) Delete(ctx context.Context, req query.DeleteRequest) (query.DeleteResult, error) {
	stmt, args, err := s.dialect.DeleteSQL(req)
	if err != nil {
		return query.DeleteResult{Error: err.Error()}, nil
	}
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return query.DeleteResult{}, fmt.Errorf("delete %s: %w", req.Table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return query.DeleteResult{}, err
	}
	s.log.Debug().Str("table", req.Table).Int64("removed", n).Msg("sql delete")
	return query.DeleteResult{Valid: n > 0}, nil
}
