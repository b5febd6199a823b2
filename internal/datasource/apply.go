package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// ApplyScripts выполняет map[имя]sql в порядке имён. Скрипты должны быть
// идемпотентны (create ... if not exists); duplicate_object пропускается.
func ApplyScripts(ctx context.Context, db *sql.DB, scripts map[string]string, logger zerolog.Logger) error {
	keys := make([]string, 0, len(scripts))
	for k := range scripts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	for _, k := range keys {
		text := strings.TrimSpace(scripts[k])
		if text == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, text); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "42710" {
				logger.Warn().Str("script", k).Str("constraint", pgErr.ConstraintName).Msg("seed skipped (already exists)")
				continue
			}
			e := strings.ToLower(err.Error())
			if strings.Contains(e, "already exists") {
				logger.Warn().Str("script", k).Err(err).Msg("seed skipped (already exists)")
				continue
			}
			return fmt.Errorf("seed %s: %w", k, err)
		}
		logger.Info().Str("script", k).Msg("seed applied")
	}
	return nil
}

// ReadScripts собирает *.sql из каталога.
func ReadScripts(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".sql") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out[e.Name()] = string(b)
	}
	return out, nil
}
