package view

import (
	"errors"
	"io/fs"
	"strings"
)

// Catalog: виды с диска вместе с результатом проверки.
type Catalog struct {
	Views map[string]*Descriptor
	// Orphans: виды, для которых есть фильтры, но нет описания.
	Orphans []string
	Issues  []Issue
}

// Blocking: проблемы, из-за которых каталог нельзя применять.
func (c Catalog) Blocking() []Issue { return Blocking(c.Issues) }

// LoadCatalog читает виды из viewsDir и пресеты фильтров из filtersDir.
// Пустой или отсутствующий filtersDir не считается ошибкой.
func LoadCatalog(viewsDir, filtersDir string) (Catalog, error) {
	views, err := LoadAll(viewsDir)
	if err != nil {
		return Catalog{}, err
	}
	c := Catalog{Views: views}
	if strings.TrimSpace(filtersDir) != "" {
		filters, err := LoadFilterCatalog(filtersDir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Catalog{}, err
		default:
			c.Orphans = AttachFilters(views, filters)
		}
	}
	c.Issues = Lint(views)
	return c, nil
}
