package view

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FilterSet: файл с пресетами фильтров для одного вида.
type FilterSet struct {
	View    string   `yaml:"view"`
	Filters []Filter `yaml:"filters"`
}

// LoadFilterCatalog читает все наборы фильтров из папки dir.
// Вид — из поля view или из имени файла.
func LoadFilterCatalog(dir string) (map[string][]Filter, error) {
	result := make(map[string][]Filter)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var set FilterSet
		if err := yaml.Unmarshal(data, &set); err != nil {
			return nil, err
		}
		viewID := set.View
		if viewID == "" {
			viewID = strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		}
		result[viewID] = append(result[viewID], set.Filters...)
	}
	return result, nil
}

// AttachFilters добавляет пресеты к видам; фильтр с уже существующим именем не дублируется.
// Возвращает id видов из каталога, которых нет среди views.
func AttachFilters(views map[string]*Descriptor, catalog map[string][]Filter) (unknown []string) {
	for viewID, filters := range catalog {
		d, ok := views[viewID]
		if !ok {
			unknown = append(unknown, viewID)
			continue
		}
		for _, f := range filters {
			if _, exists := d.Filter(f.Name); exists {
				continue
			}
			d.Filters = append(d.Filters, f)
		}
	}
	return unknown
}
