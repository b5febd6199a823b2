package view

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// LoadFile читает один вид из YAML. Если id не задан, берётся имя файла.
func LoadFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if strings.TrimSpace(d.ID) == "" {
		base := filepath.Base(path)
		d.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if strings.TrimSpace(d.Name) == "" {
		d.Name = d.ID
	}
	if strings.TrimSpace(d.Table) == "" {
		return nil, fmt.Errorf("view %q in %s has no table", d.ID, path)
	}
	return &d, nil
}

// LoadAll обходит root рекурсивно и собирает все *.yaml/*.yml виды по id.
func LoadAll(root string) (map[string]*Descriptor, error) {
	result := make(map[string]*Descriptor)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !isYAML(d.Name()) {
			return nil
		}
		v, err := LoadFile(path)
		if err != nil {
			return err
		}
		if _, exists := result[v.ID]; exists {
			return fmt.Errorf("duplicate view %q (file: %s)", v.ID, path)
		}
		result[v.ID] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Sorted возвращает виды в стабильном порядке (по id).
func Sorted(views map[string]*Descriptor) []*Descriptor {
	out := make([]*Descriptor, 0, len(views))
	for _, v := range views {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
