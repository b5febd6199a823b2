// Package view описывает логическую таблицу (вид): колонки, права, подвиды и фильтры.
package view

import (
	"strings"

	"vista/internal/query"
)

// Значения Column.Key, которыми помечается первичный ключ.
const (
	KeyPrimary    = "PRI"
	KeyPrimaryAlt = "1"
)

// Descriptor: описание вида. После загрузки не меняется.
type Descriptor struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Table       string      `yaml:"table" json:"table"`
	Columns     []Column    `yaml:"columns" json:"columns"`
	Permissions Permissions `yaml:"permissions" json:"permissions"`
	Subview     *Subview    `yaml:"subview,omitempty" json:"subview,omitempty"`
	Filters     []Filter    `yaml:"filters,omitempty" json:"filters,omitempty"`
}

type Permissions struct {
	Read   bool `yaml:"read" json:"read"`
	Insert bool `yaml:"insert" json:"insert"`
	Update bool `yaml:"update" json:"update"`
	Delete bool `yaml:"delete" json:"delete"`
}

type Subview struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	View    string `yaml:"view,omitempty" json:"view,omitempty"`
}

// Column: колонка вида. Enabled не задан => колонка включена.
type Column struct {
	Name       string `yaml:"name" json:"name"`
	Enabled    *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Searchable bool   `yaml:"searchable" json:"searchable"`
	Key        string `yaml:"key,omitempty" json:"key,omitempty"`
	Ref        *Ref   `yaml:"ref,omitempty" json:"ref,omitempty"`
}

// Ref: ссылка колонки на колонку другой таблицы.
type Ref struct {
	Table       string `yaml:"table" json:"table"`
	MatchColumn string `yaml:"match_column" json:"match_column"`
}

// Filter: именованный набор условий, выбираемый пользователем.
type Filter struct {
	Name  string              `yaml:"name" json:"name"`
	Where []query.WhereClause `yaml:"where" json:"where"`
}

func (c Column) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

func (c Column) IsPrimary() bool {
	k := strings.TrimSpace(c.Key)
	return k == KeyPrimary || k == KeyPrimaryAlt
}

// PrimaryKey возвращает первую колонку с пометкой первичного ключа.
// Если помечено несколько колонок, побеждает первая (lint об этом предупреждает).
func (d *Descriptor) PrimaryKey() (string, bool) {
	for _, c := range d.Columns {
		if c.IsPrimary() {
			return c.Name, true
		}
	}
	return "", false
}

func (d *Descriptor) ColumnNames() []string {
	out := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		out = append(out, c.Name)
	}
	return out
}

func (d *Descriptor) EnabledColumns() []string {
	out := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if c.IsEnabled() {
			out = append(out, c.Name)
		}
	}
	return out
}

func (d *Descriptor) SearchableColumns() []string {
	out := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if c.Searchable {
			out = append(out, c.Name)
		}
	}
	return out
}

func (d *Descriptor) HasSubview() bool {
	return d.Subview != nil && d.Subview.Enabled
}

// Filter ищет фильтр по имени без учёта регистра.
func (d *Descriptor) Filter(name string) (Filter, bool) {
	for _, f := range d.Filters {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Filter{}, false
}

// MenuItem: пункт контекстного меню строки.
type MenuItem struct {
	Title  string `json:"title"`
	Icon   string `json:"icon"`
	Hidden bool   `json:"hidden"`
}

const (
	MenuEdit   = "Edit"
	MenuDelete = "Delete"
)

// MenuItems строит меню строки; пункты скрываются по правам вида.
func (d *Descriptor) MenuItems() []MenuItem {
	return []MenuItem{
		{Title: MenuEdit, Icon: "edit-2", Hidden: !d.Permissions.Update},
		{Title: MenuDelete, Icon: "trash-2", Hidden: !d.Permissions.Delete},
	}
}
