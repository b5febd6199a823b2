package view

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vista/internal/query"
)

func boolPtr(b bool) *bool { return &b }

func accountsView() *Descriptor {
	return &Descriptor{
		ID:    "1",
		Name:  "Accounts",
		Table: "accounts",
		Columns: []Column{
			{Name: "id", Key: KeyPrimary},
			{Name: "email", Searchable: true},
			{Name: "secret", Enabled: boolPtr(false)},
			{Name: "country_id", Ref: &Ref{Table: "countries", MatchColumn: "id"}},
			{Name: "owner", Searchable: true, Ref: &Ref{Table: "users", MatchColumn: "login"}},
		},
		Permissions: Permissions{Update: true},
	}
}

func TestResolveJoins(t *testing.T) {
	d := accountsView()
	joins := d.Joins()

	require.Len(t, joins, 2)
	assert.Equal(t, query.JoinSpec{
		Table: "countries",
		On:    query.JoinOn{Local: "country_id", Target: "id", Operator: query.OpEq},
	}, joins[0])
	assert.Equal(t, "users", joins[1].Table)
	assert.Equal(t, "owner", joins[1].On.Local)
	assert.Equal(t, "login", joins[1].On.Target)
}

func TestResolveJoinsCountMatchesRefs(t *testing.T) {
	cases := [][]Column{
		nil,
		{{Name: "a"}},
		{{Name: "a", Ref: &Ref{Table: "t", MatchColumn: "x"}}, {Name: "b"}},
		accountsView().Columns,
	}
	for _, cols := range cases {
		refs := 0
		for _, c := range cols {
			if c.Ref != nil {
				refs++
			}
		}
		joins := ResolveJoins(cols)
		assert.NotNil(t, joins)
		assert.Len(t, joins, refs)
	}
}

func TestPrimaryKey(t *testing.T) {
	tests := []struct {
		name string
		cols []Column
		want string
		ok   bool
	}{
		{"PRI marker", []Column{{Name: "a"}, {Name: "id", Key: "PRI"}}, "id", true},
		{"numeric marker", []Column{{Name: "uid", Key: "1"}}, "uid", true},
		{"first marked wins", []Column{{Name: "a", Key: "PRI"}, {Name: "b", Key: "1"}}, "a", true},
		{"no marker", []Column{{Name: "a", Key: "MUL"}}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Descriptor{Columns: tt.cols}
			got, ok := d.PrimaryKey()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumnSets(t *testing.T) {
	d := accountsView()
	assert.Equal(t, []string{"id", "email", "secret", "country_id", "owner"}, d.ColumnNames())
	assert.Equal(t, []string{"id", "email", "country_id", "owner"}, d.EnabledColumns())
	assert.Equal(t, []string{"email", "owner"}, d.SearchableColumns())
}

func TestMenuItems(t *testing.T) {
	d := accountsView()
	items := d.MenuItems()
	require.Len(t, items, 2)
	assert.Equal(t, MenuEdit, items[0].Title)
	assert.False(t, items[0].Hidden)
	assert.Equal(t, MenuDelete, items[1].Title)
	assert.True(t, items[1].Hidden)
}

func TestHasSubview(t *testing.T) {
	d := accountsView()
	assert.False(t, d.HasSubview())
	d.Subview = &Subview{Enabled: false}
	assert.False(t, d.HasSubview())
	d.Subview.Enabled = true
	assert.True(t, d.HasSubview())
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadAll(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "accounts.yaml", `
name: Accounts
table: accounts
permissions: {update: true, delete: true}
subview: {enabled: true}
columns:
  - {name: id, key: PRI}
  - {name: email, searchable: true}
  - {name: hidden, enabled: false}
  - name: country_id
    ref: {table: countries, match_column: id}
filters:
  - name: Active
    where:
      - {column: status, operator: eq, value: active}
`)
	writeFile(t, filepath.Join(root, "nested"), "orders.yml", `
id: "7"
table: orders
columns:
  - {name: order_id, key: "1"}
`)
	writeFile(t, root, "README.txt", "ignored")

	views, err := LoadAll(root)
	require.NoError(t, err)
	require.Len(t, views, 2)

	acc := views["accounts"]
	require.NotNil(t, acc)
	assert.Equal(t, "Accounts", acc.Name)
	assert.True(t, acc.HasSubview())
	assert.True(t, acc.Permissions.Delete)
	assert.Equal(t, []string{"id", "email", "country_id"}, acc.EnabledColumns())
	f, ok := acc.Filter("active")
	require.True(t, ok)
	assert.Equal(t, []query.WhereClause{{Column: "status", Operator: query.OpEq, Value: "active"}}, f.Where)

	orders := views["7"]
	require.NotNil(t, orders)
	assert.Equal(t, "7", orders.Name)
	pk, ok := orders.PrimaryKey()
	assert.True(t, ok)
	assert.Equal(t, "order_id", pk)

	sorted := Sorted(views)
	assert.Equal(t, "7", sorted[0].ID)
	assert.Equal(t, "accounts", sorted[1].ID)
}

func TestLoadAllErrors(t *testing.T) {
	t.Run("duplicate id", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "a.yaml", "id: x\ntable: t\n")
		writeFile(t, root, "b.yaml", "id: x\ntable: t\n")
		_, err := LoadAll(root)
		assert.ErrorContains(t, err, "duplicate view")
	})
	t.Run("missing table", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "a.yaml", "id: x\n")
		_, err := LoadAll(root)
		assert.ErrorContains(t, err, "has no table")
	})
	t.Run("bad yaml", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "a.yaml", "columns: [")
		_, err := LoadAll(root)
		assert.Error(t, err)
	})
}

func TestFilterCatalog(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "accounts.yaml", `
filters:
  - name: Germany
    where:
      - {column: country, operator: "=", value: DE}
  - name: Active
    where:
      - {column: status, value: active}
`)
	writeFile(t, dir, "other.yaml", `
view: ghost
filters:
  - name: X
`)

	catalog, err := LoadFilterCatalog(dir)
	require.NoError(t, err)
	require.Len(t, catalog["accounts"], 2)

	views := map[string]*Descriptor{
		"accounts": {ID: "accounts", Table: "accounts", Filters: []Filter{{Name: "active"}}},
	}
	unknown := AttachFilters(views, catalog)
	assert.Equal(t, []string{"ghost"}, unknown)

	acc := views["accounts"]
	require.Len(t, acc.Filters, 2)
	assert.Equal(t, "Germany", acc.Filters[1].Name)
}

func TestLint(t *testing.T) {
	views := map[string]*Descriptor{
		"ok": accountsView(),
		"bad": {
			ID: "bad", Table: "t",
			Columns: []Column{
				{Name: "a", Key: "PRI"},
				{Name: "A"},
				{Name: "b", Key: "1", Ref: &Ref{Table: "x"}},
			},
			Filters: []Filter{{Name: "f", Where: []query.WhereClause{{Column: "a", Operator: "between"}}}},
		},
		"nopk": {ID: "nopk", Table: "t", Columns: []Column{{Name: "a"}}},
	}
	issues := Lint(views)

	codes := map[string][]string{}
	for _, it := range issues {
		codes[it.View] = append(codes[it.View], it.Code)
	}
	assert.Empty(t, codes["ok"])
	assert.ElementsMatch(t, []string{
		"column_duplicate", "ref_target_empty", "primary_key_ambiguous", "filter_operator_unknown",
	}, codes["bad"])
	assert.Equal(t, []string{"primary_key_missing"}, codes["nopk"])

	blocking := Blocking(issues)
	for _, it := range blocking {
		assert.Equal(t, "bad", it.View)
	}
	assert.Len(t, blocking, 3)
}

func TestLoadCatalog(t *testing.T) {
	root := t.TempDir()
	views := filepath.Join(root, "views")
	filters := filepath.Join(root, "filters")
	writeFile(t, views, "accounts.yaml", `
table: accounts
columns:
  - {name: id, key: PRI}
  - {name: status}
`)
	writeFile(t, filters, "accounts.yaml", `
filters:
  - name: Active
    where:
      - {column: status, value: active}
`)
	writeFile(t, filters, "ghost.yaml", "filters: [{name: X}]\n")

	c, err := LoadCatalog(views, filters)
	require.NoError(t, err)
	require.Len(t, c.Views, 1)
	assert.Len(t, c.Views["accounts"].Filters, 1)
	assert.Equal(t, []string{"ghost"}, c.Orphans)
	assert.Empty(t, c.Blocking())

	c, err = LoadCatalog(views, filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Empty(t, c.Views["accounts"].Filters)

	_, err = LoadCatalog(filepath.Join(root, "missing"), "")
	assert.Error(t, err)
}
