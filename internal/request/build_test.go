package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vista/internal/query"
	"vista/internal/view"
)

func scenarioView() *view.Descriptor {
	return &view.Descriptor{
		ID:    "1",
		Table: "accounts",
		Columns: []view.Column{
			{Name: "id", Key: "PRI"},
			{Name: "email", Searchable: true},
		},
	}
}

func TestBuildReadInitial(t *testing.T) {
	req := BuildRead(scenarioView(), ReadParams{
		Page:    query.PageState{Limit: 10},
		Search:  query.ParseSearch("bob"),
		Initial: true,
	})

	assert.Equal(t, "accounts", req.Table)
	assert.Equal(t, []string{"id", "email"}, req.Columns)
	assert.Equal(t, 10, req.Limit)
	assert.Equal(t, 0, req.Offset)
	assert.NotNil(t, req.Joins)
	assert.Empty(t, req.Joins)
	assert.Empty(t, req.SearchColumns)
	assert.Empty(t, req.SearchTerm)
	assert.Nil(t, req.Where)
}

func TestBuildReadSearch(t *testing.T) {
	req := BuildRead(scenarioView(), ReadParams{
		Page:   query.PageState{Limit: 10},
		Search: query.ParseSearch("bob"),
	})
	assert.Equal(t, []string{"email"}, req.SearchColumns)
	assert.Equal(t, "bob", req.SearchTerm)
	assert.Equal(t, 0, req.Offset)
}

func TestBuildReadTermLength(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{"", ""},
		{"b", ""},
		{"ж", ""},
		{"bo", "bo"},
		{"bob", "bob"},
		{" b ", " b "},
	}
	for _, tt := range tests {
		req := BuildRead(scenarioView(), ReadParams{
			Page:   query.PageState{Limit: 10},
			Search: query.ParseSearch(tt.term),
		})
		assert.Equal(t, tt.want, req.SearchTerm, "term %q", tt.term)
	}
}

func TestBuildReadPage(t *testing.T) {
	search := query.ParseSearch("bob")
	before := BuildRead(scenarioView(), ReadParams{Page: query.PageState{Limit: 10}, Search: search})
	after := BuildRead(scenarioView(), ReadParams{Page: query.PageState{Offset: 2 * 10, Limit: 10}, Search: search})

	assert.Equal(t, 20, after.Offset)
	after.Offset = before.Offset
	assert.Equal(t, before, after)
}

func TestBuildReadAllColumnsOnReload(t *testing.T) {
	d := scenarioView()
	off := false
	d.Columns = append(d.Columns, view.Column{Name: "notes", Enabled: &off})

	initial := BuildRead(d, ReadParams{Page: query.PageState{Limit: 5}, Initial: true})
	reload := BuildRead(d, ReadParams{Page: query.PageState{Limit: 5}})

	assert.Equal(t, []string{"id", "email"}, initial.Columns)
	assert.Equal(t, []string{"id", "email", "notes"}, reload.Columns)
}

func TestBuildReadFilterRoundTrip(t *testing.T) {
	d := scenarioView()
	d.Columns = append(d.Columns, view.Column{Name: "country_id", Ref: &view.Ref{Table: "countries", MatchColumn: "id"}})
	f := &view.Filter{Name: "active", Where: []query.WhereClause{
		query.Eq("status", "active"),
		{Column: "role", Operator: query.OpEq, Value: "admin", Or: true},
	}}
	search := query.ParseSearch("bob")
	page := query.PageState{Limit: 10}

	before := BuildRead(d, ReadParams{Page: page, Search: search})
	selected := BuildRead(d, ReadParams{Page: page, Search: search, Filter: f})
	deselected := BuildRead(d, ReadParams{Page: page, Search: search})

	assert.Equal(t, f.Where, selected.Where)
	assert.Equal(t, "bob", selected.SearchTerm)
	require.Len(t, selected.Joins, 1)
	assert.Equal(t, before, deselected)

	selected.Where[0].Value = "mutated"
	assert.Equal(t, "active", f.Where[0].Value)
}

func TestBuildDelete(t *testing.T) {
	req, err := BuildDelete("accounts", "id", 42)
	require.NoError(t, err)
	assert.Equal(t, query.DeleteRequest{
		Table: "accounts",
		Where: []query.WhereClause{{Column: "id", Operator: query.OpEq, Value: 42}},
	}, req)

	_, err = BuildDelete("accounts", " ", 42)
	assert.ErrorIs(t, err, ErrNoPrimaryKey)
}

func TestDeleteRow(t *testing.T) {
	req, err := DeleteRow(scenarioView(), query.Row{"id": "7", "email": "a@b"})
	require.NoError(t, err)
	require.Len(t, req.Where, 1)
	assert.Equal(t, "id", req.Where[0].Column)
	assert.Equal(t, "7", req.Where[0].Value)
	assert.False(t, req.Where[0].Or)

	noPK := &view.Descriptor{Table: "t", Columns: []view.Column{{Name: "a"}}}
	_, err = DeleteRow(noPK, query.Row{"a": 1})
	assert.ErrorIs(t, err, ErrNoPrimaryKey)
}
