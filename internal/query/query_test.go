package query

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearch(t *testing.T) {
	tests := []struct {
		term string
		kind SearchKind
	}{
		{"", NoSearch},
		{"b", PendingSearch},
		{"ж", PendingSearch},
		{"bo", ActiveSearch},
		{"bob", ActiveSearch},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			s := ParseSearch(tt.term)
			assert.Equal(t, tt.kind, s.Kind)
			term, ok := s.Active()
			assert.Equal(t, tt.kind == ActiveSearch, ok)
			if ok {
				assert.Equal(t, tt.term, term)
			}
		})
	}
}

func TestSearchShowClear(t *testing.T) {
	assert.False(t, ParseSearch("").ShowClear())
	assert.False(t, ParseSearch("a").ShowClear())
	assert.True(t, ParseSearch("ab").ShowClear())
}

func TestSearchMarshalJSON(t *testing.T) {
	b, err := json.Marshal(ParseSearch("bob"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"active","term":"bob"}`, string(b))
}

func TestParseOperator(t *testing.T) {
	for in, want := range map[string]Operator{
		"":    OpEq,
		"=":   OpEq,
		">=":  OpGte,
		"lte": OpLte,
		"<>":  OpNe,
		"IN":  OpIn,
	} {
		got, err := ParseOperator(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseOperator("between")
	assert.ErrorIs(t, err, ErrUnsupportedOperator)
}

func TestPageStatePage(t *testing.T) {
	assert.Equal(t, 2, PageState{Offset: 20, Limit: 10}.Page())
	assert.Equal(t, 0, PageState{Offset: 20}.Page())
}

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		limit  int
		offset int
		page   int
		q      string
		hasQ   bool
		where  []WhereClause
	}{
		{
			name:  "defaults",
			raw:   "",
			limit: 10,
		},
		{
			name:   "page wins over offset",
			raw:    "limit=25&page=2&offset=7",
			limit:  25,
			offset: 50,
			page:   2,
		},
		{
			name:   "offset",
			raw:    "_limit=5&_offset=15",
			limit:  5,
			offset: 15,
			page:   3,
		},
		{
			name:  "page overflowing offset ignored",
			raw:   "limit=10&page=4611686018427387903",
			limit: 10,
		},
		{
			name:  "invalid limit ignored",
			raw:   "limit=-1",
			limit: 10,
		},
		{
			name:  "limit over max ignored",
			raw:   "limit=5000",
			limit: 10,
		},
		{
			name:  "search and conditions",
			raw:   "q=bob&status__in=a,b&amount__gte=10&name=x&bad__between=1",
			limit: 10,
			q:     "bob",
			hasQ:  true,
			where: []WhereClause{
				{Column: "amount", Operator: OpGte, Value: "10"},
				{Column: "name", Operator: OpEq, Value: "x"},
				{Column: "status", Operator: OpIn, Value: []string{"a", "b"}},
			},
		},
		{
			name:  "in prefix",
			raw:   "city=in:Moscow,Kazan",
			limit: 10,
			where: []WhereClause{
				{Column: "city", Operator: OpIn, Value: []string{"Moscow", "Kazan"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.raw)
			require.NoError(t, err)
			lp := ParseListParams(q, 10)
			assert.Equal(t, tt.limit, lp.Limit)
			assert.Equal(t, tt.offset, lp.Offset)
			assert.Equal(t, tt.page, lp.Page)
			assert.Equal(t, tt.q, lp.Q)
			assert.Equal(t, tt.hasQ, lp.HasQ)
			assert.Equal(t, tt.where, lp.Where)
		})
	}
}

func TestDeleteResultFailed(t *testing.T) {
	assert.False(t, DeleteResult{Valid: true}.Failed())
	assert.True(t, DeleteResult{Error: "locked"}.Failed())
}
