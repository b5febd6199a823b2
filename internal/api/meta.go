package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vista/internal/query"
	"vista/internal/registry"
	"vista/internal/request"
	"vista/internal/table"
	"vista/internal/view"
)

// ===== VIEW META =====

type metaViewListItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Table string `json:"table"`
}

func ViewListHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		views, err := s.deps.Registry.List(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		out := make([]metaViewListItem, 0, len(views))
		for _, d := range views {
			out = append(out, metaViewListItem{ID: d.ID, Name: d.Name, Table: d.Table})
		}
		c.JSON(http.StatusOK, out)
	}
}

type metaColumn struct {
	Name       string    `json:"name"`
	Enabled    bool      `json:"enabled"`
	Searchable bool      `json:"searchable"`
	Primary    bool      `json:"primary,omitempty"`
	Ref        *view.Ref `json:"ref,omitempty"`
}

type metaView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Table       string           `json:"table"`
	Columns     []metaColumn     `json:"columns"`
	PrimaryKey  string           `json:"primaryKey,omitempty"`
	Permissions view.Permissions `json:"permissions"`
	Subview     *view.Subview    `json:"subview,omitempty"`
	Joins       []query.JoinSpec `json:"joins"`
	Filters     []string         `json:"filters"`
	Menu        []view.MenuItem  `json:"menu"`
}

func describe(d *view.Descriptor) metaView {
	cols := make([]metaColumn, 0, len(d.Columns))
	for _, col := range d.Columns {
		cols = append(cols, metaColumn{
			Name:       col.Name,
			Enabled:    col.IsEnabled(),
			Searchable: col.Searchable,
			Primary:    col.IsPrimary(),
			Ref:        col.Ref,
		})
	}
	filters := make([]string, 0, len(d.Filters))
	for _, f := range d.Filters {
		filters = append(filters, f.Name)
	}
	pk, _ := d.PrimaryKey()
	return metaView{
		ID:          d.ID,
		Name:        d.Name,
		Table:       d.Table,
		Columns:     cols,
		PrimaryKey:  pk,
		Permissions: d.Permissions,
		Subview:     d.Subview,
		Joins:       d.Joins(),
		Filters:     filters,
		Menu:        d.MenuItems(),
	}
}

// ViewMetaHandler принимает id или уникальное имя вида.
func ViewMetaHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := registry.Resolve(c.Request.Context(), s.deps.Registry, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, describe(d))
	}
}

// ViewRowsHandler: разовое чтение страницы без сессии:
// ?limit=&page=|offset=&q=&filter=&field__op=value.
func ViewRowsHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		d, err := registry.Resolve(ctx, s.deps.Registry, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		q := c.Request.URL.Query()
		lp := query.ParseListParams(q, s.deps.Limit)

		params := request.ReadParams{
			Page:   query.PageState{Offset: lp.Offset, Limit: lp.Limit},
			Search: query.ParseSearch(lp.Q),
		}
		if name := strings.TrimSpace(q.Get("filter")); name != "" {
			f, ok := d.Filter(name)
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "Filter not found", "filter": name})
				return
			}
			params.Filter = &f
		}
		req := request.BuildRead(d, params)
		req.Where = append(req.Where, lp.Where...)

		res, err := s.deps.Source.Read(ctx, req)
		if err != nil {
			fail(c, err)
			return
		}
		rows, _ := table.Materialize(res.Data)
		c.JSON(http.StatusOK, gin.H{
			"view":    d.ID,
			"columns": table.Project(d, res, req.Columns),
			"rows":    rows,
			"total":   res.Count,
			"page":    params.Page,
		})
	}
}

func pendingJSON(p *pendingEntry) gin.H {
	return gin.H{
		"confirmation": p.ID,
		"kind":         p.Action.Kind,
		"prompt":       p.Action.Prompt,
		"view":         p.Action.ViewID,
		"expiresAt":    p.Expires,
	}
}

// ViewDeleteHandler не удаляет сразу: возвращает подтверждение для POST /api/confirmations/:cid.
func ViewDeleteHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := registry.Resolve(c.Request.Context(), s.deps.Registry, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		inbox, nav := &Inbox{}, &redirect{}
		action, err := table.PrepareDeleteView(d.ID, table.Options{
			Views:     s.deps.Registry,
			Notifier:  inbox,
			Navigator: nav,
			Logger:    s.log,
		})
		if err != nil {
			fail(c, err)
			return
		}
		p := s.confirmations.put(action, "", inbox, nav)
		c.JSON(http.StatusAccepted, pendingJSON(p))
	}
}
