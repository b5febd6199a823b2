package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vista/internal/registry"
	"vista/internal/table"
)

type sessionResponse struct {
	ID string `json:"id"`
	table.Snapshot
}

func respondSession(c *gin.Context, status int, e *sessionEntry, err error) {
	resp := sessionResponse{ID: e.ID, Snapshot: e.Session.Snapshot()}
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "session": resp})
		return
	}
	c.JSON(status, resp)
}

// bindOptional читает JSON-тело, если оно есть. Пустое тело — не ошибка.
func bindOptional(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON", "details": err.Error()})
		return false
	}
	return true
}

func bindRequired(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON", "details": err.Error()})
		return false
	}
	return true
}

// withSession находит сессию по :sid или отвечает 404.
func withSession(s *Server, fn func(c *gin.Context, e *sessionEntry)) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := s.sessions.get(c.Param("sid"))
		if err != nil {
			fail(c, err)
			return
		}
		fn(c, e)
	}
}

type createSessionReq struct {
	Limit int `json:"limit"`
}

// SessionCreateHandler открывает таблицу вида и делает первую загрузку.
// Ошибка чтения не мешает созданию: сессия остаётся в состоянии ошибки.
func SessionCreateHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSessionReq
		if !bindOptional(c, &req) {
			return
		}
		if req.Limit < 0 {
			fail(c, table.ErrInvalidLimit)
			return
		}
		ctx := c.Request.Context()
		d, err := registry.Resolve(ctx, s.deps.Registry, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}

		limit := s.deps.Limit
		if req.Limit > 0 {
			limit = req.Limit
		}
		inbox, nav := &Inbox{}, &redirect{}
		sess := table.New(d, s.deps.Source, table.Options{
			Limit:      limit,
			MinDisplay: s.deps.MinDisplay,
			Notifier:   inbox,
			Navigator:  nav,
			Views:      s.deps.Registry,
			Logger:     s.log,
		})
		e := s.sessions.add(sess, inbox, nav)
		s.log.Info().Str("session", e.ID).Str("view", d.ID).Int("limit", limit).Msg("session opened")

		respondSession(c, http.StatusCreated, e, sess.Load(ctx))
	}
}

func SessionGetHandler(s *Server) gin.HandlerFunc {
	return withSession(s, func(c *gin.Context, e *sessionEntry) {
		respondSession(c, http.StatusOK, e, nil)
	})
}

func SessionCloseHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.sessions.remove(c.Param("sid")); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func SessionReloadHandler(s *Server) gin.HandlerFunc {
	return withSession(s, func(c *gin.Context, e *sessionEntry) {
		respondSession(c, http.StatusOK, e, e.Session.Reload(c.Request.Context()))
	})
}

type limitReq struct {
	Limit int `json:"limit"`
}

func SessionLimitHandler(s *Server) gin.HandlerFunc {
	return withSession(s, func(c *gin.Context, e *sessionEntry) {
		var req limitReq
		if !bindRequired(c, &req) {
			return
		}
		respondSession(c, http.StatusOK, e, e.Session.SelectLimit(c.Request.Context(), req.Limit))
	})
}

type pageReq struct {
	Page     int  `json:"page"`
	PageSize *int `json:"pageSize"`
}

// SessionPageHandler: pageSize по умолчанию — текущий лимит.
func SessionPageHandler(s *Server) gin.HandlerFunc {
	return withSession(s, func(c *gin.Context, e *sessionEntry) {
		var req pageReq
		if !bindRequired(c, &req) {
			return
		}
		size := e.Session.Page().Limit
		if req.PageSize != nil {
			size = *req.PageSize
		}
		respondSession(c, http.StatusOK, e, e.Session.SetPage(c.Request.Context(), req.Page, size))
	})
}

type searchReq struct {
	Term string `json:"term"`
}

func SessionSearchHandler(s *Server) gin.HandlerFunc {
	return withSession(s, func(c *gin.Context, e *sessionEntry) {
		var req searchReq
		if !bindRequired(c, &req) {
			return
		}
		respondSession(c, http.StatusOK, e, e.Session.Search(c.Request.Context(), req.Term))
	})
}

func SessionClearSearchHandler(s *Server) gin.HandlerFunc {
	return withSession(s, func(c *gin.Context, e *sessionEntry) {
		respondSession(c, http.StatusOK, e, e.Session.ClearSearch(c.Request.Context()))
	})
}

type filterReq struct {
	Name string `json:"name" binding:"required"`
}

func SessionFilterHandler(s *Server) gin.HandlerFunc {
	return withSession(s, func(c *gin.Context, e *sessionEntry) {
		var req filterReq
		if !bindRequired(c, &req) {
			return
		}
		respondSession(c, http.StatusOK, e, e.Session.SelectFilter(c.Request.Context(), req.Name))
	})
}

func SessionDeselectFilterHandler(s *Server) gin.HandlerFunc {
	return withSession(s, func(c *gin.Context, e *sessionEntry) {
		respondSession(c, http.StatusOK, e, e.Session.DeselectFilter(c.Request.Context()))
	})
}

func NotificationsHandler(s *Server) gin.HandlerFunc {
	return withSession(s, func(c *gin.Context, e *sessionEntry) {
		c.JSON(http.StatusOK, gin.H{"notifications": e.Inbox.Drain()})
	})
}

// ===== ROW ACTIONS =====

func rowIndex(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid row index"})
		return 0, false
	}
	return i, true
}

func RowEditHandler(s *Server) gin.HandlerFunc {
	return withSession(s, func(c *gin.Context, e *sessionEntry) {
		i, ok := rowIndex(c)
		if !ok {
			return
		}
		path, err := e.Session.EditRow(i)
		if err != nil {
			fail(c, err)
			return
		}
		e.nav.take()
		c.JSON(http.StatusOK, gin.H{"navigate": path})
	})
}

// RowDeleteHandler: первый шаг удаления строки.
func RowDeleteHandler(s *Server) gin.HandlerFunc {
	return withSession(s, func(c *gin.Context, e *sessionEntry) {
		i, ok := rowIndex(c)
		if !ok {
			return
		}
		action, err := e.Session.PrepareDeleteRow(i)
		if err != nil {
			fail(c, err)
			return
		}
		p := s.confirmations.put(action, e.ID, e.Inbox, e.nav)
		c.JSON(http.StatusAccepted, pendingJSON(p))
	})
}

func RowToggleHandler(s *Server) gin.HandlerFunc {
	return withSession(s, func(c *gin.Context, e *sessionEntry) {
		i, ok := rowIndex(c)
		if !ok {
			return
		}
		open, err := e.Session.ToggleSubview(i)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"row": i, "expanded": open})
	})
}

// ===== CONFIRMATIONS =====

type confirmReq struct {
	Confirm *bool `json:"confirm" binding:"required"`
}

// ConfirmHandler выполняет второй шаг; confirm=false просто отменяет действие.
func ConfirmHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req confirmReq
		if !bindRequired(c, &req) {
			return
		}
		p, err := s.confirmations.take(c.Param("cid"))
		if err != nil {
			fail(c, err)
			return
		}
		if !*req.Confirm {
			c.JSON(http.StatusOK, gin.H{"confirmed": false})
			return
		}

		runErr := p.Action.Execute(c.Request.Context())
		body := gin.H{
			"confirmed":     true,
			"notifications": p.Inbox.Drain(),
		}
		if path := p.nav.take(); path != "" {
			body["navigate"] = path
		}
		if p.SessionID != "" {
			if e, err := s.sessions.get(p.SessionID); err == nil {
				body["session"] = sessionResponse{ID: e.ID, Snapshot: e.Session.Snapshot()}
			}
		}
		status := http.StatusOK
		if runErr != nil {
			status = statusFor(runErr)
			body["error"] = runErr.Error()
		}
		c.JSON(status, body)
	}
}
