package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vista/internal/registry"
)

// AdminReloadHandler перечитывает каталог видов с диска и синхронизирует реестр.
// Каталог с блокирующими проблемами не применяется.
func AdminReloadHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Catalog == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "catalog reload is disabled"})
			return
		}

		// 1) читаем виды и пресеты фильтров
		cat, err := s.deps.Catalog()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "catalog load error", "details": err.Error()})
			return
		}

		// 2) блокирующие проблемы — отказ, реестр не трогаем
		if blocking := cat.Blocking(); len(blocking) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "catalog has blocking issues",
				"issues": blocking,
				"hint":   "fix view descriptors and retry",
			})
			return
		}

		// 3) синхронизация; подписчики (и сессии удалённых видов) узнают об этом через реестр
		removed, err := registry.Sync(c.Request.Context(), s.deps.Registry, cat.Views)
		if err != nil {
			fail(c, err)
			return
		}
		s.log.Info().Int("views", len(cat.Views)).Int("removed", removed).
			Int("issues", len(cat.Issues)).Msg("catalog reloaded")

		c.JSON(http.StatusOK, gin.H{
			"ok":       true,
			"views":    len(cat.Views),
			"removed":  removed,
			"warnings": cat.Issues,
			"orphans":  cat.Orphans,
		})
	}
}
