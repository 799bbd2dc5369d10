package series

import (
	"github.com/komoribooks/komori/pkg/cover"
	"github.com/komoribooks/komori/pkg/pagecache"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB, pageCache *pagecache.Cache) {
	h := &handler{
		seriesService: NewService(db),
		pageCache:     pageCache,
		coverFn:       cover.Get,
	}

	e.GET("/series", h.list)
	e.GET("/series/:id", h.retrieve)
	e.GET("/volumes/:id", h.retrieveVolume)
	e.GET("/volumes/:id/cover", h.cover)
	e.GET("/volumes/:id/pages/:page", h.page)
}
