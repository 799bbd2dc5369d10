package libraries

import (
	"github.com/komoribooks/komori/pkg/jobs"
	"github.com/komoribooks/komori/pkg/series"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB) {
	h := &handler{
		libraryService: NewService(db),
		seriesService:  series.NewService(db),
		jobService:     jobs.NewService(db),
	}

	e.POST("/libraries", h.create)
	e.GET("/libraries/:id", h.retrieve)
	e.GET("/libraries", h.list)
	e.POST("/libraries/:id", h.update)
}
