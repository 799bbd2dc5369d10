package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/komoribooks/komori/pkg/binder"
	"github.com/komoribooks/komori/pkg/config"
	"github.com/komoribooks/komori/pkg/errcodes"
	"github.com/komoribooks/komori/pkg/jobs"
	"github.com/komoribooks/komori/pkg/libraries"
	"github.com/komoribooks/komori/pkg/pagecache"
	"github.com/komoribooks/komori/pkg/series"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB, pageCache *pagecache.Cache) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	libraries.RegisterRoutes(e, db)
	series.RegisterRoutes(e, db, pageCache)
	jobs.RegisterRoutes(e, db)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
