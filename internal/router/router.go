package router // router registers the HTTP routes of the service

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/venue-checkin/internal/config"
	"github.com/iliyamo/venue-checkin/internal/handler"
	"github.com/iliyamo/venue-checkin/internal/middleware"
)

// Deps bundles what the routes need.  Redis may be nil, which disables
// the response cache and the rate limiter.
type Deps struct {
	Config        config.Config
	Health        echo.HandlerFunc
	Consolidation *handler.ConsolidationHandler
	Checkin       *handler.CheckinHandler
	Link          *handler.LinkHandler
	Gatherer      prometheus.Gatherer
	Redis         *redis.Client
	Log           *slog.Logger
}

// RegisterRoutes registers the unauthenticated endpoints: the health
// check and, when a gatherer is given, the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health)
	if d.Gatherer != nil {
		h := promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{ErrorHandling: promhttp.HTTPErrorOnError})
		e.GET("/metrics", echo.WrapHandler(h))
	}
}

// RegisterCheckins registers the /v1 API.  Every route needs a valid JWT.
// Floor staff can read the consolidated view and move guests; checkout
// history and manual linking are for managers.
func RegisterCheckins(e *echo.Echo, d Deps) {
	staff := []string{middleware.RoleStaff, middleware.RoleManager, middleware.RoleAdmin}
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.Config.JWTSecret),
		middleware.RequireRole(staff...),
	)
	limit := middleware.NewTokenBucket(d.Config.RateLimit, d.Redis, d.Log)

	g.GET("/events/:id/checkins", d.Consolidation.GetCheckins)

	g.POST("/guests/:id/checkin", d.Checkin.CheckInGuest, limit)
	g.POST("/guests/:id/checkout", d.Checkin.CheckOutGuest, limit)
	g.POST("/guest-lists/:id/owner/checkin", d.Checkin.CheckInOwner, limit)
	g.POST("/guest-lists/:id/owner/checkout", d.Checkin.CheckOutOwner, limit)
	g.POST("/reservations/:kind/:id/checkin", d.Checkin.CheckInReservation, limit)
	g.POST("/reservations/:kind/:id/checkout", d.Checkin.CheckOutReservation, limit)
	g.POST("/promoter-guests/:id/checkin", d.Checkin.CheckInPromoterGuest, limit)

	managers := middleware.RequireRole(middleware.RoleManager, middleware.RoleAdmin)
	g.POST("/reservations/:kind/:id/link", d.Link.LinkReservation, managers)
	g.GET("/checkouts", d.Checkin.ListCheckouts, managers)
}

// New builds the Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(d.Log))
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "internal error"
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			msg = http.StatusText(code)
		}
		_ = c.JSON(code, echo.Map{"error": msg})
	}
	RegisterRoutes(e, d)
	RegisterCheckins(e, d)
	return e
}
