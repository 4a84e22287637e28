// Package api exposes the daemon's HTTP surface: the scan trigger, entity
// state reads, health and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/conf"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/errors"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/logging"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/observability"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/platerec"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/processor"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	Settings  *conf.Settings
	Processor *processor.Processor
	Metrics   *observability.Metrics
}

// entityResponse is the JSON shape of an entity state read.
type entityResponse struct {
	Entity     string         `json:"entity"`
	Phase      string         `json:"phase"`
	State      int            `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// New creates the API controller and registers all routes.
func New(settings *conf.Settings, proc *processor.Processor, obs *observability.Metrics) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	c := &Controller{
		Echo:      e,
		Settings:  settings,
		Processor: proc,
		Metrics:   obs,
	}
	c.Group = e.Group("/api/v1")

	c.Group.GET("/cameras", c.ListCameras)
	c.Group.GET("/cameras/:camera", c.GetCamera)
	c.Group.POST("/cameras/:camera/scan", c.TriggerScan)

	e.GET("/healthz", c.Health)
	if obs != nil {
		e.GET("/metrics", echo.WrapHandler(obs.Handler()))
	}

	return c
}

// Start runs the HTTP server until the context is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Echo.Shutdown(shutdownCtx); err != nil {
			logging.Warn("HTTP server shutdown failed", "error", err)
		}
	}()
	err := c.Echo.Start(":" + c.Settings.WebServer.Port)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListCameras returns the configured camera entity names.
func (c *Controller) ListCameras(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{"cameras": c.Processor.Names()})
}

// GetCamera returns the current state and attributes of one entity.
func (c *Controller) GetCamera(ctx echo.Context) error {
	entity, err := c.Processor.Entity(ctx.Param("camera"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	phase, state := entity.Status()
	return ctx.JSON(http.StatusOK, entityResponse{
		Entity:     entity.Name(),
		Phase:      string(phase),
		State:      state.Value,
		Attributes: state.Attributes,
	})
}

// TriggerScan runs one scan synchronously and reports the outcome. A trigger
// arriving while a scan is in flight is rejected with 409; the caller can
// retry after the current scan settles.
func (c *Controller) TriggerScan(ctx echo.Context) error {
	entity, err := c.Processor.Entity(ctx.Param("camera"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	err = entity.Scan(ctx.Request().Context())
	switch {
	case err == nil:
		phase, state := entity.Status()
		return ctx.JSON(http.StatusOK, entityResponse{
			Entity:     entity.Name(),
			Phase:      string(phase),
			State:      state.Value,
			Attributes: state.Attributes,
		})
	case errors.Is(err, processor.ErrScanInProgress):
		return echo.NewHTTPError(http.StatusConflict, "scan already in progress")
	case platerec.IsServerError(err):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case platerec.IsTransportError(err):
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// Health reports liveness.
func (c *Controller) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{"status": "ok"})
}
