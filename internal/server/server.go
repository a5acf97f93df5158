// Package server exposes the research job service over HTTP.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DeividiJaeger/crewai-wiki-agent/config"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/agent"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/jobs"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/llm"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/store"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/telemetry"
)

// Run wires the whole service together and serves until the listener fails.
func Run(cfg *config.Config) error {
	ctx := context.Background()

	st, err := store.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("building store: %w", err)
	}
	defer st.Close()

	tele := telemetry.New(cfg.Telemetry)
	defer tele.Shutdown()

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("building completion provider: %w", err)
	}

	crew, err := agent.BuildCrew(cfg.Jobs.Pipeline, cfg, provider, tele)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	index, err := jobs.NewIndex()
	if err != nil {
		return err
	}
	defer index.Close()

	manager := jobs.NewManager(cfg.Jobs, st, crew, index, tele)

	janitor := jobs.NewJanitor(st, index, cfg.Jobs.CleanupSchedule, cfg.Jobs.Retention)
	janitor.Start()
	defer janitor.Stop()

	e := newEcho()
	handler := &ResearchHandler{Manager: manager, Config: cfg}
	handler.Register(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e.Start(cfg.General.Listen)
}

// newEcho builds the echo instance with recovery, CORS and the unified JSON
// error handler.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	return e
}
