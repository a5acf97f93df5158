package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/DeividiJaeger/crewai-wiki-agent/config"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/jobs"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/store"
)

// ResearchHandler exposes the job lifecycle endpoints.
type ResearchHandler struct {
	Manager *jobs.Manager
	Config  *config.Config
}

func (h *ResearchHandler) Register(e *echo.Echo) {
	e.GET("/", h.root)
	e.GET("/health", h.health)
	e.POST("/research", h.submit)
	e.GET("/research/search", h.search)
	e.GET("/research/:id/status", h.status)
	e.GET("/research/:id/result", h.result)
	e.DELETE("/research/:id", h.remove)
}

type submitRequest struct {
	Topic string `json:"topic"`
}

func (h *ResearchHandler) submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ticket, err := h.Manager.Submit(c.Request().Context(), req.Topic)
	if err != nil {
		return mapJobError(err)
	}
	return c.JSON(http.StatusOK, ticket)
}

func (h *ResearchHandler) status(c echo.Context) error {
	report, err := h.Manager.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapJobError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *ResearchHandler) result(c echo.Context) error {
	result, err := h.Manager.Result(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapJobError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *ResearchHandler) remove(c echo.Context) error {
	id := c.Param("id")
	if err := h.Manager.Delete(c.Request().Context(), id); err != nil {
		return mapJobError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"id":      id,
		"message": "research job deleted",
	})
}

func (h *ResearchHandler) search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	hits, err := h.Manager.Search(q, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if hits == nil {
		hits = []jobs.SearchHit{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"hits": hits})
}

func (h *ResearchHandler) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "online",
		"message": "Research agent service is running",
	})
}

type healthResponse struct {
	Status                      string `json:"status"`
	CompletionServiceConfigured bool   `json:"completionServiceConfigured"`
	ActiveJobs                  int    `json:"activeJobs"`
	StoredResults               int    `json:"storedResults"`
}

func (h *ResearchHandler) health(c echo.Context) error {
	counts, err := h.Manager.Counts(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, healthResponse{
		Status:                      "healthy",
		CompletionServiceConfigured: h.Config.CompletionAPIKey() != "",
		ActiveJobs:                  counts.Active,
		StoredResults:               counts.Results,
	})
}

// mapJobError translates manager errors into HTTP errors. NotReady stays a
// 400 distinct from the 404 of an unknown id.
func mapJobError(err error) error {
	switch {
	case errors.Is(err, jobs.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, jobs.ErrNotReady):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
