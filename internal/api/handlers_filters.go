package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/json-to-terraform/atc/internal/filter"
)

// FilterUpdateRequest changes any subset of the global filter selection.
type FilterUpdateRequest struct {
	Year              *int    `json:"year,omitempty"`
	Environment       *string `json:"environment,omitempty"`
	NarrowEnvironment *string `json:"narrow_environment,omitempty"`
}

// getFilters handles GET /api/filters
func (s *Server) getFilters(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Filters.State())
}

// updateFilters handles PUT /api/filters
func (s *Server) updateFilters(c echo.Context) error {
	var req FilterUpdateRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("invalid request body", err.Error())
	}
	err := s.deps.Filters.Update(func(sel *filter.Selection) {
		if req.Year != nil {
			sel.Year = *req.Year
		}
		if req.Environment != nil {
			sel.Environment = *req.Environment
		}
		if req.NarrowEnvironment != nil {
			sel.NarrowEnvironment = *req.NarrowEnvironment
		}
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.deps.Filters.State())
}

// refreshFilters handles POST /api/filters/refresh
func (s *Server) refreshFilters(c echo.Context) error {
	if s.deps.FilterSource == nil {
		return NewAPIError(http.StatusServiceUnavailable, "filter options source not configured", "")
	}
	if err := s.deps.Filters.Refresh(c.Request().Context(), s.deps.FilterSource); err != nil {
		return NewAPIError(http.StatusBadGateway, "refreshing filter options failed", err.Error())
	}
	return c.JSON(http.StatusOK, s.deps.Filters.State())
}
