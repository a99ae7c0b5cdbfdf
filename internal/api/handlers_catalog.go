package api

import (
	"errors"
	"net/http"

	"github.com/invopop/jsonschema"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/json-to-terraform/atc/internal/archive"
	"github.com/json-to-terraform/atc/internal/diagram"
)

// MessageResponse is the body of operations that only report an outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

// ArchiveListResponse lists saved architectures.
type ArchiveListResponse struct {
	Architectures []string `json:"architectures"`
}

// listComponents handles GET /api/atc/:provider/components
func (s *Server) listComponents(c echo.Context) error {
	defs, err := s.deps.Store.List(c.Request().Context(), c.Param("provider"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, defs)
}

// getComponent handles GET /api/atc/:provider/components/:type
func (s *Server) getComponent(c echo.Context) error {
	detail, err := s.deps.Store.Get(c.Request().Context(), c.Param("provider"), c.Param("type"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// getIcon handles GET /api/atc/:provider/icons/:icon
func (s *Server) getIcon(c echo.Context) error {
	path, err := s.deps.Store.IconFile(c.Param("provider"), c.Param("icon"))
	if err != nil {
		return err
	}
	return c.File(path)
}

// listArchitectures handles GET /api/atc/:provider/architectures
func (s *Server) listArchitectures(c echo.Context) error {
	names, err := s.deps.Archives.List(c.Param("provider"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ArchiveListResponse{Architectures: names})
}

// saveArchitecture handles POST /api/atc/:provider/architectures/:name
func (s *Server) saveArchitecture(c echo.Context) error {
	name := c.Param("name")
	if !archive.ValidName(name) {
		return BadRequestError(archive.ErrInvalidName.Error(), name)
	}

	var d diagram.Diagram
	if err := c.Bind(&d); err != nil {
		return BadRequestError("invalid request body", err.Error())
	}
	if err := s.deps.Archives.Save(c.Param("provider"), name, d); err != nil {
		s.log.Error("saving architecture failed", zap.String("name", name), zap.Error(err))
		if errors.Is(err, archive.ErrInvalidName) {
			return BadRequestError(archive.ErrInvalidName.Error(), err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{
		Message: "Architecture '" + name + "' saved successfully.",
	})
}

// loadArchitecture handles GET /api/atc/:provider/architectures/:name
func (s *Server) loadArchitecture(c echo.Context) error {
	d, err := s.deps.Archives.Load(c.Param("provider"), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// DiagramSchema returns the JSON Schema of the persisted diagram document.
func DiagramSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{}
	schema := r.Reflect(&diagram.Diagram{})
	schema.Title = "ATC architecture diagram"
	return schema
}

// diagramSchema handles GET /api/atc/schema/diagram
func (s *Server) diagramSchema(c echo.Context) error {
	return c.JSON(http.StatusOK, DiagramSchema())
}
