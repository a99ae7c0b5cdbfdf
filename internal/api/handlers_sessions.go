package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/json-to-terraform/atc/internal/codegen"
	"github.com/json-to-terraform/atc/internal/component"
	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/editor"
	"github.com/json-to-terraform/atc/internal/persistence"
	"github.com/json-to-terraform/atc/internal/result"
)

// CreateSessionRequest opens an editing session.
type CreateSessionRequest struct {
	Provider string `json:"provider" validate:"omitempty,alphanum"`
}

// SessionResponse is the full state of an editing session.
type SessionResponse struct {
	editor.Session
	Components []component.Definition `json:"components"`
	Diagram    diagram.Diagram        `json:"diagram"`
	Selection  *editor.Selection      `json:"selection,omitempty"`
	// Warning reports a palette that could not be loaded.
	Warning string `json:"warning,omitempty"`
}

// DropRequest places a component on the canvas.
type DropRequest struct {
	Type     string           `json:"type" validate:"required"`
	Name     string           `json:"name" validate:"required"`
	Position diagram.Position `json:"position"`
}

// SelectRequest selects a node.
type SelectRequest struct {
	NodeID string `json:"node_id" validate:"required"`
}

// PropertyRequest sets one property of the selected node.
type PropertyRequest struct {
	Value any `json:"value"`
}

// NameRequest names a saved architecture.
type NameRequest struct {
	Name string `json:"name" validate:"required"`
}

// InspectorResponse is the property form of the selected node.
type InspectorResponse struct {
	Form            *editor.Form `json:"form"`
	MissingRequired []string     `json:"missing_required,omitempty"`
}

// SavedListResponse lists the archives reachable from a session.
type SavedListResponse struct {
	Architectures []string            `json:"architectures"`
	Notification  result.Notification `json:"notification"`
}

// GenerateResponse carries the generated Terraform files as text.
type GenerateResponse struct {
	*result.GenerateResult
	Files map[string]string `json:"files,omitempty"`
}

func (s *Server) session(c echo.Context) (*editor.Session, error) {
	return s.sessions.Get(c.Param("id"))
}

func (s *Server) bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return BadRequestError("invalid request body", err.Error())
	}
	if err := c.Validate(req); err != nil {
		return ValidationError(err)
	}
	return nil
}

func (s *Server) sessionState(sess *editor.Session) SessionResponse {
	sel, _ := sess.Canvas.Selected()
	return SessionResponse{
		Session:    *sess,
		Components: sess.Canvas.Components(),
		Diagram:    sess.Canvas.Diagram(),
		Selection:  sel,
	}
}

// storageContext bounds a persistence call by the configured timeout.
func (s *Server) storageContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	if s.cfg.Storage.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Storage.Timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Server) adapter(sess *editor.Session) *persistence.Adapter {
	return persistence.NewAdapter(s.deps.Backend(sess.Provider), s.log)
}

func notificationStatus(n result.Notification) int {
	if n.Level == result.LevelError {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

// createSession handles POST /api/editor/sessions
func (s *Server) createSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := s.bindValid(c, &req); err != nil {
		return err
	}
	provider := req.Provider
	if provider == "" {
		provider = s.cfg.Catalog.Provider
	}

	canvas := editor.NewCanvas(s.deps.Catalog, provider, editor.WithLogger(s.log))
	sess := s.sessions.Create(canvas)
	s.log.Info("editor session opened", zap.String("session", sess.ID), zap.String("provider", provider))

	resp := s.sessionState(sess)
	if err := canvas.LoadCatalog(c.Request().Context()); err != nil {
		resp.Warning = err.Error()
	} else {
		resp.Components = canvas.Components()
	}
	return c.JSON(http.StatusCreated, resp)
}

// listSessions handles GET /api/editor/sessions
func (s *Server) listSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, s.sessions.List())
}

// getSession handles GET /api/editor/sessions/:id
func (s *Server) getSession(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.sessionState(sess))
}

// closeSession handles DELETE /api/editor/sessions/:id
func (s *Server) closeSession(c echo.Context) error {
	if err := s.sessions.Close(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// sessionComponents handles GET /api/editor/sessions/:id/components and
// retries a palette fetch that failed when the session opened.
func (s *Server) sessionComponents(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if len(sess.Canvas.Components()) == 0 {
		if err := sess.Canvas.LoadCatalog(c.Request().Context()); err != nil {
			return NewAPIError(http.StatusBadGateway, "component catalog unavailable", err.Error())
		}
	}
	return c.JSON(http.StatusOK, sess.Canvas.Components())
}

// dropNode handles POST /api/editor/sessions/:id/nodes
func (s *Server) dropNode(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	var req DropRequest
	if err := s.bindValid(c, &req); err != nil {
		return err
	}
	node, ok := sess.Canvas.Drop(req.Type, req.Name, req.Position)
	if !ok {
		return NewAPIError(http.StatusUnprocessableEntity, "component not in palette", req.Type)
	}
	return c.JSON(http.StatusCreated, node)
}

// moveNode handles PUT /api/editor/sessions/:id/nodes/:node/position
func (s *Server) moveNode(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	var pos diagram.Position
	if err := c.Bind(&pos); err != nil {
		return BadRequestError("invalid request body", err.Error())
	}
	if err := sess.Canvas.MoveNode(c.Param("node"), pos); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// connect handles POST /api/editor/sessions/:id/edges
func (s *Server) connect(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	var conn editor.Connection
	if err := c.Bind(&conn); err != nil {
		return BadRequestError("invalid request body", err.Error())
	}
	if conn.Source == "" || conn.Target == "" {
		return BadRequestError("source and target are required", "")
	}
	return c.JSON(http.StatusCreated, sess.Canvas.Connect(conn))
}

// selectNode handles PUT /api/editor/sessions/:id/selection
func (s *Server) selectNode(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	var req SelectRequest
	if err := s.bindValid(c, &req); err != nil {
		return err
	}
	sel, err := sess.Canvas.Select(c.Request().Context(), req.NodeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sel)
}

// deselect handles DELETE /api/editor/sessions/:id/selection
func (s *Server) deselect(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	sess.Canvas.Deselect()
	return c.NoContent(http.StatusNoContent)
}

// inspector handles GET /api/editor/sessions/:id/inspector
func (s *Server) inspector(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if _, ok := sess.Canvas.Selected(); !ok {
		return editor.ErrNoSelection
	}
	form := sess.Canvas.Inspector()
	return c.JSON(http.StatusOK, InspectorResponse{
		Form:            form,
		MissingRequired: editor.MissingRequired(form),
	})
}

// setProperty handles PUT /api/editor/sessions/:id/properties/:name
func (s *Server) setProperty(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	var req PropertyRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("invalid request body", err.Error())
	}
	sel, err := sess.Canvas.SetProperty(c.Param("name"), req.Value)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sel)
}

// save handles POST /api/editor/sessions/:id/save
func (s *Server) save(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	var req NameRequest
	if err := s.bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := s.storageContext(c)
	defer cancel()
	n := s.adapter(sess).Save(ctx, sess.Canvas, req.Name)
	return c.JSON(notificationStatus(n), n)
}

// load handles POST /api/editor/sessions/:id/load
func (s *Server) load(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	var req NameRequest
	if err := s.bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := s.storageContext(c)
	defer cancel()
	n := s.adapter(sess).Load(ctx, sess.Canvas, req.Name)
	return c.JSON(notificationStatus(n), n)
}

// listSaved handles GET /api/editor/sessions/:id/archives
func (s *Server) listSaved(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	ctx, cancel := s.storageContext(c)
	defer cancel()
	names, n := s.adapter(sess).List(ctx)
	if names == nil {
		names = []string{}
	}
	return c.JSON(notificationStatus(n), SavedListResponse{Architectures: names, Notification: n})
}

// generate handles POST /api/editor/sessions/:id/generate
func (s *Server) generate(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	opts := codegen.Options{
		EmitTfvars:  s.cfg.Codegen.EmitTfvars,
		MaxParallel: s.cfg.Codegen.MaxParallel,
		Provider:    sess.Provider,
		Region:      s.cfg.Codegen.Region,
		Project:     s.cfg.Codegen.Project,
	}
	d := sess.Canvas.Diagram()
	res, err := codegen.New(opts, s.log).Generate(c.Request().Context(), &d)
	if err != nil {
		return err
	}

	resp := GenerateResponse{GenerateResult: res}
	if len(res.TerraformFiles) > 0 {
		resp.Files = make(map[string]string, len(res.TerraformFiles))
		for name, b := range res.TerraformFiles {
			resp.Files[name] = string(b)
		}
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, resp)
}
