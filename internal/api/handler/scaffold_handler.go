package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
)

// ScaffoldHandler serves a resource whose storage is not built yet. Reads
// return an empty list; writes are accepted and recorded in the audit ledger
// so the permission gate and ledger wiring are exercised end to end.
type ScaffoldHandler struct {
	resource     string
	auditService ports.AuditService
}

// NewScaffoldHandler returns a handler for resource ("personnel", "org").
func NewScaffoldHandler(resource string, auditService ports.AuditService) *ScaffoldHandler {
	return &ScaffoldHandler{resource: resource, auditService: auditService}
}

type scaffoldListResponse struct {
	Items   []any  `json:"items"`
	Message string `json:"message"`
}

type scaffoldCreateResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// List
//
// @Summary      List scaffold resources
// @Tags         scaffold
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  scaffoldListResponse
// @Failure      403  {object}  errorResponse
// @Router       /personnel [get]
// @Router       /org [get]
func (h *ScaffoldHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, scaffoldListResponse{Items: []any{}, Message: h.resource + " module scaffold"})
}

// Create records the request in the audit ledger.
//
// @Summary      Create a scaffold resource
// @Tags         scaffold
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  scaffoldCreateResponse
// @Failure      403  {object}  errorResponse
// @Router       /personnel [post]
// @Router       /org [post]
func (h *ScaffoldHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	payload := map[string]any{}
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	err = h.auditService.RecordEvent(c.Request().Context(), &p.UserID, h.resource+".create", h.resource,
		domain.Details{"payload": payload})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, scaffoldCreateResponse{OK: true, Message: "create " + h.resource + " scaffold"})
}
