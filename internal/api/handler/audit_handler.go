package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/agent007moss/MLT/internal/api/metrics"
	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
)

// AuditHandler exposes the audit ledger to holders of audit:read.
type AuditHandler struct {
	auditService ports.AuditService
}

func NewAuditHandler(auditService ports.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

type listEventsRequest struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=1000"`
}

type auditEventResponse struct {
	ID          int64           `json:"id"`
	ActorUserID *int64          `json:"actor_user_id"`
	Action      string          `json:"action"`
	Target      string          `json:"target"`
	Details     json.RawMessage `json:"details" swaggertype:"object"`
	CreatedAt   time.Time       `json:"created_at"`
	EventHash   string          `json:"event_hash"`
	PrevHash    string          `json:"prev_hash"`
}

type verifyChainResponse struct {
	Valid bool `json:"valid"`
}

// ListEvents returns the most recent audit events, newest first.
//
// @Summary      List audit events
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum events (default 200, max 1000)"
// @Success      200    {array}   auditEventResponse
// @Failure      401    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Router       /audit/events [get]
func (h *AuditHandler) ListEvents(c echo.Context) error {
	var req listEventsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	events, err := h.auditService.ListEvents(c.Request().Context(), req.Limit)
	if err != nil {
		return err
	}

	resp := make([]auditEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, toAuditEventResponse(e))
	}
	return c.JSON(http.StatusOK, resp)
}

// VerifyChain recomputes every hash in the ledger.
//
// @Summary      Verify the audit hash chain
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  verifyChainResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /audit/verify-chain [get]
func (h *AuditHandler) VerifyChain(c echo.Context) error {
	valid, err := h.auditService.VerifyAuditChain(c.Request().Context())
	switch {
	case err != nil:
		metrics.AuditChainVerificationsTotal.WithLabelValues("error").Inc()
		return err
	case valid:
		metrics.AuditChainVerificationsTotal.WithLabelValues("valid").Inc()
	default:
		metrics.AuditChainVerificationsTotal.WithLabelValues("broken").Inc()
	}
	return c.JSON(http.StatusOK, verifyChainResponse{Valid: valid})
}

func toAuditEventResponse(e *domain.AuditEvent) auditEventResponse {
	details := json.RawMessage(e.Details)
	if !json.Valid(details) {
		details = json.RawMessage("{}")
	}
	return auditEventResponse{
		ID:          e.Seq,
		ActorUserID: e.ActorID,
		Action:      e.Action,
		Target:      e.Target,
		Details:     details,
		CreatedAt:   e.CreatedAt,
		EventHash:   e.EventHash,
		PrevHash:    e.PrevHash,
	}
}
