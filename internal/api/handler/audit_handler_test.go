package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agent007moss/MLT/internal/api/middleware"
	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
)

type recordedEvent struct {
	actorID *int64
	action  string
	target  string
	details domain.Details
}

type stubAuditService struct {
	events   []*domain.AuditEvent
	valid    bool
	err      error
	limit    int
	recorded []recordedEvent
}

func (s *stubAuditService) RecordEvent(_ context.Context, actorID *int64, action, target string, details domain.Details) error {
	s.recorded = append(s.recorded, recordedEvent{actorID, action, target, details})
	return s.err
}

func (s *stubAuditService) VerifyAuditChain(context.Context) (bool, error) {
	return s.valid, s.err
}

func (s *stubAuditService) ListEvents(_ context.Context, limit int) ([]*domain.AuditEvent, error) {
	s.limit = limit
	return s.events, s.err
}

var _ ports.AuditService = (*stubAuditService)(nil)

func TestAuditHandler_ListEvents(t *testing.T) {
	e := newTestEcho()
	actor := int64(4)
	stub := &stubAuditService{events: []*domain.AuditEvent{{
		Seq:       2,
		ActorID:   &actor,
		Action:    "auth.logout",
		Target:    "session",
		Details:   `{"revoked_sessions":1}`,
		EventHash: "h2",
		PrevHash:  "h1",
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}}}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/audit/events?limit=10", nil), rec)
	run(e, c, NewAuditHandler(stub).ListEvents)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.limit != 10 {
		t.Fatalf("limit not forwarded, got %d", stub.limit)
	}

	var resp []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 1 || resp[0]["id"] != float64(2) || resp[0]["prev_hash"] != "h1" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	details, ok := resp[0]["details"].(map[string]any)
	if !ok || details["revoked_sessions"] != float64(1) {
		t.Fatalf("details must render as an object: %+v", resp[0]["details"])
	}
}

func TestAuditHandler_ListEvents_DefaultAndInvalidLimit(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuditService{}

	rec := httptest.NewRecorder()
	run(e, e.NewContext(httptest.NewRequest(http.MethodGet, "/audit/events", nil), rec), NewAuditHandler(stub).ListEvents)
	if rec.Code != http.StatusOK || stub.limit != 0 || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("unexpected response %d %q limit=%d", rec.Code, rec.Body.String(), stub.limit)
	}

	rec = httptest.NewRecorder()
	run(e, e.NewContext(httptest.NewRequest(http.MethodGet, "/audit/events?limit=5000", nil), rec), NewAuditHandler(stub).ListEvents)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestAuditHandler_VerifyChain(t *testing.T) {
	e := newTestEcho()
	for _, valid := range []bool{true, false} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/audit/verify-chain", nil), rec)
		run(e, c, NewAuditHandler(&stubAuditService{valid: valid}).VerifyChain)

		var resp verifyChainResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if rec.Code != http.StatusOK || resp.Valid != valid {
			t.Fatalf("expected valid=%v, got %d %+v", valid, rec.Code, resp)
		}
	}

	boom := errors.New("store down")
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/audit/verify-chain", nil), httptest.NewRecorder())
	if err := NewAuditHandler(&stubAuditService{err: boom}).VerifyChain(c); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestScaffoldHandler(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuditService{}
	h := NewScaffoldHandler("personnel", stub)

	rec := httptest.NewRecorder()
	run(e, e.NewContext(httptest.NewRequest(http.MethodGet, "/personnel", nil), rec), h.List)
	if rec.Code != http.StatusOK || decode(t, rec)["message"] != "personnel module scaffold" {
		t.Fatalf("unexpected list response %d %s", rec.Code, rec.Body.String())
	}

	c, rec := postJSON(e, "/personnel", `{"name":"Sgt. Smith"}`)
	c.Set(middleware.ContextPrincipal, &ports.Principal{UserID: 5, Role: domain.RoleAdmin, User: &domain.User{ID: 5}})
	run(e, c, h.Create)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(stub.recorded) != 1 {
		t.Fatalf("expected one audit event, got %d", len(stub.recorded))
	}
	got := stub.recorded[0]
	if got.action != "personnel.create" || got.target != "personnel" || got.actorID == nil || *got.actorID != 5 {
		t.Fatalf("unexpected audit event: %+v", got)
	}
	payload, _ := got.details["payload"].(map[string]any)
	if payload["name"] != "Sgt. Smith" {
		t.Fatalf("payload not recorded: %+v", got.details)
	}
}
