package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tincleo/al-sub000/internal/middleware"
	"github.com/tincleo/al-sub000/internal/models"
)

func newTestHandler() (*Handler, *mockOperatorStore) {
	store := newMockOperatorStore()
	svc := NewService(store, "test-secret", time.Hour)
	return NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func register(h *Handler, caller *middleware.Operator, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	if caller != nil {
		req = req.WithContext(middleware.WithOperator(req.Context(), caller))
	}
	rec := httptest.NewRecorder()
	h.Register(rec, req)
	return rec
}

func TestRegister_AnonymousBootstrapIgnoresRole(t *testing.T) {
	h, store := newTestHandler()

	rec := register(h, nil, `{"email":"root@example.com","password":"pw","display_name":"Root","role":"manager"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("bootstrap: got %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp OperatorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Role != models.OperatorRoleAdmin {
		t.Errorf("first operator role: got %q, want admin", resp.Role)
	}

	rec = register(h, nil, `{"email":"eve@example.com","password":"pw","display_name":"Eve","role":"admin"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous register after bootstrap: got %d, want 401", rec.Code)
	}
	if op, _ := store.GetByEmail(context.Background(), "eve@example.com"); op != nil {
		t.Error("anonymous register stored an operator")
	}
}

func TestRegister_CallerRole(t *testing.T) {
	h, store := newTestHandler()
	if rec := register(h, nil, `{"email":"root@example.com","password":"pw","display_name":"Root"}`); rec.Code != http.StatusCreated {
		t.Fatalf("bootstrap: got %d", rec.Code)
	}

	manager := &middleware.Operator{ID: uuid.New(), Role: models.OperatorRoleManager}
	rec := register(h, manager, `{"email":"m2@example.com","password":"pw","display_name":"M2","role":"admin"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("manager registering: got %d, want 403", rec.Code)
	}

	admin := &middleware.Operator{ID: uuid.New(), Role: models.OperatorRoleAdmin}
	rec = register(h, admin, `{"email":"m1@example.com","password":"pw","display_name":"M1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin registering: got %d: %s", rec.Code, rec.Body.String())
	}
	op, _ := store.GetByEmail(context.Background(), "m1@example.com")
	if op == nil || op.Role != models.OperatorRoleManager {
		t.Errorf("default role for admin-created operator: got %+v, want manager", op)
	}

	rec = register(h, admin, `{"email":"x@example.com","password":"pw","display_name":"X","role":"owner"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid role: got %d, want 400", rec.Code)
	}
}
