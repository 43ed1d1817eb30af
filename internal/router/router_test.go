package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tincleo/al-sub000/internal/auth"
	"github.com/tincleo/al-sub000/internal/dashboard"
	"github.com/tincleo/al-sub000/internal/models"
)

type stubTokens struct{}

func (stubTokens) ValidateToken(_ context.Context, token string) (uuid.UUID, string, error) {
	switch token {
	case "good":
		return uuid.New(), models.OperatorRoleAdmin, nil
	case "manager":
		return uuid.New(), models.OperatorRoleManager, nil
	}
	return uuid.Nil, "", errors.New("bad token")
}

type memOperators struct {
	mu  sync.Mutex
	ops map[string]*models.Operator
}

func (m *memOperators) Create(_ context.Context, op *models.Operator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ops == nil {
		m.ops = make(map[string]*models.Operator)
	}
	op.ID = uuid.New()
	m.ops[op.Email] = op
	return nil
}

func (m *memOperators) CreateFirst(ctx context.Context, op *models.Operator) (bool, error) {
	m.mu.Lock()
	n := len(m.ops)
	m.mu.Unlock()
	if n > 0 {
		return false, nil
	}
	return true, m.Create(ctx, op)
}

func (m *memOperators) GetByEmail(_ context.Context, email string) (*models.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops[email], nil
}

func post(h http.Handler, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_RequireBearerToken(t *testing.T) {
	h := New(auth.NewHandler(nil, nil), dashboard.NewHandler(nil, nil, nil, nil, nil), stubTokens{})

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/balance-reasons"},
		{http.MethodGet, "/api/v1/team-members"},
		{http.MethodPost, "/api/v1/team-members/" + uuid.NewString() + "/balance-transactions"},
		{http.MethodPost, "/api/v1/team-members/" + uuid.NewString() + "/balance/clear"},
		{http.MethodPost, "/api/v1/ledger/reconcile"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: expected 401, got %d", p.method, p.path, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/balance-reasons", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("balance-reasons with token: expected 200, got %d", rec.Code)
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	h := New(auth.NewHandler(nil, nil), dashboard.NewHandler(nil, nil, nil, nil, nil), stubTokens{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/team-members", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestRegister_AnonymousOnlyBootstrapsFirstAdmin(t *testing.T) {
	store := &memOperators{}
	authHandler := auth.NewHandler(auth.NewService(store, "test-secret", time.Hour), nil)
	h := New(authHandler, dashboard.NewHandler(nil, nil, nil, nil, nil), stubTokens{})
	const path = "/api/v1/auth/register"

	rec := post(h, path, "", `{"email":"root@example.com","password":"pw","display_name":"Root"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first anonymous register: expected 201, got %d", rec.Code)
	}
	if op, _ := store.GetByEmail(context.Background(), "root@example.com"); op == nil || op.Role != models.OperatorRoleAdmin {
		t.Fatalf("first operator should be admin, got %+v", op)
	}

	rec = post(h, path, "", `{"email":"eve@example.com","password":"pw","display_name":"Eve","role":"admin"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous register as admin: expected 401, got %d", rec.Code)
	}
	if op, _ := store.GetByEmail(context.Background(), "eve@example.com"); op != nil {
		t.Error("anonymous register as admin created an operator")
	}

	rec = post(h, path, "manager", `{"email":"m@example.com","password":"pw","display_name":"M","role":"admin"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("manager register: expected 403, got %d", rec.Code)
	}
	rec = post(h, path, "bogus", `{"email":"b@example.com","password":"pw","display_name":"B"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("invalid token register: expected 401, got %d", rec.Code)
	}

	rec = post(h, path, "good", `{"email":"m@example.com","password":"pw","display_name":"M","role":"manager"}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("admin register: expected 201, got %d", rec.Code)
	}
}

func TestRoutes_ClearAndReconcileNeedAdmin(t *testing.T) {
	h := New(auth.NewHandler(nil, nil), dashboard.NewHandler(nil, nil, nil, nil, nil), stubTokens{})

	for _, path := range []string{
		"/api/v1/team-members/" + uuid.NewString() + "/balance/clear",
		"/api/v1/ledger/reconcile",
	} {
		if rec := post(h, path, "manager", ""); rec.Code != http.StatusForbidden {
			t.Errorf("POST %s as manager: expected 403, got %d", path, rec.Code)
		}
	}
}
