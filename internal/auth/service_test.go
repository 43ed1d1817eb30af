package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tincleo/al-sub000/internal/models"
)

type mockOperatorStore struct {
	mu        sync.Mutex
	operators map[string]*models.Operator
}

func newMockOperatorStore() *mockOperatorStore {
	return &mockOperatorStore{operators: make(map[string]*models.Operator)}
}

func (m *mockOperatorStore) Create(_ context.Context, op *models.Operator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.operators[op.Email]; ok {
		return &pgconn.PgError{Code: "23505"}
	}
	op.ID = uuid.New()
	op.CreatedAt = time.Now()
	cp := *op
	m.operators[op.Email] = &cp
	return nil
}

func (m *mockOperatorStore) CreateFirst(ctx context.Context, op *models.Operator) (bool, error) {
	m.mu.Lock()
	empty := len(m.operators) == 0
	m.mu.Unlock()
	if !empty {
		return false, nil
	}
	return true, m.Create(ctx, op)
}

func (m *mockOperatorStore) GetByEmail(_ context.Context, email string) (*models.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.operators[email]
	if !ok {
		return nil, nil
	}
	cp := *op
	return &cp, nil
}

func TestRegisterLoginValidate(t *testing.T) {
	svc := NewService(newMockOperatorStore(), "test-secret", time.Hour)
	ctx := context.Background()

	op, err := svc.Register(ctx, " Ana@Example.com ", "hunter22", "Ana", models.OperatorRoleAdmin)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if op.Email != "ana@example.com" {
		t.Errorf("email should be normalised, got %q", op.Email)
	}
	if op.PasswordHash == "hunter22" {
		t.Error("password must be hashed")
	}

	token, err := svc.Login(ctx, "ana@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, role, err := svc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if id != op.ID || role != models.OperatorRoleAdmin {
		t.Errorf("claims: got %s/%s, want %s/admin", id, role, op.ID)
	}
}

func TestRegister_Errors(t *testing.T) {
	svc := NewService(newMockOperatorStore(), "test-secret", time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@example.com", "pw", "A", "owner"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := svc.Register(ctx, "a@example.com", "pw", "A", models.OperatorRoleManager); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "a@example.com", "pw", "A", models.OperatorRoleManager); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := NewService(newMockOperatorStore(), "test-secret", time.Hour)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "b@example.com", "right", "B", models.OperatorRoleManager); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "b@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "right"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v", err)
	}
}

func TestValidateToken_RejectsExpiredAndForeign(t *testing.T) {
	svc := NewService(newMockOperatorStore(), "test-secret", time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := svc.issueToken(uuid.New(), models.OperatorRoleManager)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.ValidateToken(context.Background(), expired); err == nil {
		t.Error("expired token accepted")
	}

	other := NewService(newMockOperatorStore(), "other-secret", time.Hour)
	foreign, err := other.issueToken(uuid.New(), models.OperatorRoleManager)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.ValidateToken(context.Background(), foreign); err == nil {
		t.Error("token signed with another secret accepted")
	}
}

func TestBootstrap_FirstOperatorOnly(t *testing.T) {
	svc := NewService(newMockOperatorStore(), "test-secret", time.Hour)
	ctx := context.Background()

	first, err := svc.Bootstrap(ctx, "root@example.com", "pw", "Root")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if first.Role != models.OperatorRoleAdmin {
		t.Errorf("first operator role: got %q, want admin", first.Role)
	}
	if _, err := svc.Bootstrap(ctx, "second@example.com", "pw", "Second"); !errors.Is(err, ErrBootstrapClosed) {
		t.Errorf("second bootstrap: got %v, want ErrBootstrapClosed", err)
	}
	if op, _ := svc.repo.GetByEmail(ctx, "second@example.com"); op != nil {
		t.Error("closed bootstrap must not store the operator")
	}
}
