package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/tincleo/al-sub000/internal/models"
)

var (
	// ErrDuplicateEmail is returned when registering with an email that already exists.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrBootstrapClosed is returned by Bootstrap once any operator exists.
	ErrBootstrapClosed = errors.New("operators already exist")

	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// OperatorStore is the persistence the auth service needs.
type OperatorStore interface {
	Create(ctx context.Context, op *models.Operator) error
	CreateFirst(ctx context.Context, op *models.Operator) (bool, error)
	GetByEmail(ctx context.Context, email string) (*models.Operator, error)
}

type Service interface {
	Register(ctx context.Context, email, password, displayName, role string) (*models.Operator, error)
	// Bootstrap creates the first operator as an admin. It fails with
	// ErrBootstrapClosed once any operator exists.
	Bootstrap(ctx context.Context, email, password, displayName string) (*models.Operator, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

type service struct {
	repo   OperatorStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(repo OperatorStore, secret string, ttl time.Duration) *service {
	return &service{repo: repo, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func newOperator(email, password, displayName, role string) (*models.Operator, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &models.Operator{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		DisplayName:  displayName,
		Role:         role,
		PasswordHash: string(hash),
	}, nil
}

func (s *service) Bootstrap(ctx context.Context, email, password, displayName string) (*models.Operator, error) {
	op, err := newOperator(email, password, displayName, models.OperatorRoleAdmin)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.CreateFirst(ctx, op)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrBootstrapClosed
	}
	return op, nil
}

func (s *service) Register(ctx context.Context, email, password, displayName, role string) (*models.Operator, error) {
	if role != models.OperatorRoleAdmin && role != models.OperatorRoleManager {
		return nil, ErrInvalidRole
	}
	op, err := newOperator(email, password, displayName, role)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, op); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return op, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	op, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", err
	}
	if op == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(op.ID, op.Role)
}

func (s *service) issueToken(operatorID uuid.UUID, role string) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", ErrInvalidToken
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}
