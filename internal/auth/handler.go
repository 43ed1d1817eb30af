package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tincleo/al-sub000/internal/middleware"
	"github.com/tincleo/al-sub000/internal/models"
)

// Request/response structs use snake_case JSON.

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type OperatorResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// Register creates an operator. Only an admin may register operators and
// choose their role. Without a token the request is accepted only while no
// operator exists, and then always creates an admin.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" || req.DisplayName == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	var op *models.Operator
	var err error
	caller := middleware.OperatorFromCtx(r.Context())
	switch {
	case caller == nil:
		op, err = h.svc.Bootstrap(r.Context(), req.Email, req.Password, req.DisplayName)
	case caller.Role != models.OperatorRoleAdmin:
		http.Error(w, "only admins may register operators", http.StatusForbidden)
		return
	default:
		if req.Role == "" {
			req.Role = models.OperatorRoleManager
		}
		op, err = h.svc.Register(r.Context(), req.Email, req.Password, req.DisplayName, req.Role)
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrBootstrapClosed):
			http.Error(w, "registration requires an admin token", http.StatusUnauthorized)
		case errors.Is(err, ErrDuplicateEmail):
			http.Error(w, "email already registered", http.StatusConflict)
		case errors.Is(err, ErrInvalidRole):
			http.Error(w, "invalid role", http.StatusBadRequest)
		default:
			h.log.Error("register failed", "error", err)
			http.Error(w, "registration failed", http.StatusInternalServerError)
		}
		return
	}
	if caller != nil {
		h.log.Info("operator registered", "operator_id", op.ID, "role", op.Role, "by", caller.ID)
	} else {
		h.log.Info("first operator bootstrapped", "operator_id", op.ID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(OperatorResponse{
		ID:          op.ID.String(),
		Email:       op.Email,
		DisplayName: op.DisplayName,
		Role:        op.Role,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "missing email or password", http.StatusBadRequest)
		return
	}
	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.log.Error("login failed", "error", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(LoginResponse{Token: token})
}
