package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tincleo/al-sub000/internal/balanceform"
	"github.com/tincleo/al-sub000/internal/ledger"
	"github.com/tincleo/al-sub000/internal/models"
	"github.com/tincleo/al-sub000/internal/repository"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// MemberStore is the team member CRUD the dashboard needs.
type MemberStore interface {
	Create(ctx context.Context, m *models.TeamMember) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TeamMember, error)
	List(ctx context.Context) ([]*models.TeamMember, error)
	UpdateProfile(ctx context.Context, m *models.TeamMember) error
}

type HistoryStore interface {
	ListByMemberID(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]models.BalanceHistoryEntry, error)
	CountByMemberID(ctx context.Context, memberID uuid.UUID) (int, error)
}

// ReconcileQueue schedules a ledger reconciliation. A nil member means everyone.
type ReconcileQueue interface {
	Enqueue(ctx context.Context, memberID *uuid.UUID) error
}

type Handler struct {
	members   MemberStore
	history   HistoryStore
	ledger    balanceform.Ledger
	reconcile ReconcileQueue
	log       *slog.Logger
}

func NewHandler(members MemberStore, history HistoryStore, l balanceform.Ledger, reconcile ReconcileQueue, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		members:   members,
		history:   history,
		ledger:    l,
		reconcile: reconcile,
		log:       log,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeLedgerError renders a ledger failure with the same wording the balance
// form shows.
func (h *Handler) writeLedgerError(w http.ResponseWriter, memberID uuid.UUID, err error) {
	status := http.StatusServiceUnavailable
	switch {
	case ledger.IsValidation(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrInsufficientBalance):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrMemberNotFound):
		status = http.StatusNotFound
	default:
		h.log.Error("ledger operation failed", "member_id", memberID, "error", err)
	}
	writeJSON(w, status, balanceform.Describe(err))
}

func memberIDFromPath(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	return id, err == nil
}

// GET /api/v1/balance-reasons
func (h *Handler) ListReasons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, balanceform.ReasonOptions())
}

// GET /api/v1/team-members
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	list, err := h.members.List(r.Context())
	if err != nil {
		h.log.Error("list team members failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []*models.TeamMember{}
	}
	writeJSON(w, http.StatusOK, list)
}

// decodeValidated checks the body against schema and decodes it into v. It
// writes a 400 and returns false when either step fails.
func decodeValidated(w http.ResponseWriter, r *http.Request, schema string, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return false
	}
	if err := validateBody(schema, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

type memberRequest struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Status *string `json:"status"`
	Salary *int64  `json:"salary"`
}

// apply copies the set fields onto m and validates the result.
func (req memberRequest) apply(m *models.TeamMember) string {
	if req.Name != nil {
		m.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		m.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Status != nil {
		m.Status = *req.Status
	}
	if req.Salary != nil {
		m.Salary = *req.Salary
	}
	switch {
	case m.Name == "":
		return "name is required"
	case m.Salary <= 0:
		return "salary must be greater than zero"
	case m.Status != "" && !models.ValidTeamMemberStatus(m.Status):
		return "status must be active or inactive"
	}
	return ""
}

// POST /api/v1/team-members
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decodeValidated(w, r, schemaMemberCreate, &req) {
		return
	}
	m := &models.TeamMember{}
	if msg := req.apply(m); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.members.Create(r.Context(), m); err != nil {
		h.log.Error("create team member failed", "error", err)
		writeError(w, http.StatusInternalServerError, "create failed")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// GET /api/v1/team-members/{id}
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := memberIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid team member ID")
		return
	}
	m, err := h.members.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "team member not found")
		return
	}
	if err != nil {
		h.log.Error("get team member failed", "member_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// PATCH /api/v1/team-members/{id}
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := memberIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid team member ID")
		return
	}
	var req memberRequest
	if !decodeValidated(w, r, schemaMemberUpdate, &req) {
		return
	}
	m, err := h.members.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "team member not found")
		return
	}
	if err != nil {
		h.log.Error("get team member failed", "member_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if msg := req.apply(m); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.members.UpdateProfile(r.Context(), m); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "team member not found")
			return
		}
		h.log.Error("update team member failed", "member_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type historyPage struct {
	Entries []models.BalanceHistoryEntry `json:"entries"`
	Total   int                          `json:"total"`
	Limit   int                          `json:"limit"`
	Offset  int                          `json:"offset"`
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// GET /api/v1/team-members/{id}/balance-history?limit=&offset=
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := memberIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid team member ID")
		return
	}
	limit, okLimit := queryInt(r, "limit", defaultHistoryLimit)
	offset, okOffset := queryInt(r, "offset", 0)
	if !okLimit || !okOffset {
		writeError(w, http.StatusBadRequest, "limit and offset must be non-negative integers")
		return
	}
	if limit == 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if _, err := h.members.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "team member not found")
			return
		}
		h.log.Error("get team member failed", "member_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	entries, err := h.history.ListByMemberID(r.Context(), id, limit, offset)
	if err != nil {
		h.log.Error("list balance history failed", "member_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	total, err := h.history.CountByMemberID(r.Context(), id)
	if err != nil {
		h.log.Error("count balance history failed", "member_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entries == nil {
		entries = []models.BalanceHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, historyPage{Entries: entries, Total: total, Limit: limit, Offset: offset})
}

// amountField accepts the amount as a JSON string or number and keeps the raw
// text; the ledger decides whether it is valid.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	*a = amountField(b)
	return nil
}

type transactionRequest struct {
	Amount amountField `json:"amount"`
	Reason string      `json:"reason"`
	Note   string      `json:"note"`
}

// POST /api/v1/team-members/{id}/balance-transactions
func (h *Handler) ApplyTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := memberIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid team member ID")
		return
	}
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	res, err := h.ledger.ApplyTransaction(r.Context(), id, string(req.Amount), req.Reason, req.Note)
	if err != nil {
		h.writeLedgerError(w, id, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// POST /api/v1/team-members/{id}/balance/clear
func (h *Handler) ClearBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := memberIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid team member ID")
		return
	}
	res, err := h.ledger.ClearBalance(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/v1/ledger/reconcile
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MemberID *uuid.UUID `json:"member_id"`
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	if err := h.reconcile.Enqueue(r.Context(), body.MemberID); err != nil {
		h.log.Error("enqueue reconcile failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "could not schedule reconciliation")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
