package backendtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type authResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type milestoneRequest struct {
	Description       string     `json:"description"`
	AmountCents       int64      `json:"amountCents"`
	ReleaseConditions string     `json:"releaseConditions"`
	DueDate           *time.Time `json:"dueDate"`
}

type createRequest struct {
	Title       string             `json:"title"`
	SellerID    int64              `json:"sellerId"`
	AmountCents int64              `json:"amountCents"`
	ServiceType string             `json:"serviceType"`
	Status      string             `json:"status"`
	Milestones  []milestoneRequest `json:"milestones"`
}

type fundRequest struct {
	EscrowID        int64  `json:"escrowId"`
	PaymentMethodID string `json:"paymentMethodId"`
}

type fundResponse struct {
	Status          string `json:"status"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type releaseRequest struct {
	EscrowID    int64 `json:"escrowId"`
	MilestoneID int64 `json:"milestoneId"`
}

type releaseResponse struct {
	Success         bool   `json:"success"`
	PaymentIntentID string `json:"paymentIntentId"`
	Remaining       int64  `json:"remaining"`
}

type errorBody struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// Register обрабатывает регистрацию нового пользователя.
func (b *Backend) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "email, name and password are required")
		return
	}

	userID, err := b.register(req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, errUserExists) {
			writeStatus(w, http.StatusConflict)
			return
		}
		b.logger.Error("register user error", zap.Error(err))
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	b.writeAuth(w, http.StatusCreated, userID, req.Email)
}

// Login выполняет аутентификацию пользователя и выдаёт токен.
func (b *Backend) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeStatus(w, http.StatusUnprocessableEntity)
		return
	}

	u, err := b.authenticate(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, errUserNotFound):
			writeStatus(w, http.StatusNotFound)
		case errors.Is(err, errBadCredentials):
			writeStatus(w, http.StatusUnauthorized)
		default:
			writeStatus(w, http.StatusInternalServerError)
		}
		return
	}

	b.writeAuth(w, http.StatusOK, u.ID, u.Email)
}

func (b *Backend) writeAuth(w http.ResponseWriter, status int, userID int64, email string) {
	token, err := b.auth.Issue(userID)
	if err != nil {
		b.logger.Error("issue token error", zap.Error(err))
		writeStatus(w, http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, authResponse{Token: token, UserID: userID, Email: strings.ToLower(strings.TrimSpace(email))})
}

// SearchUsers возвращает пользователей, чьё имя или email содержит запрос.
// Текущий пользователь не исключается: это делает клиент.
func (b *Backend) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if b.OnSearch != nil {
		b.OnSearch(query)
	}
	writeJSON(w, http.StatusOK, b.search(query))
}

// ListEscrows возвращает эскроу, в которых участвует текущий пользователь.
func (b *Backend) ListEscrows(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, b.escrowsFor(userID))
}

// CreateEscrow создаёт эскроу от имени текущего пользователя-покупателя.
func (b *Backend) CreateEscrow(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" || req.AmountCents <= 0 {
		writeStatus(w, http.StatusUnprocessableEntity)
		return
	}
	if req.Status == "" {
		req.Status = "PENDING"
	}

	e, err := b.create(userID, req)
	if err != nil {
		if errors.Is(err, errUserNotFound) {
			writeError(w, http.StatusNotFound, "seller not found")
			return
		}
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

// FundEscrow привязывает платёжный метод к эскроу.
func (b *Backend) FundEscrow(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req fundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}
	if req.PaymentMethodID == "" {
		writeStatus(w, http.StatusUnprocessableEntity)
		return
	}

	intent, err := b.fund(userID, req.EscrowID)
	if err != nil {
		writeStatus(w, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, fundResponse{Status: "requires_capture", PaymentIntentID: intent})
}

// ReleaseMilestone выплачивает этап эскроу.
func (b *Backend) ReleaseMilestone(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	remaining, intent, err := b.release(userID, req.EscrowID, req.MilestoneID)
	if err != nil {
		switch {
		case errors.Is(err, errAlreadyReleased):
			writeStatus(w, http.StatusConflict)
		case errors.Is(err, errEscrowNotFound):
			writeStatus(w, http.StatusNotFound)
		default:
			writeStatus(w, http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, releaseResponse{Success: true, PaymentIntentID: intent, Remaining: remaining})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg, StatusCode: status})
}
