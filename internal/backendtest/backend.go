// Package backendtest содержит in-memory реализацию бэкенда эскроу для тестов.
package backendtest

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	errUserExists      = errors.New("user already exists")
	errUserNotFound    = errors.New("user not found")
	errBadCredentials  = errors.New("invalid credentials")
	errEscrowNotFound  = errors.New("escrow not found")
	errAlreadyReleased = errors.New("milestone already released")
)

// Escrow описывает эскроу в формате API бэкенда.
type Escrow struct {
	ID                    int64       `json:"id"`
	Title                 *string     `json:"title"`
	Purpose               *string     `json:"purpose,omitempty"`
	BuyerID               int64       `json:"buyerId"`
	SellerID              int64       `json:"sellerId"`
	AmountCents           int64       `json:"amountCents"`
	Status                string      `json:"status"`
	StripePaymentIntentID *string     `json:"stripePaymentIntentId"`
	Milestones            []Milestone `json:"milestones"`
}

// Milestone описывает этап эскроу в формате API бэкенда.
type Milestone struct {
	ID                int64      `json:"id"`
	EscrowID          int64      `json:"escrowId"`
	AmountCents       int64      `json:"amountCents"`
	Released          bool       `json:"released"`
	Description       *string    `json:"description,omitempty"`
	ReleaseConditions *string    `json:"releaseConditions,omitempty"`
	DueDate           *time.Time `json:"dueDate,omitempty"`
}

type user struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash []byte
}

// Backend хранит пользователей и эскроу в памяти и обслуживает API бэкенда.
type Backend struct {
	mu       sync.Mutex
	users    map[int64]*user
	escrows  []*Escrow
	nextUser int64
	nextEsc  int64
	nextMs   int64
	failures map[string][]int

	auth   *TokenAuth
	logger *zap.Logger

	// OnSearch вызывается перед ответом на поиск пользователей; может блокировать.
	OnSearch func(query string)
}

// New создаёт пустой бэкенд.
func New() *Backend {
	return &Backend{
		users:    make(map[int64]*user),
		failures: make(map[string][]int),
		auth:     NewTokenAuth(""),
		logger:   zap.NewNop(),
	}
}

// Start запускает бэкенд на httptest-сервере.
func (b *Backend) Start() *httptest.Server {
	return httptest.NewServer(b.SetupRouter())
}

// Auth возвращает выпускающий токены компонент.
func (b *Backend) Auth() *TokenAuth { return b.auth }

// FailNext заставляет следующие запросы к пути вернуть указанные статусы по очереди.
func (b *Backend) FailNext(path string, statuses ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = append(b.failures[path], statuses...)
}

func (b *Backend) takeFailure(path string) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.failures[path]
	if len(q) == 0 {
		return 0, false
	}
	b.failures[path] = q[1:]
	return q[0], true
}

// AddUser регистрирует пользователя напрямую и возвращает его идентификатор и токен.
func (b *Backend) AddUser(email, name, password string) (int64, string) {
	id, err := b.register(email, name, password)
	if err != nil {
		panic(fmt.Sprintf("backendtest: add user: %v", err))
	}
	token, err := b.auth.Issue(id)
	if err != nil {
		panic(fmt.Sprintf("backendtest: issue token: %v", err))
	}
	return id, token
}

// Escrow возвращает копию эскроу по идентификатору.
func (b *Backend) Escrow(id int64) (Escrow, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.escrows {
		if e.ID == id {
			return copyEscrow(e), true
		}
	}
	return Escrow{}, false
}

// SetReleased меняет флаг выплаты этапа в обход API, имитируя действия другой стороны.
func (b *Backend) SetReleased(escrowID, milestoneID int64, released bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.escrows {
		if e.ID != escrowID {
			continue
		}
		for i := range e.Milestones {
			if e.Milestones[i].ID == milestoneID {
				e.Milestones[i].Released = released
			}
		}
	}
}

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

func (b *Backend) register(email, name, password string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range b.users {
		if u.Email == email {
			return 0, errUserExists
		}
	}

	b.nextUser++
	u := &user{ID: b.nextUser, Email: email, Name: strings.TrimSpace(name), PasswordHash: hashPassword(email, password)}
	b.users[u.ID] = u
	return u.ID, nil
}

func (b *Backend) authenticate(email, password string) (*user, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range b.users {
		if u.Email != email {
			continue
		}
		if string(u.PasswordHash) != string(hashPassword(email, password)) {
			return nil, errBadCredentials
		}
		return u, nil
	}
	return nil, errUserNotFound
}

func (b *Backend) search(query string) []userResponse {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]userResponse, 0)
	for _, u := range b.users {
		if q == "" || strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(u.Email, q) {
			out = append(out, userResponse{ID: u.ID, Email: u.Email, Name: u.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Backend) escrowsFor(userID int64) []Escrow {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Escrow, 0)
	for i := len(b.escrows) - 1; i >= 0; i-- {
		e := b.escrows[i]
		if e.BuyerID == userID || e.SellerID == userID {
			out = append(out, copyEscrow(e))
		}
	}
	return out
}

func (b *Backend) create(buyerID int64, req createRequest) (Escrow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if req.SellerID != 0 {
		if _, ok := b.users[req.SellerID]; !ok {
			return Escrow{}, errUserNotFound
		}
	}

	b.nextEsc++
	title := req.Title
	e := &Escrow{
		ID:          b.nextEsc,
		Title:       &title,
		BuyerID:     buyerID,
		SellerID:    req.SellerID,
		AmountCents: req.AmountCents,
		Status:      req.Status,
		Milestones:  make([]Milestone, 0, len(req.Milestones)),
	}
	if req.ServiceType != "" {
		purpose := req.ServiceType
		e.Purpose = &purpose
	}
	for _, m := range req.Milestones {
		b.nextMs++
		ms := Milestone{
			ID:          b.nextMs,
			EscrowID:    e.ID,
			AmountCents: m.AmountCents,
			DueDate:     m.DueDate,
		}
		if m.Description != "" {
			d := m.Description
			ms.Description = &d
		}
		if m.ReleaseConditions != "" {
			c := m.ReleaseConditions
			ms.ReleaseConditions = &c
		}
		e.Milestones = append(e.Milestones, ms)
	}
	b.escrows = append(b.escrows, e)

	return copyEscrow(e), nil
}

func (b *Backend) fund(userID, escrowID int64) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.find(userID, escrowID)
	if e == nil {
		return "", errEscrowNotFound
	}
	intent := fmt.Sprintf("pi_%d_%d", escrowID, time.Now().UnixNano())
	e.StripePaymentIntentID = &intent
	e.Status = "AUTHORIZED"
	return intent, nil
}

func (b *Backend) release(userID, escrowID, milestoneID int64) (int64, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.find(userID, escrowID)
	if e == nil {
		return 0, "", errEscrowNotFound
	}

	found := false
	for i := range e.Milestones {
		if e.Milestones[i].ID != milestoneID {
			continue
		}
		if e.Milestones[i].Released {
			return 0, "", errAlreadyReleased
		}
		e.Milestones[i].Released = true
		found = true
	}
	if !found {
		return 0, "", errEscrowNotFound
	}

	var released int64
	allReleased := true
	for _, m := range e.Milestones {
		if m.Released {
			released += m.AmountCents
		} else {
			allReleased = false
		}
	}
	if allReleased {
		e.Status = "COMPLETED"
	}

	intent := ""
	if e.StripePaymentIntentID != nil {
		intent = *e.StripePaymentIntentID
	}
	return e.AmountCents - released, intent, nil
}

func (b *Backend) find(userID, escrowID int64) *Escrow {
	for _, e := range b.escrows {
		if e.ID == escrowID && (e.BuyerID == userID || e.SellerID == userID) {
			return e
		}
	}
	return nil
}

func copyEscrow(e *Escrow) Escrow {
	c := *e
	c.Milestones = append([]Milestone(nil), e.Milestones...)
	return c
}

func writeStatus(w http.ResponseWriter, status int) {
	writeError(w, status, http.StatusText(status))
}
