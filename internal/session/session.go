// Package session хранит состояние входа пользователя: токен, идентификатор и email.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/goldy/internal/prefs"
)

// Ключи в долговременном хранилище.
const (
	KeyAuthToken = "authToken"
	KeyUserID    = "userId"
	KeyUserEmail = "userEmail"
)

// ErrEmptyToken возвращается при попытке войти с пустым токеном.
var ErrEmptyToken = errors.New("auth token is empty")

// State содержит снимок сессии.
type State struct {
	Token  string
	UserID int64
	Email  string
}

// Authenticated сообщает, выполнен ли вход.
func (s State) Authenticated() bool {
	return s.Token != ""
}

// Session представляет явный объект сессии, разделяемый компонентами приложения.
type Session struct {
	store prefs.Store

	notifyMu sync.Mutex
	mu       sync.RWMutex
	state    State
	nextID   int
	subs     map[int]func(State)
}

// Open загружает сессию из хранилища. Отсутствующие ключи дают пустые значения.
func Open(ctx context.Context, store prefs.Store) (*Session, error) {
	token, err := get(ctx, store, KeyAuthToken)
	if err != nil {
		return nil, err
	}
	rawID, err := get(ctx, store, KeyUserID)
	if err != nil {
		return nil, err
	}
	email, err := get(ctx, store, KeyUserEmail)
	if err != nil {
		return nil, err
	}

	var id int64
	if rawID != "" {
		id, err = strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			id = 0
		}
	}

	return &Session{
		store: store,
		state: State{Token: token, UserID: id, Email: email},
		subs:  make(map[int]func(State)),
	}, nil
}

func get(ctx context.Context, store prefs.Store, key string) (string, error) {
	v, err := store.Get(ctx, key)
	if errors.Is(err, prefs.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	return v, nil
}

// Login сохраняет токен, идентификатор и email и уведомляет подписчиков.
func (s *Session) Login(ctx context.Context, token string, userID int64, email string) error {
	if token == "" {
		return ErrEmptyToken
	}

	if err := s.store.Set(ctx, KeyAuthToken, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := s.store.Set(ctx, KeyUserID, strconv.FormatInt(userID, 10)); err != nil {
		return fmt.Errorf("save user id: %w", err)
	}
	if err := s.store.Set(ctx, KeyUserEmail, email); err != nil {
		return fmt.Errorf("save user email: %w", err)
	}

	s.update(State{Token: token, UserID: userID, Email: email})
	return nil
}

// Logout очищает сессию. Состояние в памяти сбрасывается даже при ошибке хранилища.
func (s *Session) Logout(ctx context.Context) error {
	err := s.store.Delete(ctx, KeyAuthToken, KeyUserID, KeyUserEmail)
	s.update(State{})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Snapshot возвращает текущее состояние.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe регистрирует обработчик изменений и возвращает функцию отписки.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// ExpiresAt возвращает срок действия токена из claim exp без проверки подписи.
// Значение справочное: сервер остаётся единственным источником истины.
func (s *Session) ExpiresAt() (time.Time, bool) {
	token := s.Snapshot().Token
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (s *Session) update(next State) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.state = next
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}
