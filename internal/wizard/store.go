package wizard

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/goldy/internal/gateway"
	"github.com/mmeshcher/goldy/internal/model"
)

// ErrNotReady возвращается, если отправка запрошена не с шага проверки.
var ErrNotReady = errors.New("wizard is not ready to submit")

// Creator создаёт эскроу на сервере.
type Creator interface {
	Create(ctx context.Context, req model.CreateEscrowRequest) (*model.Escrow, error)
}

// Store хранит состояние мастера и уведомляет подписчиков об изменениях.
type Store struct {
	logger *zap.Logger

	// notifyMu удерживается от изменения состояния до конца рассылки.
	notifyMu sync.Mutex

	mu     sync.Mutex
	state  State
	nextID int
	subs   map[int]func(State)
}

// NewStore создаёт хранилище с начальным состоянием.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger: logger,
		state:  NewState(),
		subs:   make(map[int]func(State)),
	}
}

// Dispatch применяет действие и возвращает новое состояние.
func (s *Store) Dispatch(a Action) State {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.state = Reduce(s.state, a)
	snap, subs := s.state, s.subscribers()
	s.mu.Unlock()

	notify(subs, snap)
	return snap
}

func (s *Store) subscribers() []func(State) {
	out := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(State), snap State) {
	for _, fn := range subs {
		fn(snap)
	}
}

// Snapshot возвращает текущее состояние.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe регистрирует обработчик изменений и возвращает функцию отписки.
func (s *Store) Subscribe(fn func(State)) func() {
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

// Submit отправляет черновик: Review → Submitting → Submitted или SubmissionFailed.
// Вызов не с шага проверки, в том числе во время отправки, возвращает ErrNotReady.
// Неполный черновик остаётся на проверке с ошибками полей и ErrIncompleteDraft.
func (s *Store) Submit(ctx context.Context, creator Creator) (State, error) {
	s.notifyMu.Lock()
	s.mu.Lock()
	if s.state.Step != StepReview {
		snap := s.state
		s.mu.Unlock()
		s.notifyMu.Unlock()
		return snap, ErrNotReady
	}
	s.state = Reduce(s.state, Submit{})
	snap, subs := s.state, s.subscribers()
	s.mu.Unlock()

	notify(subs, snap)
	s.notifyMu.Unlock()

	if snap.Step != StepSubmitting {
		return snap, ErrIncompleteDraft
	}

	draft := snap.Draft
	req, err := BuildRequest(draft)
	if err != nil {
		return s.Dispatch(SubmitFailed{Message: IncompleteDraftMessage}), err
	}

	created, err := creator.Create(ctx, req)
	if err != nil {
		msg := gateway.Message(err)
		if msg == "" {
			msg = "Submission was canceled"
		}
		s.logger.Warn("escrow submission failed",
			zap.String("draft_id", draft.ID),
			zap.Stringer("kind", gateway.KindOf(err)),
			zap.Error(err),
		)
		return s.Dispatch(SubmitFailed{Message: msg}), err
	}

	s.logger.Info("escrow submitted", zap.String("draft_id", draft.ID), zap.Int64("escrow_id", created.ID))
	return s.Dispatch(SubmitSucceeded{Escrow: *created}), nil
}
