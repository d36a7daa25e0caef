// Package escrows хранит список эскроу пользователя и синхронизирует его с бэкендом.
package escrows

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/goldy/internal/gateway"
	"github.com/mmeshcher/goldy/internal/model"
	"github.com/mmeshcher/goldy/internal/session"
)

var (
	// ErrEscrowNotFound возвращается, если эскроу нет в загруженном списке.
	ErrEscrowNotFound = errors.New("escrow not found")
	// ErrMilestoneNotFound возвращается, если этап не найден в эскроу.
	ErrMilestoneNotFound = errors.New("milestone not found")
	// ErrAlreadyReleased возвращается при повторной выплате этапа.
	ErrAlreadyReleased = errors.New("milestone already released")
	// ErrReleaseRejected возвращается, если бэкенд ответил success=false.
	ErrReleaseRejected = errors.New("milestone release rejected")
)

// Gateway описывает операции бэкенда, используемые списком эскроу.
type Gateway interface {
	ListEscrows(ctx context.Context, token string) ([]model.Escrow, error)
	CreateEscrow(ctx context.Context, token string, req model.CreateEscrowRequest) (*model.Escrow, error)
	FundEscrow(ctx context.Context, token string, escrowID int64, paymentMethodID string) (*gateway.FundResult, error)
	ReleaseMilestone(ctx context.Context, token string, escrowID, milestoneID int64) (*gateway.ReleaseResult, error)
}

// Credentials отдаёт текущую сессию.
type Credentials interface {
	Snapshot() session.State
}

type milestoneKey struct {
	escrowID    int64
	milestoneID int64
}

// Book хранит локальную копию эскроу пользователя.
// Выплата этапа отмечается предварительно и подтверждается следующей полной загрузкой.
type Book struct {
	gw     Gateway
	creds  Credentials
	logger *zap.Logger

	notifyMu    sync.Mutex
	mu          sync.RWMutex
	escrows     []model.Escrow
	provisional map[milestoneKey]struct{}
	loaded      bool
	syncedAt    time.Time
	nextID      int
	subs        map[int]func([]model.Escrow)
}

// NewBook создаёт пустой список эскроу.
func NewBook(gw Gateway, creds Credentials, logger *zap.Logger) *Book {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Book{
		gw:          gw,
		creds:       creds,
		logger:      logger,
		provisional: make(map[milestoneKey]struct{}),
		subs:        make(map[int]func([]model.Escrow)),
	}
}

// Refresh загружает эскроу с бэкенда. Загруженные данные заменяют локальные целиком,
// включая предварительные отметки о выплате.
func (b *Book) Refresh(ctx context.Context) ([]model.Escrow, error) {
	list, err := b.gw.ListEscrows(ctx, b.creds.Snapshot().Token)
	if err != nil {
		return nil, fmt.Errorf("list escrows: %w", err)
	}

	b.commit(func() {
		b.escrows = cloneAll(list)
		clear(b.provisional)
		b.loaded = true
		b.syncedAt = time.Now()
	})
	return cloneAll(list), nil
}

// List возвращает копию загруженных эскроу.
func (b *Book) List() []model.Escrow {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneAll(b.escrows)
}

// Loaded сообщает, была ли хотя бы одна успешная загрузка, и время последней.
func (b *Book) Loaded() (bool, time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded, b.syncedAt
}

// Get возвращает эскроу по идентификатору.
func (b *Book) Get(id int64) (model.Escrow, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.index(id)
	if i < 0 {
		return model.Escrow{}, false
	}
	return clone(b.escrows[i]), true
}

// Create создаёт эскроу и добавляет его в начало списка.
func (b *Book) Create(ctx context.Context, req model.CreateEscrowRequest) (*model.Escrow, error) {
	created, err := b.gw.CreateEscrow(ctx, b.creds.Snapshot().Token, req)
	if err != nil {
		return nil, fmt.Errorf("create escrow: %w", err)
	}

	b.commit(func() {
		b.escrows = slices.Insert(b.escrows, 0, clone(*created))
	})
	b.logger.Info("escrow created", zap.Int64("escrow_id", created.ID), zap.Int64("amount_cents", int64(created.Total)))
	return created, nil
}

// Fund пополняет эскроу ссылкой на платёжный метод.
func (b *Book) Fund(ctx context.Context, escrowID int64, paymentMethodID string) (*gateway.FundResult, error) {
	res, err := b.gw.FundEscrow(ctx, b.creds.Snapshot().Token, escrowID, paymentMethodID)
	if err != nil {
		return nil, fmt.Errorf("fund escrow: %w", err)
	}

	b.commit(func() {
		if i := b.index(escrowID); i >= 0 && res.PaymentIntentID != "" {
			b.escrows[i].PaymentIntentID = res.PaymentIntentID
		}
	})
	b.logger.Info("escrow funded", zap.Int64("escrow_id", escrowID), zap.String("status", res.Status))
	return res, nil
}

// Release запрашивает выплату этапа и при успехе отмечает её предварительно.
func (b *Book) Release(ctx context.Context, escrowID, milestoneID int64) (*gateway.ReleaseResult, error) {
	b.mu.RLock()
	i := b.index(escrowID)
	if i >= 0 {
		ms, ok := b.escrows[i].Milestone(milestoneID)
		switch {
		case !ok:
			b.mu.RUnlock()
			return nil, ErrMilestoneNotFound
		case ms.Released:
			b.mu.RUnlock()
			return nil, ErrAlreadyReleased
		}
	}
	b.mu.RUnlock()

	res, err := b.gw.ReleaseMilestone(ctx, b.creds.Snapshot().Token, escrowID, milestoneID)
	if err != nil {
		return nil, fmt.Errorf("release milestone: %w", err)
	}
	if !res.Success {
		return res, ErrReleaseRejected
	}

	b.commit(func() {
		if i := b.index(escrowID); i >= 0 {
			if ms, ok := b.escrows[i].Milestone(milestoneID); ok {
				ms.Released = true
				b.provisional[milestoneKey{escrowID, milestoneID}] = struct{}{}
			}
		}
	})
	b.logger.Info("milestone released",
		zap.Int64("escrow_id", escrowID),
		zap.Int64("milestone_id", milestoneID),
		zap.String("payment_intent_id", res.PaymentIntentID),
	)
	return res, nil
}

// Provisional сообщает, что выплата этапа отмечена локально и ещё не подтверждена загрузкой.
func (b *Book) Provisional(escrowID, milestoneID int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.provisional[milestoneKey{escrowID, milestoneID}]
	return ok
}

// Subscribe регистрирует обработчик изменений списка и возвращает функцию отписки.
func (b *Book) Subscribe(fn func([]model.Escrow)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// commit применяет изменение под блокировкой и рассылает снимок подписчикам
// до того, как следующее изменение сможет начаться.
func (b *Book) commit(mutate func()) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	mutate()
	snap := cloneAll(b.escrows)
	subs := make([]func([]model.Escrow), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (b *Book) index(id int64) int {
	return slices.IndexFunc(b.escrows, func(e model.Escrow) bool { return e.ID == id })
}

func clone(e model.Escrow) model.Escrow {
	e.Milestones = slices.Clone(e.Milestones)
	e.CancellationPolicy = slices.Clone(e.CancellationPolicy)
	e.Signers = slices.Clone(e.Signers)
	return e
}

func cloneAll(list []model.Escrow) []model.Escrow {
	out := make([]model.Escrow, len(list))
	for i, e := range list {
		out[i] = clone(e)
	}
	return out
}
