// Package search реализует поиск пользователей, в котором побеждает последний запрос.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/goldy/internal/gateway"
	"github.com/mmeshcher/goldy/internal/model"
	"github.com/mmeshcher/goldy/internal/session"
)

// Searcher выполняет поиск пользователей на сервере.
type Searcher interface {
	SearchUsers(ctx context.Context, token, query string) ([]model.User, error)
}

// Credentials отдаёт текущую сессию.
type Credentials interface {
	Snapshot() session.State
}

// State содержит снимок состояния поиска.
type State struct {
	Query   string
	Results []model.User
	Loading bool
	Message string
}

// Option настраивает контроллер.
type Option func(*Controller)

// WithDebounce задерживает запрос на d; более новый запрос в течение задержки отменяет предыдущий.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.debounce = d
	}
}

// WithParent задаёт родительский контекст запросов; его отмена отменяет текущий поиск.
func WithParent(ctx context.Context) Option {
	return func(c *Controller) {
		if ctx != nil {
			c.parent = ctx
		}
	}
}

// WithLogger задаёт логгер контроллера.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller ведёт состояние поиска. Результаты устаревших запросов отбрасываются до записи в состояние.
type Controller struct {
	searcher Searcher
	creds    Credentials
	parent   context.Context
	debounce time.Duration
	logger   *zap.Logger

	// notifyMu удерживается от фиксации состояния до конца рассылки,
	// поэтому подписчики получают снимки в порядке фиксации.
	notifyMu sync.Mutex

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	state      State
	closed     bool
	nextID     int
	subs       map[int]func(State)

	wg sync.WaitGroup
}

// New создаёт контроллер поиска.
func New(searcher Searcher, creds Credentials, opts ...Option) *Controller {
	c := &Controller{
		searcher: searcher,
		creds:    creds,
		parent:   context.Background(),
		logger:   zap.NewNop(),
		subs:     make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search запускает поиск. Пустой запрос очищает результаты без обращения к серверу.
func (c *Controller) Search(query string) {
	query = strings.TrimSpace(query)

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if query == "" {
		c.state = State{}
		snap := c.state
		subs := c.subscribers()
		c.mu.Unlock()
		notify(subs, snap)
		return
	}

	ctx, cancel := context.WithCancel(c.parent)
	c.cancel = cancel
	c.state = State{Query: query, Results: c.state.Results, Loading: true}
	snap := c.state
	subs := c.subscribers()
	c.wg.Add(1)
	c.mu.Unlock()

	notify(subs, snap)

	go c.run(ctx, gen, query)
}

func (c *Controller) run(ctx context.Context, gen uint64, query string) {
	defer c.wg.Done()

	var (
		users []model.User
		creds session.State
	)
	err := c.wait(ctx)
	if err == nil {
		creds = c.creds.Snapshot()
		users, err = c.searcher.SearchUsers(ctx, creds.Token, query)
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("stale search result dropped", zap.String("query", query))
		return
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	switch {
	case err == nil:
		c.state = State{Query: query, Results: excludeUser(users, creds.UserID)}
	case gateway.IsCanceled(err):
		// Запрос не вытеснен новым, значит отменён родительский контекст.
		c.state.Loading = false
	default:
		c.logger.Warn("user search failed", zap.String("query", query), zap.Error(err))
		c.state = State{Query: query, Message: gateway.Message(err)}
	}
	snap := c.state
	subs := c.subscribers()
	c.mu.Unlock()

	notify(subs, snap)
}

func (c *Controller) wait(ctx context.Context) error {
	if c.debounce <= 0 {
		return nil
	}

	t := time.NewTimer(c.debounce)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Clear отменяет текущий запрос и очищает состояние.
func (c *Controller) Clear() {
	c.Search("")
}

// Close отменяет текущий запрос и ждёт завершения фоновых горутин.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// Wait ждёт завершения всех запущенных запросов.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Snapshot возвращает текущее состояние.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe регистрирует обработчик изменений и возвращает функцию отписки.
// Обработчики вызываются в порядке изменений и не должны вызывать Search, Clear или Close.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Controller) subscribers() []func(State) {
	out := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(State), s State) {
	for _, fn := range subs {
		fn(s)
	}
}

func excludeUser(users []model.User, id int64) []model.User {
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if id != 0 && u.ID == id {
			continue
		}
		out = append(out, u)
	}
	return out
}
