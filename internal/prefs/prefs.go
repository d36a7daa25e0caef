// Package prefs содержит долговременное хранилище настроек клиента (ключ-значение).
package prefs

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// ErrNotFound возвращается, если ключ отсутствует в хранилище.
var ErrNotFound = errors.New("pref not found")

// Store описывает долговременное хранилище ключ-значение.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Open открывает хранилище по DSN. Схема определяет реализацию:
// memory://, file://, sqlite://, postgres://, redis://. Путь без схемы считается файлом.
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)

	switch {
	case dsn == "" || dsn == "memory://":
		return NewMemory(), nil
	case strings.HasPrefix(dsn, "file://"):
		return NewFileStore(strings.TrimPrefix(dsn, "file://"))
	case strings.HasPrefix(dsn, "sqlite://"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresStore(ctx, dsn)
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return NewRedisStore(ctx, dsn)
	case strings.Contains(dsn, "://"):
		return nil, fmt.Errorf("unsupported prefs scheme: %s", dsn)
	default:
		return NewFileStore(dsn)
	}
}

// Memory хранит настройки в памяти процесса.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory создаёт пустое хранилище в памяти.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// Get возвращает значение ключа или ErrNotFound.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set сохраняет значение ключа.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Delete удаляет ключи; отсутствующие ключи пропускаются.
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Close ничего не делает: данные живут только в памяти.
func (m *Memory) Close() error { return nil }
