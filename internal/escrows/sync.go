package escrows

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/goldy/internal/gateway"
)

// Sync периодически перезагружает эскроу, пока не отменён контекст.
// Ошибки загрузки логируются и не прерывают цикл; без входа загрузка пропускается.
func (b *Book) Sync(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.syncOnce(ctx)
		}
	}
}

// StartSync запускает Sync в фоновой горутине.
func (b *Book) StartSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		_ = b.Sync(ctx, interval)
	}()
}

func (b *Book) syncOnce(ctx context.Context) {
	if !b.creds.Snapshot().Authenticated() {
		return
	}

	if _, err := b.Refresh(ctx); err != nil {
		if gateway.IsCanceled(err) {
			return
		}
		b.logger.Warn("escrow sync failed",
			zap.Stringer("kind", gateway.KindOf(err)),
			zap.Error(err),
		)
	}
}
