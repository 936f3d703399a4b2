package workers

import (
	"context"
	"time"

	"invita_backend/internal/logger"
	"invita_backend/internal/repositories"

	"gorm.io/gorm"
)

// SubscriptionWorker - фоновая сверка состояния подписок.
// Основной источник истины - webhook'и провайдера; воркер подчищает
// подписки, для которых событие отмены так и не пришло.
type SubscriptionWorker struct {
	db       *gorm.DB
	subRepo  repositories.SubscriptionRepository
	interval time.Duration
}

func NewSubscriptionWorker(db *gorm.DB, subRepo repositories.SubscriptionRepository) *SubscriptionWorker {
	return &SubscriptionWorker{
		db:       db,
		subRepo:  subRepo,
		interval: 6 * time.Hour,
	}
}

// Start запускает фоновые задачи для подписок
func (w *SubscriptionWorker) Start(ctx context.Context) {
	go w.checkExpiredSubscriptions(ctx)
}

// checkExpiredSubscriptions помечает истекшие подписки
func (w *SubscriptionWorker) checkExpiredSubscriptions(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Subscription worker stopped")
			return
		case <-ticker.C:
			affected, err := w.subRepo.MarkExpired(w.db, time.Now())
			if err != nil {
				logger.WorkerLog("subscription", "mark expired subscriptions", err)
				continue
			}
			if affected > 0 {
				logger.Info("Marked expired subscriptions", "count", affected)
			}
		}
	}
}
