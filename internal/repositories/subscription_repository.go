package repositories

import (
	"errors"
	"time"

	"invita_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

type SubscriptionRepository interface {
	FindByUserID(db *gorm.DB, userID string) (*models.UserSubscription, error)
	// FindByCustomerID - локальный reverse lookup customer -> user,
	// чтобы не ходить к провайдеру на каждое subscription-событие.
	FindByCustomerID(db *gorm.DB, customerID string) (*models.UserSubscription, error)

	// Activate - upsert по userID: активация подписки после успешной
	// оплаты. Лимит выводится из плана, счетчик приглашений сбрасывается.
	Activate(db *gorm.DB, sub *models.UserSubscription) error

	// SyncProviderSubscription зеркалирует id/статус/период подписки
	// провайдера. План и лимит не трогает.
	SyncProviderSubscription(db *gorm.DB, userID, customerID, providerSubID, status string, periodStart, periodEnd time.Time) error

	// DowngradeToFree - жесткий сброс на free при отмене подписки.
	DowngradeToFree(db *gorm.DB, userID string, inviteLimit int, endDate time.Time) error

	// ConsumeInvite атомарно инкрементит счетчик, не превышая лимит.
	// Возвращает false, если лимит исчерпан.
	ConsumeInvite(db *gorm.DB, userID string) (bool, error)

	// MarkExpired помечает активные подписки с истекшим периодом.
	MarkExpired(db *gorm.DB, now time.Time) (int64, error)
}

type SubscriptionRepositoryImpl struct{}

func NewSubscriptionRepository() SubscriptionRepository {
	return &SubscriptionRepositoryImpl{}
}

func (r *SubscriptionRepositoryImpl) FindByUserID(db *gorm.DB, userID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	if err := db.First(&sub, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) FindByCustomerID(db *gorm.DB, customerID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	if err := db.First(&sub, "stripe_customer_id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) Activate(db *gorm.DB, sub *models.UserSubscription) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan", "status", "invite_limit", "current_invites",
			"start_date", "stripe_customer_id", "payment_intent_id", "updated_at",
		}),
	}).Create(sub).Error
}

func (r *SubscriptionRepositoryImpl) SyncProviderSubscription(db *gorm.DB, userID, customerID, providerSubID, status string, periodStart, periodEnd time.Time) error {
	sub := &models.UserSubscription{
		UserID:               userID,
		Status:               models.SubscriptionStatus(status),
		StartDate:            &periodStart,
		EndDate:              &periodEnd,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: providerSubID,
	}
	// Merge-upsert: запись создается, если события подписки пришли
	// раньше первой успешной оплаты.
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"stripe_customer_id", "stripe_subscription_id", "status",
			"start_date", "end_date", "updated_at",
		}),
	}).Create(sub).Error
}

func (r *SubscriptionRepositoryImpl) DowngradeToFree(db *gorm.DB, userID string, inviteLimit int, endDate time.Time) error {
	return db.Model(&models.UserSubscription{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"plan":         models.PlanFree,
			"status":       models.SubscriptionStatusCancelled,
			"invite_limit": inviteLimit,
			"end_date":     endDate,
			"updated_at":   time.Now(),
		}).Error
}

func (r *SubscriptionRepositoryImpl) ConsumeInvite(db *gorm.DB, userID string) (bool, error) {
	res := db.Model(&models.UserSubscription{}).
		Where("user_id = ? AND current_invites < invite_limit", userID).
		UpdateColumn("current_invites", gorm.Expr("current_invites + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *SubscriptionRepositoryImpl) MarkExpired(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Model(&models.UserSubscription{}).
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", models.SubscriptionStatusActive, now).
		Updates(map[string]interface{}{
			"status":     models.SubscriptionStatusInactive,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}
