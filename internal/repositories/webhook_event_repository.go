package repositories

import (
	"time"

	"invita_backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookEventRepository - журнал обработанных событий провайдера.
// Уникальный ключ (provider, event_id) отсекает повторные доставки.
type WebhookEventRepository interface {
	// Claim пытается занять событие. false - событие уже было
	// УСПЕШНО обработано, повторную доставку можно игнорировать.
	// Событие с неудавшейся прошлой попыткой (processed_at IS NULL)
	// отдается на переобработку.
	Claim(db *gorm.DB, provider, eventID, eventType string, payload []byte) (bool, error)
	MarkProcessed(db *gorm.DB, provider, eventID string) error
}

type WebhookEventRepositoryImpl struct{}

func NewWebhookEventRepository() WebhookEventRepository {
	return &WebhookEventRepositoryImpl{}
}

func (r *WebhookEventRepositoryImpl) Claim(db *gorm.DB, provider, eventID, eventType string, payload []byte) (bool, error) {
	event := &models.WebhookEvent{
		Provider:  provider,
		EventID:   eventID,
		EventType: eventType,
		Payload:   datatypes.JSON(payload),
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "event_id"}},
		DoNothing: true,
	}).Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// Конфликт: событие уже видели. Если прошлая попытка не дошла до
	// MarkProcessed - обрабатываем заново.
	var existing models.WebhookEvent
	if err := db.First(&existing, "provider = ? AND event_id = ?", provider, eventID).Error; err != nil {
		return false, err
	}
	return existing.ProcessedAt == nil, nil
}

func (r *WebhookEventRepositoryImpl) MarkProcessed(db *gorm.DB, provider, eventID string) error {
	now := time.Now()
	return db.Model(&models.WebhookEvent{}).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Update("processed_at", now).Error
}
