package repositories

import (
	"errors"

	"invita_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrIntentNotFound = errors.New("payment intent not found")

type PaymentIntentRepository interface {
	Create(db *gorm.DB, intent *models.PaymentIntentRecord) error
	// UpsertStatus идемпотентно проставляет статус: запись создается,
	// если событие пришло раньше, чем мы успели сохранить интент.
	UpsertStatus(db *gorm.DB, intent *models.PaymentIntentRecord) error
	FindByID(db *gorm.DB, id string) (*models.PaymentIntentRecord, error)
}

type PaymentIntentRepositoryImpl struct{}

func NewPaymentIntentRepository() PaymentIntentRepository {
	return &PaymentIntentRepositoryImpl{}
}

func (r *PaymentIntentRepositoryImpl) Create(db *gorm.DB, intent *models.PaymentIntentRecord) error {
	return db.Create(intent).Error
}

func (r *PaymentIntentRepositoryImpl) UpsertStatus(db *gorm.DB, intent *models.PaymentIntentRecord) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(intent).Error
}

func (r *PaymentIntentRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.PaymentIntentRecord, error) {
	var intent models.PaymentIntentRecord
	if err := db.First(&intent, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	return &intent, nil
}
