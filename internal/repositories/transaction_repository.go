package repositories

import (
	"invita_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Журнал платежей append-only: записи не обновляются и не удаляются.
type TransactionRepository interface {
	Append(db *gorm.DB, txn *models.PaymentTransaction) error
	FindByUser(db *gorm.DB, userID string, limit int) ([]models.PaymentTransaction, error)
}

type TransactionRepositoryImpl struct{}

func NewTransactionRepository() TransactionRepository {
	return &TransactionRepositoryImpl{}
}

func (r *TransactionRepositoryImpl) Append(db *gorm.DB, txn *models.PaymentTransaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	return db.Create(txn).Error
}

func (r *TransactionRepositoryImpl) FindByUser(db *gorm.DB, userID string, limit int) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}
