package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentIntentRecord - локальная проекция PaymentIntent провайдера.
// Ключ документа = ID интента у провайдера, это дает идемпотентный upsert.
type PaymentIntentRecord struct {
	ID         string       `gorm:"primaryKey" json:"id"`
	UserID     string       `gorm:"not null;index" json:"user_id"`
	PlanID     PlanID       `gorm:"not null" json:"plan_id"`
	Amount     int64        `gorm:"not null" json:"amount"` // минорные единицы
	Currency   string       `gorm:"not null" json:"currency"`
	Status     IntentStatus `gorm:"default:'created'" json:"status"`
	CustomerID string       `gorm:"index" json:"customer_id"`
	CreatedAt  time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// UserSubscription - ровно одна запись на пользователя (upsert по UserID).
// InviteLimit выводится из плана в момент активации и отдельно не задается.
type UserSubscription struct {
	UserID               string             `gorm:"primaryKey" json:"user_id"`
	Plan                 PlanID             `gorm:"default:'free'" json:"plan"`
	Status               SubscriptionStatus `gorm:"default:'inactive'" json:"status"`
	InviteLimit          int                `json:"invite_limit"`
	CurrentInvites       int                `json:"current_invites"`
	StartDate            *time.Time         `json:"start_date,omitempty"`
	EndDate              *time.Time         `json:"end_date,omitempty"`
	StripeCustomerID     string             `gorm:"index" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string             `json:"stripe_subscription_id,omitempty"`
	PaymentIntentID      string             `json:"payment_intent_id,omitempty"`
	CreatedAt            time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// PaymentTransaction - append-only журнал платежей.
// Записи никогда не обновляются и не удаляются.
type PaymentTransaction struct {
	ID              string            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string            `gorm:"not null;index" json:"user_id"`
	PaymentIntentID string            `gorm:"index" json:"payment_intent_id"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Status          TransactionStatus `gorm:"not null" json:"status"`
	PlanID          PlanID            `json:"plan_id"`
	EventID         string            `gorm:"index" json:"event_id"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// WebhookEvent - журнал обработанных событий провайдера с уникальным
// ключом (provider, event_id) для дедупликации повторных доставок.
type WebhookEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Provider    string         `gorm:"not null;uniqueIndex:ux_webhook_events_provider_event,priority:1" json:"provider"`
	EventID     string         `gorm:"not null;uniqueIndex:ux_webhook_events_provider_event,priority:2" json:"event_id"`
	EventType   string         `gorm:"not null;index" json:"event_type"`
	Payload     datatypes.JSON `json:"payload"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
