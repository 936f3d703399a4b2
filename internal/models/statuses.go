package models

type PlanID string
type IntentStatus string
type SubscriptionStatus string
type TransactionStatus string

const (
	PlanFree     PlanID = "free"
	PlanStandard PlanID = "standard"
	PlanPremium  PlanID = "premium"

	IntentStatusCreated   IntentStatus = "created"
	IntentStatusSucceeded IntentStatus = "succeeded"
	IntentStatusFailed    IntentStatus = "failed"

	// Статус подписки может также зеркалировать нативный статус
	// провайдера (trialing, past_due и т.д.) как есть.
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusInactive  SubscriptionStatus = "inactive"

	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)
