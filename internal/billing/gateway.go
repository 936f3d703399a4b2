package billing

import (
	"context"
	"encoding/json"
)

// Ключи метаданных, которыми мы помечаем объекты провайдера.
// Это единственная связь между customer'ом провайдера и нашим user ID.
const (
	MetaUserID   = "user_id"
	MetaPlanID   = "plan_id"
	MetaPlanName = "plan_name"
)

// Customer - customer на стороне провайдера
type Customer struct {
	ID       string
	Email    string
	Name     string
	Metadata map[string]string
}

// Intent - платежный интент провайдера. ClientSecret нужен клиенту
// для завершения оплаты на фронте.
type Intent struct {
	ID           string
	ClientSecret string
	CustomerID   string
	Amount       int64
	Currency     string
	Status       string
}

type CustomerParams struct {
	Email    string
	Name     string
	Metadata map[string]string
}

type IntentParams struct {
	Amount       int64
	Currency     string
	CustomerID   string
	Description  string
	ReceiptEmail string
	Metadata     map[string]string
}

// Event - верифицированное webhook-событие. Data - сырой JSON объекта
// события (payment intent, subscription и т.д.).
type Event struct {
	ID   string
	Type string
	Data json.RawMessage
}

// Gateway - абстракция над платежным провайдером. Продакшн-реализация -
// Stripe; в тестах подменяется фейком.
type Gateway interface {
	// FindCustomerByEmail ищет customer'а по точному совпадению email,
	// максимум один результат. (nil, nil) если не найден.
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	CreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	CreatePaymentIntent(ctx context.Context, params IntentParams) (*Intent, error)

	// VerifyWebhook проверяет подпись против СЫРОГО тела запроса.
	// Пере-сериализованное тело проверку не пройдет.
	VerifyWebhook(payload []byte, sigHeader string) (*Event, error)
}

// Типы событий провайдера, которые мы обрабатываем
const (
	EventPaymentSucceeded    = "payment_intent.succeeded"
	EventPaymentFailed       = "payment_intent.payment_failed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// IntentObject - минимальная проекция payment_intent из payload события.
// Парсим сами, чтобы не зависеть от версии структур SDK.
type IntentObject struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Customer string            `json:"customer"`
	Metadata map[string]string `json:"metadata"`
}

// SubscriptionObject - минимальная проекция subscription из payload события.
type SubscriptionObject struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
}
