package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"invita_backend/internal/billing"
	"invita_backend/internal/logger"
	"invita_backend/internal/models"
	"invita_backend/internal/repositories"
	"invita_backend/pkg/apperrors"

	"gorm.io/gorm"
)

const webhookProvider = "stripe"

// Outcome - типизированный исход обработчика события.
// "Чужое" событие (Skipped) - не ошибка: провайдеру отвечаем 200,
// чтобы не устраивать шторм повторных доставок.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

type HandlerResult struct {
	Outcome Outcome
	Reason  string // для Skipped
	Err     error  // для Failed
}

func Applied() HandlerResult { return HandlerResult{Outcome: OutcomeApplied} }

func Skipped(reason string) HandlerResult {
	return HandlerResult{Outcome: OutcomeSkipped, Reason: reason}
}

func Failed(err error) HandlerResult { return HandlerResult{Outcome: OutcomeFailed, Err: err} }

// WebhookService - диспетчер событий провайдера и проектор состояния
// подписок. Обработчики обязаны переживать повторную доставку
// (at-least-once) без лишних side effects.
type WebhookService interface {
	Process(ctx context.Context, db *gorm.DB, payload []byte, sigHeader string) (HandlerResult, error)
}

type WebhookServiceImpl struct {
	gateway    billing.Gateway
	catalog    *billing.Catalog
	intentRepo repositories.PaymentIntentRepository
	subRepo    repositories.SubscriptionRepository
	txnRepo    repositories.TransactionRepository
	eventRepo  repositories.WebhookEventRepository
}

func NewWebhookService(
	gateway billing.Gateway,
	catalog *billing.Catalog,
	intentRepo repositories.PaymentIntentRepository,
	subRepo repositories.SubscriptionRepository,
	txnRepo repositories.TransactionRepository,
	eventRepo repositories.WebhookEventRepository,
) WebhookService {
	return &WebhookServiceImpl{
		gateway:    gateway,
		catalog:    catalog,
		intentRepo: intentRepo,
		subRepo:    subRepo,
		txnRepo:    txnRepo,
		eventRepo:  eventRepo,
	}
}

// Process верифицирует подпись против сырого тела и роутит событие.
// Ошибка возвращается ТОЛЬКО при невалидной подписи (400 без обработки);
// все остальное выражается через HandlerResult.
func (s *WebhookServiceImpl) Process(ctx context.Context, db *gorm.DB, payload []byte, sigHeader string) (HandlerResult, error) {
	event, err := s.gateway.VerifyWebhook(payload, sigHeader)
	if err != nil {
		logger.CtxWarn(ctx, "webhook signature verification failed", "error", err.Error())
		return HandlerResult{}, apperrors.ErrWebhookSignature
	}

	ctx = logger.WithEventID(ctx, event.ID)

	fresh, err := s.eventRepo.Claim(db, webhookProvider, event.ID, event.Type, payload)
	if err != nil {
		return Failed(err), nil
	}
	if !fresh {
		logger.CtxInfo(ctx, "duplicate webhook delivery ignored", "type", event.Type)
		return Skipped("duplicate delivery"), nil
	}

	result := s.dispatch(ctx, db, event)

	switch result.Outcome {
	case OutcomeApplied:
		logger.CtxInfo(ctx, "webhook event applied", "type", event.Type)
	case OutcomeSkipped:
		logger.CtxInfo(ctx, "webhook event skipped", "type", event.Type, "reason", result.Reason)
	case OutcomeFailed:
		logger.CtxWithError(ctx, "webhook event processing failed", result.Err, "type", event.Type)
		// processed_at не проставляем: повторная доставка получит
		// еще одну попытку.
		return result, nil
	}

	if err := s.eventRepo.MarkProcessed(db, webhookProvider, event.ID); err != nil {
		logger.CtxWithError(ctx, "failed to mark webhook event processed", err)
	}
	return result, nil
}

func (s *WebhookServiceImpl) dispatch(ctx context.Context, db *gorm.DB, event *billing.Event) HandlerResult {
	switch event.Type {
	case billing.EventPaymentSucceeded:
		return s.handlePaymentSucceeded(ctx, db, event)
	case billing.EventPaymentFailed:
		return s.handlePaymentFailed(ctx, db, event)
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated:
		return s.handleSubscriptionChange(ctx, db, event)
	case billing.EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, db, event)
	default:
		// Неизвестные типы - не ошибка (forward compatibility).
		return Skipped("unhandled event type: " + event.Type)
	}
}

// handlePaymentSucceeded: три записи в одной транзакции - успешный платеж
// никогда не фиксируется без активации подписки.
func (s *WebhookServiceImpl) handlePaymentSucceeded(ctx context.Context, db *gorm.DB, event *billing.Event) HandlerResult {
	var pi billing.IntentObject
	if err := json.Unmarshal(event.Data, &pi); err != nil {
		return Failed(fmt.Errorf("malformed payment_intent payload: %w", err))
	}

	userID := pi.Metadata[billing.MetaUserID]
	planID := models.PlanID(pi.Metadata[billing.MetaPlanID])
	if userID == "" || planID == "" {
		// Чужой или некорректный интент - не наша забота.
		return Skipped("payment intent without user/plan metadata")
	}

	now := time.Now()
	err := db.Transaction(func(tx *gorm.DB) error {
		record := &models.PaymentIntentRecord{
			ID:         pi.ID,
			UserID:     userID,
			PlanID:     planID,
			Amount:     pi.Amount,
			Currency:   pi.Currency,
			Status:     models.IntentStatusSucceeded,
			CustomerID: pi.Customer,
		}
		if err := s.intentRepo.UpsertStatus(tx, record); err != nil {
			return err
		}

		sub := &models.UserSubscription{
			UserID:           userID,
			Plan:             planID,
			Status:           models.SubscriptionStatusActive,
			InviteLimit:      s.catalog.LimitFor(planID),
			CurrentInvites:   0,
			StartDate:        &now,
			StripeCustomerID: pi.Customer,
			PaymentIntentID:  pi.ID,
		}
		if err := s.subRepo.Activate(tx, sub); err != nil {
			return err
		}

		return s.txnRepo.Append(tx, &models.PaymentTransaction{
			UserID:          userID,
			PaymentIntentID: pi.ID,
			Amount:          pi.Amount,
			Currency:        pi.Currency,
			Status:          models.TransactionStatusCompleted,
			PlanID:          planID,
			EventID:         event.ID,
		})
	})
	if err != nil {
		return Failed(err)
	}

	return Applied()
}

// handlePaymentFailed: статус интента + запись в журнал. Подписку
// НЕ трогаем - неудачный платеж не отменяет действующую подписку.
func (s *WebhookServiceImpl) handlePaymentFailed(ctx context.Context, db *gorm.DB, event *billing.Event) HandlerResult {
	var pi billing.IntentObject
	if err := json.Unmarshal(event.Data, &pi); err != nil {
		return Failed(fmt.Errorf("malformed payment_intent payload: %w", err))
	}

	userID := pi.Metadata[billing.MetaUserID]
	if userID == "" {
		return Skipped("payment intent without user metadata")
	}

	record := &models.PaymentIntentRecord{
		ID:         pi.ID,
		UserID:     userID,
		PlanID:     models.PlanID(pi.Metadata[billing.MetaPlanID]),
		Amount:     pi.Amount,
		Currency:   pi.Currency,
		Status:     models.IntentStatusFailed,
		CustomerID: pi.Customer,
	}
	if err := s.intentRepo.UpsertStatus(db, record); err != nil {
		return Failed(err)
	}

	if err := s.txnRepo.Append(db, &models.PaymentTransaction{
		UserID:          userID,
		PaymentIntentID: pi.ID,
		Amount:          pi.Amount,
		Currency:        pi.Currency,
		Status:          models.TransactionStatusFailed,
		PlanID:          models.PlanID(pi.Metadata[billing.MetaPlanID]),
		EventID:         event.ID,
	}); err != nil {
		return Failed(err)
	}

	return Applied()
}

// handleSubscriptionChange зеркалирует id/статус/период подписки
// провайдера как есть. План и лимит меняет только success-обработчик.
func (s *WebhookServiceImpl) handleSubscriptionChange(ctx context.Context, db *gorm.DB, event *billing.Event) HandlerResult {
	sub, userID, res := s.resolveSubscriptionEvent(ctx, db, event)
	if res != nil {
		return *res
	}

	periodStart := time.Unix(sub.CurrentPeriodStart, 0)
	periodEnd := time.Unix(sub.CurrentPeriodEnd, 0)
	if err := s.subRepo.SyncProviderSubscription(db, userID, sub.Customer, sub.ID, sub.Status, periodStart, periodEnd); err != nil {
		return Failed(err)
	}

	return Applied()
}

// handleSubscriptionDeleted - безусловный сброс на free без grace-периода.
func (s *WebhookServiceImpl) handleSubscriptionDeleted(ctx context.Context, db *gorm.DB, event *billing.Event) HandlerResult {
	_, userID, res := s.resolveSubscriptionEvent(ctx, db, event)
	if res != nil {
		return *res
	}

	if err := s.subRepo.DowngradeToFree(db, userID, billing.InviteLimitFree, time.Now()); err != nil {
		return Failed(err)
	}

	return Applied()
}

// resolveSubscriptionEvent парсит subscription-событие и резолвит
// внутренний user ID: сначала по локальному кэшу customer -> user,
// затем через метаданные customer'а у провайдера. Отсутствие метки -
// чужой customer, событие пропускается.
func (s *WebhookServiceImpl) resolveSubscriptionEvent(ctx context.Context, db *gorm.DB, event *billing.Event) (*billing.SubscriptionObject, string, *HandlerResult) {
	var sub billing.SubscriptionObject
	if err := json.Unmarshal(event.Data, &sub); err != nil {
		res := Failed(fmt.Errorf("malformed subscription payload: %w", err))
		return nil, "", &res
	}
	if sub.Customer == "" {
		res := Skipped("subscription event without customer")
		return nil, "", &res
	}

	if local, err := s.subRepo.FindByCustomerID(db, sub.Customer); err == nil {
		return &sub, local.UserID, nil
	} else if !apperrors.Is(err, repositories.ErrSubscriptionNotFound) {
		res := Failed(err)
		return nil, "", &res
	}

	cust, err := s.gateway.GetCustomer(ctx, sub.Customer)
	if err != nil {
		res := Failed(fmt.Errorf("customer lookup for %s: %w", sub.Customer, err))
		return nil, "", &res
	}

	userID := cust.Metadata[billing.MetaUserID]
	if userID == "" {
		res := Skipped("customer without user metadata: " + sub.Customer)
		return nil, "", &res
	}
	return &sub, userID, nil
}
