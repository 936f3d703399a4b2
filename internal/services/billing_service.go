package services

import (
	"context"
	"fmt"

	"invita_backend/internal/billing"
	"invita_backend/internal/logger"
	"invita_backend/internal/models"
	"invita_backend/internal/repositories"
	"invita_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// PaymentIntentResponse - ответ на создание платежного интента.
// ClientSecret нужен фронту для подтверждения оплаты.
type PaymentIntentResponse struct {
	ClientSecret    string       `json:"clientSecret"`
	PaymentIntentID string       `json:"paymentIntentId"`
	CustomerID      string       `json:"customerId"`
	Plan            billing.Plan `json:"plan"`
}

type BillingService interface {
	Plans() []billing.Plan
	Plan(id models.PlanID) (billing.Plan, error)
	CreatePaymentIntent(ctx context.Context, db *gorm.DB, userID, planID, email, name string) (*PaymentIntentResponse, error)
	GetPaymentHistory(ctx context.Context, db *gorm.DB, userID string) ([]models.PaymentTransaction, error)
	GetUserSubscription(ctx context.Context, db *gorm.DB, userID string) (*models.UserSubscription, error)
	UseInvite(ctx context.Context, db *gorm.DB, userID string) (*models.UserSubscription, error)
}

type BillingServiceImpl struct {
	gateway     billing.Gateway
	catalog     *billing.Catalog
	intentRepo  repositories.PaymentIntentRepository
	subRepo     repositories.SubscriptionRepository
	txnRepo     repositories.TransactionRepository
	historySize int
}

func NewBillingService(
	gateway billing.Gateway,
	catalog *billing.Catalog,
	intentRepo repositories.PaymentIntentRepository,
	subRepo repositories.SubscriptionRepository,
	txnRepo repositories.TransactionRepository,
) BillingService {
	return &BillingServiceImpl{
		gateway:     gateway,
		catalog:     catalog,
		intentRepo:  intentRepo,
		subRepo:     subRepo,
		txnRepo:     txnRepo,
		historySize: 50,
	}
}

func (s *BillingServiceImpl) Plans() []billing.Plan {
	return s.catalog.List()
}

func (s *BillingServiceImpl) Plan(id models.PlanID) (billing.Plan, error) {
	plan, ok := s.catalog.Get(id)
	if !ok {
		return billing.Plan{}, apperrors.ErrUnknownPlan(string(id))
	}
	return plan, nil
}

// CreatePaymentIntent - выпуск платежного интента для выбранного плана.
// Порядок side effects: резолв customer'а -> создание интента у провайдера ->
// локальная запись. Если локальная запись упала, интент у провайдера уже
// существует - это известное окно несогласованности, повторов нет.
func (s *BillingServiceImpl) CreatePaymentIntent(ctx context.Context, db *gorm.DB, userID, planID, email, name string) (*PaymentIntentResponse, error) {
	plan, ok := s.catalog.Get(models.PlanID(planID))
	if !ok {
		return nil, apperrors.ErrUnknownPlan(planID)
	}
	if !s.catalog.Purchasable(plan.ID) {
		return nil, apperrors.NewBadRequestError("Plan is not purchasable: " + planID)
	}

	cust, err := s.resolveCustomer(ctx, email, name, userID, planID)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, billing.IntentParams{
		Amount:       plan.Amount,
		Currency:     plan.Currency,
		CustomerID:   cust.ID,
		Description:  fmt.Sprintf("Subscription: %s plan", plan.Name),
		ReceiptEmail: email,
		Metadata: map[string]string{
			billing.MetaUserID:   userID,
			billing.MetaPlanID:   string(plan.ID),
			billing.MetaPlanName: plan.Name,
		},
	})
	if err != nil {
		logger.CtxWithError(ctx, "payment intent creation failed", err, "plan_id", planID)
		return nil, apperrors.ErrPaymentGateway(err, "Failed to create payment intent")
	}

	record := &models.PaymentIntentRecord{
		ID:         intent.ID,
		UserID:     userID,
		PlanID:     plan.ID,
		Amount:     plan.Amount,
		Currency:   plan.Currency,
		Status:     models.IntentStatusCreated,
		CustomerID: cust.ID,
	}
	if err := s.intentRepo.Create(db, record); err != nil {
		// Интент уже создан у провайдера, локальной записи нет.
		logger.CtxWithError(ctx, "payment intent persisted remotely but not locally", err,
			"intent_id", intent.ID)
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "payment intent created",
		"intent_id", intent.ID, "plan_id", planID, "customer_id", cust.ID)

	return &PaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		CustomerID:      cust.ID,
		Plan:            plan,
	}, nil
}

// resolveCustomer - find-or-create customer у провайдера. Существующий
// customer переиспользуется как есть: его метаданные НЕ обновляются,
// чтобы повторный вызов был идемпотентным.
func (s *BillingServiceImpl) resolveCustomer(ctx context.Context, email, name, userID, planID string) (*billing.Customer, error) {
	existing, err := s.gateway.FindCustomerByEmail(ctx, email)
	if err != nil {
		logger.CtxWithError(ctx, "customer lookup failed", err)
		return nil, apperrors.ErrCustomerOperation(err)
	}
	if existing != nil {
		return existing, nil
	}

	created, err := s.gateway.CreateCustomer(ctx, billing.CustomerParams{
		Email: email,
		Name:  name,
		Metadata: map[string]string{
			billing.MetaUserID: userID,
			billing.MetaPlanID: planID,
		},
	})
	if err != nil {
		logger.CtxWithError(ctx, "customer creation failed", err)
		return nil, apperrors.ErrCustomerOperation(err)
	}
	return created, nil
}

func (s *BillingServiceImpl) GetPaymentHistory(ctx context.Context, db *gorm.DB, userID string) ([]models.PaymentTransaction, error) {
	txns, err := s.txnRepo.FindByUser(db, userID, s.historySize)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return txns, nil
}

// GetUserSubscription возвращает подписку пользователя. Пока не было
// ни одной оплаты, записи нет - отдаем free-профиль без записи в базу.
func (s *BillingServiceImpl) GetUserSubscription(ctx context.Context, db *gorm.DB, userID string) (*models.UserSubscription, error) {
	sub, err := s.subRepo.FindByUserID(db, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrSubscriptionNotFound) {
			return &models.UserSubscription{
				UserID:      userID,
				Plan:        models.PlanFree,
				Status:      models.SubscriptionStatusInactive,
				InviteLimit: billing.InviteLimitFree,
			}, nil
		}
		return nil, apperrors.InternalError(err)
	}
	return sub, nil
}

// UseInvite списывает одно приглашение в счет лимита плана.
func (s *BillingServiceImpl) UseInvite(ctx context.Context, db *gorm.DB, userID string) (*models.UserSubscription, error) {
	ok, err := s.subRepo.ConsumeInvite(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !ok {
		// Либо лимит исчерпан, либо записи еще нет - заводим free-запись
		// и пробуем еще раз.
		if _, findErr := s.subRepo.FindByUserID(db, userID); findErr == nil {
			return nil, apperrors.ErrInviteLimit
		} else if !apperrors.Is(findErr, repositories.ErrSubscriptionNotFound) {
			return nil, apperrors.InternalError(findErr)
		}

		free := &models.UserSubscription{
			UserID:      userID,
			Plan:        models.PlanFree,
			Status:      models.SubscriptionStatusActive,
			InviteLimit: billing.InviteLimitFree,
		}
		if err := s.subRepo.Activate(db, free); err != nil {
			return nil, apperrors.InternalError(err)
		}
		ok, err = s.subRepo.ConsumeInvite(db, userID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		if !ok {
			return nil, apperrors.ErrInviteLimit
		}
	}

	return s.GetUserSubscription(ctx, db, userID)
}
