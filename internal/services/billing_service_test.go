package services

import (
	"context"
	"testing"

	"invita_backend/internal/billing"
	"invita_backend/internal/billing/billingtest"
	"invita_backend/internal/models"
	"invita_backend/internal/repositories"
	"invita_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.PaymentIntentRecord{},
		&models.UserSubscription{},
		&models.PaymentTransaction{},
		&models.WebhookEvent{},
	))
	return db
}

func newBillingService(gw billing.Gateway) BillingService {
	return NewBillingService(
		gw,
		billing.DefaultCatalog(),
		repositories.NewPaymentIntentRepository(),
		repositories.NewSubscriptionRepository(),
		repositories.NewTransactionRepository(),
	)
}

func TestCreatePaymentIntent_UnknownPlan(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	gw := billingtest.NewFakeGateway()
	svc := newBillingService(gw)

	_, err := svc.CreatePaymentIntent(context.Background(), db, "u1", "enterprise", "user@test.com", "User")

	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.HTTPCode)

	// До провайдера и базы дело не дошло
	assert.Equal(t, 0, gw.FindCustomerCalls)
	assert.Empty(t, gw.IntentCalls())
	var count int64
	db.Model(&models.PaymentIntentRecord{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreatePaymentIntent_FreePlanNotPurchasable(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	gw := billingtest.NewFakeGateway()
	svc := newBillingService(gw)

	_, err := svc.CreatePaymentIntent(context.Background(), db, "u1", "free", "user@test.com", "User")

	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.HTTPCode)
	assert.Equal(t, 0, gw.FindCustomerCalls)
}

func TestCreatePaymentIntent_NewCustomer(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	gw := billingtest.NewFakeGateway()
	svc := newBillingService(gw)

	resp, err := svc.CreatePaymentIntent(context.Background(), db, "u42", "premium", "user@test.com", "User")
	require.NoError(t, err)

	// Customer создан с метками владельца
	assert.Equal(t, 1, gw.CreateCustomerCalls)
	assert.NotEmpty(t, resp.CustomerID)
	assert.NotEmpty(t, resp.ClientSecret)
	assert.Equal(t, models.PlanPremium, resp.Plan.ID)

	// Интент несет сумму плана и метаданные
	calls := gw.IntentCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(20000), calls[0].Amount)
	assert.Equal(t, "eur", calls[0].Currency)
	assert.Equal(t, "u42", calls[0].Metadata[billing.MetaUserID])
	assert.Equal(t, "premium", calls[0].Metadata[billing.MetaPlanID])
	assert.Equal(t, "user@test.com", calls[0].ReceiptEmail)

	// Локальная запись со статусом created
	var record models.PaymentIntentRecord
	require.NoError(t, db.First(&record, "id = ?", resp.PaymentIntentID).Error)
	assert.Equal(t, "u42", record.UserID)
	assert.Equal(t, models.IntentStatusCreated, record.Status)
	assert.Equal(t, int64(20000), record.Amount)
}

func TestCreatePaymentIntent_ReusesExistingCustomer(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	gw := billingtest.NewFakeGateway()
	gw.SeedCustomer(billing.Customer{
		ID:       "cus_existing",
		Email:    "user@test.com",
		Name:     "User",
		Metadata: map[string]string{billing.MetaUserID: "u42"},
	})
	svc := newBillingService(gw)

	// Два выпуска подряд на один email
	first, err := svc.CreatePaymentIntent(context.Background(), db, "u42", "standard", "user@test.com", "User")
	require.NoError(t, err)
	second, err := svc.CreatePaymentIntent(context.Background(), db, "u42", "standard", "user@test.com", "User")
	require.NoError(t, err)

	// Существующий customer переиспользован, новый не создавался
	assert.Equal(t, 0, gw.CreateCustomerCalls)
	assert.Equal(t, "cus_existing", first.CustomerID)
	assert.Equal(t, "cus_existing", second.CustomerID)
	assert.NotEqual(t, first.PaymentIntentID, second.PaymentIntentID)

	var count int64
	db.Model(&models.PaymentIntentRecord{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestCreatePaymentIntent_GatewayFailure(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	gw := billingtest.NewFakeGateway()
	gw.FailCreateIntent = assert.AnError
	svc := newBillingService(gw)

	_, err := svc.CreatePaymentIntent(context.Background(), db, "u1", "standard", "user@test.com", "User")

	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 500, appErr.HTTPCode)

	var count int64
	db.Model(&models.PaymentIntentRecord{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestGetUserSubscription_DefaultsToFree(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newBillingService(billingtest.NewFakeGateway())

	sub, err := svc.GetUserSubscription(context.Background(), db, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, sub.Plan)
	assert.Equal(t, models.SubscriptionStatusInactive, sub.Status)
	assert.Equal(t, billing.InviteLimitFree, sub.InviteLimit)

	// Виртуальный профиль ничего не пишет в базу
	var count int64
	db.Model(&models.UserSubscription{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestUseInvite_CreatesFreeRecordAndEnforcesLimit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newBillingService(billingtest.NewFakeGateway())
	ctx := context.Background()

	// Первое списание заводит free-запись
	sub, err := svc.UseInvite(ctx, db, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, sub.Plan)
	assert.Equal(t, 1, sub.CurrentInvites)
	assert.Equal(t, billing.InviteLimitFree, sub.InviteLimit)

	// Добиваем лимит
	for i := 1; i < billing.InviteLimitFree; i++ {
		_, err = svc.UseInvite(ctx, db, "u1")
		require.NoError(t, err)
	}

	_, err = svc.UseInvite(ctx, db, "u1")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 403, appErr.HTTPCode)
}
