package billing

import (
	"testing"

	"invita_backend/internal/config"
	"invita_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()

	free, ok := catalog.Get(models.PlanFree)
	require.True(t, ok)
	assert.Equal(t, int64(0), free.Amount)
	assert.Equal(t, InviteLimitFree, free.InviteLimit)

	standard, ok := catalog.Get(models.PlanStandard)
	require.True(t, ok)
	assert.Equal(t, int64(9900), standard.Amount)
	assert.Equal(t, "eur", standard.Currency)
	assert.Equal(t, InviteLimitStandard, standard.InviteLimit)

	premium, ok := catalog.Get(models.PlanPremium)
	require.True(t, ok)
	assert.Equal(t, int64(20000), premium.Amount)
	assert.Equal(t, InviteLimitUnlimited, premium.InviteLimit)

	_, ok = catalog.Get("enterprise")
	assert.False(t, ok)
}

func TestCatalogPurchasable(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()

	// Бесплатный план покупать нельзя
	assert.False(t, catalog.Purchasable(models.PlanFree))
	assert.True(t, catalog.Purchasable(models.PlanStandard))
	assert.True(t, catalog.Purchasable(models.PlanPremium))
	assert.False(t, catalog.Purchasable("enterprise"))
}

func TestCatalogLimitFor(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()

	assert.Equal(t, InviteLimitStandard, catalog.LimitFor(models.PlanStandard))
	assert.Equal(t, InviteLimitUnlimited, catalog.LimitFor(models.PlanPremium))
	// Неизвестный план деградирует до free-лимита
	assert.Equal(t, InviteLimitFree, catalog.LimitFor("enterprise"))
}

func TestCatalogFromConfig(t *testing.T) {
	t.Parallel()

	// Пустой конфиг - дефолтный каталог
	catalog := CatalogFromConfig(nil)
	_, ok := catalog.Get(models.PlanStandard)
	assert.True(t, ok)

	// Переопределение из конфига
	catalog = CatalogFromConfig([]config.PlanConfig{
		{ID: "pro", Name: "Pro", Amount: 4900, Currency: "usd", InviteLimit: 100},
	})
	pro, ok := catalog.Get("pro")
	require.True(t, ok)
	assert.Equal(t, int64(4900), pro.Amount)
	assert.Equal(t, 100, pro.InviteLimit)

	_, ok = catalog.Get(models.PlanStandard)
	assert.False(t, ok)
}
