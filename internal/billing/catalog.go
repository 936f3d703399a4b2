package billing

import (
	"invita_backend/internal/config"
	"invita_backend/internal/models"
)

// Лимиты приглашений по планам. Premium формально безлимитный,
// в базе хранится большой сентинел.
const (
	InviteLimitFree      = 5
	InviteLimitStandard  = 200
	InviteLimitUnlimited = 999999
)

// Plan - позиция каталога тарифов. Amount в минорных единицах.
type Plan struct {
	ID          models.PlanID `json:"id"`
	Name        string        `json:"name"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	InviteLimit int           `json:"invite_limit"`
	Features    []string      `json:"features"`
}

// Catalog - статический справочник планов. Инжектится при старте,
// сервисы не читают его из глобального состояния.
type Catalog struct {
	plans map[models.PlanID]Plan
	order []models.PlanID
}

// DefaultCatalog - планы по умолчанию, когда в конфиге нет переопределений.
func DefaultCatalog() *Catalog {
	return newCatalog([]Plan{
		{
			ID:          models.PlanFree,
			Name:        "Free",
			Amount:      0,
			Currency:    "eur",
			InviteLimit: InviteLimitFree,
			Features:    []string{"basic_templates"},
		},
		{
			ID:          models.PlanStandard,
			Name:        "Standard",
			Amount:      9900,
			Currency:    "eur",
			InviteLimit: InviteLimitStandard,
			Features:    []string{"all_templates", "guest_tables", "rsvp_messages"},
		},
		{
			ID:          models.PlanPremium,
			Name:        "Premium",
			Amount:      20000,
			Currency:    "eur",
			InviteLimit: InviteLimitUnlimited,
			Features:    []string{"all_templates", "guest_tables", "rsvp_messages", "unlimited_invites", "priority_support"},
		},
	})
}

// CatalogFromConfig собирает каталог из конфига; пустой список - дефолты.
func CatalogFromConfig(cfgPlans []config.PlanConfig) *Catalog {
	if len(cfgPlans) == 0 {
		return DefaultCatalog()
	}

	plans := make([]Plan, 0, len(cfgPlans))
	for _, p := range cfgPlans {
		plans = append(plans, Plan{
			ID:          models.PlanID(p.ID),
			Name:        p.Name,
			Amount:      p.Amount,
			Currency:    p.Currency,
			InviteLimit: p.InviteLimit,
		})
	}
	return newCatalog(plans)
}

func newCatalog(plans []Plan) *Catalog {
	c := &Catalog{plans: make(map[models.PlanID]Plan, len(plans))}
	for _, p := range plans {
		c.plans[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c
}

// Get возвращает план по ID
func (c *Catalog) Get(id models.PlanID) (Plan, bool) {
	p, ok := c.plans[id]
	return p, ok
}

// List возвращает планы в порядке объявления
func (c *Catalog) List() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plans[id])
	}
	return out
}

// Purchasable - можно ли купить план (free покупке не подлежит)
func (c *Catalog) Purchasable(id models.PlanID) bool {
	p, ok := c.plans[id]
	return ok && p.Amount > 0
}

// LimitFor выводит лимит приглашений из плана. Неизвестный план
// трактуется как free.
func (c *Catalog) LimitFor(id models.PlanID) int {
	if p, ok := c.plans[id]; ok {
		return p.InviteLimit
	}
	return InviteLimitFree
}
