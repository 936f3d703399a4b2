// Package billingtest - in-memory реализация billing.Gateway для тестов.
// Верификация подписи упрощена до сравнения с фиксированным заголовком,
// payload разбирается по той же схеме envelope, что и у провайдера.
package billingtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"invita_backend/internal/billing"
)

// ValidSignature - единственная подпись, которую фейк считает валидной.
const ValidSignature = "t=0,v1=test-signature"

type FakeGateway struct {
	mu sync.Mutex

	customers   map[string]*billing.Customer // by id
	emailIndex  map[string]string            // email -> id
	nextID      int
	intentCalls []billing.IntentParams

	CreateCustomerCalls int
	FindCustomerCalls   int

	// Принудительные ошибки для negative-кейсов
	FailFindCustomer   error
	FailCreateCustomer error
	FailCreateIntent   error
	FailGetCustomer    error
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		customers:  make(map[string]*billing.Customer),
		emailIndex: make(map[string]string),
	}
}

// SeedCustomer регистрирует существующего customer'а провайдера.
func (g *FakeGateway) SeedCustomer(c billing.Customer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := c
	g.customers[c.ID] = &cp
	if c.Email != "" {
		g.emailIndex[c.Email] = c.ID
	}
}

// IntentCalls возвращает параметры всех созданных интентов.
func (g *FakeGateway) IntentCalls() []billing.IntentParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]billing.IntentParams, len(g.intentCalls))
	copy(out, g.intentCalls)
	return out
}

func (g *FakeGateway) FindCustomerByEmail(ctx context.Context, email string) (*billing.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.FindCustomerCalls++
	if g.FailFindCustomer != nil {
		return nil, g.FailFindCustomer
	}

	id, ok := g.emailIndex[email]
	if !ok {
		return nil, nil
	}
	cp := *g.customers[id]
	return &cp, nil
}

func (g *FakeGateway) CreateCustomer(ctx context.Context, params billing.CustomerParams) (*billing.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.CreateCustomerCalls++
	if g.FailCreateCustomer != nil {
		return nil, g.FailCreateCustomer
	}

	g.nextID++
	cust := &billing.Customer{
		ID:       fmt.Sprintf("cus_fake_%d", g.nextID),
		Email:    params.Email,
		Name:     params.Name,
		Metadata: params.Metadata,
	}
	g.customers[cust.ID] = cust
	g.emailIndex[cust.Email] = cust.ID
	cp := *cust
	return &cp, nil
}

func (g *FakeGateway) GetCustomer(ctx context.Context, id string) (*billing.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailGetCustomer != nil {
		return nil, g.FailGetCustomer
	}

	cust, ok := g.customers[id]
	if !ok {
		return nil, errors.New("no such customer: " + id)
	}
	cp := *cust
	return &cp, nil
}

func (g *FakeGateway) CreatePaymentIntent(ctx context.Context, params billing.IntentParams) (*billing.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailCreateIntent != nil {
		return nil, g.FailCreateIntent
	}

	g.nextID++
	id := fmt.Sprintf("pi_fake_%d", g.nextID)
	g.intentCalls = append(g.intentCalls, params)

	return &billing.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		CustomerID:   params.CustomerID,
		Amount:       params.Amount,
		Currency:     params.Currency,
		Status:       "requires_payment_method",
	}, nil
}

// eventEnvelope повторяет форму события провайдера: объект лежит
// в data.object.
type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func (g *FakeGateway) VerifyWebhook(payload []byte, sigHeader string) (*billing.Event, error) {
	if sigHeader != ValidSignature {
		return nil, errors.New("signature mismatch")
	}

	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("malformed event payload: %w", err)
	}

	return &billing.Event{
		ID:   env.ID,
		Type: env.Type,
		Data: env.Data.Object,
	}, nil
}
