package services

// ServiceContainer - контейнер для передачи сервисов в слой хэндлеров.
type ServiceContainer struct {
	BillingService BillingService
	WebhookService WebhookService
}
