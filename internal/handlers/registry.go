package handlers

type AppHandlers struct {
	BillingHandler *BillingHandler
	WebhookHandler *WebhookHandler
}
