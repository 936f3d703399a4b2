package handlers

import (
	"io"
	"net/http"

	"invita_backend/internal/logger"
	"invita_backend/internal/services"
	"invita_backend/internal/validator"
	"invita_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// Stripe режет payload на 64KB, но оставляем запас на будущие типы событий.
const maxWebhookBodyBytes = 1 << 20 // 1 MiB

// WebhookHandler принимает callback'и платежного провайдера.
// Тело читается сырым: проверка подписи требует байты как есть,
// до любого JSON-биндинга.
type WebhookHandler struct {
	*BaseHandler
	webhookService services.WebhookService
}

func NewWebhookHandler(v *validator.Validator, webhookService services.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    NewBaseHandler(v),
		webhookService: webhookService,
	}
}

func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	// No auth - external callback, авторизация через подпись провайдера
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/stripe", h.HandleStripeWebhook)
	}
}

// HandleStripeWebhook - POST /api/v1/webhooks/stripe
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.CtxWithError(ctx, "Failed to read webhook body", err)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Failed to read request body"))
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")

	result, err := h.webhookService.Process(ctx, h.GetDB(c), payload, sigHeader)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	switch result.Outcome {
	case services.OutcomeFailed:
		// 5xx заставит Stripe повторить доставку
		h.HandleServiceError(c, apperrors.ErrWebhookProcessing(result.Err))
	case services.OutcomeSkipped:
		logger.CtxInfo(ctx, "Webhook event skipped", "reason", result.Reason)
		c.JSON(http.StatusOK, gin.H{"received": true, "skipped": result.Reason})
	default:
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
