package apperrors

import (
	"net/http"
)

/*
Фабрики и предопределенные переменные для доменных ошибок
биллинга и подписок.
*/

// ErrNotFound - фабрика для ошибки "не найдено" (404)
// Используется, когда ошибка репозитория (типа gorm.ErrRecordNotFound)
// должна быть преобразована в AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrUnknownPlan - запрошен план, которого нет в каталоге.
func ErrUnknownPlan(planID string) *AppError {
	return New(CodeValidationFailed, "billing", "Unknown plan: "+planID, http.StatusBadRequest).
		WithDetails(map[string]string{"plan_id": planID})
}

// ErrPaymentGateway - общая ошибка интеграции с платежным провайдером.
// Детали провайдера наружу не отдаются, только в лог.
func ErrPaymentGateway(err error, message string) *AppError {
	return Wrap(err, CodeExternalServiceError, "billing", message, http.StatusInternalServerError)
}

// ErrCustomerOperation - не удалось найти/создать customer у провайдера.
func ErrCustomerOperation(err error) *AppError {
	return ErrPaymentGateway(err, "Customer operation failed")
}

// ErrWebhookSignature - подпись webhook-события не прошла проверку.
var ErrWebhookSignature = New(
	CodeUnauthorized,
	"webhook",
	"Invalid webhook signature",
	http.StatusBadRequest, // провайдер ожидает 400, а не 401
)

// ErrWebhookProcessing - обработчик события упал; 5xx заставит провайдера
// повторить доставку.
func ErrWebhookProcessing(err error) *AppError {
	return Wrap(err, CodeInternalError, "webhook", "Webhook processing failed", http.StatusInternalServerError)
}

// ErrInviteLimit - лимит приглашений по текущей подписке исчерпан.
var ErrInviteLimit = New(
	CodeLimitExceeded,
	"subscription",
	"Invite limit for the current plan has been reached",
	http.StatusForbidden,
)

// ErrSubscriptionNotFound - у пользователя нет записи подписки.
var ErrSubscriptionNotFound = New(
	CodeNotFound,
	"subscription",
	"Subscription not found",
	http.StatusNotFound,
)
