package handlers

import (
	"net/http"

	"invita_backend/internal/logger"
	"invita_backend/internal/models"
	"invita_backend/internal/services"
	"invita_backend/internal/validator"
	"invita_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// BillingHandler обслуживает каталог планов, выпуск PaymentIntent,
// историю платежей и операции над подпиской текущего пользователя.
type BillingHandler struct {
	*BaseHandler
	billingService services.BillingService
}

func NewBillingHandler(v *validator.Validator, billingService services.BillingService) *BillingHandler {
	return &BillingHandler{
		BaseHandler:    NewBaseHandler(v),
		billingService: billingService,
	}
}

func (h *BillingHandler) RegisterRoutes(r *gin.RouterGroup, authMW gin.HandlerFunc) {
	// Public routes - каталог планов
	plans := r.Group("/plans")
	{
		plans.GET("", h.ListPlans)
		plans.GET("/:planId", h.GetPlan)
	}

	// Protected routes - платежи
	payments := r.Group("/payments")
	payments.Use(authMW)
	{
		payments.POST("/intent", h.CreatePaymentIntent)
		payments.GET("/history", h.GetPaymentHistory)
	}

	// Protected routes - подписка пользователя
	subscriptions := r.Group("/subscriptions")
	subscriptions.Use(authMW)
	{
		subscriptions.GET("/my", h.GetMySubscription)
	}

	invites := r.Group("/invites")
	invites.Use(authMW)
	{
		invites.POST("/use", h.UseInvite)
	}
}

type customerInfoRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=1,max=200"`
}

type createIntentRequest struct {
	PlanID       string              `json:"planId" validate:"required"`
	CustomerInfo customerInfoRequest `json:"customerInfo" validate:"required"`
}

// CreatePaymentIntent - POST /api/v1/payments/intent
func (h *BillingHandler) CreatePaymentIntent(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req createIntentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)
	resp, err := h.billingService.CreatePaymentIntent(
		c.Request.Context(), db,
		userID, req.PlanID, req.CustomerInfo.Email, req.CustomerInfo.Name,
	)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	logger.CtxInfo(c.Request.Context(), "Payment intent issued",
		"plan_id", req.PlanID,
		"payment_intent_id", resp.PaymentIntentID,
	)
	c.JSON(http.StatusOK, resp)
}

// GetPaymentHistory - GET /api/v1/payments/history
func (h *BillingHandler) GetPaymentHistory(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	transactions, err := h.billingService.GetPaymentHistory(c.Request.Context(), db, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	// Пустая история - валидный ответ, а не 404
	if transactions == nil {
		transactions = []models.PaymentTransaction{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// ListPlans - GET /api/v1/plans
func (h *BillingHandler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": h.billingService.Plans()})
}

// GetPlan - GET /api/v1/plans/:planId
func (h *BillingHandler) GetPlan(c *gin.Context) {
	planID := c.Param("planId")

	plan, err := h.billingService.Plan(models.PlanID(planID))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GetMySubscription - GET /api/v1/subscriptions/my
func (h *BillingHandler) GetMySubscription(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	sub, err := h.billingService.GetUserSubscription(c.Request.Context(), db, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// UseInvite - POST /api/v1/invites/use
// Атомарно расходует одно приглашение из лимита текущего плана.
func (h *BillingHandler) UseInvite(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	sub, err := h.billingService.UseInvite(c.Request.Context(), db, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"currentInvites": sub.CurrentInvites,
		"inviteLimit":    sub.InviteLimit,
		"plan":           sub.Plan,
	})
}
