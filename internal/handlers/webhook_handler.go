package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sushiloyalty/loyalty-backend/internal/models"
	"github.com/sushiloyalty/loyalty-backend/internal/services"
)

// WebhookHandler handles events pushed by the commerce platform
type WebhookHandler struct {
	loyaltyService services.LoyaltyService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(loyaltyService services.LoyaltyService) *WebhookHandler {
	return &WebhookHandler{loyaltyService: loyaltyService}
}

type orderCompletedPayload struct {
	CustomerEmail   string           `json:"customerEmail" binding:"required"`
	OrderTotal      *decimal.Decimal `json:"orderTotal" binding:"required"`
	ExternalOrderID string           `json:"externalOrderId"`
}

// OrderCompleted handles POST /webhooks/order-completed. Any non-2xx answer
// makes the sender re-deliver, which is safe because deliveries are deduplicated.
func (h *WebhookHandler) OrderCompleted(c *gin.Context) {
	var payload orderCompletedPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.loyaltyService.ApplyPurchase(c.Request.Context(), models.OrderCompletedEvent{
		CustomerEmail:   payload.CustomerEmail,
		OrderTotal:      *payload.OrderTotal,
		ExternalOrderID: payload.ExternalOrderID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"pointsEarned": result.PointsEarned,
		"status":       result.Status,
		"duplicate":    result.Duplicate,
	})
}
