package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sushiloyalty/loyalty-backend/internal/middleware"
	"github.com/sushiloyalty/loyalty-backend/internal/models"
	"github.com/sushiloyalty/loyalty-backend/internal/services"
	"github.com/sushiloyalty/loyalty-backend/internal/utils"
)

// LoyaltyHandler handles customer-facing loyalty requests
type LoyaltyHandler struct {
	loyaltyService services.LoyaltyService
}

// NewLoyaltyHandler creates a new LoyaltyHandler
func NewLoyaltyHandler(loyaltyService services.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{loyaltyService: loyaltyService}
}

// ClaimAccount handles POST /loyalty/claim
func (h *LoyaltyHandler) ClaimAccount(c *gin.Context) {
	var req models.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email, ok := callerEmail(c, req.Email)
	if !ok {
		return
	}
	req.Email = email

	result, err := h.loyaltyService.ClaimAccount(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Redeem handles POST /loyalty/redemptions
func (h *LoyaltyHandler) Redeem(c *gin.Context) {
	var req models.RedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email, ok := callerEmail(c, req.Email)
	if !ok {
		return
	}
	req.Email = email

	result, err := h.loyaltyService.Redeem(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetProfile handles GET /loyalty/profile
func (h *LoyaltyHandler) GetProfile(c *gin.Context) {
	profile, err := h.loyaltyService.GetProfile(c.Request.Context(), c.GetString(middleware.UserEmailKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":       profile,
		"currencyValue": h.loyaltyService.PointsToCurrency(profile.LoyaltyPoints),
	})
}

// GetTransactions handles GET /loyalty/transactions
func (h *LoyaltyHandler) GetTransactions(c *gin.Context) {
	entries, err := h.loyaltyService.History(c.Request.Context(), c.GetString(middleware.UserEmailKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}

// GetTiers handles GET /loyalty/tiers
func (h *LoyaltyHandler) GetTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tiers": h.loyaltyService.Tiers()})
}

// GetConversions handles GET /loyalty/conversions?euros= or ?points=
func (h *LoyaltyHandler) GetConversions(c *gin.Context) {
	if raw := c.Query("euros"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid euros amount"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"euros": amount, "points": h.loyaltyService.CurrencyToPoints(amount)})
		return
	}
	if raw := c.Query("points"); raw != "" {
		points, err := strconv.Atoi(raw)
		if err != nil || points < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid points amount"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"points": points, "euros": h.loyaltyService.PointsToCurrency(points)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Either euros or points is required"})
}

// callerEmail returns the authenticated email. A body email, when present,
// must name the same customer.
func callerEmail(c *gin.Context, bodyEmail string) (string, bool) {
	email := utils.NormalizeEmail(c.GetString(middleware.UserEmailKey))
	if email == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token carries no email"})
		return "", false
	}
	if bodyEmail != "" && utils.NormalizeEmail(bodyEmail) != email {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Email does not match the signed-in account"})
		return "", false
	}
	return email, true
}
