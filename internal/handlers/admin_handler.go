package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sushiloyalty/loyalty-backend/internal/services"
)

// AdminHandler handles back-office lookups
type AdminHandler struct {
	loyaltyService services.LoyaltyService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(loyaltyService services.LoyaltyService) *AdminHandler {
	return &AdminHandler{loyaltyService: loyaltyService}
}

// GetProfile handles GET /admin/profiles/:email
func (h *AdminHandler) GetProfile(c *gin.Context) {
	profile, err := h.loyaltyService.GetProfile(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetTransactions handles GET /admin/profiles/:email/transactions
func (h *AdminHandler) GetTransactions(c *gin.Context) {
	entries, err := h.loyaltyService.History(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}

// Reconcile handles GET /admin/profiles/:email/reconciliation
func (h *AdminHandler) Reconcile(c *gin.Context) {
	report, err := h.loyaltyService.Reconcile(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
