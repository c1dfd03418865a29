package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sushiloyalty/loyalty-backend/internal/repositories"
	"github.com/sushiloyalty/loyalty-backend/internal/services"
)

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var insufficient *services.InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":     insufficient.Error(),
			"shortfall": insufficient.Shortfall(),
			"balance":   insufficient.Available,
			"required":  insufficient.Required,
		})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrExternalService):
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Coupon service is unavailable, please try again"})
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
