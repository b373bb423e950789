package handlers

import (
	"errors"
	"net/http"

	"roms_backend/internal/services"
	"roms_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// PaymentHandler serves the customer card payment endpoint.
type PaymentHandler struct {
	paymentService  services.PaymentService
	locationService services.LocationService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ps services.PaymentService, ls services.LocationService) *PaymentHandler {
	return &PaymentHandler{paymentService: ps, locationService: ls}
}

// CreatePaymentIntent opens a gateway payment intent for a card order and
// returns the client secret the customer app confirms against.
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	location, ok := resolveLocation(c, h.locationService)
	if !ok {
		return
	}
	orderID, err := utils.StrToInt64(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid order ID.", err.Error()))
		return
	}

	intent, err := h.paymentService.CreatePaymentIntent(location.ID, orderID)
	if err != nil {
		utils.LogError(err, "CreatePaymentIntent: Error from paymentService.CreatePaymentIntent")
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		case errors.Is(err, services.ErrNotCardOrder):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnprocessableEntity, utils.ErrCodeValidationFailed, "This order is not a card order.", err.Error()))
		case errors.Is(err, services.ErrAlreadyPaid):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Order is already paid.", err.Error()))
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadGateway, utils.ErrCodeInternalServerError, "Failed to create payment intent.", "Payment gateway error"))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_intent_id": intent.ID,
		"client_secret":     intent.ClientSecret,
		"amount_cents":      intent.Amount,
		"currency":          intent.Currency,
	})
}
