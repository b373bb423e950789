package handlers

import (
	"errors"
	"net/http"

	"roms_backend/internal/services"
	"roms_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// OrderHandler serves the customer checkout endpoints.
type OrderHandler struct {
	orderService    services.OrderService
	locationService services.LocationService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(os services.OrderService, ls services.LocationService) *OrderHandler {
	return &OrderHandler{orderService: os, locationService: ls}
}

// CreateOrder places a new order against a verified geo token.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	location, ok := resolveLocation(c, h.locationService)
	if !ok {
		return
	}

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	order, err := h.orderService.CreateOrder(location, req)
	if err != nil {
		utils.LogError(err, "CreateOrder: Error from orderService.CreateOrder")
		switch {
		case errors.Is(err, services.ErrGeoTokenInvalid):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Geo token is invalid or expired. Verify your location again.", err.Error()))
		case errors.Is(err, services.ErrGeoTokenUsed):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Geo token has already been used.", err.Error()))
		case errors.Is(err, services.ErrMenuItemNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnprocessableEntity, utils.ErrCodeValidationFailed, "One or more menu items are unavailable.", err.Error()))
		case errors.Is(err, services.ErrValidation):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid order.", err.Error()))
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrder returns the full order tree for the location in the path.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	location, ok := resolveLocation(c, h.locationService)
	if !ok {
		return
	}
	orderID, err := utils.StrToInt64(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid order ID.", err.Error()))
		return
	}

	order, err := h.orderService.GetOrderForLocation(location.ID, orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		} else {
			utils.LogError(err, "GetOrder: Error from orderService.GetOrderForLocation")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrderStatus returns the lightweight status view customers poll.
func (h *OrderHandler) GetOrderStatus(c *gin.Context) {
	location, ok := resolveLocation(c, h.locationService)
	if !ok {
		return
	}
	orderID, err := utils.StrToInt64(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid order ID.", err.Error()))
		return
	}

	order, err := h.orderService.GetOrderForLocation(location.ID, orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		} else {
			utils.LogError(err, "GetOrderStatus: Error from orderService.GetOrderForLocation")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_number":   order.OrderNumber,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"placed_at":      order.PlacedAt,
		"accepted_at":    order.AcceptedAt,
		"completed_at":   order.CompletedAt,
		"cancelled_at":   order.CancelledAt,
	})
}

// CalculateTotal prices a prospective cart without creating anything.
func (h *OrderHandler) CalculateTotal(c *gin.Context) {
	location, ok := resolveLocation(c, h.locationService)
	if !ok {
		return
	}

	var req services.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	totals, err := h.orderService.EstimateTotals(location, req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid cart.", err.Error()))
			return
		}
		utils.LogError(err, "CalculateTotal: Error from orderService.EstimateTotals")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to calculate totals.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, totals)
}
