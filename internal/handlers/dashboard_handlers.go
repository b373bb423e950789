package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"roms_backend/internal/models"
	"roms_backend/internal/services"
	"roms_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the staff-facing order management endpoints. All
// routes are behind JWT auth; the location scope comes from a query/path
// param rather than a public code, and every action checks the caller's
// membership for that location.
type DashboardHandler struct {
	orderService    services.OrderService
	locationService services.LocationService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(os services.OrderService, ls services.LocationService) *DashboardHandler {
	return &DashboardHandler{orderService: os, locationService: ls}
}

func queryLocationID(c *gin.Context) (int64, bool) {
	locationID, err := utils.StrToInt64(c.Query("location_id"))
	if err != nil || locationID <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "A valid location_id query parameter is required.", ""))
		return 0, false
	}
	return locationID, true
}

// authorizeLocation enforces the caller's staff membership for a location.
func (h *DashboardHandler) authorizeLocation(c *gin.Context, locationID int64) bool {
	userID, _ := c.Get("userID")
	userRole, _ := c.Get("userRole")
	uid, _ := userID.(int64)
	role, _ := userRole.(string)
	if err := h.locationService.AuthorizeAccess(uid, role, locationID); err != nil {
		if errors.Is(err, services.ErrLocationAccessDenied) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "You do not have access to this location.", ""))
		} else {
			utils.LogError(err, "authorizeLocation: Error from locationService.AuthorizeAccess")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to check location access.", "Internal error"))
		}
		return false
	}
	return true
}

// fetchAuthorizedOrder resolves an order by path id and checks the caller
// may act on its location.
func (h *DashboardHandler) fetchAuthorizedOrder(c *gin.Context) (*models.Order, bool) {
	orderID, err := utils.StrToInt64(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid order ID.", err.Error()))
		return nil, false
	}
	order, err := h.orderService.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		} else {
			utils.LogError(err, "fetchAuthorizedOrder: Error from orderService.GetOrderByID")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch order.", "Internal error"))
		}
		return nil, false
	}
	if !h.authorizeLocation(c, order.LocationID) {
		return nil, false
	}
	return order, true
}

// ListOrders returns a paginated, filterable order list for a location.
func (h *DashboardHandler) ListOrders(c *gin.Context) {
	locationID, ok := queryLocationID(c)
	if !ok {
		return
	}
	if !h.authorizeLocation(c, locationID) {
		return
	}

	filters := models.OrderFilters{Page: 1, PageSize: 25}
	if status := c.Query("status"); status != "" {
		if !services.IsKnownStatus(status) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Unknown status filter.", status))
			return
		}
		filters.Status = &status
	}
	// The list defaults to today's service; "all" lifts the date filter.
	date := c.Query("date")
	switch date {
	case "":
		today := time.Now().Format("2006-01-02")
		filters.Date = &today
	case "all":
	default:
		filters.Date = &date
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		filters.Page = page
	}
	if pageSize, err := strconv.Atoi(c.Query("page_size")); err == nil && pageSize > 0 && pageSize <= 100 {
		filters.PageSize = pageSize
	}

	orders, totalCount, err := h.orderService.GetOrders(locationID, filters)
	if err != nil {
		utils.LogError(err, "ListOrders: Error from orderService.GetOrders")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to list orders.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":      orders,
		"total_count": totalCount,
		"page":        filters.Page,
		"page_size":   filters.PageSize,
	})
}

// PendingOrders returns the active kitchen queue, oldest first.
func (h *DashboardHandler) PendingOrders(c *gin.Context) {
	locationID, ok := queryLocationID(c)
	if !ok {
		return
	}
	if !h.authorizeLocation(c, locationID) {
		return
	}
	orders, err := h.orderService.GetPendingOrders(locationID)
	if err != nil {
		utils.LogError(err, "PendingOrders: Error from orderService.GetPendingOrders")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to list pending orders.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrder returns the full order tree by id.
func (h *DashboardHandler) GetOrder(c *gin.Context) {
	order, ok := h.fetchAuthorizedOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus applies a fulfillment state transition.
func (h *DashboardHandler) UpdateOrderStatus(c *gin.Context) {
	existing, ok := h.fetchAuthorizedOrder(c)
	if !ok {
		return
	}

	var req services.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	order, err := h.orderService.UpdateOrderStatus(existing.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		case errors.Is(err, services.ErrValidation):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid status update.", err.Error()))
		case errors.Is(err, services.ErrCannotTransition):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Status transition not allowed.", err.Error()))
		default:
			utils.LogError(err, "UpdateOrderStatus: Error from orderService.UpdateOrderStatus")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update order status.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

// MarkPaid settles a cash order at the counter.
func (h *DashboardHandler) MarkPaid(c *gin.Context) {
	existing, ok := h.fetchAuthorizedOrder(c)
	if !ok {
		return
	}

	order, err := h.orderService.MarkPaid(existing.ID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		case errors.Is(err, services.ErrNotCashOrder):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnprocessableEntity, utils.ErrCodeValidationFailed, "Only cash orders can be manually marked as paid.", err.Error()))
		case errors.Is(err, services.ErrAlreadyPaid):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Order is already paid.", err.Error()))
		default:
			utils.LogError(err, "MarkPaid: Error from orderService.MarkPaid")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to mark order as paid.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, order)
}
