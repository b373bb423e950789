package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"roms_backend/internal/models"
	"roms_backend/internal/services"
	"roms_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// LocationHandler serves the public, code-scoped location endpoints.
type LocationHandler struct {
	locationService services.LocationService
	geofenceService services.GeofenceService
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(ls services.LocationService, gs services.GeofenceService) *LocationHandler {
	return &LocationHandler{locationService: ls, geofenceService: gs}
}

// resolveLocation maps the :code path param to an active location, writing
// the error response itself when the code does not resolve.
func resolveLocation(c *gin.Context, ls services.LocationService) (*models.Location, bool) {
	location, err := ls.GetByPublicCode(c.Param("code"))
	if err != nil {
		if errors.Is(err, services.ErrLocationNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Location not found.", err.Error()))
		} else {
			utils.LogError(err, "resolveLocation: failed to resolve location code")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to resolve location.", "Internal error"))
		}
		return nil, false
	}
	return location, true
}

// ShowLocation returns the customer-facing subset of a location record.
func (h *LocationHandler) ShowLocation(c *gin.Context) {
	location, ok := resolveLocation(c, h.locationService)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"restaurant_name": location.RestaurantName,
		"location_name":   location.LocationName,
		"address_line1":   location.AddressLine1,
		"address_line2":   location.AddressLine2,
		"phone":           location.Phone,
		"timezone":        location.Timezone,
		"tax_rate":        location.TaxRate,
		"public_code":     location.PublicCode,
	})
}

// GetMenu returns the active menu tree plus the location tax rate.
func (h *LocationHandler) GetMenu(c *gin.Context) {
	location, ok := resolveLocation(c, h.locationService)
	if !ok {
		return
	}
	menu, err := h.locationService.GetMenu(location.ID)
	if err != nil {
		utils.LogError(err, "GetMenu: Error from locationService.GetMenu")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to load menu.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"menu":     menu,
		"tax_rate": location.TaxRate,
	})
}

// VerifyGeofenceRequest carries the customer's reported position. Pointers so
// that zero coordinates still bind.
type VerifyGeofenceRequest struct {
	Latitude          *float64 `json:"latitude" binding:"required"`
	Longitude         *float64 `json:"longitude" binding:"required"`
	DeviceFingerprint *string  `json:"device_fingerprint"`
}

// VerifyGeofence checks the reported position against the location's
// geofence and, when inside, issues a short-lived ordering token.
func (h *LocationHandler) VerifyGeofence(c *gin.Context) {
	location, ok := resolveLocation(c, h.locationService)
	if !ok {
		return
	}

	var req VerifyGeofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}
	if *req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Coordinates out of range.", "latitude must be in [-90,90], longitude in [-180,180]"))
		return
	}

	result := h.geofenceService.Verify(location, *req.Latitude, *req.Longitude)
	if !result.IsValid {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "You are outside this restaurant's ordering area.",
			fmt.Sprintf("distance %.2fm exceeds allowed radius %dm", result.DistanceMeters, result.AllowedRadiusMeters)))
		return
	}

	ip := c.ClientIP()
	token, err := h.geofenceService.IssueToken(location, *req.Latitude, *req.Longitude, req.DeviceFingerprint, &ip)
	if err != nil {
		utils.LogError(err, "VerifyGeofence: Error from geofenceService.IssueToken")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to issue geo token.", "Internal error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"geo_token":             token.Token,
		"expires_at":            token.ExpiresAt,
		"distance_meters":       result.DistanceMeters,
		"allowed_radius_meters": result.AllowedRadiusMeters,
	})
}
