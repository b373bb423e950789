package models

import "time"

// Location is a single physical restaurant site. The public code is the only
// identifier exposed in customer-facing URLs; it is unique and immutable.
type Location struct {
	ID                   int64     `json:"id"`
	RestaurantName       string    `json:"restaurant_name"`
	LocationName         string    `json:"location_name"`
	AddressLine1         string    `json:"address_line1"`
	AddressLine2         *string   `json:"address_line2,omitempty"`
	Latitude             float64   `json:"latitude"`
	Longitude            float64   `json:"longitude"`
	GeofenceRadiusMeters int       `json:"geofence_radius_meters"`
	PublicCode           string    `json:"public_code"`
	Timezone             string    `json:"timezone"`
	TaxRate              float64   `json:"tax_rate"`
	IsActive             bool      `json:"is_active"`
	Phone                *string   `json:"phone,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// GeoToken proves that a coordinate pair was verified within a location's
// geofence. A token is single-use: consuming it sets UsedAt and any further
// attempt to consume it must fail.
type GeoToken struct {
	ID                int64      `json:"id"`
	LocationID        int64      `json:"location_id"`
	Token             string     `json:"token"`
	DeviceFingerprint *string    `json:"device_fingerprint,omitempty"`
	IPAddress         *string    `json:"ip_address,omitempty"`
	VerifiedLatitude  float64    `json:"verified_latitude"`
	VerifiedLongitude float64    `json:"verified_longitude"`
	ExpiresAt         time.Time  `json:"expires_at"`
	UsedAt            *time.Time `json:"used_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
