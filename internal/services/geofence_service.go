package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"roms_backend/internal/config"
	"roms_backend/internal/models"
	"roms_backend/internal/repositories"
)

const earthRadiusMeters = 6371000.0

var ErrGeoTokenInvalid = errors.New("geo token is invalid, expired, or bound to another location")

// VerificationResult reports the outcome of a proximity check, with enough
// detail for the client to self-correct.
type VerificationResult struct {
	IsValid             bool    `json:"is_valid"`
	DistanceMeters      float64 `json:"distance_meters"`
	AllowedRadiusMeters int     `json:"allowed_radius_meters"`
}

// Haversine computes the great-circle distance in meters between two
// coordinate pairs. Pure and symmetric: Haversine(a, b) == Haversine(b, a).
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// GeofenceService verifies physical presence and manages geo tokens.
type GeofenceService interface {
	Verify(location *models.Location, userLat, userLng float64) VerificationResult
	// IssueToken persists a fresh single-use token. It does not re-check
	// proximity; call it only after Verify reports valid.
	IssueToken(location *models.Location, userLat, userLng float64, deviceFingerprint, ipAddress *string) (*models.GeoToken, error)
	// ValidateToken returns the token if it exists, has not expired, has not
	// been used, and belongs to the given location. It never mutates state.
	ValidateToken(token string, locationID int64) (*models.GeoToken, error)
}

type geofenceService struct {
	geoTokenRepo repositories.GeoTokenRepository
	cfg          config.GeofenceConfig
}

// NewGeofenceService creates a new instance of GeofenceService.
func NewGeofenceService(geoTokenRepo repositories.GeoTokenRepository, cfg config.GeofenceConfig) GeofenceService {
	return &geofenceService{
		geoTokenRepo: geoTokenRepo,
		cfg:          cfg,
	}
}

// allowedRadius resolves a location's effective geofence radius: the config
// default when the location does not set one, capped at the config maximum.
func (s *geofenceService) allowedRadius(location *models.Location) int {
	radius := location.GeofenceRadiusMeters
	if radius <= 0 {
		radius = s.cfg.DefaultRadiusMeters
	}
	if radius > s.cfg.MaxRadiusMeters {
		radius = s.cfg.MaxRadiusMeters
	}
	return radius
}

func (s *geofenceService) Verify(location *models.Location, userLat, userLng float64) VerificationResult {
	distance := Haversine(userLat, userLng, location.Latitude, location.Longitude)
	radius := s.allowedRadius(location)
	return VerificationResult{
		IsValid:             distance <= float64(radius),
		DistanceMeters:      math.Round(distance*100) / 100,
		AllowedRadiusMeters: radius,
	}
}

func (s *geofenceService) IssueToken(location *models.Location, userLat, userLng float64, deviceFingerprint, ipAddress *string) (*models.GeoToken, error) {
	secret, err := generateTokenSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate geo token secret: %w", err)
	}

	token := &models.GeoToken{
		LocationID:        location.ID,
		Token:             secret,
		DeviceFingerprint: deviceFingerprint,
		IPAddress:         ipAddress,
		VerifiedLatitude:  userLat,
		VerifiedLongitude: userLng,
		ExpiresAt:         time.Now().Add(s.cfg.TokenTTL),
	}
	if _, err := s.geoTokenRepo.Create(token); err != nil {
		return nil, fmt.Errorf("failed to persist geo token: %w", err)
	}
	return token, nil
}

func (s *geofenceService) ValidateToken(token string, locationID int64) (*models.GeoToken, error) {
	geoToken, err := s.geoTokenRepo.FindValidByToken(token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrGeoTokenInvalid
		}
		return nil, fmt.Errorf("failed to look up geo token: %w", err)
	}
	if geoToken.LocationID != locationID {
		return nil, ErrGeoTokenInvalid
	}
	if geoToken.UsedAt != nil {
		return nil, ErrGeoTokenInvalid
	}
	return geoToken, nil
}

// generateTokenSecret returns 32 random bytes hex-encoded: 256 bits of
// entropy in 64 characters.
func generateTokenSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
