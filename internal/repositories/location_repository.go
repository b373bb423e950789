package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"roms_backend/internal/models"
)

// LocationRepository defines the read-side data access for restaurant locations.
type LocationRepository interface {
	GetActiveByPublicCode(publicCode string) (*models.Location, error)
	GetByID(id int64) (*models.Location, error)
	// UserHasAccess reports whether the user is a member of the location's
	// staff roster.
	UserHasAccess(userID, locationID int64) (bool, error)
}

type locationRepository struct {
	db *sql.DB
}

// NewLocationRepository creates a new instance of LocationRepository.
func NewLocationRepository(db *sql.DB) LocationRepository {
	return &locationRepository{db: db}
}

const locationColumns = `id, restaurant_name, location_name, address_line1, address_line2,
	latitude, longitude, geofence_radius_meters, public_code, timezone, tax_rate,
	is_active, phone, created_at, updated_at`

func scanLocation(row *sql.Row) (*models.Location, error) {
	loc := &models.Location{}
	err := row.Scan(
		&loc.ID, &loc.RestaurantName, &loc.LocationName, &loc.AddressLine1, &loc.AddressLine2,
		&loc.Latitude, &loc.Longitude, &loc.GeofenceRadiusMeters, &loc.PublicCode, &loc.Timezone,
		&loc.TaxRate, &loc.IsActive, &loc.Phone, &loc.CreatedAt, &loc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning location: %v", ErrDatabaseError, err)
	}
	return loc, nil
}

func (r *locationRepository) GetActiveByPublicCode(publicCode string) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE public_code = $1 AND is_active = TRUE`
	return scanLocation(r.db.QueryRow(query, publicCode))
}

func (r *locationRepository) GetByID(id int64) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`
	return scanLocation(r.db.QueryRow(query, id))
}

func (r *locationRepository) UserHasAccess(userID, locationID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM location_users WHERE user_id = $1 AND location_id = $2)`
	var exists bool
	if err := r.db.QueryRow(query, userID, locationID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: checking location access for user %d: %v", ErrDatabaseError, userID, err)
	}
	return exists, nil
}
