package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roms_backend/internal/models"
)

// GeoTokenRepository defines the data access for geofence tokens.
type GeoTokenRepository interface {
	Create(token *models.GeoToken) (int64, error)
	// FindValidByToken returns the token row if it exists and has not expired.
	// It does not check or mutate used_at; consumption is a separate step.
	FindValidByToken(token string) (*models.GeoToken, error)
	// Consume marks the token used. The update is guarded by "not already
	// used, not expired" so concurrent consumers race for a single success;
	// losers receive ErrNotFound.
	Consume(executor SQLExecutor, tokenID int64, usedAt time.Time) error
}

type geoTokenRepository struct {
	db *sql.DB
}

// NewGeoTokenRepository creates a new instance of GeoTokenRepository.
func NewGeoTokenRepository(db *sql.DB) GeoTokenRepository {
	return &geoTokenRepository{db: db}
}

func (r *geoTokenRepository) Create(token *models.GeoToken) (int64, error) {
	query := `INSERT INTO geo_tokens
	            (location_id, token, device_fingerprint, ip_address,
	             verified_latitude, verified_longitude, expires_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	err := r.db.QueryRow(query,
		token.LocationID, token.Token, token.DeviceFingerprint, token.IPAddress,
		token.VerifiedLatitude, token.VerifiedLongitude, token.ExpiresAt, token.CreatedAt,
	).Scan(&token.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating geo token: %v", ErrDatabaseError, err)
	}
	return token.ID, nil
}

func (r *geoTokenRepository) FindValidByToken(token string) (*models.GeoToken, error) {
	gt := &models.GeoToken{}
	query := `SELECT id, location_id, token, device_fingerprint, ip_address,
	                 verified_latitude, verified_longitude, expires_at, used_at, created_at
	          FROM geo_tokens
	          WHERE token = $1 AND expires_at > $2`
	err := r.db.QueryRow(query, token, time.Now()).Scan(
		&gt.ID, &gt.LocationID, &gt.Token, &gt.DeviceFingerprint, &gt.IPAddress,
		&gt.VerifiedLatitude, &gt.VerifiedLongitude, &gt.ExpiresAt, &gt.UsedAt, &gt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding geo token: %v", ErrDatabaseError, err)
	}
	return gt, nil
}

func (r *geoTokenRepository) Consume(executor SQLExecutor, tokenID int64, usedAt time.Time) error {
	query := `UPDATE geo_tokens SET used_at = $1
	          WHERE id = $2 AND used_at IS NULL AND expires_at > $1`
	result, err := executor.Exec(query, usedAt, tokenID)
	if err != nil {
		return fmt.Errorf("%w: consuming geo token ID %d: %v", ErrDatabaseError, tokenID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for geo token ID %d: %v", ErrDatabaseError, tokenID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
