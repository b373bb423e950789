package repositories

import (
	"database/sql"
	"fmt"
)

// SequenceRepository assigns location-scoped, date-scoped order numbers.
type SequenceRepository interface {
	// NextOrderNumber returns the next order number for (locationID, date).
	// date must be a calendar day string (YYYY-MM-DD), normally the location's
	// current day. Call it inside the order-creation transaction: the upsert
	// serializes concurrent callers on the (location, day) row, so numbers are
	// strictly increasing and never duplicated, including for two concurrent
	// first orders of a new day.
	NextOrderNumber(executor SQLExecutor, locationID int64, date string) (int, error)
}

type sequenceRepository struct {
	db *sql.DB
}

// NewSequenceRepository creates a new instance of SequenceRepository.
func NewSequenceRepository(db *sql.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) NextOrderNumber(executor SQLExecutor, locationID int64, date string) (int, error) {
	// Single atomic increment-and-read. ON CONFLICT takes the row lock held
	// until the surrounding transaction commits, which is what makes a
	// rolled-back order leave at worst a skipped number, never a duplicate.
	query := `INSERT INTO order_sequences (location_id, sequence_date, last_order_number, created_at, updated_at)
	          VALUES ($1, $2, 1, NOW(), NOW())
	          ON CONFLICT (location_id, sequence_date)
	          DO UPDATE SET last_order_number = order_sequences.last_order_number + 1, updated_at = NOW()
	          RETURNING last_order_number`
	var number int
	if err := executor.QueryRow(query, locationID, date).Scan(&number); err != nil {
		return 0, fmt.Errorf("%w: assigning order number for location %d on %s: %v", ErrDatabaseError, locationID, date, err)
	}
	return number, nil
}
