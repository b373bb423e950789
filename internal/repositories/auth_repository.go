package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roms_backend/internal/models"

	"github.com/lib/pq"
)

// AuthRepository defines the data access for staff users.
type AuthRepository interface {
	CreateUser(user *models.User) (int64, error)
	FindUserByEmail(email string) (*models.User, error)
	FindUserByID(userID int64) (*models.User, error)
}

type authRepository struct {
	db *sql.DB
}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository(db *sql.DB) AuthRepository {
	return &authRepository{db: db}
}

func (r *authRepository) CreateUser(user *models.User) (int64, error) {
	query := `INSERT INTO users (email, password_hash, full_name, role, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	err := r.db.QueryRow(query,
		user.Email, user.PasswordHash, user.FullName, user.Role, user.IsActive,
		user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: user email '%s' already exists", ErrDuplicateKey, user.Email)
		}
		return 0, fmt.Errorf("%w: creating user: %v", ErrDatabaseError, err)
	}
	return user.ID, nil
}

func (r *authRepository) findUserWhere(clause string, args ...interface{}) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, password_hash, full_name, role, is_active, created_at, updated_at
	          FROM users WHERE ` + clause
	err := r.db.QueryRow(query, args...).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Role,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding user: %v", ErrDatabaseError, err)
	}
	return user, nil
}

func (r *authRepository) FindUserByEmail(email string) (*models.User, error) {
	return r.findUserWhere(`email = $1`, email)
}

func (r *authRepository) FindUserByID(userID int64) (*models.User, error) {
	return r.findUserWhere(`id = $1`, userID)
}
