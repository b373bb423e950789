package services

import (
	"errors"
	"fmt"

	"roms_backend/internal/models"
	"roms_backend/internal/repositories"
)

var (
	ErrLocationNotFound     = errors.New("location not found")
	ErrLocationAccessDenied = errors.New("user has no access to this location")
)

// LocationService resolves public location codes, serves the menu tree and
// gates staff access to locations.
type LocationService interface {
	GetByPublicCode(code string) (*models.Location, error)
	GetMenu(locationID int64) ([]models.MenuCategory, error)
	// AuthorizeAccess returns ErrLocationAccessDenied unless the user is on
	// the location's staff roster. Admins pass unconditionally.
	AuthorizeAccess(userID int64, role string, locationID int64) error
}

type locationService struct {
	locationRepo repositories.LocationRepository
	menuRepo     repositories.MenuRepository
}

// NewLocationService creates a new instance of LocationService.
func NewLocationService(locationRepo repositories.LocationRepository, menuRepo repositories.MenuRepository) LocationService {
	return &locationService{
		locationRepo: locationRepo,
		menuRepo:     menuRepo,
	}
}

func (s *locationService) GetByPublicCode(code string) (*models.Location, error) {
	location, err := s.locationRepo.GetActiveByPublicCode(code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to resolve location code: %w", err)
	}
	return location, nil
}

func (s *locationService) GetMenu(locationID int64) ([]models.MenuCategory, error) {
	menu, err := s.menuRepo.GetMenuForLocation(locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu for location %d: %w", locationID, err)
	}
	return menu, nil
}

func (s *locationService) AuthorizeAccess(userID int64, role string, locationID int64) error {
	if role == models.RoleAdmin {
		return nil
	}
	ok, err := s.locationRepo.UserHasAccess(userID, locationID)
	if err != nil {
		return fmt.Errorf("failed to check location access: %w", err)
	}
	if !ok {
		return ErrLocationAccessDenied
	}
	return nil
}
