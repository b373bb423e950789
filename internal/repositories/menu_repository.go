package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"roms_backend/internal/models"
)

// MenuRepository defines the read-side data access for menus. Menu editing is
// handled elsewhere; the ordering core only resolves items and lists menus.
type MenuRepository interface {
	GetItemByID(itemID int64) (*models.MenuItem, error)
	GetMenuForLocation(locationID int64) ([]models.MenuCategory, error)
}

type menuRepository struct {
	db *sql.DB
}

// NewMenuRepository creates a new instance of MenuRepository.
func NewMenuRepository(db *sql.DB) MenuRepository {
	return &menuRepository{db: db}
}

func (r *menuRepository) GetItemByID(itemID int64) (*models.MenuItem, error) {
	item := &models.MenuItem{}
	query := `SELECT id, category_id, name, description, price_cents, photo_url,
	                 is_available, sort_order, created_at, updated_at
	          FROM menu_items
	          WHERE id = $1`
	err := r.db.QueryRow(query, itemID).Scan(
		&item.ID, &item.CategoryID, &item.Name, &item.Description, &item.PriceCents,
		&item.PhotoURL, &item.IsAvailable, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting menu item by ID %d: %v", ErrDatabaseError, itemID, err)
	}
	return item, nil
}

// GetMenuForLocation returns the active categories with their available items,
// options and option values, fully populated for a single response.
func (r *menuRepository) GetMenuForLocation(locationID int64) ([]models.MenuCategory, error) {
	categories := []models.MenuCategory{}
	catQuery := `SELECT id, location_id, name, sort_order, is_active, created_at, updated_at
	             FROM menu_categories
	             WHERE location_id = $1 AND is_active = TRUE
	             ORDER BY sort_order, id`
	rows, err := r.db.Query(catQuery, locationID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying menu categories for location %d: %v", ErrDatabaseError, locationID, err)
	}
	defer rows.Close()

	catIndex := map[int64]int{}
	for rows.Next() {
		var cat models.MenuCategory
		if err := rows.Scan(&cat.ID, &cat.LocationID, &cat.Name, &cat.SortOrder, &cat.IsActive, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning menu category: %v", ErrDatabaseError, err)
		}
		catIndex[cat.ID] = len(categories)
		categories = append(categories, cat)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating menu categories: %v", ErrDatabaseError, err)
	}
	if len(categories) == 0 {
		return categories, nil
	}

	itemQuery := `SELECT mi.id, mi.category_id, mi.name, mi.description, mi.price_cents,
	                     mi.photo_url, mi.is_available, mi.sort_order, mi.created_at, mi.updated_at
	              FROM menu_items mi
	              JOIN menu_categories mc ON mi.category_id = mc.id
	              WHERE mc.location_id = $1 AND mc.is_active = TRUE AND mi.is_available = TRUE
	              ORDER BY mi.sort_order, mi.id`
	itemRows, err := r.db.Query(itemQuery, locationID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying menu items for location %d: %v", ErrDatabaseError, locationID, err)
	}
	defer itemRows.Close()

	itemIndex := map[int64][2]int{} // item ID -> (category slice index, item slice index)
	for itemRows.Next() {
		var item models.MenuItem
		if err := itemRows.Scan(&item.ID, &item.CategoryID, &item.Name, &item.Description, &item.PriceCents,
			&item.PhotoURL, &item.IsAvailable, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning menu item: %v", ErrDatabaseError, err)
		}
		ci, ok := catIndex[item.CategoryID]
		if !ok {
			continue
		}
		itemIndex[item.ID] = [2]int{ci, len(categories[ci].Items)}
		categories[ci].Items = append(categories[ci].Items, item)
	}
	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating menu items: %v", ErrDatabaseError, err)
	}

	optQuery := `SELECT o.id, o.item_id, o.name, o.sort_order,
	                    v.id, v.option_id, v.name, v.price_delta_cents, v.is_available, v.sort_order
	             FROM menu_item_options o
	             JOIN menu_items mi ON o.item_id = mi.id
	             JOIN menu_categories mc ON mi.category_id = mc.id
	             LEFT JOIN menu_item_option_values v ON v.option_id = o.id AND v.is_available = TRUE
	             WHERE mc.location_id = $1 AND mc.is_active = TRUE AND mi.is_available = TRUE
	             ORDER BY o.item_id, o.sort_order, o.id, v.sort_order, v.id`
	optRows, err := r.db.Query(optQuery, locationID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying menu item options for location %d: %v", ErrDatabaseError, locationID, err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt models.MenuItemOption
		var valID, valOptionID sql.NullInt64
		var valName sql.NullString
		var valDelta sql.NullInt64
		var valAvailable sql.NullBool
		var valSort sql.NullInt64
		if err := optRows.Scan(&opt.ID, &opt.ItemID, &opt.Name, &opt.SortOrder,
			&valID, &valOptionID, &valName, &valDelta, &valAvailable, &valSort); err != nil {
			return nil, fmt.Errorf("%w: scanning menu item option: %v", ErrDatabaseError, err)
		}
		loc, ok := itemIndex[opt.ItemID]
		if !ok {
			continue
		}
		item := &categories[loc[0]].Items[loc[1]]

		// Rows arrive ordered by option; append a new option on first sight.
		if len(item.Options) == 0 || item.Options[len(item.Options)-1].ID != opt.ID {
			item.Options = append(item.Options, opt)
		}
		if valID.Valid {
			option := &item.Options[len(item.Options)-1]
			option.Values = append(option.Values, models.MenuItemOptionValue{
				ID:              valID.Int64,
				OptionID:        valOptionID.Int64,
				Name:            valName.String,
				PriceDeltaCents: valDelta.Int64,
				IsAvailable:     valAvailable.Bool,
				SortOrder:       int(valSort.Int64),
			})
		}
	}
	if err = optRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating menu item options: %v", ErrDatabaseError, err)
	}

	return categories, nil
}
