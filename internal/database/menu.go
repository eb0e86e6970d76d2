package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listMenuCategories = `
SELECT id, name, is_active, created_at
FROM menu_categories
ORDER BY id
`

func (q *Queries) ListMenuCategories(ctx context.Context) ([]MenuCategory, error) {
	rows, err := q.db.Query(ctx, listMenuCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MenuCategory
	for rows.Next() {
		var c MenuCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const createMenuCategory = `
INSERT INTO menu_categories (name)
VALUES ($1)
RETURNING id, name, is_active, created_at
`

func (q *Queries) CreateMenuCategory(ctx context.Context, name string) (MenuCategory, error) {
	var c MenuCategory
	err := q.db.QueryRow(ctx, createMenuCategory, name).
		Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt)
	return c, err
}

const updateMenuCategory = `
UPDATE menu_categories
SET name = $2, is_active = $3
WHERE id = $1
RETURNING id, name, is_active, created_at
`

type UpdateMenuCategoryParams struct {
	ID       int64
	Name     string
	IsActive bool
}

func (q *Queries) UpdateMenuCategory(ctx context.Context, arg UpdateMenuCategoryParams) (MenuCategory, error) {
	var c MenuCategory
	err := q.db.QueryRow(ctx, updateMenuCategory, arg.ID, arg.Name, arg.IsActive).
		Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt)
	return c, err
}

const listMenuItems = `
SELECT id, category_id, name, price, is_available, option_type, created_at, updated_at
FROM menu_items
WHERE ($1::bigint = 0 OR category_id = $1)
  AND (NOT $2::boolean OR is_available)
ORDER BY category_id, id
`

type ListMenuItemsParams struct {
	CategoryID    int64
	AvailableOnly bool
}

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, arg.CategoryID, arg.AvailableOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Price, &m.IsAvailable,
			&m.OptionType, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const getMenuItem = `
SELECT id, category_id, name, price, is_available, option_type, created_at, updated_at
FROM menu_items
WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id int64) (MenuItem, error) {
	var m MenuItem
	err := q.db.QueryRow(ctx, getMenuItem, id).
		Scan(&m.ID, &m.CategoryID, &m.Name, &m.Price, &m.IsAvailable,
			&m.OptionType, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const createMenuItem = `
INSERT INTO menu_items (category_id, name, price, option_type)
VALUES ($1, $2, $3, $4)
RETURNING id, category_id, name, price, is_available, option_type, created_at, updated_at
`

type CreateMenuItemParams struct {
	CategoryID int64
	Name       string
	Price      pgtype.Numeric
	OptionType string
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	var m MenuItem
	err := q.db.QueryRow(ctx, createMenuItem, arg.CategoryID, arg.Name, arg.Price, arg.OptionType).
		Scan(&m.ID, &m.CategoryID, &m.Name, &m.Price, &m.IsAvailable,
			&m.OptionType, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const updateMenuItem = `
UPDATE menu_items
SET category_id = $2, name = $3, price = $4, option_type = $5, updated_at = now()
WHERE id = $1
RETURNING id, category_id, name, price, is_available, option_type, created_at, updated_at
`

type UpdateMenuItemParams struct {
	ID         int64
	CategoryID int64
	Name       string
	Price      pgtype.Numeric
	OptionType string
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	var m MenuItem
	err := q.db.QueryRow(ctx, updateMenuItem, arg.ID, arg.CategoryID, arg.Name, arg.Price, arg.OptionType).
		Scan(&m.ID, &m.CategoryID, &m.Name, &m.Price, &m.IsAvailable,
			&m.OptionType, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const setMenuItemAvailability = `
UPDATE menu_items
SET is_available = $2, updated_at = now()
WHERE id = $1
RETURNING id, category_id, name, price, is_available, option_type, created_at, updated_at
`

type SetMenuItemAvailabilityParams struct {
	ID          int64
	IsAvailable bool
}

func (q *Queries) SetMenuItemAvailability(ctx context.Context, arg SetMenuItemAvailabilityParams) (MenuItem, error) {
	var m MenuItem
	err := q.db.QueryRow(ctx, setMenuItemAvailability, arg.ID, arg.IsAvailable).
		Scan(&m.ID, &m.CategoryID, &m.Name, &m.Price, &m.IsAvailable,
			&m.OptionType, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}
