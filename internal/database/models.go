package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	FullName     string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

type MenuCategory struct {
	ID        int64
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

type MenuItem struct {
	ID          int64
	CategoryID  int64
	Name        string
	Price       pgtype.Numeric
	IsAvailable bool
	OptionType  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type DiningTable struct {
	ID               int64
	Name             string
	Status           string
	SessionID        pgtype.UUID
	SessionStartedAt pgtype.Timestamptz
	CheckoutAt       pgtype.Timestamptz
}

type Order struct {
	ID          int64
	TableID     int64
	SessionID   uuid.UUID
	Status      string
	BillStatus  string
	TotalAmount pgtype.Numeric
	CreatedAt   time.Time
	CompletedAt pgtype.Timestamptz
}

type OrderItem struct {
	ID             int64
	OrderID        int64
	MenuItemID     int64
	ItemName       string
	Quantity       int32
	UnitPrice      pgtype.Numeric
	TotalPrice     pgtype.Numeric
	SelectedOption pgtype.Text
	Note           pgtype.Text
	Status         string
}

type OrderHistory struct {
	OrderID      int64
	TableID      int64
	SessionID    uuid.UUID
	Status       string
	TotalAmount  pgtype.Numeric
	CreatedAt    time.Time
	CompletedAt  pgtype.Timestamptz
	ArchivedAt   time.Time
	LedgerSynced bool
}

type OrderHistoryItem struct {
	ID             int64
	OrderID        int64
	MenuItemID     int64
	ItemName       string
	Quantity       int32
	UnitPrice      pgtype.Numeric
	TotalPrice     pgtype.Numeric
	SelectedOption pgtype.Text
	Note           pgtype.Text
}
