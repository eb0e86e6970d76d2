package enum

// ── Order lifecycle (CHECK constrained in DB) ──
//
// Transitions are monotonic: PENDING → ACCEPTED → COMPLETED.
// REJECTED is absorbing and reachable from PENDING or ACCEPTED.

const (
	OrderStatusPending   = "PENDING"
	OrderStatusAccepted  = "ACCEPTED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusRejected  = "REJECTED"
)

const (
	OrderItemStatusPending   = "PENDING"
	OrderItemStatusPreparing = "PREPARING"
	OrderItemStatusDone      = "DONE"
)

const (
	BillStatusUnbilled = "UNBILLED"
	BillStatusBilled   = "BILLED"
)

// ── Table state machine ──

const (
	TableStatusAvailable = "AVAILABLE"
	TableStatusOccupied  = "OCCUPIED"
	TableStatusCheckout  = "CHECKOUT"
)

// ── Menu item option handling ──

const (
	OptionTypeNone      = "NONE"
	OptionTypeAddon     = "ADDON"
	OptionTypeSweetness = "SWEETNESS"
)

// ── User roles ──

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleStaff   = "STAFF"
	UserRoleKitchen = "KITCHEN"
)
