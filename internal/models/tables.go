// Package models provides data model definitions for the poscore engine.
package models

import "encoding/json"

// Table names for the fixed schema. Tables are independent; the engine
// performs no cross-table foreign-key enforcement.
const (
	TableOrders       = "orders"
	TableMenuItems    = "menuItems"
	TableCategories   = "categories"
	TableTables       = "tables"
	TableSettings     = "settings"
	TableTransactions = "transactions"
	TableReservations = "reservations"
	TableCustomers    = "customers"
	TableInventory    = "inventory"
)

// AllTables returns the full fixed table set in schema order.
func AllTables() []string {
	return []string{
		TableOrders,
		TableMenuItems,
		TableCategories,
		TableTables,
		TableSettings,
		TableTransactions,
		TableReservations,
		TableCustomers,
		TableInventory,
	}
}

// IsKnownTable reports whether name is part of the fixed schema.
func IsKnownTable(name string) bool {
	for _, t := range AllTables() {
		if t == name {
			return true
		}
	}
	return false
}

// Order represents a customer order.
type Order struct {
	ID                  UUID        `json:"id"`
	OrderNumber         string      `json:"orderNumber"`
	TableNumber         int         `json:"tableNumber,omitempty"`
	CustomerName        string      `json:"customerName,omitempty"`
	Items               []OrderItem `json:"items"`
	Total               float64     `json:"total"`
	Status              string      `json:"status"` // pending, preparing, served, paid, cancelled
	AssignedStaff       string      `json:"assignedStaff,omitempty"`
	SpecialInstructions string      `json:"specialInstructions,omitempty"`
	Priority            int         `json:"priority,omitempty"`
	CreatedAt           int64       `json:"createdAt"`
	UpdatedAt           int64       `json:"updatedAt"`
}

// TableName returns the table name for Order.
func (Order) TableName() string { return TableOrders }

// OrderItem is one line of an order.
type OrderItem struct {
	MenuItemID UUID    `json:"menuItemId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	Notes      string  `json:"notes,omitempty"`
}

// MenuItem represents a sellable item on the menu.
type MenuItem struct {
	ID        UUID    `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Category  string  `json:"category,omitempty"`
	Available bool    `json:"available"`
	CreatedAt int64   `json:"createdAt"`
	UpdatedAt int64   `json:"updatedAt"`
}

// TableName returns the table name for MenuItem.
func (MenuItem) TableName() string { return TableMenuItems }

// Category groups menu items.
type Category struct {
	ID        UUID   `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// TableName returns the table name for Category.
func (Category) TableName() string { return TableCategories }

// DiningTable represents a physical table on the floor.
type DiningTable struct {
	ID        UUID   `json:"id"`
	Number    int    `json:"number"`
	Status    string `json:"status"` // available, occupied, reserved, cleaning
	Capacity  int    `json:"capacity,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// TableName returns the table name for DiningTable.
func (DiningTable) TableName() string { return TableTables }

// Reservation represents a booked table slot.
type Reservation struct {
	ID           UUID   `json:"id"`
	CustomerName string `json:"customerName"`
	Phone        string `json:"phone,omitempty"`
	PartySize    int    `json:"partySize"`
	Time         int64  `json:"time"`
	TableNumber  int    `json:"tableNumber,omitempty"`
	Status       string `json:"status,omitempty"` // booked, seated, cancelled, no_show
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// TableName returns the table name for Reservation.
func (Reservation) TableName() string { return TableReservations }

// Customer represents a known guest.
type Customer struct {
	ID        UUID   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// TableName returns the table name for Customer.
func (Customer) TableName() string { return TableCustomers }

// InventoryItem represents stock on hand.
type InventoryItem struct {
	ID        UUID    `json:"id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit,omitempty"`
	LowStock  float64 `json:"lowStock,omitempty"`
	CreatedAt int64   `json:"createdAt"`
	UpdatedAt int64   `json:"updatedAt"`
}

// TableName returns the table name for InventoryItem.
func (InventoryItem) TableName() string { return TableInventory }

// ToRecord converts any typed model to its generic Record form.
func ToRecord(v interface{}) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// FromRecord decodes a generic Record into a typed model.
func FromRecord(rec Record, v interface{}) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
