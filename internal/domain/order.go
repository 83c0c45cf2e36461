package domain

import "time"

// Product is a catalog item.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"` // Canonical category
	Price    float64 `json:"price"`
}

// Order is a customer purchase.
type Order struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	PurchasedAt time.Time `json:"purchased_at"`
	Status      string    `json:"status"`
}

// Weekday returns the weekday of the purchase.
func (o Order) Weekday() time.Weekday {
	return o.PurchasedAt.Weekday()
}

// TimeSlot returns the daypart of the purchase.
func (o Order) TimeSlot() TimeSlot {
	return SlotForHour(o.PurchasedAt.Hour())
}

// OrderItem is one line of an order.
type OrderItem struct {
	OrderID   string  `json:"order_id"`
	ProductID string  `json:"product_id"`
	SellerID  string  `json:"seller_id,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// LineTotal returns price times quantity, treating a zero quantity as one.
func (i OrderItem) LineTotal() float64 {
	q := i.Quantity
	if q <= 0 {
		q = 1
	}
	return i.Price * float64(q)
}
