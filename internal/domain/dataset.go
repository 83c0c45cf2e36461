package domain

// Dataset is the canonical set of tables the pipeline works on.
type Dataset struct {
	Creators   []Creator          `json:"creators"`
	Products   []Product          `json:"products"`
	Orders     []Order            `json:"orders"`
	OrderItems []OrderItem        `json:"order_items"`
	Sessions   []Session          `json:"sessions"`
	Engagement []EngagementRecord `json:"engagement"`
}

// Counts summarizes table sizes.
type Counts struct {
	Creators   int `json:"creators"`
	Products   int `json:"products"`
	Orders     int `json:"orders"`
	OrderItems int `json:"order_items"`
	Sessions   int `json:"sessions"`
	Engagement int `json:"engagement"`
}

// Counts returns the number of rows in each table.
func (d *Dataset) Counts() Counts {
	return Counts{
		Creators:   len(d.Creators),
		Products:   len(d.Products),
		Orders:     len(d.Orders),
		OrderItems: len(d.OrderItems),
		Sessions:   len(d.Sessions),
		Engagement: len(d.Engagement),
	}
}

// CreatorIndex maps creator IDs to creators.
func (d *Dataset) CreatorIndex() map[string]Creator {
	idx := make(map[string]Creator, len(d.Creators))
	for _, c := range d.Creators {
		idx[c.ID] = c
	}
	return idx
}

// ProductIndex maps product IDs to products.
func (d *Dataset) ProductIndex() map[string]Product {
	idx := make(map[string]Product, len(d.Products))
	for _, p := range d.Products {
		idx[p.ID] = p
	}
	return idx
}

// OrderIndex maps order IDs to orders.
func (d *Dataset) OrderIndex() map[string]Order {
	idx := make(map[string]Order, len(d.Orders))
	for _, o := range d.Orders {
		idx[o.ID] = o
	}
	return idx
}

// ItemsByOrder groups order items by order ID, preserving input order.
func (d *Dataset) ItemsByOrder() map[string][]OrderItem {
	idx := make(map[string][]OrderItem)
	for _, it := range d.OrderItems {
		idx[it.OrderID] = append(idx[it.OrderID], it)
	}
	return idx
}
