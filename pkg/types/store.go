package types

// Store is one restaurant storefront on a delivery platform.
type Store struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Chain     string       `json:"chain,omitempty"`
	Slug      string       `json:"slug,omitempty"`
	Platform  string       `json:"platform,omitempty"`
	Status    string       `json:"status,omitempty"`
	Location  *Location    `json:"location,omitempty"`
	Metrics   StoreProfile `json:"metrics"`
	CreatedAt string       `json:"created_at,omitempty"`
}

// Location is the physical address of a store.
type Location struct {
	Address string  `json:"address"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	Zip     string  `json:"zip"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// StoreProfile holds the provider's long-run figures for a store.
// Zero means the provider did not report the figure.
type StoreProfile struct {
	// AvgOrderTime is the typical order processing time in minutes.
	AvgOrderTime  float64 `json:"avg_order_time"`
	AvgOrderValue float64 `json:"avg_order_value"`
	DailyOrders   float64 `json:"daily_orders"`
	// SuccessRate is a percentage in [0, 100].
	SuccessRate float64 `json:"success_rate"`
}

// StoreList is the envelope of GET /api/stores.
type StoreList struct {
	Stores []Store `json:"stores"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}
