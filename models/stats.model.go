package models

// Stats mendefinisikan struktur untuk statistik dashboard admin.
type Stats struct {
	TotalProducts   int64   `json:"totalProducts"`
	InStockProducts int64   `json:"inStockProducts"`
	TotalUsers      int64   `json:"totalUsers"`
	TotalOrders     int64   `json:"totalOrders"`
	PendingOrders   int64   `json:"pendingOrders"`
	Revenue         float64 `json:"revenue"`
}
