package warehouse

// WarehouseResponse represents the response structure for a warehouse location.
type WarehouseResponse struct {
	ID      string  `json:"id"`
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
}

type ListWarehouseResponse struct {
	Warehouses []WarehouseResponse `json:"warehouses"`
	Cached     bool                `json:"cached"`
}
