package warehouse

import "context"

// WarehouseRepository reads warehouse locations from the data platform.
type WarehouseRepository interface {
	// ListActive returns every active warehouse location ordered by code.
	ListActive(ctx context.Context) ([]Warehouse, error)
}
