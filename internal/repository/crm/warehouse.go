package crm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/master/warehouse"
	crmapi "github.com/cmlabs-hris/timesheet-go/internal/pkg/crm"
)

type warehouseLocationRow struct {
	ID        string  `json:"cr_warehouselocationid"`
	Code      string  `json:"cr_code"`
	Name      string  `json:"cr_name"`
	Address   *string `json:"cr_address"`
	StateCode int     `json:"statecode"`
}

type warehouseRepositoryImpl struct {
	client *crmapi.Client
}

func NewWarehouseRepository(client *crmapi.Client) warehouse.WarehouseRepository {
	return &warehouseRepositoryImpl{client: client}
}

// ListActive implements warehouse.WarehouseRepository.
func (r *warehouseRepositoryImpl) ListActive(ctx context.Context) ([]warehouse.Warehouse, error) {
	q := crmapi.NewQuery().
		Select("cr_warehouselocationid", "cr_code", "cr_name", "cr_address", "statecode").
		Filter("statecode eq 0").
		OrderBy("cr_code", false)

	raw, err := r.client.List(ctx, warehouseLocationSet, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", warehouse.ErrWarehouseSourceUnavailable, err)
	}

	result := make([]warehouse.Warehouse, 0, len(raw))
	for _, item := range raw {
		var row warehouseLocationRow
		if err := json.Unmarshal(item, &row); err != nil {
			return nil, fmt.Errorf("failed to decode warehouse location: %w", err)
		}
		result = append(result, warehouse.Warehouse{
			ID:       row.ID,
			Code:     row.Code,
			Name:     row.Name,
			Address:  optionalString(row.Address),
			IsActive: row.StateCode == 0,
		})
	}

	return result, nil
}
