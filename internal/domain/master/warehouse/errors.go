package warehouse

import "errors"

var (
	ErrWarehouseSourceUnavailable = errors.New("warehouse locations are unavailable")
)
