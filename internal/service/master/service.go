package master

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/master/warehouse"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/cache"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// WarehouseCacheKey is the cache entry holding the warehouse location list.
const WarehouseCacheKey = "master:warehouses"

type MasterService interface {
	// ListWarehouses returns active warehouse locations. refresh bypasses the cache read
	// and stores the fresh list.
	ListWarehouses(ctx context.Context, refresh bool) (warehouse.ListWarehouseResponse, error)
	// ClearCache drops one reference-data entry, or all of them when key is empty.
	ClearCache(ctx context.Context, key string) error
}

type masterServiceImpl struct {
	warehouseRepo warehouse.WarehouseRepository
	cache         cache.Cache
	ttl           time.Duration
	sf            *singleflight.Group
}

func NewMasterService(
	warehouseRepo warehouse.WarehouseRepository,
	c cache.Cache,
	ttl time.Duration,
) MasterService {
	return &masterServiceImpl{
		warehouseRepo: warehouseRepo,
		cache:         c,
		ttl:           ttl,
		sf:            &singleflight.Group{},
	}
}

// ==================== WAREHOUSE OPERATIONS ====================

func (s *masterServiceImpl) ListWarehouses(ctx context.Context, refresh bool) (warehouse.ListWarehouseResponse, error) {
	if !refresh {
		if cached, ok := s.readCache(ctx); ok {
			return warehouse.ListWarehouseResponse{Warehouses: cached, Cached: true}, nil
		}
	}

	// Concurrent misses share one upstream call. The call is detached from the
	// first caller's cancellation so joined callers are not failed by it.
	ch := s.sf.DoChan(WarehouseCacheKey, func() (interface{}, error) {
		callCtx := context.WithoutCancel(ctx)

		list, err := s.warehouseRepo.ListActive(callCtx)
		if err != nil {
			return nil, err
		}

		resp := mapWarehousesToResponse(list)
		s.writeCache(callCtx, resp)
		return resp, nil
	})

	var v interface{}
	select {
	case <-ctx.Done():
		return warehouse.ListWarehouseResponse{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return warehouse.ListWarehouseResponse{}, fmt.Errorf("failed to list warehouses: %w", res.Err)
		}
		v = res.Val
	}

	return warehouse.ListWarehouseResponse{
		Warehouses: v.([]warehouse.WarehouseResponse),
		Cached:     false,
	}, nil
}

func (s *masterServiceImpl) ClearCache(ctx context.Context, key string) error {
	if err := s.cache.Clear(ctx, key); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	slog.Info("Reference cache cleared", "key", key)
	return nil
}

func (s *masterServiceImpl) readCache(ctx context.Context) ([]warehouse.WarehouseResponse, bool) {
	raw, ok, err := s.cache.Get(ctx, WarehouseCacheKey)
	if err != nil {
		slog.Warn("Warehouse cache read failed", "error", err)
		return nil, false
	}
	metrics.RecordCacheLookup(WarehouseCacheKey, ok)
	if !ok {
		return nil, false
	}

	var resp []warehouse.WarehouseResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		slog.Warn("Discarding undecodable warehouse cache entry", "error", err)
		return nil, false
	}
	return resp, true
}

func (s *masterServiceImpl) writeCache(ctx context.Context, resp []warehouse.WarehouseResponse) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, WarehouseCacheKey, raw, s.ttl); err != nil {
		slog.Warn("Warehouse cache write failed", "error", err)
	}
}

func mapWarehousesToResponse(list []warehouse.Warehouse) []warehouse.WarehouseResponse {
	resp := make([]warehouse.WarehouseResponse, 0, len(list))
	for _, w := range list {
		resp = append(resp, warehouse.WarehouseResponse{
			ID:      w.ID,
			Code:    w.Code,
			Name:    w.Name,
			Address: w.Address,
		})
	}
	return resp
}
