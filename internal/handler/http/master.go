package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/timesheet-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timesheet-go/internal/service/master"
)

type MasterHandler interface {
	ListWarehouses(w http.ResponseWriter, r *http.Request)
	ClearCache(w http.ResponseWriter, r *http.Request)
}

type masterHandlerImpl struct {
	masterService master.MasterService
}

func NewMasterHandler(masterService master.MasterService) MasterHandler {
	return &masterHandlerImpl{
		masterService: masterService,
	}
}

func (h *masterHandlerImpl) ListWarehouses(w http.ResponseWriter, r *http.Request) {
	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(w, "refresh must be a boolean", nil)
			return
		}
		refresh = v
	}

	result, err := h.masterService.ListWarehouses(r.Context(), refresh)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ClearCache drops one reference cache key, or all of them when key is empty.
func (h *masterHandlerImpl) ClearCache(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")

	if err := h.masterService.ClearCache(r.Context(), key); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Cache cleared", map[string]string{"key": key})
}
