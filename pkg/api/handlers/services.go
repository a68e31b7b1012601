package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iskaald/icecold/pkg/service"
)

// ServicesHandler exposes the service registry.
type ServicesHandler struct {
	registry *service.Registry
}

func NewServicesHandler(registry *service.Registry) *ServicesHandler {
	return &ServicesHandler{registry: registry}
}

// List handles GET /services. Services are listed in startup order.
func (h *ServicesHandler) List(w http.ResponseWriter, r *http.Request) {
	services := h.registry.Snapshot()
	if services == nil {
		services = []service.DescriptorInfo{}
	}
	writeJSON(w, http.StatusOK, okResponse(services))
}

// Get handles GET /services/{name}.
func (h *ServicesHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, info := range h.registry.Snapshot() {
		if info.Name == name {
			writeJSON(w, http.StatusOK, okResponse(info))
			return
		}
	}
	NotFound(w, "no service named "+name)
}
