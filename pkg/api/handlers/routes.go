package handlers

import (
	"net/http"

	"github.com/iskaald/icecold/pkg/logging"
)

// RoutesHandler exposes the log routing table.
type RoutesHandler struct {
	router *logging.Router
}

func NewRoutesHandler(router *logging.Router) *RoutesHandler {
	return &RoutesHandler{router: router}
}

// CatalogResponse describes the installed routing table.
type CatalogResponse struct {
	Installed   bool            `json:"installed"`
	Environment string          `json:"environment"`
	Defaults    logging.Tiers   `json:"defaults"`
	Groups      []logging.Group `json:"groups"`
}

// DecisionResponse describes how one message would be routed.
type DecisionResponse struct {
	Path        string `json:"path"`
	Level       string `json:"level"`
	Environment string `json:"environment"`
	logging.Decision
}

// Get handles GET /routes.
//
// Without a path query parameter the whole catalog is returned. With
// ?path=/src/audio/mixer.go[&level=warning] the routing decision for that
// caller is returned instead. Level defaults to info.
func (h *RoutesHandler) Get(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		groups := h.router.Catalog().Groups()
		if groups == nil {
			groups = []logging.Group{}
		}
		writeJSON(w, http.StatusOK, okResponse(CatalogResponse{
			Installed:   h.router.Installed(),
			Environment: h.router.Environment().String(),
			Defaults:    h.router.Defaults(),
			Groups:      groups,
		}))
		return
	}

	level := logging.LevelInfo
	if raw := r.URL.Query().Get("level"); raw != "" {
		parsed, err := logging.ParseLevel(raw)
		if err != nil {
			BadRequest(w, err.Error())
			return
		}
		level = parsed
	}

	d := h.router.Explain(level, path)
	writeJSON(w, http.StatusOK, okResponse(DecisionResponse{
		Path:        path,
		Level:       d.Level.String(),
		Environment: d.Environment.String(),
		Decision:    d,
	}))
}
