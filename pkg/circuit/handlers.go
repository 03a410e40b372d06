package circuit

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Gal07143/Save-It.AI-sub002/pkg/httputil"
)

// Handlers provides HTTP handlers for circuit breaker administration
type Handlers struct {
	registry *Registry
}

// NewHandlers creates circuit admin handlers
func NewHandlers(registry *Registry) *Handlers {
	return &Handlers{registry: registry}
}

// RegisterRoutes registers circuit admin routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/circuits", h.listCircuits).Methods("GET")
	router.HandleFunc("/circuits/reset", h.resetAll).Methods("POST")
	router.HandleFunc("/circuits/{name}", h.getCircuit).Methods("GET")
	router.HandleFunc("/circuits/{name}/force-open", h.forceOpen).Methods("POST")
	router.HandleFunc("/circuits/{name}/force-close", h.forceClose).Methods("POST")
}

// listCircuits handles GET /circuits
func (h *Handlers) listCircuits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, h.registry.Statuses())
}

// getCircuit handles GET /circuits/{name}
func (h *Handlers) getCircuit(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	b, ok := h.registry.Get(name)
	if !ok {
		httputil.WriteNotFoundError(w, "circuit not found")
		return
	}
	httputil.WriteSuccess(w, b.Status())
}

// forceOpen handles POST /circuits/{name}/force-open. The breaker is created
// if it does not exist yet, so a maintenance window can be declared before
// the first call.
func (h *Handlers) forceOpen(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	b := h.registry.GetOrCreate(name, nil)
	b.ForceOpen()
	httputil.WriteSuccess(w, b.Status())
}

// forceClose handles POST /circuits/{name}/force-close
func (h *Handlers) forceClose(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	b, ok := h.registry.Get(name)
	if !ok {
		httputil.WriteNotFoundError(w, "circuit not found")
		return
	}
	b.ForceClose()
	httputil.WriteSuccess(w, b.Status())
}

// resetAll handles POST /circuits/reset
func (h *Handlers) resetAll(w http.ResponseWriter, r *http.Request) {
	h.registry.ResetAll()
	httputil.WriteSuccess(w, map[string]string{"status": "reset"})
}
