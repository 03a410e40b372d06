package webhooks

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Gal07143/Save-It.AI-sub002/pkg/httputil"
	"github.com/Gal07143/Save-It.AI-sub002/pkg/observability"
)

// Handlers provides HTTP handlers for webhook administration and the manual
// event trigger. When a PostgresStore is supplied, every registry mutation is
// mirrored to it.
type Handlers struct {
	engine *Engine
	store  *PostgresStore
	logger *observability.Logger
}

// NewHandlers creates webhook admin handlers. store may be nil for purely
// in-memory operation.
func NewHandlers(engine *Engine, store *PostgresStore, logger *observability.Logger) *Handlers {
	return &Handlers{
		engine: engine,
		store:  store,
		logger: logger.WithField("component", "webhook_handlers"),
	}
}

// RegisterRoutes registers webhook admin routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/webhooks", h.registerEndpoint).Methods("POST")
	router.HandleFunc("/webhooks", h.listEndpoints).Methods("GET")
	router.HandleFunc("/webhooks/deliveries", h.listDeliveries).Methods("GET")
	router.HandleFunc("/webhooks/stats", h.getStats).Methods("GET")
	router.HandleFunc("/webhooks/{id}", h.getEndpoint).Methods("GET")
	router.HandleFunc("/webhooks/{id}", h.unregisterEndpoint).Methods("DELETE")
	router.HandleFunc("/webhooks/{id}/enable", h.enableEndpoint).Methods("POST")
	router.HandleFunc("/webhooks/{id}/disable", h.disableEndpoint).Methods("POST")
	router.HandleFunc("/events", h.triggerEvent).Methods("POST")
}

// registerEndpoint handles POST /webhooks. Posting an existing ID updates the
// endpoint; an empty secret on update keeps the stored one.
func (h *Handlers) registerEndpoint(w http.ResponseWriter, r *http.Request) {
	var ep Endpoint
	if !httputil.ParseJSONOrError(w, r, &ep) {
		return
	}

	created := ep.ID == ""
	if err := h.engine.Registry().Register(&ep); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	h.persist(r, &ep)

	if created {
		httputil.WriteCreated(w, ep)
		return
	}
	httputil.WriteSuccess(w, ep)
}

// listEndpoints handles GET /webhooks
func (h *Handlers) listEndpoints(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, h.engine.Registry().List())
}

// getEndpoint handles GET /webhooks/{id}
func (h *Handlers) getEndpoint(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ep, err := h.engine.Registry().Get(id)
	if err != nil {
		httputil.WriteNotFoundError(w, "webhook endpoint not found")
		return
	}
	httputil.WriteSuccess(w, ep)
}

// unregisterEndpoint handles DELETE /webhooks/{id}
func (h *Handlers) unregisterEndpoint(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.engine.Registry().Unregister(id); err != nil {
		httputil.WriteNotFoundError(w, "webhook endpoint not found")
		return
	}
	if h.store != nil {
		if err := h.store.Delete(r.Context(), id); err != nil {
			h.logger.WithError(err).WithField("endpoint_id", id).Error("failed to delete persisted endpoint")
		}
	}
	httputil.WriteNoContent(w)
}

// enableEndpoint handles POST /webhooks/{id}/enable
func (h *Handlers) enableEndpoint(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// disableEndpoint handles POST /webhooks/{id}/disable
func (h *Handlers) disableEndpoint(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *Handlers) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := mux.Vars(r)["id"]

	var err error
	if enabled {
		err = h.engine.Registry().Enable(id)
	} else {
		err = h.engine.Registry().Disable(id)
	}
	if errors.Is(err, ErrEndpointNotFound) {
		httputil.WriteNotFoundError(w, "webhook endpoint not found")
		return
	}

	if h.store != nil {
		if err := h.store.SetEnabled(r.Context(), id, enabled); err != nil {
			h.logger.WithError(err).WithField("endpoint_id", id).Error("failed to persist endpoint state")
		}
	}

	ep, err := h.engine.Registry().Get(id)
	if err != nil {
		httputil.WriteNotFoundError(w, "webhook endpoint not found")
		return
	}
	httputil.WriteSuccess(w, ep)
}

// listDeliveries handles GET /webhooks/deliveries with optional endpoint_id
// and event_type query filters
func (h *Handlers) listDeliveries(w http.ResponseWriter, r *http.Request) {
	filter := DeliveryFilter{
		EndpointID: r.URL.Query().Get("endpoint_id"),
		EventType:  r.URL.Query().Get("event_type"),
	}

	deliveries, err := h.engine.Deliveries(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if deliveries == nil {
		deliveries = []*Delivery{}
	}
	httputil.WriteSuccess(w, deliveries)
}

// getStats handles GET /webhooks/stats
func (h *Handlers) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.GetStats(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, stats)
}

// triggerRequest is the manual trigger payload for POST /events
type triggerRequest struct {
	EventType string                 `json:"event_type"`
	TenantID  string                 `json:"tenant_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// triggerEvent handles POST /events. The response is accepted immediately;
// deliveries run in the background and are visible in the history.
func (h *Handlers) triggerEvent(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.EventType == "" {
		httputil.WriteValidationError(w, "event_type is required")
		return
	}

	event := h.engine.Trigger(r.Context(), req.EventType, req.Data, req.TenantID)
	httputil.WriteAccepted(w, event)
}

// persist mirrors a registry mutation to the store, if configured. The
// registry mutates the passed endpoint in place, so it carries the final ID
// and timestamps here.
func (h *Handlers) persist(r *http.Request, ep *Endpoint) {
	if h.store == nil {
		return
	}
	if err := h.store.Save(r.Context(), ep); err != nil {
		h.logger.WithError(err).WithField("endpoint_id", ep.ID).Error("failed to persist endpoint")
	}
}
