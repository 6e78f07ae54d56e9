// Package frontdoor exposes DataMap functions over HTTP: the surrounding
// agent POSTs a function call and receives the pipeline's response/action
// pair.
package frontdoor

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voxkit/datamap/internal/datamap"
	"github.com/voxkit/datamap/internal/recorder"
	"github.com/voxkit/datamap/internal/server"
)

// Resolver looks up compiled DataMaps by function name.
type Resolver interface {
	Lookup(name string) (*datamap.DataMap, bool)
	Names() []string
}

// Handler serves function calls against a resolver.
type Handler struct {
	resolver Resolver
	engine   *datamap.Engine
	recorder *recorder.Recorder
	logger   *slog.Logger
}

// New creates a handler. The recorder may be nil to disable persistence.
func New(resolver Resolver, engine *datamap.Engine, rec *recorder.Recorder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		resolver: resolver,
		engine:   engine,
		recorder: rec,
		logger:   logger,
	}
}

// Mount registers the function-call routes on the router.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/functions", h.handleList)
	r.Post("/functions/{name}", h.handleCall)
}

// callRequest is the inbound invocation body. Arguments arrive either
// nested under argument.parsed (the agent runtime's shape) or flat under
// args.
type callRequest struct {
	Argument *struct {
		Parsed map[string]any `json:"parsed"`
		Raw    string         `json:"raw"`
	} `json:"argument"`
	Args       map[string]any `json:"args"`
	GlobalData map[string]any `json:"global_data"`
	MetaData   map[string]any `json:"meta_data"`
}

func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	dm, ok := h.resolver.Lookup(name)
	if !ok {
		http.Error(w, "unknown function "+name, http.StatusNotFound)
		return
	}

	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	args := req.Args
	if req.Argument != nil && req.Argument.Parsed != nil {
		args = req.Argument.Parsed
	}

	call := &datamap.Call{
		Args:       args,
		GlobalData: req.GlobalData,
		MetaData:   req.MetaData,
	}

	result, report := h.engine.Execute(r.Context(), dm, call)

	server.AddLogField(r.Context(), "function", name)
	server.AddLogField(r.Context(), "outcome", string(report.Outcome))

	if h.recorder != nil {
		if id := h.recorder.Record(r.Context(), report, result); id != "" {
			server.AddLogField(r.Context(), "execution_id", id)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	names := h.resolver.Names()
	if names == nil {
		names = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"functions": names})
}
