package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/mfx/internal/models"
	"github.com/desertthunder/mfx/internal/registry"
	"github.com/desertthunder/mfx/internal/shared"
)

// Operator names match the identifiers app frontends invoke.
const (
	OperatorOpenPanel = "open_mlflow_panel"
	OperatorGetURLs   = "get_mlflow_experiment_urls"
)

// OperatorConfig describes one operator for frontend placement menus.
type OperatorConfig struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Unlisted bool   `json:"unlisted"` // Unlisted operators are hidden from the operator browser
	Icon     string `json:"icon,omitempty"`
}

// PanelTrigger is the payload instructing the frontend to open the panel.
type PanelTrigger struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// LinkResolver resolves a dataset's mirrored experiments into tracking-server URLs.
// Satisfied by the mirror engine; abstracted for handler testing.
type LinkResolver interface {
	ExperimentLinks(dataset *registry.Dataset) (*models.LinkList, error)
}

// OperatorHandler serves operator descriptors and executions.
// Implements the Handler interface for registration with a Router.
type OperatorHandler struct {
	store    *registry.Store
	resolver LinkResolver
}

// NewOperatorHandler creates a new operator handler backed by the given registry store and link resolver.
func NewOperatorHandler(store *registry.Store, resolver LinkResolver) *OperatorHandler {
	return &OperatorHandler{store: store, resolver: resolver}
}

// Operators returns the descriptors for every operator this handler serves.
func Operators() []OperatorConfig {
	return []OperatorConfig{
		{
			Name:  OperatorOpenPanel,
			Label: "Open MLFlow Panel",
			Icon:  "/assets/mlflow.svg",
		},
		{
			Name:     OperatorGetURLs,
			Label:    "MLFlow: Get experiment URLs",
			Unlisted: true,
		},
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OperatorHandler) Routes() []string {
	return []string{
		"GET /health",
		"GET /operators",
		"POST /operators/" + OperatorOpenPanel,
		"POST /operators/" + OperatorGetURLs,
	}
}

// ServeHTTP dispatches operator requests by path.
func (h *OperatorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		h.handleHealth(w, r)
	case "/operators":
		h.handleList(w, r)
	case "/operators/" + OperatorOpenPanel:
		h.handleOpenPanel(w, r)
	case "/operators/" + OperatorGetURLs:
		h.handleGetURLs(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *OperatorHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "mfx"})
}

func (h *OperatorHandler) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"operators": Operators()})
}

// handleOpenPanel returns the trigger that opens the panel in the frontend.
// The panel itself renders client-side; no registry state is read here.
func (h *OperatorHandler) handleOpenPanel(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"trigger": PanelTrigger{
			Name: "open_panel",
			Params: map[string]any{
				"name":     "MLFlowPanel",
				"isActive": true,
				"layout":   "horizontal",
			},
		},
	})
}

// handleGetURLs resolves experiment links for the dataset named in the request body.
func (h *OperatorHandler) handleGetURLs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dataset string `json:"dataset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Dataset == "" {
		writeError(w, http.StatusBadRequest, "dataset is required")
		return
	}

	dataset, err := h.store.GetDataset(req.Dataset)
	if err != nil {
		if errors.Is(err, shared.ErrDatasetNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	links, err := h.resolver.ExperimentLinks(dataset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, links)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
