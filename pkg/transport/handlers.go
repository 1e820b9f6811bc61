package transport

import (
	"log/slog"
	"net/http"

	"github.com/menonsoftware/Konexion/pkg/api"
	"github.com/menonsoftware/Konexion/pkg/observability"
	"github.com/menonsoftware/Konexion/pkg/registry"
)

// Handlers serves the REST endpoints backed by the model registry.
type Handlers struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewHandlers creates the REST handler set.
func NewHandlers(reg *registry.Registry, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{registry: reg, logger: logger}
}

// Models handles GET /api/models. It reads the current catalog snapshot
// and never touches the providers.
func (h *Handlers) Models(w http.ResponseWriter, r *http.Request) {
	snapshot := h.registry.Get()
	WriteJSON(w, http.StatusOK, api.ModelsResponse{Models: snapshot.Models()})
}

// RefreshModels handles POST /api/models/refresh. It triggers (or joins)
// a catalog refresh and reports the resulting counts. The response always
// carries the refresh envelope with status "success" or "error"; a
// refresh where every provider failed keeps the previous catalog and
// reports status "error" with the failure detail.
func (h *Handlers) RefreshModels(w http.ResponseWriter, r *http.Request) {
	result, err := h.registry.Refresh(r.Context())
	if err != nil {
		observability.RecordRefresh(observability.RefreshOutcomeFailed, nil)
		WriteJSON(w, http.StatusOK, api.RefreshResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	outcome := observability.RefreshOutcomeSuccess
	message := "Model catalog refreshed."
	if result.Partial() {
		outcome = observability.RefreshOutcomePartial
		message = "Model catalog refreshed with reduced provider coverage."
	}
	observability.RecordRefresh(outcome, providerCounts(result))

	WriteJSON(w, http.StatusOK, api.RefreshResponse{
		Status:       "success",
		TotalModels:  result.Total,
		GroqModels:   result.Counts[api.ClientTypeGroq],
		OllamaModels: result.Counts[api.ClientTypeOllama],
		Message:      message,
	})
}

// Health handles GET /api/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, api.HealthResponse{
		Status:  "healthy",
		Message: "Konexion gateway is running.",
	})
}

func providerCounts(result *registry.RefreshResult) map[string]int {
	counts := make(map[string]int, len(result.Counts))
	for clientType, n := range result.Counts {
		counts[string(clientType)] = n
	}
	return counts
}
