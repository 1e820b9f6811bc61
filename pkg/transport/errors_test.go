package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/menonsoftware/Konexion/pkg/api"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  *api.APIError
		want int
	}{
		{"invalid request", api.NewInvalidRequestError("bad"), http.StatusBadRequest},
		{"model not found", api.NewModelNotFoundError("m"), http.StatusNotFound},
		{"catalog unavailable", api.NewCatalogUnavailableError("down"), http.StatusServiceUnavailable},
		{"provider error", api.NewProviderError("upstream"), http.StatusBadGateway},
		{"server error", api.NewServerError("boom"), http.StatusInternalServerError},
		{"unknown type", &api.APIError{Type: "mystery"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusFromError(tt.err); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, api.NewModelNotFoundError("ghost"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp api.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil || resp.Error.Type != api.ErrorTypeModelNotFound {
		t.Errorf("error = %+v", resp.Error)
	}
	if want := "Model 'ghost' not found in available models."; resp.Error.Message != want {
		t.Errorf("message = %q, want %q", resp.Error.Message, want)
	}
}
