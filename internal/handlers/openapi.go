package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API description document in YAML and JSON.
// The document is authored in YAML; the JSON variant is converted on
// first request and cached for the life of the process.
type OpenAPIHandler struct {
	specPath string
	log      *zap.Logger

	once    sync.Once
	yamlDoc []byte
	jsonDoc []byte
	loadErr error
}

func NewOpenAPIHandler(specPath string, log *zap.Logger) *OpenAPIHandler {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(specPath)
	if err != nil {
		abs = specPath
	}
	return &OpenAPIHandler{specPath: abs, log: log}
}

func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods("GET")
}

// load reads and converts the document once. Both endpoints share the
// result, so a malformed document fails consistently rather than only
// on the JSON path.
func (h *OpenAPIHandler) load() error {
	h.once.Do(func() {
		data, err := os.ReadFile(h.specPath)
		if err != nil {
			h.loadErr = err
			return
		}

		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			h.loadErr = err
			return
		}

		jsonDoc, err := json.Marshal(doc)
		if err != nil {
			h.loadErr = err
			return
		}

		h.yamlDoc = data
		h.jsonDoc = jsonDoc
	})
	return h.loadErr
}

func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	if err := h.load(); err != nil {
		h.log.Warn("openapi_spec_unavailable", zap.String("path", h.specPath), zap.Error(err))
		respondJSONError(w, http.StatusNotFound, "Not Found", "API description not available")
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.yamlDoc); err != nil {
		h.log.Warn("openapi_write_failed", zap.Error(err))
	}
}

func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	if err := h.load(); err != nil {
		h.log.Warn("openapi_spec_unavailable", zap.String("path", h.specPath), zap.Error(err))
		respondJSONError(w, http.StatusNotFound, "Not Found", "API description not available")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.jsonDoc); err != nil {
		h.log.Warn("openapi_write_failed", zap.Error(err))
	}
}
