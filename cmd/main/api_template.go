package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/CTAG07/Drosera/pkg/store"
	"github.com/CTAG07/Drosera/pkg/templating"
)

// TemplateAPI holds the dependencies for the template API handlers. The
// engine is the live render registry; it is rebuilt from the store after
// every mutation so the two never drift apart.
type TemplateAPI struct {
	store  *store.Store
	engine *templating.Engine
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewTemplateAPI creates a new instance of the TemplateAPI.
func NewTemplateAPI(st *store.Store, engine *templating.Engine, logger *slog.Logger) *TemplateAPI {
	return &TemplateAPI{
		store:  st,
		engine: engine,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/templates endpoints.
func (t *TemplateAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/templates/render", t.handleRender)
	mux.HandleFunc("/api/templates/variables", t.handleVariables)
	mux.HandleFunc("/api/templates/preview", t.handlePreview)
	mux.HandleFunc("/api/templates/export", t.handleExport)
	mux.HandleFunc("/api/templates/import", t.handleImport)
	mux.HandleFunc("/api/templates", t.handleList)
	mux.HandleFunc("/api/templates/", t.handleTemplate)
}

// reloadEngine rebuilds the render engine from the store. Callers must
// hold the write lock.
func (t *TemplateAPI) reloadEngine(r *http.Request) error {
	engine, err := t.store.LoadEngine(r.Context())
	if err != nil {
		return err
	}
	t.engine = engine
	return nil
}

// handleList returns every stored template name.
func (t *TemplateAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	t.mu.RLock()
	names := t.engine.Names()
	t.mu.RUnlock()
	respondWithJSON(w, http.StatusOK, names)
}

// handleTemplate gets, saves or deletes one template by name.
func (t *TemplateAPI) handleTemplate(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/templates/")
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "Template name is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		content, err := t.store.GetTemplate(r.Context(), name)
		if errors.Is(err, sql.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, fmt.Sprintf("Template %q not found", name))
			return
		}
		if err != nil {
			t.logger.Error("Failed to get template", "template_name", name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to get template")
			return
		}
		respondWithJSON(w, http.StatusOK, store.TemplateInfo{Name: name, Content: content})

	case http.MethodPut:
		var body struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}

		t.mu.Lock()
		defer t.mu.Unlock()
		if err := t.store.SaveTemplate(r.Context(), name, body.Content); err != nil {
			var perr *templating.ParseError
			if errors.As(err, &perr) {
				respondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			t.logger.Error("Failed to save template", "template_name", name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to save template")
			return
		}
		if err := t.reloadEngine(r); err != nil {
			t.logger.Error("Failed to reload engine after save", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to reload engine")
			return
		}
		t.logger.Info("Template saved via API", "template_name", name)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		t.mu.Lock()
		defer t.mu.Unlock()
		if err := t.store.DeleteTemplate(r.Context(), name); err != nil {
			t.logger.Error("Failed to delete template", "template_name", name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to delete template")
			return
		}
		if err := t.reloadEngine(r); err != nil {
			t.logger.Error("Failed to reload engine after delete", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to reload engine")
			return
		}
		t.logger.Info("Template deleted via API", "template_name", name)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

type renderRequest struct {
	Template string              `json:"template"`
	Context  *templating.Context `json:"context"`
}

// handleRender renders a stored template against the supplied context.
func (t *TemplateAPI) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if req.Context == nil {
		req.Context = templating.NewContext()
	}

	t.mu.RLock()
	out, err := t.engine.Render(req.Template, req.Context)
	t.mu.RUnlock()
	if err != nil {
		var missing *templating.MissingTemplateError
		if errors.As(err, &missing) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Template rendering failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

// handleVariables reports which variables a stored template still needs
// given the supplied (possibly partial) context.
func (t *TemplateAPI) handleVariables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	t.mu.RLock()
	known := t.engine.Template(req.Template) != nil
	vars := t.engine.RequiredVariables(req.Template, req.Context)
	t.mu.RUnlock()
	if !known {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Template %q not found", req.Template))
		return
	}
	if vars == nil {
		vars = []templating.RequiredVar{}
	}
	respondWithJSON(w, http.StatusOK, vars)
}

type previewRequest struct {
	Content string              `json:"content"`
	Context *templating.Context `json:"context"`
}

// handlePreview renders template source from the request body without
// saving it. Inclusions resolve against the live engine, so a draft can
// reference stored templates.
func (t *TemplateAPI) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if req.Context == nil {
		req.Context = templating.NewContext()
	}

	tmpl, err := templating.NewTemplate(req.Content)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	t.mu.RLock()
	out, err := tmpl.Render(req.Context, t.engine)
	t.mu.RUnlock()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Template rendering failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

// handleExport streams every stored template as JSON.
func (t *TemplateAPI) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="templates.json"`)
	if err := t.store.ExportTemplates(r.Context(), w); err != nil {
		t.logger.Error("Template export failed", "error", err)
	}
}

// handleImport merges an exported template set into the store and
// reloads the engine.
func (t *TemplateAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.ImportTemplates(r.Context(), r.Body); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Import failed: %v", err))
		return
	}
	if err := t.reloadEngine(r); err != nil {
		t.logger.Error("Failed to reload engine after import", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to reload engine")
		return
	}
	t.logger.Info("Templates imported via API")
	w.WriteHeader(http.StatusNoContent)
}
