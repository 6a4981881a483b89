package dashboard

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cnstrctnetwork/cnstrct/internal/auth"
	"github.com/cnstrctnetwork/cnstrct/internal/dashboard"
	"github.com/cnstrctnetwork/cnstrct/internal/project"
)

type Handler struct {
	svc *dashboard.Service
}

func NewHandler(svc *dashboard.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the read-only views. Callers must mount them behind
// auth.Verifier.RequireJSON.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/dashboard", h.overview)
	r.Get("/projects", h.projects)
	r.Get("/projects/{id}", h.project)
	r.Get("/projects/{id}/documents", h.documents)
	r.Get("/invoices", h.invoices)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, project.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
		return
	}

	slog.Error("failed to load dashboard data", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())

	o, err := h.svc.Overview(r.Context(), u.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOverview(o))
}

func (h *Handler) projects(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())

	ps, err := h.svc.Projects(r.Context(), u.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProjects(ps))
}

func (h *Handler) project(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())

	id, err := project.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	d, err := h.svc.Project(r.Context(), u.ID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProjectDetail(d))
}

func (h *Handler) documents(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())

	id, err := project.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	docs, err := h.svc.Documents(r.Context(), u.ID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDocuments(docs))
}

func (h *Handler) invoices(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())

	l, err := h.svc.Invoices(r.Context(), u.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toInvoiceList(l))
}
