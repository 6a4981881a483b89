package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cnstrctnetwork/cnstrct/internal/migrate"
)

// Runner is the part of migrate.Runner the admin endpoints drive.
type Runner interface {
	Migrations() []migrate.Migration
	Up(ctx context.Context) ([]migrate.Migration, error)
	Apply(ctx context.Context, m migrate.Migration) (bool, error)
	Verify(ctx context.Context) error
	Status(ctx context.Context) ([]migrate.Status, error)
}

type Handler struct {
	runner Runner
	fsys   fs.FS
}

// NewHandler serves migrations found in fsys through runner.
func NewHandler(runner Runner, fsys fs.FS) *Handler {
	return &Handler{runner: runner, fsys: fsys}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/run-migration", h.runMigration)
	r.Get("/update-schema", h.updateSchema)
	r.Get("/update-types", h.updateTypes)
	r.Get("/migrations", h.list)
}

type runMigrationRequest struct {
	MigrationFile string `json:"migrationFile"`
}

type runMigrationResponse struct {
	Message   string `json:"message"`
	Migration string `json:"migration"`
	Applied   bool   `json:"applied"`
}

type updateSchemaResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Applied []string `json:"applied"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) runMigration(w http.ResponseWriter, r *http.Request) {
	var req runMigrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MigrationFile == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Migration file path is required"})
		return
	}

	m, err := migrate.Resolve(h.fsys, h.runner.Migrations(), req.MigrationFile)
	if err != nil {
		switch {
		case errors.Is(err, migrate.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid migration file path"})
		case errors.Is(err, migrate.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Migration file not found"})
		case errors.Is(err, migrate.ErrUnsupported):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}

		return
	}

	applied, err := h.runner.Apply(r.Context(), m)
	if err != nil {
		slog.Error("failed to run migration", "migration", m.Label(), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})

		return
	}

	msg := "Migration executed successfully"
	if !applied {
		msg = "Migration already applied"
	}

	writeJSON(w, http.StatusOK, runMigrationResponse{Message: msg, Migration: m.Label(), Applied: applied})
}

func (h *Handler) updateSchema(w http.ResponseWriter, r *http.Request) {
	done, err := h.runner.Up(r.Context())
	if err != nil {
		slog.Error("failed to update schema", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})

		return
	}

	applied := make([]string, len(done))
	for i, m := range done {
		applied[i] = m.Label()
	}

	msg := "Schema is up to date."
	if len(applied) > 0 {
		msg = "Schema updated successfully."
	}

	writeJSON(w, http.StatusOK, updateSchemaResponse{Success: true, Message: msg, Applied: applied})
}

func (h *Handler) updateTypes(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Verify(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Types updated successfully"})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.runner.Status(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, statuses)
}
