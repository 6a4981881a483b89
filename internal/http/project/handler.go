package project

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cnstrctnetwork/cnstrct/internal/auth"
	"github.com/cnstrctnetwork/cnstrct/internal/money"
	"github.com/cnstrctnetwork/cnstrct/internal/project"
)

const maxUploadSize = 50 << 20

type Handler struct {
	svc *project.Service
}

func NewHandler(svc *project.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the dashboard form actions. Callers must mount them
// behind auth.Verifier.RequireRedirect.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/create-project", h.createProject)
	r.Post("/add-milestone", h.addMilestone)
	r.Post("/update-milestone-status", h.updateMilestoneStatus)
	r.Post("/create-invoice", h.createInvoice)
	r.Post("/update-invoice-status", h.updateInvoiceStatus)
	r.Post("/add-expense", h.addExpense)
	r.Post("/import-expenses", h.importExpenses)
	r.Post("/upload-document", h.uploadDocument)
}

// encodedRedirect sends the browser to path with a single error or success
// query parameter carrying message.
func encodedRedirect(w http.ResponseWriter, r *http.Request, kind, path, message string) {
	http.Redirect(w, r, path+"?"+kind+"="+url.QueryEscape(message), http.StatusSeeOther)
}

func projectPath(id string) string {
	return "/dashboard/projects/" + id
}

// fail redirects with the message matching err: validation messages as is,
// unknown ids as not found, anything else prefixed with what was attempted.
func fail(w http.ResponseWriter, r *http.Request, path, attempt string, err error) {
	var verr *project.ValidationError

	switch {
	case errors.As(err, &verr):
		encodedRedirect(w, r, "error", path, verr.Message)
	case errors.Is(err, project.ErrNotFound):
		encodedRedirect(w, r, "error", path, "Project not found")
	default:
		slog.Error("dashboard action failed", "action", attempt, "error", err)
		encodedRedirect(w, r, "error", path, fmt.Sprintf("Error %s: %s", attempt, err))
	}
}

func userID(r *http.Request) uuid.UUID {
	u, _ := auth.UserFrom(r.Context())
	return u.ID
}

func optional(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil
	}

	return &v
}

// parseDate accepts a date input value or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}

	return time.Parse(time.RFC3339, s)
}

func optionalDate(r *http.Request, key string) (*time.Time, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil, nil
	}

	t, err := parseDate(v)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	const back = "/dashboard/projects/new"

	title := strings.TrimSpace(r.FormValue("title"))
	client := strings.TrimSpace(r.FormValue("client"))

	if title == "" || client == "" {
		encodedRedirect(w, r, "error", back, "Title and client are required")
		return
	}

	params := project.CreateProjectParams{
		Title:        title,
		Client:       client,
		Status:       project.Status(r.FormValue("status")),
		Location:     optional(r, "location"),
		Description:  optional(r, "description"),
		ContactName:  optional(r, "contactName"),
		ContactEmail: optional(r, "contactEmail"),
		ContactPhone: optional(r, "contactPhone"),
	}

	if b := optional(r, "budget"); b != nil {
		cents, err := money.ParseCents(*b)
		if err != nil {
			encodedRedirect(w, r, "error", back, "Invalid budget")
			return
		}

		params.Budget = &cents
	}

	var err error

	if params.StartDate, err = optionalDate(r, "startDate"); err != nil {
		encodedRedirect(w, r, "error", back, "Invalid start date")
		return
	}

	if params.DueDate, err = optionalDate(r, "dueDate"); err != nil {
		encodedRedirect(w, r, "error", back, "Invalid due date")
		return
	}

	p, err := h.svc.CreateProject(r.Context(), userID(r), params)
	if err != nil {
		fail(w, r, back, "creating project", err)
		return
	}

	encodedRedirect(w, r, "success", projectPath(p.ID.String()), "Project created successfully")
}

func (h *Handler) addMilestone(w http.ResponseWriter, r *http.Request) {
	rawID := r.FormValue("projectId")
	back := projectPath(rawID)

	title := strings.TrimSpace(r.FormValue("title"))
	dueDate := r.FormValue("dueDate")
	amount := r.FormValue("amount")

	if rawID == "" || title == "" || dueDate == "" || amount == "" {
		encodedRedirect(w, r, "error", back, "Title, due date, and amount are required")
		return
	}

	projectID, err := project.ParseID(rawID)
	if err != nil {
		fail(w, r, back, "creating milestone", err)
		return
	}

	due, err := parseDate(dueDate)
	if err != nil {
		encodedRedirect(w, r, "error", back, "Invalid due date")
		return
	}

	cents, err := money.ParseCents(amount)
	if err != nil {
		encodedRedirect(w, r, "error", back, "Invalid amount")
		return
	}

	_, err = h.svc.AddMilestone(r.Context(), userID(r), project.AddMilestoneParams{
		ProjectID:   projectID,
		Title:       title,
		Description: optional(r, "description"),
		DueDate:     due,
		Amount:      cents,
		Status:      project.MilestoneStatus(r.FormValue("status")),
	})
	if err != nil {
		fail(w, r, back, "creating milestone", err)
		return
	}

	encodedRedirect(w, r, "success", back, "Milestone created successfully")
}

func (h *Handler) updateMilestoneStatus(w http.ResponseWriter, r *http.Request) {
	rawID := r.FormValue("projectId")
	rawMilestone := r.FormValue("milestoneId")
	back := projectPath(rawID)

	if rawID == "" || rawMilestone == "" {
		encodedRedirect(w, r, "error", back, "Milestone ID is required")
		return
	}

	projectID, err := project.ParseID(rawID)
	if err != nil {
		fail(w, r, back, "updating milestone", err)
		return
	}

	milestoneID, err := project.ParseID(rawMilestone)
	if err != nil {
		fail(w, r, back, "updating milestone", err)
		return
	}

	status := project.MilestoneStatus(r.FormValue("status"))
	if status == "" {
		status = project.MilestoneCompleted
	}

	if _, err := h.svc.UpdateMilestoneStatus(r.Context(), userID(r), projectID, milestoneID, status); err != nil {
		fail(w, r, back, "updating milestone", err)
		return
	}

	encodedRedirect(w, r, "success", back, "Milestone marked as "+string(status))
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	rawID := r.FormValue("projectId")
	back := projectPath(rawID)

	amount := r.FormValue("amount")
	dueDate := r.FormValue("dueDate")

	if rawID == "" || amount == "" || dueDate == "" {
		encodedRedirect(w, r, "error", back, "Project ID, amount, and due date are required")
		return
	}

	projectID, err := project.ParseID(rawID)
	if err != nil {
		fail(w, r, back, "creating invoice", err)
		return
	}

	due, err := parseDate(dueDate)
	if err != nil {
		encodedRedirect(w, r, "error", back, "Invalid due date")
		return
	}

	cents, err := money.ParseCents(amount)
	if err != nil {
		encodedRedirect(w, r, "error", back, "Invalid amount")
		return
	}

	_, err = h.svc.CreateInvoice(r.Context(), userID(r), project.CreateInvoiceParams{
		ProjectID: projectID,
		Amount:    cents,
		DueDate:   due,
		Notes:     optional(r, "notes"),
	})
	if err != nil {
		fail(w, r, back, "creating invoice", err)
		return
	}

	encodedRedirect(w, r, "success", back, "Invoice created successfully")
}

func (h *Handler) updateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	rawID := r.FormValue("projectId")
	rawInvoice := r.FormValue("invoiceId")
	back := projectPath(rawID)

	if rawID == "" || rawInvoice == "" {
		encodedRedirect(w, r, "error", back, "Invoice ID is required")
		return
	}

	projectID, err := project.ParseID(rawID)
	if err != nil {
		fail(w, r, back, "updating invoice", err)
		return
	}

	invoiceID, err := project.ParseID(rawInvoice)
	if err != nil {
		fail(w, r, back, "updating invoice", err)
		return
	}

	status := project.InvoiceStatus(r.FormValue("status"))

	if err := h.svc.UpdateInvoiceStatus(r.Context(), userID(r), projectID, invoiceID, status); err != nil {
		fail(w, r, back, "updating invoice", err)
		return
	}

	encodedRedirect(w, r, "success", back, "Invoice marked as "+string(status))
}

func (h *Handler) addExpense(w http.ResponseWriter, r *http.Request) {
	rawID := r.FormValue("projectId")
	back := projectPath(rawID)

	amount := r.FormValue("amount")
	description := strings.TrimSpace(r.FormValue("description"))

	if rawID == "" || amount == "" || description == "" {
		encodedRedirect(w, r, "error", back, "Project ID, amount, and description are required")
		return
	}

	projectID, err := project.ParseID(rawID)
	if err != nil {
		fail(w, r, back, "adding expense", err)
		return
	}

	cents, err := money.ParseCents(amount)
	if err != nil {
		encodedRedirect(w, r, "error", back, "Invalid amount")
		return
	}

	var date time.Time
	if d := r.FormValue("date"); d != "" {
		if date, err = parseDate(d); err != nil {
			encodedRedirect(w, r, "error", back, "Invalid date")
			return
		}
	}

	_, err = h.svc.AddExpense(r.Context(), userID(r), project.AddExpenseParams{
		ProjectID:   projectID,
		Amount:      cents,
		Description: description,
		Category:    optional(r, "category"),
		Date:        date,
	})
	if err != nil {
		fail(w, r, back, "adding expense", err)
		return
	}

	encodedRedirect(w, r, "success", back, "Expense added successfully")
}

func (h *Handler) importExpenses(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		encodedRedirect(w, r, "error", "/dashboard/projects", "Failed to read upload")
		return
	}

	rawID := r.FormValue("projectId")
	back := projectPath(rawID)

	file, _, err := r.FormFile("file")
	if rawID == "" || err != nil {
		encodedRedirect(w, r, "error", back, "Project ID and file are required")
		return
	}
	defer file.Close()

	projectID, err := project.ParseID(rawID)
	if err != nil {
		fail(w, r, back, "importing expenses", err)
		return
	}

	expenses, err := h.svc.ImportExpenses(r.Context(), userID(r), projectID, file)
	if err != nil {
		fail(w, r, back, "importing expenses", err)
		return
	}

	encodedRedirect(w, r, "success", back, fmt.Sprintf("Imported %d expenses", len(expenses)))
}

func (h *Handler) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		encodedRedirect(w, r, "error", "/dashboard/projects", "Failed to read upload")
		return
	}

	rawID := r.FormValue("projectId")
	back := projectPath(rawID) + "/documents"
	title := strings.TrimSpace(r.FormValue("title"))

	file, header, err := r.FormFile("file")
	if rawID == "" || title == "" || err != nil {
		encodedRedirect(w, r, "error", back, "Project ID, title, and file are required")
		return
	}
	defer file.Close()

	projectID, err := project.ParseID(rawID)
	if err != nil {
		fail(w, r, back, "uploading document", err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = h.svc.UploadDocument(r.Context(), userID(r), project.UploadDocumentParams{
		ProjectID:   projectID,
		Title:       title,
		Description: optional(r, "description"),
		Category:    optional(r, "category"),
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		var verr *project.ValidationError
		if errors.As(err, &verr) || errors.Is(err, project.ErrNotFound) {
			fail(w, r, back, "uploading document", err)
			return
		}

		// The service error already names the failed step.
		slog.Error("dashboard action failed", "action", "uploading document", "error", err)
		encodedRedirect(w, r, "error", back, "Error "+err.Error())

		return
	}

	encodedRedirect(w, r, "success", back, "Document uploaded successfully")
}
