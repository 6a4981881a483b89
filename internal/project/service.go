package project

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cnstrctnetwork/cnstrct/internal/importer"
)

const invoiceTerm = 30 * 24 * time.Hour

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=project
type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	// GetProject returns the project only when it belongs to userID.
	GetProject(ctx context.Context, userID, id uuid.UUID) (*Project, error)

	CreateMilestone(ctx context.Context, milestone *Milestone) error
	GetMilestone(ctx context.Context, projectID, id uuid.UUID) (*Milestone, error)
	UpdateMilestoneStatus(ctx context.Context, projectID, id uuid.UUID, status MilestoneStatus) error

	CreateInvoice(ctx context.Context, inv *Invoice) error
	UpdateInvoiceStatus(ctx context.Context, projectID, id uuid.UUID, status InvoiceStatus) error

	CreateExpense(ctx context.Context, e *Expense) error
	CreateExpenses(ctx context.Context, es []*Expense) error

	CreateDocument(ctx context.Context, d *Document) error
}

// BlobStore receives uploaded document bodies.
type BlobStore interface {
	Put(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

type Service struct {
	repo  Repository
	blobs BlobStore
	now   func() time.Time
}

func NewService(repo Repository, blobs BlobStore) *Service {
	return &Service{repo: repo, blobs: blobs, now: time.Now}
}

// WithClock replaces the service clock; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type CreateProjectParams struct {
	Title        string
	Client       string
	Status       Status
	Budget       *int64
	StartDate    *time.Time
	DueDate      *time.Time
	Location     *string
	Description  *string
	ContactName  *string
	ContactEmail *string
	ContactPhone *string
}

func (s *Service) CreateProject(ctx context.Context, userID uuid.UUID, params CreateProjectParams) (*Project, error) {
	if strings.TrimSpace(params.Title) == "" || strings.TrimSpace(params.Client) == "" {
		return nil, invalid("Title and client are required")
	}

	status := params.Status
	if status == "" {
		status = StatusActive
	}

	if !status.Valid() {
		return nil, invalid("Invalid project status")
	}

	p := &Project{
		UserID:               userID,
		Title:                params.Title,
		Client:               params.Client,
		Status:               status,
		Budget:               params.Budget,
		StartDate:            params.StartDate,
		DueDate:              params.DueDate,
		Location:             params.Location,
		Description:          params.Description,
		CompletionPercentage: 0,
		ContactName:          params.ContactName,
		ContactEmail:         params.ContactEmail,
		ContactPhone:         params.ContactPhone,
	}

	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

type AddMilestoneParams struct {
	ProjectID   uuid.UUID
	Title       string
	Description *string
	DueDate     time.Time
	Amount      int64
	Status      MilestoneStatus
}

func (s *Service) AddMilestone(ctx context.Context, userID uuid.UUID, params AddMilestoneParams) (*Milestone, error) {
	if strings.TrimSpace(params.Title) == "" || params.DueDate.IsZero() {
		return nil, invalid("Title, due date, and amount are required")
	}

	status := params.Status
	if status == "" {
		status = MilestoneNotStarted
	}

	if !status.Valid() {
		return nil, invalid("Invalid milestone status")
	}

	if _, err := s.repo.GetProject(ctx, userID, params.ProjectID); err != nil {
		return nil, err
	}

	m := &Milestone{
		ProjectID:   params.ProjectID,
		Title:       params.Title,
		Description: params.Description,
		DueDate:     params.DueDate,
		Amount:      params.Amount,
		Status:      status,
	}

	if err := s.repo.CreateMilestone(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

// UpdateMilestoneStatus sets the milestone status. Completing a milestone
// bills it: an invoice for the milestone amount is created right after the
// status write. The two writes are independent, so repeating the completion
// bills the milestone again. A failed invoice write is logged and does not
// fail the status change; the created invoice is returned when there is one.
func (s *Service) UpdateMilestoneStatus(ctx context.Context, userID, projectID, milestoneID uuid.UUID, status MilestoneStatus) (*Invoice, error) {
	if status == "" {
		status = MilestoneCompleted
	}

	if !status.Valid() {
		return nil, invalid("Invalid milestone status")
	}

	p, err := s.repo.GetProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateMilestoneStatus(ctx, projectID, milestoneID, status); err != nil {
		return nil, err
	}

	if status != MilestoneCompleted {
		return nil, nil
	}

	inv, err := s.billMilestone(ctx, p, milestoneID)
	if err != nil {
		slog.Error("failed to create milestone invoice", "milestone_id", milestoneID, "error", err)
		return nil, nil
	}

	return inv, nil
}

func (s *Service) billMilestone(ctx context.Context, p *Project, milestoneID uuid.UUID) (*Invoice, error) {
	m, err := s.repo.GetMilestone(ctx, p.ID, milestoneID)
	if err != nil {
		return nil, fmt.Errorf("loading milestone: %w", err)
	}

	now := s.now()
	notes := fmt.Sprintf("Invoice for milestone: %s - Project: %s", m.Title, p.Title)
	mid := m.ID

	inv := &Invoice{
		ProjectID:     p.ID,
		MilestoneID:   &mid,
		Amount:        m.Amount,
		Status:        InvoicePending,
		DueDate:       now.Add(invoiceTerm),
		InvoiceNumber: InvoiceNumber(now),
		Notes:         &notes,
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

// InvoiceNumber derives a display number from the millisecond clock: "INV-"
// followed by the Unix millisecond timestamp with its first seven digits
// dropped. Numbers are not unique across invoices created in the same
// millisecond, nor across the ~16 minute wrap of the retained digits.
func InvoiceNumber(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 7 {
		ms = ms[7:]
	}

	return "INV-" + ms
}

type CreateInvoiceParams struct {
	ProjectID uuid.UUID
	Amount    int64
	DueDate   time.Time
	Notes     *string
}

func (s *Service) CreateInvoice(ctx context.Context, userID uuid.UUID, params CreateInvoiceParams) (*Invoice, error) {
	if params.DueDate.IsZero() {
		return nil, invalid("Project ID, amount, and due date are required")
	}

	if _, err := s.repo.GetProject(ctx, userID, params.ProjectID); err != nil {
		return nil, err
	}

	inv := &Invoice{
		ProjectID:     params.ProjectID,
		Amount:        params.Amount,
		Status:        InvoicePending,
		DueDate:       params.DueDate,
		InvoiceNumber: InvoiceNumber(s.now()),
		Notes:         params.Notes,
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Service) UpdateInvoiceStatus(ctx context.Context, userID, projectID, invoiceID uuid.UUID, status InvoiceStatus) error {
	if !status.Valid() {
		return invalid("Invalid invoice status")
	}

	if _, err := s.repo.GetProject(ctx, userID, projectID); err != nil {
		return err
	}

	return s.repo.UpdateInvoiceStatus(ctx, projectID, invoiceID, status)
}

type AddExpenseParams struct {
	ProjectID   uuid.UUID
	Amount      int64
	Description string
	Category    *string
	Date        time.Time
}

func (s *Service) AddExpense(ctx context.Context, userID uuid.UUID, params AddExpenseParams) (*Expense, error) {
	if strings.TrimSpace(params.Description) == "" {
		return nil, invalid("Project ID, amount, and description are required")
	}

	if _, err := s.repo.GetProject(ctx, userID, params.ProjectID); err != nil {
		return nil, err
	}

	date := params.Date
	if date.IsZero() {
		date = s.now()
	}

	e := &Expense{
		ProjectID:   params.ProjectID,
		Amount:      params.Amount,
		Description: params.Description,
		Category:    params.Category,
		Date:        date,
	}

	if err := s.repo.CreateExpense(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

// ImportExpenses parses a CSV export and stores every row as an expense of
// the project.
func (s *Service) ImportExpenses(ctx context.Context, userID, projectID uuid.UUID, r io.Reader) ([]*Expense, error) {
	if _, err := s.repo.GetProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	rows, err := importer.Parse(r)
	if err != nil {
		return nil, invalid(err.Error())
	}

	if len(rows) == 0 {
		return nil, invalid("No expenses found in file")
	}

	expenses := make([]*Expense, len(rows))

	for i, row := range rows {
		e := &Expense{
			ProjectID:   projectID,
			Amount:      row.Amount,
			Description: row.Description,
			Date:        row.Date,
		}

		if row.Category != "" {
			cat := row.Category
			e.Category = &cat
		}

		expenses[i] = e
	}

	if err := s.repo.CreateExpenses(ctx, expenses); err != nil {
		return nil, err
	}

	return expenses, nil
}

type UploadDocumentParams struct {
	ProjectID   uuid.UUID
	Title       string
	Description *string
	Category    *string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadDocument stores the file body first and then records the document.
// If the record cannot be written the blob stays behind unreferenced.
func (s *Service) UploadDocument(ctx context.Context, userID uuid.UUID, params UploadDocumentParams) (*Document, error) {
	name := path.Base(strings.ReplaceAll(params.FileName, `\`, "/"))
	if strings.TrimSpace(params.Title) == "" || params.Body == nil || name == "." || name == "/" {
		return nil, invalid("Project ID, title, and file are required")
	}

	if _, err := s.repo.GetProject(ctx, userID, params.ProjectID); err != nil {
		return nil, err
	}

	objectPath := fmt.Sprintf("%s/%d-%s", params.ProjectID, s.now().UnixMilli(), name)

	url, err := s.blobs.Put(ctx, objectPath, params.ContentType, params.Body)
	if err != nil {
		return nil, fmt.Errorf("uploading file: %w", err)
	}

	d := &Document{
		ProjectID:   params.ProjectID,
		Title:       params.Title,
		Description: params.Description,
		Category:    params.Category,
		FilePath:    objectPath,
		FileURL:     url,
		FileName:    name,
		FileType:    params.ContentType,
		FileSize:    params.Size,
	}

	if err := s.repo.CreateDocument(ctx, d); err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}

	return d, nil
}
