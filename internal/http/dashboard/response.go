package dashboard

import (
	"time"

	"github.com/google/uuid"

	"github.com/cnstrctnetwork/cnstrct/internal/dashboard"
	"github.com/cnstrctnetwork/cnstrct/internal/project"
)

// Amounts are integer cents throughout.

type projectResponse struct {
	ID                   uuid.UUID      `json:"id"`
	Title                string         `json:"title"`
	Client               string         `json:"client"`
	Status               project.Status `json:"status"`
	Budget               *int64         `json:"budget,omitempty"`
	StartDate            *time.Time     `json:"start_date,omitempty"`
	DueDate              *time.Time     `json:"due_date,omitempty"`
	Location             *string        `json:"location,omitempty"`
	Description          *string        `json:"description,omitempty"`
	CompletionPercentage int            `json:"completion_percentage"`
	ContactName          *string        `json:"contact_name,omitempty"`
	ContactEmail         *string        `json:"contact_email,omitempty"`
	ContactPhone         *string        `json:"contact_phone,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

type milestoneResponse struct {
	ID           uuid.UUID               `json:"id"`
	ProjectID    uuid.UUID               `json:"project_id"`
	ProjectTitle string                  `json:"project_title,omitempty"`
	Title        string                  `json:"title"`
	Description  *string                 `json:"description,omitempty"`
	DueDate      time.Time               `json:"due_date"`
	Amount       int64                   `json:"amount"`
	Status       project.MilestoneStatus `json:"status"`
	CreatedAt    time.Time               `json:"created_at"`
}

type invoiceResponse struct {
	ID            uuid.UUID             `json:"id"`
	ProjectID     uuid.UUID             `json:"project_id"`
	ProjectTitle  string                `json:"project_title,omitempty"`
	MilestoneID   *uuid.UUID            `json:"milestone_id,omitempty"`
	Amount        int64                 `json:"amount"`
	Status        project.InvoiceStatus `json:"status"`
	DueDate       time.Time             `json:"due_date"`
	InvoiceNumber string                `json:"invoice_number"`
	Notes         *string               `json:"notes,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

type expenseResponse struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Category    *string   `json:"category,omitempty"`
	Date        time.Time `json:"date"`
}

type documentResponse struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	FileURL     string    `json:"file_url"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	FileSize    int64     `json:"file_size"`
	CreatedAt   time.Time `json:"created_at"`
}

type statsResponse struct {
	ActiveProjects     int   `json:"activeProjects"`
	TotalRevenue       int64 `json:"totalRevenue"`
	PendingInvoices    int64 `json:"pendingInvoices"`
	UpcomingMilestones int   `json:"upcomingMilestones"`
}

type overviewResponse struct {
	Projects           []projectResponse   `json:"projects"`
	Stats              statsResponse       `json:"stats"`
	UpcomingMilestones []milestoneResponse `json:"upcomingMilestones"`
	PendingInvoices    []invoiceResponse   `json:"pendingInvoices"`
}

type summaryResponse struct {
	TotalInvoiced   int64 `json:"totalInvoiced"`
	TotalPaid       int64 `json:"totalPaid"`
	TotalPending    int64 `json:"totalPending"`
	TotalExpenses   int64 `json:"totalExpenses"`
	ProjectedProfit int64 `json:"projectedProfit"`
}

type projectDetailResponse struct {
	Project    projectResponse     `json:"project"`
	Milestones []milestoneResponse `json:"milestones"`
	Invoices   []invoiceResponse   `json:"invoices"`
	Expenses   []expenseResponse   `json:"expenses"`
	Summary    summaryResponse     `json:"summary"`
}

type invoiceTotalsResponse struct {
	Invoiced int64 `json:"invoiced"`
	Paid     int64 `json:"paid"`
	Pending  int64 `json:"pending"`
	Overdue  int64 `json:"overdue"`
}

type invoiceListResponse struct {
	Invoices []invoiceResponse     `json:"invoices"`
	Totals   invoiceTotalsResponse `json:"totals"`
}

func toProject(p *project.Project) projectResponse {
	return projectResponse{
		ID:                   p.ID,
		Title:                p.Title,
		Client:               p.Client,
		Status:               p.Status,
		Budget:               p.Budget,
		StartDate:            p.StartDate,
		DueDate:              p.DueDate,
		Location:             p.Location,
		Description:          p.Description,
		CompletionPercentage: p.CompletionPercentage,
		ContactName:          p.ContactName,
		ContactEmail:         p.ContactEmail,
		ContactPhone:         p.ContactPhone,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func toProjects(ps []*project.Project) []projectResponse {
	resp := make([]projectResponse, len(ps))
	for i, p := range ps {
		resp[i] = toProject(p)
	}

	return resp
}

func toMilestone(m *project.Milestone, projectTitle string) milestoneResponse {
	return milestoneResponse{
		ID:           m.ID,
		ProjectID:    m.ProjectID,
		ProjectTitle: projectTitle,
		Title:        m.Title,
		Description:  m.Description,
		DueDate:      m.DueDate,
		Amount:       m.Amount,
		Status:       m.Status,
		CreatedAt:    m.CreatedAt,
	}
}

func toInvoice(inv *project.Invoice, projectTitle string) invoiceResponse {
	return invoiceResponse{
		ID:            inv.ID,
		ProjectID:     inv.ProjectID,
		ProjectTitle:  projectTitle,
		MilestoneID:   inv.MilestoneID,
		Amount:        inv.Amount,
		Status:        inv.Status,
		DueDate:       inv.DueDate,
		InvoiceNumber: inv.InvoiceNumber,
		Notes:         inv.Notes,
		CreatedAt:     inv.CreatedAt,
	}
}

func toInvoiceItems(items []dashboard.InvoiceItem) []invoiceResponse {
	resp := make([]invoiceResponse, len(items))
	for i, it := range items {
		resp[i] = toInvoice(it.Invoice, it.ProjectTitle)
	}

	return resp
}

func toDocuments(ds []*project.Document) []documentResponse {
	resp := make([]documentResponse, len(ds))
	for i, d := range ds {
		resp[i] = documentResponse{
			ID:          d.ID,
			ProjectID:   d.ProjectID,
			Title:       d.Title,
			Description: d.Description,
			Category:    d.Category,
			FileURL:     d.FileURL,
			FileName:    d.FileName,
			FileType:    d.FileType,
			FileSize:    d.FileSize,
			CreatedAt:   d.CreatedAt,
		}
	}

	return resp
}

func toOverview(o *dashboard.Overview) overviewResponse {
	milestones := make([]milestoneResponse, len(o.UpcomingMilestones))
	for i, m := range o.UpcomingMilestones {
		milestones[i] = toMilestone(m.Milestone, m.ProjectTitle)
	}

	return overviewResponse{
		Projects: toProjects(o.Projects),
		Stats: statsResponse{
			ActiveProjects:     o.Stats.ActiveProjects,
			TotalRevenue:       o.Stats.TotalRevenue,
			PendingInvoices:    o.Stats.PendingInvoices,
			UpcomingMilestones: o.Stats.UpcomingMilestones,
		},
		UpcomingMilestones: milestones,
		PendingInvoices:    toInvoiceItems(o.PendingInvoices),
	}
}

func toProjectDetail(d *dashboard.ProjectDetail) projectDetailResponse {
	resp := projectDetailResponse{
		Project:    toProject(d.Project),
		Milestones: make([]milestoneResponse, len(d.Milestones)),
		Invoices:   make([]invoiceResponse, len(d.Invoices)),
		Expenses:   make([]expenseResponse, len(d.Expenses)),
		Summary:    summaryResponse(d.Summary),
	}

	for i, m := range d.Milestones {
		resp.Milestones[i] = toMilestone(m, "")
	}

	for i, inv := range d.Invoices {
		resp.Invoices[i] = toInvoice(inv, "")
	}

	for i, e := range d.Expenses {
		resp.Expenses[i] = expenseResponse{
			ID:          e.ID,
			ProjectID:   e.ProjectID,
			Amount:      e.Amount,
			Description: e.Description,
			Category:    e.Category,
			Date:        e.Date,
		}
	}

	return resp
}

func toInvoiceList(l *dashboard.InvoiceList) invoiceListResponse {
	return invoiceListResponse{
		Invoices: toInvoiceItems(l.Invoices),
		Totals:   invoiceTotalsResponse(l.Totals),
	}
}
