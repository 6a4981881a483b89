// Package dashboard builds the read-only views over a user's projects. Rows
// are fetched per project-id set and all totals are summed in memory.
package dashboard

import (
	"github.com/cnstrctnetwork/cnstrct/internal/project"
)

const (
	unknownProject = "Unknown Project"
	overviewLimit  = 3
)

type Stats struct {
	ActiveProjects     int
	TotalRevenue       int64 // paid invoices, cents
	PendingInvoices    int64 // pending invoices, cents
	UpcomingMilestones int   // not started, due within the next 30 days
}

type MilestoneItem struct {
	*project.Milestone
	ProjectTitle string
}

type InvoiceItem struct {
	*project.Invoice
	ProjectTitle string
}

type Overview struct {
	Projects           []*project.Project
	Stats              Stats
	UpcomingMilestones []MilestoneItem
	PendingInvoices    []InvoiceItem
}

type Summary struct {
	TotalInvoiced   int64
	TotalPaid       int64
	TotalPending    int64
	TotalExpenses   int64
	ProjectedProfit int64
}

type ProjectDetail struct {
	Project    *project.Project
	Milestones []*project.Milestone
	Invoices   []*project.Invoice
	Expenses   []*project.Expense
	Summary    Summary
}

type InvoiceTotals struct {
	Invoiced int64
	Paid     int64
	Pending  int64
	Overdue  int64
}

type InvoiceList struct {
	Invoices []InvoiceItem
	Totals   InvoiceTotals
}
