package dashboard

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cnstrctnetwork/cnstrct/internal/project"
)

const upcomingWindow = 30 * 24 * time.Hour

func projectIDs(projects []*project.Project) []uuid.UUID {
	ids := make([]uuid.UUID, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}

	return ids
}

func titles(projects []*project.Project) map[uuid.UUID]string {
	m := make(map[uuid.UUID]string, len(projects))
	for _, p := range projects {
		m[p.ID] = p.Title
	}

	return m
}

func titleOf(titles map[uuid.UUID]string, id uuid.UUID) string {
	if t, ok := titles[id]; ok {
		return t
	}

	return unknownProject
}

func stats(projects []*project.Project, milestones []*project.Milestone, invoices []*project.Invoice, now time.Time) Stats {
	var s Stats

	for _, p := range projects {
		if p.Status == project.StatusActive {
			s.ActiveProjects++
		}
	}

	for _, inv := range invoices {
		switch inv.Status {
		case project.InvoicePaid:
			s.TotalRevenue += inv.Amount
		case project.InvoicePending:
			s.PendingInvoices += inv.Amount
		}
	}

	horizon := now.Add(upcomingWindow)

	for _, m := range milestones {
		if m.Status == project.MilestoneNotStarted && m.DueDate.After(now) && m.DueDate.Before(horizon) {
			s.UpcomingMilestones++
		}
	}

	return s
}

// upcoming returns unfinished milestones due after now, soonest first.
func upcoming(milestones []*project.Milestone, titles map[uuid.UUID]string, now time.Time, limit int) []MilestoneItem {
	var out []MilestoneItem

	for _, m := range milestones {
		if m.Status == project.MilestoneCompleted || !m.DueDate.After(now) {
			continue
		}

		out = append(out, MilestoneItem{Milestone: m, ProjectTitle: titleOf(titles, m.ProjectID)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return out
}

// pending returns pending invoices ordered by due date, soonest first.
func pending(invoices []*project.Invoice, titles map[uuid.UUID]string, limit int) []InvoiceItem {
	var out []InvoiceItem

	for _, inv := range invoices {
		if inv.Status != project.InvoicePending {
			continue
		}

		out = append(out, InvoiceItem{Invoice: inv, ProjectTitle: titleOf(titles, inv.ProjectID)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return out
}

func summarize(p *project.Project, invoices []*project.Invoice, expenses []*project.Expense) Summary {
	var s Summary

	for _, inv := range invoices {
		s.TotalInvoiced += inv.Amount

		switch inv.Status {
		case project.InvoicePaid:
			s.TotalPaid += inv.Amount
		case project.InvoicePending:
			s.TotalPending += inv.Amount
		}
	}

	for _, e := range expenses {
		s.TotalExpenses += e.Amount
	}

	var budget int64
	if p.Budget != nil {
		budget = *p.Budget
	}

	s.ProjectedProfit = budget - s.TotalExpenses

	return s
}

func invoiceTotals(invoices []*project.Invoice, now time.Time) InvoiceTotals {
	var t InvoiceTotals

	for _, inv := range invoices {
		t.Invoiced += inv.Amount

		switch inv.Status {
		case project.InvoicePaid:
			t.Paid += inv.Amount
		case project.InvoicePending:
			t.Pending += inv.Amount

			if inv.DueDate.Before(now) {
				t.Overdue += inv.Amount
			}
		}
	}

	return t
}
