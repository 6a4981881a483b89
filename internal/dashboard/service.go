package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cnstrctnetwork/cnstrct/internal/project"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=dashboard
type Repository interface {
	ListProjects(ctx context.Context, userID uuid.UUID) ([]*project.Project, error)
	GetProject(ctx context.Context, userID, id uuid.UUID) (*project.Project, error)
	ListMilestones(ctx context.Context, projectIDs []uuid.UUID) ([]*project.Milestone, error)
	ListInvoices(ctx context.Context, projectIDs []uuid.UUID) ([]*project.Invoice, error)
	ListExpenses(ctx context.Context, projectIDs []uuid.UUID) ([]*project.Expense, error)
	ListDocuments(ctx context.Context, projectID uuid.UUID) ([]*project.Document, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock replaces the service clock; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Overview(ctx context.Context, userID uuid.UUID) (*Overview, error) {
	projects, err := s.repo.ListProjects(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &Overview{Projects: projects}
	if len(projects) == 0 {
		return out, nil
	}

	ids := projectIDs(projects)

	milestones, err := s.repo.ListMilestones(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading milestones: %w", err)
	}

	invoices, err := s.repo.ListInvoices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading invoices: %w", err)
	}

	now := s.now()
	names := titles(projects)

	out.Stats = stats(projects, milestones, invoices, now)
	out.UpcomingMilestones = upcoming(milestones, names, now, overviewLimit)
	out.PendingInvoices = pending(invoices, names, overviewLimit)

	return out, nil
}

func (s *Service) Projects(ctx context.Context, userID uuid.UUID) ([]*project.Project, error) {
	return s.repo.ListProjects(ctx, userID)
}

// Project returns one project with its children and financial summary.
// Projects of other users are reported as project.ErrNotFound.
func (s *Service) Project(ctx context.Context, userID, id uuid.UUID) (*ProjectDetail, error) {
	p, err := s.repo.GetProject(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	ids := []uuid.UUID{p.ID}

	milestones, err := s.repo.ListMilestones(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading milestones: %w", err)
	}

	invoices, err := s.repo.ListInvoices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading invoices: %w", err)
	}

	expenses, err := s.repo.ListExpenses(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading expenses: %w", err)
	}

	return &ProjectDetail{
		Project:    p,
		Milestones: milestones,
		Invoices:   invoices,
		Expenses:   expenses,
		Summary:    summarize(p, invoices, expenses),
	}, nil
}

func (s *Service) Documents(ctx context.Context, userID, projectID uuid.UUID) ([]*project.Document, error) {
	if _, err := s.repo.GetProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	return s.repo.ListDocuments(ctx, projectID)
}

func (s *Service) Invoices(ctx context.Context, userID uuid.UUID) (*InvoiceList, error) {
	projects, err := s.repo.ListProjects(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(projects) == 0 {
		return &InvoiceList{}, nil
	}

	invoices, err := s.repo.ListInvoices(ctx, projectIDs(projects))
	if err != nil {
		return nil, fmt.Errorf("loading invoices: %w", err)
	}

	names := titles(projects)
	items := make([]InvoiceItem, len(invoices))

	for i, inv := range invoices {
		items[i] = InvoiceItem{Invoice: inv, ProjectTitle: titleOf(names, inv.ProjectID)}
	}

	return &InvoiceList{Invoices: items, Totals: invoiceTotals(invoices, s.now())}, nil
}
