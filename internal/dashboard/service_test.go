package dashboard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cnstrctnetwork/cnstrct/internal/dashboard"
	"github.com/cnstrctnetwork/cnstrct/internal/project"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func newService(ctrl *gomock.Controller) (*dashboard.Service, *dashboard.MockRepository) {
	repo := dashboard.NewMockRepository(ctrl)
	return dashboard.NewService(repo).WithClock(func() time.Time { return now }), repo
}

func TestService_Overview(t *testing.T) {
	userID := uuid.New()
	p1 := &project.Project{ID: uuid.New(), Title: "Kitchen", Status: project.StatusActive}
	p2 := &project.Project{ID: uuid.New(), Title: "Deck", Status: project.StatusOnHold}
	p3 := &project.Project{ID: uuid.New(), Title: "Roof", Status: project.StatusActive}
	orphan := uuid.New()

	milestones := []*project.Milestone{
		{ID: uuid.New(), ProjectID: p1.ID, Title: "Past", DueDate: day(-2), Status: project.MilestoneNotStarted},
		{ID: uuid.New(), ProjectID: p2.ID, Title: "Soon", DueDate: day(3), Status: project.MilestoneNotStarted},
		{ID: uuid.New(), ProjectID: p1.ID, Title: "Started", DueDate: day(5), Status: project.MilestoneInProgress},
		{ID: uuid.New(), ProjectID: p3.ID, Title: "Done", DueDate: day(6), Status: project.MilestoneCompleted},
		{ID: uuid.New(), ProjectID: p3.ID, Title: "Late summer", DueDate: day(60), Status: project.MilestoneNotStarted},
		{ID: uuid.New(), ProjectID: p1.ID, Title: "Next week", DueDate: day(7), Status: project.MilestoneNotStarted},
	}

	invoices := []*project.Invoice{
		{ID: uuid.New(), ProjectID: p1.ID, Amount: 100000, Status: project.InvoicePaid, DueDate: day(-10)},
		{ID: uuid.New(), ProjectID: p1.ID, Amount: 25000, Status: project.InvoicePending, DueDate: day(20)},
		{ID: uuid.New(), ProjectID: p2.ID, Amount: 5000, Status: project.InvoicePending, DueDate: day(1)},
		{ID: uuid.New(), ProjectID: orphan, Amount: 700, Status: project.InvoicePending, DueDate: day(2)},
		{ID: uuid.New(), ProjectID: p3.ID, Amount: 300, Status: project.InvoicePending, DueDate: day(40)},
	}

	ctrl := gomock.NewController(t)
	svc, repo := newService(ctrl)

	repo.EXPECT().ListProjects(gomock.Any(), userID).Return([]*project.Project{p1, p2, p3}, nil)
	repo.EXPECT().ListMilestones(gomock.Any(), []uuid.UUID{p1.ID, p2.ID, p3.ID}).Return(milestones, nil)
	repo.EXPECT().ListInvoices(gomock.Any(), []uuid.UUID{p1.ID, p2.ID, p3.ID}).Return(invoices, nil)

	got, err := svc.Overview(context.Background(), userID)
	require.NoError(t, err)

	assert.Len(t, got.Projects, 3)
	assert.Equal(t, dashboard.Stats{
		ActiveProjects:     2,
		TotalRevenue:       100000,
		PendingInvoices:    31000,
		UpcomingMilestones: 2,
	}, got.Stats)

	require.Len(t, got.UpcomingMilestones, 3)
	assert.Equal(t, "Soon", got.UpcomingMilestones[0].Title)
	assert.Equal(t, "Deck", got.UpcomingMilestones[0].ProjectTitle)
	assert.Equal(t, "Started", got.UpcomingMilestones[1].Title)
	assert.Equal(t, "Next week", got.UpcomingMilestones[2].Title)

	require.Len(t, got.PendingInvoices, 3)
	assert.Equal(t, int64(5000), got.PendingInvoices[0].Amount)
	assert.Equal(t, "Unknown Project", got.PendingInvoices[1].ProjectTitle)
	assert.Equal(t, int64(25000), got.PendingInvoices[2].Amount)
}

func TestService_Overview_NoProjects(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc, repo := newService(ctrl)

	repo.EXPECT().ListProjects(gomock.Any(), gomock.Any()).Return(nil, nil)

	got, err := svc.Overview(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, got.Projects)
	assert.Equal(t, dashboard.Stats{}, got.Stats)
}

func TestService_Project(t *testing.T) {
	userID := uuid.New()
	projectID := uuid.New()
	budget := int64(6000000)

	type testCase struct {
		name      string
		setupMock func(m *dashboard.MockRepository)
		want      dashboard.Summary
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Summary",
			setupMock: func(m *dashboard.MockRepository) {
				m.EXPECT().GetProject(gomock.Any(), userID, projectID).
					Return(&project.Project{ID: projectID, Budget: &budget}, nil)
				m.EXPECT().ListMilestones(gomock.Any(), []uuid.UUID{projectID}).Return(nil, nil)
				m.EXPECT().ListInvoices(gomock.Any(), []uuid.UUID{projectID}).Return([]*project.Invoice{
					{Amount: 200000, Status: project.InvoicePaid},
					{Amount: 50000, Status: project.InvoicePending},
				}, nil)
				m.EXPECT().ListExpenses(gomock.Any(), []uuid.UUID{projectID}).Return([]*project.Expense{
					{Amount: 120000},
					{Amount: 30000},
				}, nil)
			},
			want: dashboard.Summary{
				TotalInvoiced:   250000,
				TotalPaid:       200000,
				TotalPending:    50000,
				TotalExpenses:   150000,
				ProjectedProfit: 5850000,
			},
		},
		{
			name: "No budget",
			setupMock: func(m *dashboard.MockRepository) {
				m.EXPECT().GetProject(gomock.Any(), userID, projectID).Return(&project.Project{ID: projectID}, nil)
				m.EXPECT().ListMilestones(gomock.Any(), gomock.Any()).Return(nil, nil)
				m.EXPECT().ListInvoices(gomock.Any(), gomock.Any()).Return(nil, nil)
				m.EXPECT().ListExpenses(gomock.Any(), gomock.Any()).Return([]*project.Expense{{Amount: 999}}, nil)
			},
			want: dashboard.Summary{TotalExpenses: 999, ProjectedProfit: -999},
		},
		{
			name: "Foreign project",
			setupMock: func(m *dashboard.MockRepository) {
				m.EXPECT().GetProject(gomock.Any(), userID, projectID).Return(nil, project.ErrNotFound)
			},
			wantErr: project.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			svc, repo := newService(ctrl)
			tt.setupMock(repo)

			got, err := svc.Project(context.Background(), userID, projectID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Summary)
		})
	}
}

func TestService_Invoices(t *testing.T) {
	userID := uuid.New()
	p := &project.Project{ID: uuid.New(), Title: "Kitchen"}

	ctrl := gomock.NewController(t)
	svc, repo := newService(ctrl)

	repo.EXPECT().ListProjects(gomock.Any(), userID).Return([]*project.Project{p}, nil)
	repo.EXPECT().ListInvoices(gomock.Any(), []uuid.UUID{p.ID}).Return([]*project.Invoice{
		{ProjectID: p.ID, Amount: 1000, Status: project.InvoicePaid, DueDate: day(-30)},
		{ProjectID: p.ID, Amount: 400, Status: project.InvoicePending, DueDate: day(-1)},
		{ProjectID: p.ID, Amount: 250, Status: project.InvoicePending, DueDate: day(10)},
	}, nil)

	got, err := svc.Invoices(context.Background(), userID)
	require.NoError(t, err)

	require.Len(t, got.Invoices, 3)
	assert.Equal(t, "Kitchen", got.Invoices[0].ProjectTitle)
	assert.Equal(t, dashboard.InvoiceTotals{Invoiced: 1650, Paid: 1000, Pending: 650, Overdue: 400}, got.Totals)
}

func TestService_Documents(t *testing.T) {
	userID := uuid.New()
	projectID := uuid.New()

	t.Run("Owned", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc, repo := newService(ctrl)

		repo.EXPECT().GetProject(gomock.Any(), userID, projectID).Return(&project.Project{ID: projectID}, nil)
		repo.EXPECT().ListDocuments(gomock.Any(), projectID).Return([]*project.Document{{Title: "Plans"}}, nil)

		docs, err := svc.Documents(context.Background(), userID, projectID)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("Lookup error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc, repo := newService(ctrl)

		repo.EXPECT().GetProject(gomock.Any(), userID, projectID).Return(nil, errors.New("db down"))

		_, err := svc.Documents(context.Background(), userID, projectID)
		assert.EqualError(t, err, "db down")
	})
}
