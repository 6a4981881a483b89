package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cnstrctnetwork/cnstrct/internal/database"
	"github.com/cnstrctnetwork/cnstrct/internal/project"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// notFound folds the ways a lookup can miss into project.ErrNotFound: no
// row, a malformed id literal, or a dangling parent reference on insert.
func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || database.IsInvalidInput(err) || database.IsForeignKeyViolation(err)
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}

	return out
}

const projectColumns = `
	id, user_id, title, client, status, budget, start_date, due_date, location, description,
	completion_percentage, contact_name, contact_email, contact_phone, created_at, updated_at
`

func scanProject(s scanner) (*project.Project, error) {
	var p project.Project

	var status string

	if err := s.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Client, &status, &p.Budget, &p.StartDate, &p.DueDate,
		&p.Location, &p.Description, &p.CompletionPercentage,
		&p.ContactName, &p.ContactEmail, &p.ContactPhone, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Status = project.Status(status)

	return &p, nil
}

// CreateProject inserts the project; optional columns are only written when
// set so the column defaults apply otherwise.
func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	cols := []string{"user_id", "title", "client", "status", "completion_percentage"}
	args := []any{p.UserID, p.Title, p.Client, p.Status, p.CompletionPercentage}

	optional := []struct {
		col string
		set bool
		val any
	}{
		{"budget", p.Budget != nil, p.Budget},
		{"start_date", p.StartDate != nil, p.StartDate},
		{"due_date", p.DueDate != nil, p.DueDate},
		{"location", p.Location != nil, p.Location},
		{"description", p.Description != nil, p.Description},
		{"contact_name", p.ContactName != nil, p.ContactName},
		{"contact_email", p.ContactEmail != nil, p.ContactEmail},
		{"contact_phone", p.ContactPhone != nil, p.ContactPhone},
	}

	for _, o := range optional {
		if o.set {
			cols = append(cols, o.col)
			args = append(args, o.val)
		}
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`
		INSERT INTO projects (%s)
		VALUES (%s)
		RETURNING id, created_at, updated_at`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("creating project: %w", err)
	}

	return nil
}

func (s *Store) GetProject(ctx context.Context, userID, id uuid.UUID) (*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND user_id = $2`

	p, err := scanProject(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if notFound(err) {
			return nil, project.ErrNotFound
		}

		return nil, fmt.Errorf("getting project: %w", err)
	}

	return p, nil
}

// ListProjects returns the user's projects, newest first.
func (s *Store) ListProjects(ctx context.Context, userID uuid.UUID) ([]*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*project.Project

	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}

		projects = append(projects, p)
	}

	return projects, rows.Err()
}

const milestoneColumns = `id, project_id, title, description, due_date, amount, status, created_at, updated_at`

func scanMilestone(s scanner) (*project.Milestone, error) {
	var m project.Milestone

	var status string

	if err := s.Scan(
		&m.ID, &m.ProjectID, &m.Title, &m.Description, &m.DueDate, &m.Amount, &status,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}

	m.Status = project.MilestoneStatus(status)

	return &m, nil
}

func (s *Store) CreateMilestone(ctx context.Context, m *project.Milestone) error {
	query := `
		INSERT INTO milestones (project_id, title, description, due_date, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		m.ProjectID, m.Title, m.Description, m.DueDate, m.Amount, m.Status,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if notFound(err) {
			return project.ErrNotFound
		}

		return fmt.Errorf("creating milestone: %w", err)
	}

	return nil
}

func (s *Store) GetMilestone(ctx context.Context, projectID, id uuid.UUID) (*project.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE id = $1 AND project_id = $2`

	m, err := scanMilestone(s.db.QueryRowContext(ctx, query, id, projectID))
	if err != nil {
		if notFound(err) {
			return nil, project.ErrNotFound
		}

		return nil, fmt.Errorf("getting milestone: %w", err)
	}

	return m, nil
}

func (s *Store) UpdateMilestoneStatus(ctx context.Context, projectID, id uuid.UUID, status project.MilestoneStatus) error {
	query := `UPDATE milestones SET status = $1, updated_at = NOW() WHERE id = $2 AND project_id = $3`

	res, err := s.db.ExecContext(ctx, query, status, id, projectID)
	if err != nil {
		return fmt.Errorf("updating milestone status: %w", err)
	}

	return requireRow(res)
}

// ListMilestones returns milestones of the given projects ordered by due date.
func (s *Store) ListMilestones(ctx context.Context, projectIDs []uuid.UUID) ([]*project.Milestone, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + milestoneColumns + `
		FROM milestones
		WHERE project_id = ANY($1::uuid[])
		ORDER BY due_date ASC`

	rows, err := s.db.QueryContext(ctx, query, idStrings(projectIDs))
	if err != nil {
		return nil, fmt.Errorf("listing milestones: %w", err)
	}
	defer rows.Close()

	var out []*project.Milestone

	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning milestone: %w", err)
		}

		out = append(out, m)
	}

	return out, rows.Err()
}

const invoiceColumns = `id, project_id, milestone_id, amount, status, due_date, invoice_number, notes, created_at, updated_at`

func scanInvoice(s scanner) (*project.Invoice, error) {
	var inv project.Invoice

	var status string

	if err := s.Scan(
		&inv.ID, &inv.ProjectID, &inv.MilestoneID, &inv.Amount, &status, &inv.DueDate,
		&inv.InvoiceNumber, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	inv.Status = project.InvoiceStatus(status)

	return &inv, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv *project.Invoice) error {
	query := `
		INSERT INTO invoices (project_id, milestone_id, amount, status, due_date, invoice_number, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		inv.ProjectID, inv.MilestoneID, inv.Amount, inv.Status, inv.DueDate, inv.InvoiceNumber, inv.Notes,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if notFound(err) {
			return project.ErrNotFound
		}

		return fmt.Errorf("creating invoice: %w", err)
	}

	return nil
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, projectID, id uuid.UUID, status project.InvoiceStatus) error {
	query := `UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2 AND project_id = $3`

	res, err := s.db.ExecContext(ctx, query, status, id, projectID)
	if err != nil {
		return fmt.Errorf("updating invoice status: %w", err)
	}

	return requireRow(res)
}

// ListInvoices returns invoices of the given projects, newest first.
func (s *Store) ListInvoices(ctx context.Context, projectIDs []uuid.UUID) ([]*project.Invoice, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE project_id = ANY($1::uuid[])
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, idStrings(projectIDs))
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var out []*project.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		out = append(out, inv)
	}

	return out, rows.Err()
}

func (s *Store) CreateExpense(ctx context.Context, e *project.Expense) error {
	query := `
		INSERT INTO expenses (project_id, amount, description, category, date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		e.ProjectID, e.Amount, e.Description, e.Category, e.Date,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if notFound(err) {
			return project.ErrNotFound
		}

		return fmt.Errorf("creating expense: %w", err)
	}

	return nil
}

// CreateExpenses inserts all rows with one multi-row statement, so either
// every expense is stored or none is.
func (s *Store) CreateExpenses(ctx context.Context, es []*project.Expense) error {
	if len(es) == 0 {
		return nil
	}

	const cols = 5

	values := make([]string, len(es))
	args := make([]any, 0, len(es)*cols)

	for i, e := range es {
		base := i * cols
		values[i] = fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5)
		args = append(args, e.ProjectID, e.Amount, e.Description, e.Category, e.Date)
	}

	query := `INSERT INTO expenses (project_id, amount, description, category, date) VALUES ` +
		strings.Join(values, ", ") + ` RETURNING id, created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if notFound(err) {
			return project.ErrNotFound
		}

		return fmt.Errorf("creating expenses: %w", err)
	}
	defer rows.Close()

	// Postgres returns RETURNING rows of a multi-row VALUES insert in input order.
	for i := 0; rows.Next(); i++ {
		if i >= len(es) {
			break
		}

		if err := rows.Scan(&es[i].ID, &es[i].CreatedAt); err != nil {
			return fmt.Errorf("scanning expense: %w", err)
		}
	}

	return rows.Err()
}

// ListExpenses returns expenses of the given projects, most recent date first.
func (s *Store) ListExpenses(ctx context.Context, projectIDs []uuid.UUID) ([]*project.Expense, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, project_id, amount, description, category, date, created_at
		FROM expenses
		WHERE project_id = ANY($1::uuid[])
		ORDER BY date DESC`

	rows, err := s.db.QueryContext(ctx, query, idStrings(projectIDs))
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	defer rows.Close()

	var out []*project.Expense

	for rows.Next() {
		var e project.Expense
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Amount, &e.Description, &e.Category, &e.Date, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}

		out = append(out, &e)
	}

	return out, rows.Err()
}

func (s *Store) CreateDocument(ctx context.Context, d *project.Document) error {
	query := `
		INSERT INTO documents (project_id, title, description, category, file_path, file_url, file_name, file_type, file_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		d.ProjectID, d.Title, d.Description, d.Category, d.FilePath, d.FileURL, d.FileName, d.FileType, d.FileSize,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		if notFound(err) {
			return project.ErrNotFound
		}

		return fmt.Errorf("creating document: %w", err)
	}

	return nil
}

// ListDocuments returns a project's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, projectID uuid.UUID) ([]*project.Document, error) {
	query := `
		SELECT id, project_id, title, description, category, file_path, file_url, file_name, file_type, file_size, created_at
		FROM documents
		WHERE project_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var out []*project.Document

	for rows.Next() {
		var d project.Document
		if err := rows.Scan(
			&d.ID, &d.ProjectID, &d.Title, &d.Description, &d.Category, &d.FilePath, &d.FileURL,
			&d.FileName, &d.FileType, &d.FileSize, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		out = append(out, &d)
	}

	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}

	if n == 0 {
		return project.ErrNotFound
	}

	return nil
}
