package project

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a project.
type Status string

const (
	StatusActive    Status = "active"
	StatusOnHold    Status = "on-hold"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusOnHold, StatusCompleted:
		return true
	}

	return false
}

// MilestoneStatus tracks progress on a payable stage of a project.
type MilestoneStatus string

const (
	MilestoneNotStarted MilestoneStatus = "not-started"
	MilestoneInProgress MilestoneStatus = "in-progress"
	MilestoneCompleted  MilestoneStatus = "completed"
)

func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestoneNotStarted, MilestoneInProgress, MilestoneCompleted:
		return true
	}

	return false
}

type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
)

func (s InvoiceStatus) Valid() bool {
	return s == InvoicePending || s == InvoicePaid
}

// Project is a construction job owned by one user. Amounts are in cents.
type Project struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	Title                string
	Client               string
	Status               Status
	Budget               *int64
	StartDate            *time.Time
	DueDate              *time.Time
	Location             *string
	Description          *string
	CompletionPercentage int
	ContactName          *string
	ContactEmail         *string
	ContactPhone         *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type Milestone struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	Title       string
	Description *string
	DueDate     time.Time
	Amount      int64
	Status      MilestoneStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Invoice struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	MilestoneID   *uuid.UUID
	Amount        int64
	Status        InvoiceStatus
	DueDate       time.Time
	InvoiceNumber string
	Notes         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Expense struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	Amount      int64
	Description string
	Category    *string
	Date        time.Time
	CreatedAt   time.Time
}

// Document is an uploaded file attached to a project. FilePath is the blob
// store key, FileURL where it is served from.
type Document struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	Title       string
	Description *string
	Category    *string
	FilePath    string
	FileURL     string
	FileName    string
	FileType    string
	FileSize    int64
	CreatedAt   time.Time
}
