package domain

import (
	"time"
)

type Shift struct {
	ID         string
	CompanyID  string
	Title      string
	Location   string
	HourlyRate float64
	StartTime  time.Time
	EndTime    time.Time
	Status     ShiftStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ShiftStatus int

const (
	ShiftDraft ShiftStatus = iota
	ShiftOpen
	ShiftFilled
	ShiftCompleted
	ShiftCancelled
)

func (s ShiftStatus) String() string {
	switch s {
	case ShiftDraft:
		return "draft"
	case ShiftOpen:
		return "open"
	case ShiftFilled:
		return "filled"
	case ShiftCompleted:
		return "completed"
	case ShiftCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type Application struct {
	ID        string
	ShiftID   string
	WorkerID  string
	Status    ApplicationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ApplicationStatus int

const (
	ApplicationPending ApplicationStatus = iota
	ApplicationAccepted
	ApplicationRejected
	ApplicationWithdrawn
)

func (s ApplicationStatus) String() string {
	switch s {
	case ApplicationPending:
		return "pending"
	case ApplicationAccepted:
		return "accepted"
	case ApplicationRejected:
		return "rejected"
	case ApplicationWithdrawn:
		return "withdrawn"
	default:
		return "unknown"
	}
}

type Payment struct {
	ID        string
	ShiftID   string
	WorkerID  string
	CompanyID string
	Amount    float64
	Status    PaymentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PaymentStatus int

const (
	PaymentHeld PaymentStatus = iota
	PaymentReleased
	PaymentPaidOut
	PaymentRefunded
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentHeld:
		return "held"
	case PaymentReleased:
		return "released"
	case PaymentPaidOut:
		return "paid_out"
	case PaymentRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

type Notification struct {
	ID        string
	UserID    string
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}

type Session struct {
	Token     string
	UserID    string
	Role      UserRole
	ExpiresAt time.Time
}

type UserRole string

const (
	RoleStaff   UserRole = "staff"
	RoleCompany UserRole = "company"
	RoleAgency  UserRole = "agency"
	RoleAdmin   UserRole = "admin"
)

type ScheduledJob struct {
	ID        string
	ShiftID   string
	JobType   JobType
	RunAt     time.Time
	Status    JobStatus
	CreatedAt time.Time
}

type JobType string

const (
	JobOpenShift      JobType = "open_shift"
	JobCloseShift     JobType = "close_shift"
	JobReleasePayment JobType = "release_payment"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobExecuted  JobStatus = "executed"
	JobCancelled JobStatus = "cancelled"
)
