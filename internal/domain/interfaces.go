package domain

import (
	"context"
	"time"
)

// Repository interfaces
type ShiftRepository interface {
	CreateShift(ctx context.Context, shift *Shift) error
	GetShift(ctx context.Context, shiftID string) (*Shift, error)
	UpdateShiftStatus(ctx context.Context, shiftID string, status ShiftStatus) error
	GetOpenShifts(ctx context.Context) ([]*Shift, error)
	GetShiftsForCompany(ctx context.Context, companyID string) ([]*Shift, error)
}

type ApplicationRepository interface {
	CreateApplication(ctx context.Context, application *Application) error
	GetApplication(ctx context.Context, applicationID string) (*Application, error)
	UpdateApplicationStatus(ctx context.Context, applicationID string, status ApplicationStatus) error
	GetApplicationsForShift(ctx context.Context, shiftID string) ([]*Application, error)
	GetApplicationsForWorker(ctx context.Context, workerID string) ([]*Application, error)
}

type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *Payment) error
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
	GetPaymentForShift(ctx context.Context, shiftID string) (*Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID string, status PaymentStatus) error
	GetPaymentsForWorker(ctx context.Context, workerID string) ([]*Payment, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *Notification) error
	GetNotificationsForUser(ctx context.Context, userID string, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
}

type SchedulerRepository interface {
	CreateJob(ctx context.Context, job *ScheduledJob) error
	GetPendingJobs(ctx context.Context, before time.Time) ([]*ScheduledJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus) error
	CancelJobsForShift(ctx context.Context, shiftID string) error
}

// Cache interfaces
type ClaimCache interface {
	// AtomicClaim marks applicationID as the accepted application for shiftID
	// if and only if no other application has been accepted yet.
	AtomicClaim(ctx context.Context, shiftID, applicationID string) (bool, error)
	GetClaim(ctx context.Context, shiftID string) (string, error)
	ReleaseClaim(ctx context.Context, shiftID string) error
}

type ShiftStateCache interface {
	SetShiftStatus(ctx context.Context, shiftID string, status ShiftStatus) error
	GetShiftStatus(ctx context.Context, shiftID string) (ShiftStatus, error)
}

// Session store backing bearer-token authentication.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// Event interfaces
type EventPublisher interface {
	PublishUpdate(ctx context.Context, event *PushEvent) error
}

type EventSubscriber interface {
	SubscribeToUpdates(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *PushEvent) error

// Notification interfaces
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID string, event UpdateEvent) error
	Broadcast(ctx context.Context, event UpdateEvent) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// Scheduler interface
type ShiftScheduler interface {
	ScheduleShiftOpen(ctx context.Context, shiftID string, startTime time.Time) error
	ScheduleShiftClose(ctx context.Context, shiftID string, endTime time.Time) error
	SchedulePaymentRelease(ctx context.Context, shiftID string, releaseAt time.Time) error
	CancelSchedule(ctx context.Context, shiftID string) error
	Start(ctx context.Context) error
	Stop() error
}

// WebSocket interfaces
type PushConnection interface {
	Send(event UpdateEvent) error
	Close() error
	CloseWithCode(code int, reason string) error
	UserID() string
}

type ConnectionManager interface {
	RegisterConnection(conn PushConnection) error
	UnregisterConnection(conn PushConnection) error
	GetConnectionsForUser(userID string) []PushConnection
	NotifyUser(userID string, event UpdateEvent) error
	Broadcast(event UpdateEvent) error
	CloseAll(code int, reason string) error
}
