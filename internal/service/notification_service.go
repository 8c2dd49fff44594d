package service

import (
	"context"
	"fmt"
	netmail "net/mail"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/jnv-alumni-api/pkg/jobs"
	"github.com/noah-isme/jnv-alumni-api/pkg/mail"
)

// Notification job types.
const (
	JobRegistrationReceived = mail.TemplateRegistrationReceived
	JobRegistrationApproved = mail.TemplateRegistrationApproved
	JobPasswordReset        = mail.TemplatePasswordReset
)

// Notification is the payload carried by a queued mail job.
type Notification struct {
	To      netmail.Address
	Subject string
	Data    interface{}
}

type recipientData struct {
	Name string
}

type resetData struct {
	Token     string
	ExpiresIn string
}

type enqueuer interface {
	Enqueue(job jobs.Job) error
}

type messageRenderer interface {
	Render(msg mail.Message) (mail.Message, error)
}

// NotificationService queues outbound mail and renders and delivers it from the worker pool.
// Enqueue failures are logged; they never fail the request that triggered them.
type NotificationService struct {
	queue    enqueuer
	renderer messageRenderer
	mailer   mail.Mailer
	logger   *zap.Logger
}

// NewNotificationService builds the service. Call Bind with the queue once it exists.
func NewNotificationService(renderer messageRenderer, mailer mail.Mailer, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{renderer: renderer, mailer: mailer, logger: logger}
}

// Bind attaches the queue jobs are pushed to.
func (s *NotificationService) Bind(queue enqueuer) {
	s.queue = queue
}

// Register wires the job handlers onto a mux.
func (s *NotificationService) Register(mux *jobs.Mux) {
	for _, jobType := range []string{JobRegistrationReceived, JobRegistrationApproved, JobPasswordReset} {
		mux.Handle(jobType, s.Deliver)
	}
}

// RegistrationReceived acknowledges a new registration.
func (s *NotificationService) RegistrationReceived(name, email string) {
	s.enqueue(JobRegistrationReceived, Notification{
		To:      netmail.Address{Name: name, Address: email},
		Subject: "Registration received",
		Data:    recipientData{Name: name},
	})
}

// RegistrationApproved tells the registrant they can use the directory.
func (s *NotificationService) RegistrationApproved(name, email string) {
	s.enqueue(JobRegistrationApproved, Notification{
		To:      netmail.Address{Name: name, Address: email},
		Subject: "Your profile has been approved",
		Data:    recipientData{Name: name},
	})
}

// PasswordReset mails the raw reset token.
func (s *NotificationService) PasswordReset(email, token string, ttl time.Duration) {
	s.enqueue(JobPasswordReset, Notification{
		To:      netmail.Address{Address: email},
		Subject: "Reset your password",
		Data:    resetData{Token: token, ExpiresIn: ttl.String()},
	})
}

func (s *NotificationService) enqueue(jobType string, n Notification) {
	if s == nil {
		return
	}
	if s.queue == nil {
		s.logger.Warn("notification dropped, queue not bound", zap.String("type", jobType))
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobType, Payload: n}); err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("type", jobType), zap.Error(err))
	}
}

// Deliver renders and sends one queued notification. It is the queue handler.
func (s *NotificationService) Deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}

	msg, err := s.renderer.Render(mail.Message{
		To:       []netmail.Address{n.To},
		Subject:  n.Subject,
		Template: job.Type,
		Data:     n.Data,
	})
	if err != nil {
		s.logger.Error("failed to render notification", zap.String("type", job.Type), zap.Error(err))
		return nil
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", job.Type, err)
	}
	return nil
}
