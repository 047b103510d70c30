package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	"github.com/ravirajbabasomane202/PCMCApp/pkg/jobs"
)

const notificationJobType = "notification"

// Notifier delivers a single notification.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// LogNotifier writes notifications to the log. Used when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Send implements Notifier.
func (n *LogNotifier) Send(ctx context.Context, msg models.Notification) error {
	n.logger.Info("notification",
		zap.String("user_id", msg.UserID),
		zap.String("email", msg.Email),
		zap.String("subject", msg.Subject),
		zap.String("grievance_id", msg.GrievanceID),
	)
	return nil
}

type messagePublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// BrokerNotifier publishes notifications on a message broker subject for the
// delivery workers to pick up.
type BrokerNotifier struct {
	publisher messagePublisher
	subject   string
}

// NewBrokerNotifier constructs a BrokerNotifier.
func NewBrokerNotifier(publisher messagePublisher, subject string) *BrokerNotifier {
	return &BrokerNotifier{publisher: publisher, subject: subject}
}

// Send implements Notifier.
func (n *BrokerNotifier) Send(ctx context.Context, msg models.Notification) error {
	return n.publisher.Publish(ctx, n.subject, msg)
}

type notificationUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// NotificationConfig tunes the dispatch queue.
type NotificationConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// NotificationService resolves recipients and dispatches notifications
// asynchronously. Delivery problems are logged and never returned to the
// workflow that produced the notification.
type NotificationService struct {
	users    notificationUserReader
	notifier Notifier
	queue    *jobs.Queue
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewNotificationService constructs the service and its dispatch queue.
func NewNotificationService(users notificationUserReader, notifier Notifier, metrics *MetricsService, logger *zap.Logger, cfg NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	s := &NotificationService{users: users, notifier: notifier, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnDrop: func(job jobs.Job, err error) {
			metrics.RecordNotification(false)
		},
	})
	return s
}

// Start launches dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Drain waits for queued notifications to be delivered, then stops the workers.
func (s *NotificationService) Drain(ctx context.Context) error {
	return s.queue.Drain(ctx)
}

// NotifyUser queues a notification for userID.
func (s *NotificationService) NotifyUser(ctx context.Context, userID, subject, body, grievanceID string) error {
	if userID == "" {
		return nil
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("notification recipient not found", zap.String("user_id", userID))
			return nil
		}
		return fmt.Errorf("resolve notification recipient: %w", err)
	}

	msg := models.Notification{
		UserID:      user.ID,
		Email:       user.Email,
		Subject:     subject,
		Body:        body,
		GrievanceID: grievanceID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: notificationJobType, Payload: msg}); err != nil {
		s.metrics.RecordNotification(false)
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		return err
	}
	s.metrics.RecordNotification(true)
	return nil
}
