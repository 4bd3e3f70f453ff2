package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/apperrors"
	"github.com/applytrack/applytrack/pkg/models"
	"github.com/applytrack/applytrack/pkg/repositories"
)

// ApplicationService defines workflow operations on application records.
type ApplicationService interface {
	// ChangeStatus moves the record to status and returns the updated record.
	// StatusChangedAt is set when the status actually changes; AppliedAt is
	// set the first time the record becomes Sent and is never cleared.
	ChangeStatus(ctx context.Context, id int64, status models.ApplicationStatus) (*models.ApplicationRecord, error)
}

type applicationService struct {
	repo   repositories.ApplicationRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewApplicationService creates a new application service.
func NewApplicationService(repo repositories.ApplicationRepository, logger *zap.Logger) ApplicationService {
	return &applicationService{
		repo:   repo,
		now:    time.Now,
		logger: logger.Named("applications"),
	}
}

var _ ApplicationService = (*applicationService)(nil)

func (s *applicationService) ChangeStatus(ctx context.Context, id int64, status models.ApplicationStatus) (*models.ApplicationRecord, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("status %q: %w", status, apperrors.ErrInvalidStatus)
	}

	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status == status {
		return app, nil
	}

	now := s.now().UTC()
	previous := app.Status
	app.Status = status
	app.StatusChangedAt = &now
	if status == models.StatusSent && app.AppliedAt == nil {
		app.AppliedAt = &now
	}

	if err := s.repo.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	s.logger.Info("Application status changed",
		zap.Int64("application_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(status)))
	return app, nil
}
