package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sjperalta/advance-portal/internal/jobs"
	"github.com/sjperalta/advance-portal/internal/models"
	"github.com/sjperalta/advance-portal/pkg/logger"
)

const auditWriteTimeout = 5 * time.Second

// AsyncRunner runs fire-and-forget jobs. *jobs.Worker satisfies it.
type AsyncRunner interface {
	EnqueueAsync(name string, job jobs.Job)
}

type AuditService struct {
	db     *gorm.DB
	runner AsyncRunner
}

// NewAuditService creates an audit service. With a nil runner entries are written inline.
func NewAuditService(db *gorm.DB, runner AsyncRunner) *AuditService {
	return &AuditService{db: db, runner: runner}
}

// Log records an audit entry. Failures are logged and never returned to the caller.
func (s *AuditService) Log(ctx context.Context, actor Actor, action, entity, entityID, details string) {
	if s == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:    actor.UserID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}

	if s.runner == nil {
		s.write(ctx, entry)
		return
	}

	log := logger.FromContext(ctx)
	s.runner.EnqueueAsync("audit:"+action, func(jobCtx context.Context) error {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(jobCtx), auditWriteTimeout)
		defer cancel()
		s.write(logger.WithContext(writeCtx, log), entry)
		return nil
	})
}

func (s *AuditService) write(ctx context.Context, entry *models.AuditLog) {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.FromContext(ctx).Error("[Audit] Failed to write entry",
			"action", entry.Action,
			"entity", entry.Entity,
			"entity_id", entry.EntityID,
			"error", err,
		)
	}
}

// List retrieves audit logs, newest first
func (s *AuditService) List(ctx context.Context, limit, offset int) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.AuditLog{}).Count(&total).Error; err != nil {
		return nil, 0, dbError(err)
	}

	err := db.Order("created_at desc").Order("id desc").Limit(limit).Offset(offset).Find(&logs).Error
	if err != nil {
		return nil, 0, dbError(err)
	}
	return logs, total, nil
}
