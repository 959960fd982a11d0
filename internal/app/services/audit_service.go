package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/repositories"
)

// AuditService writes and reads the admin audit trail
type AuditService struct {
	repo   repositories.IAdminLogRepository
	logger zerolog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo repositories.IAdminLogRepository, logger zerolog.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// Record stores one admin action. Called inside the mutation's transaction so
// the entry and the change commit together.
func (s *AuditService) Record(ctx context.Context, actor Actor, action, entityType string, entityID *int64, details interface{}) error {
	entry := &models.AdminLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  optionalString(actor.IP),
	}
	if actor.UserID > 0 {
		entry.ActorID = int64Ptr(actor.UserID)
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		entry.Details = raw
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write admin log: %w", err)
	}
	s.logger.Info().
		Int64("actorID", actor.UserID).
		Str("action", action).
		Str("entityType", entityType).
		Msg("Admin action recorded")
	return nil
}

// List returns admin log entries, newest first
func (s *AuditService) List(ctx context.Context, filter models.AdminLogFilter, p PageRequest) (*dto.PaginatedResponse, error) {
	offset, limit := p.bounds()
	items, total, err := s.repo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin logs: %w", err)
	}
	if items == nil {
		items = []*models.AdminLog{}
	}
	return paginated(items, total, p), nil
}
