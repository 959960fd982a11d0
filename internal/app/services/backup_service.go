package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/pkg/backup"
)

// BackupRunner is implemented by backup.Runner
type BackupRunner interface {
	Create(ctx context.Context) (*backup.Info, error)
	Restore(ctx context.Context, name string) error
	List() ([]backup.Info, error)
	Delete(name string) error
	Path(name string) (string, error)
}

// BackupService exposes database dumps to admins and records each run
type BackupService struct {
	runner BackupRunner
	audit  *AuditService
	logger zerolog.Logger
}

// NewBackupService creates a new BackupService
func NewBackupService(runner BackupRunner, audit *AuditService, logger zerolog.Logger) *BackupService {
	return &BackupService{runner: runner, audit: audit, logger: logger}
}

func toBackupResponse(info backup.Info) dto.BackupResponse {
	return dto.BackupResponse{Name: info.Name, SizeBytes: info.SizeBytes, CreatedAt: info.CreatedAt}
}

func (s *BackupService) Create(ctx context.Context, actor Actor) (*dto.BackupResponse, error) {
	info, err := s.runner.Create(ctx)
	if err != nil {
		s.logger.Error().Err(err).Int64("actorID", actor.UserID).Msg("Database backup failed")
		return nil, err
	}
	if err := s.audit.Record(ctx, actor, models.ActionBackupCreate, models.EntityBackup, nil, map[string]interface{}{
		"name": info.Name, "sizeBytes": info.SizeBytes,
	}); err != nil {
		return nil, err
	}
	resp := toBackupResponse(*info)
	return &resp, nil
}

func (s *BackupService) List() ([]dto.BackupResponse, error) {
	infos, err := s.runner.List()
	if err != nil {
		return nil, err
	}
	out := make([]dto.BackupResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, toBackupResponse(info))
	}
	return out, nil
}

// Path resolves a backup for download
func (s *BackupService) Path(name string) (string, error) {
	return s.runner.Path(name)
}

// Restore replays a dump over the live database. The audit entry is written
// afterwards since the restore replaces admin_logs as well.
func (s *BackupService) Restore(ctx context.Context, actor Actor, name string) error {
	if err := s.runner.Restore(ctx, name); err != nil {
		s.logger.Error().Err(err).Str("backup", name).Msg("Database restore failed")
		return err
	}
	return s.audit.Record(ctx, actor, models.ActionBackupRestore, models.EntityBackup, nil, map[string]string{"name": name})
}

func (s *BackupService) Delete(ctx context.Context, actor Actor, name string) error {
	if err := s.runner.Delete(name); err != nil {
		return err
	}
	return s.audit.Record(ctx, actor, models.ActionBackupDelete, models.EntityBackup, nil, map[string]string{"name": name})
}
