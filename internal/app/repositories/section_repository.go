package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/db"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/dberrors"
	"github.com/yigit/schoolportal/internal/pkg/logger"
)

const sectionColumns = `s.id, s.course_id, s.name, s.year_level, s.school_year, s.semester, s.capacity,
	s.created_at, s.updated_at, c.code,
	(SELECT COUNT(*) FROM enrollments e WHERE e.section_id = s.id AND e.status = 'APPROVED')`

// SectionRepository handles section persistence
type SectionRepository struct {
	baseRepository
}

var _ ISectionRepository = (*SectionRepository)(nil)

// NewSectionRepository creates a new SectionRepository
func NewSectionRepository(database *db.PostgresDB) *SectionRepository {
	return &SectionRepository{baseRepository: newBaseRepository(database)}
}

func scanSection(row scanner) (*models.Section, error) {
	s := &models.Section{}
	err := row.Scan(&s.ID, &s.CourseID, &s.Name, &s.YearLevel, &s.SchoolYear, &s.Semester, &s.Capacity,
		&s.CreatedAt, &s.UpdatedAt, &s.CourseCode, &s.ApprovedCount)
	return s, err
}

func (r *SectionRepository) selectSections() squirrel.SelectBuilder {
	return r.sb.Select(sectionColumns).From("sections s").Join("courses c ON c.id = s.course_id")
}

func sectionWriteError(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, "sections_name_term_key"):
		return apperrors.NewConflictError("section name already exists for this term")
	case dberrors.IsForeignKeyViolation(err):
		return apperrors.ErrCourseNotFound
	}
	return nil
}

// Create inserts a section
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) (int64, error) {
	now := time.Now()
	sql, args, err := r.sb.Insert("sections").
		Columns("course_id", "name", "year_level", "school_year", "semester", "capacity", "created_at", "updated_at").
		Values(section.CourseID, section.Name, section.YearLevel, section.SchoolYear, section.Semester, section.Capacity, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create section query: %w", err)
	}
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&section.ID); err != nil {
		if mapped := sectionWriteError(err); mapped != nil {
			return 0, mapped
		}
		logger.Error().Err(err).Str("name", section.Name).Msg("Error creating section")
		return 0, fmt.Errorf("error creating section: %w", err)
	}
	section.CreatedAt, section.UpdatedAt = now, now
	return section.ID, nil
}

// GetByID retrieves a section with its approved head count
func (r *SectionRepository) GetByID(ctx context.Context, id int64) (*models.Section, error) {
	return r.get(ctx, id, "")
}

// GetByIDForUpdate locks the section row for the rest of the transaction
func (r *SectionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Section, error) {
	return r.get(ctx, id, "FOR UPDATE OF s")
}

func (r *SectionRepository) get(ctx context.Context, id int64, suffix string) (*models.Section, error) {
	q := r.selectSections().Where(squirrel.Eq{"s.id": id})
	if suffix != "" {
		q = q.Suffix(suffix)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get section query: %w", err)
	}
	s, err := scanSection(r.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrSectionNotFound
		}
		return nil, fmt.Errorf("error retrieving section: %w", err)
	}
	return s, nil
}

// Update saves a section
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	sql, args, err := r.sb.Update("sections").
		Set("course_id", section.CourseID).
		Set("name", section.Name).
		Set("year_level", section.YearLevel).
		Set("school_year", section.SchoolYear).
		Set("semester", section.Semester).
		Set("capacity", section.Capacity).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": section.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update section query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if mapped := sectionWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("error updating section: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSectionNotFound
	}
	return nil
}

// Delete removes a section without schedules or enrollments
func (r *SectionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM sections WHERE id = $1`, id)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrResourceInUse
		}
		return fmt.Errorf("error deleting section: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSectionNotFound
	}
	return nil
}

// List returns sections matching filter
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter, offset, limit uint64) ([]*models.Section, int64, error) {
	where := squirrel.And{}
	if filter.CourseID != nil {
		where = append(where, squirrel.Eq{"s.course_id": *filter.CourseID})
	}
	if filter.SchoolYear != "" {
		where = append(where, squirrel.Eq{"s.school_year": filter.SchoolYear})
	}
	if filter.Semester != nil {
		where = append(where, squirrel.Eq{"s.semester": *filter.Semester})
	}
	if filter.YearLevel != nil {
		where = append(where, squirrel.Eq{"s.year_level": *filter.YearLevel})
	}

	total, err := r.countRows(ctx, r.sb.Select("COUNT(*)").From("sections s").Where(where))
	if err != nil {
		return nil, 0, err
	}
	sql, args, err := paginate(r.selectSections().Where(where).
		OrderBy("s.school_year DESC", "s.semester", "s.name"), offset, limit).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list sections query: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing sections: %w", err)
	}
	defer rows.Close()

	var items []*models.Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning section: %w", err)
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
