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

const documentColumns = `d.id, d.student_id, d.document_type, d.original_name, d.storage_key, d.mime_type,
	d.size_bytes, d.status, d.remarks, d.reviewed_by, d.reviewed_at, d.created_at,
	u.first_name || ' ' || u.last_name`

// DocumentRepository handles uploaded document metadata
type DocumentRepository struct {
	baseRepository
}

var _ IDocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(database *db.PostgresDB) *DocumentRepository {
	return &DocumentRepository{baseRepository: newBaseRepository(database)}
}

func scanDocument(row scanner) (*models.Document, error) {
	d := &models.Document{}
	err := row.Scan(&d.ID, &d.StudentID, &d.DocumentType, &d.OriginalName, &d.StorageKey, &d.MimeType,
		&d.SizeBytes, &d.Status, &d.Remarks, &d.ReviewedBy, &d.ReviewedAt, &d.CreatedAt, &d.StudentName)
	return d, err
}

func (r *DocumentRepository) selectDocuments() squirrel.SelectBuilder {
	return r.sb.Select(documentColumns).
		From("documents d").
		Join("students st ON st.id = d.student_id").
		Join("users u ON u.id = st.user_id")
}

// Create inserts document metadata
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) (int64, error) {
	doc.CreatedAt = time.Now()
	if doc.Status == "" {
		doc.Status = models.DocumentPending
	}
	sql, args, err := r.sb.Insert("documents").
		Columns("student_id", "document_type", "original_name", "storage_key", "mime_type", "size_bytes", "status", "created_at").
		Values(doc.StudentID, doc.DocumentType, doc.OriginalName, doc.StorageKey, doc.MimeType, doc.SizeBytes, doc.Status, doc.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create document query: %w", err)
	}
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&doc.ID); err != nil {
		logger.Error().Err(err).Int64("studentID", doc.StudentID).Msg("Error creating document")
		return 0, fmt.Errorf("error creating document: %w", err)
	}
	return doc.ID, nil
}

// GetByID retrieves a document
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	sql, args, err := r.selectDocuments().Where(squirrel.Eq{"d.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get document query: %w", err)
	}
	d, err := scanDocument(r.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("error retrieving document: %w", err)
	}
	return d, nil
}

// UpdateStatus records a verification decision
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id int64, status models.DocumentStatus, remarks *string, reviewerID int64, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE documents SET status = $1, remarks = $2, reviewed_by = $3, reviewed_at = $4 WHERE id = $5`,
		status, remarks, reviewerID, at, id)
	if err != nil {
		return fmt.Errorf("error updating document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDocumentNotFound
	}
	return nil
}

// Delete removes document metadata
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDocumentNotFound
	}
	return nil
}

// List returns documents matching filter, newest first
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter, offset, limit uint64) ([]*models.Document, int64, error) {
	where := squirrel.And{}
	if filter.StudentID != nil {
		where = append(where, squirrel.Eq{"d.student_id": *filter.StudentID})
	}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"d.status": *filter.Status})
	}
	if filter.DocumentType != nil {
		where = append(where, squirrel.Eq{"d.document_type": *filter.DocumentType})
	}

	total, err := r.countRows(ctx, r.sb.Select("COUNT(*)").From("documents d").Where(where))
	if err != nil {
		return nil, 0, err
	}
	sql, args, err := paginate(r.selectDocuments().Where(where).OrderBy("d.created_at DESC", "d.id DESC"), offset, limit).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list documents query: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing documents: %w", err)
	}
	defer rows.Close()

	var items []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning document: %w", err)
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
