package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/db"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/filestorage"
)

// MaxDocumentSize is the upload limit for student documents
const MaxDocumentSize = 10 << 20

var allowedDocumentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

var documentTypes = map[models.DocumentType]bool{
	models.DocumentBirthCertificate: true,
	models.DocumentReportCard:       true,
	models.DocumentGoodMoral:        true,
	models.DocumentIDPhoto:          true,
	models.DocumentTranscript:       true,
	models.DocumentOther:            true,
}

// DocumentService handles student document uploads and verification
type DocumentService struct {
	docRepo     repositories.IDocumentRepository
	studentRepo repositories.IStudentRepository
	storage     filestorage.FileStorage
	audit       *AuditService
	tx          db.TxManager
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	docRepo repositories.IDocumentRepository,
	studentRepo repositories.IStudentRepository,
	storage filestorage.FileStorage,
	audit *AuditService,
	tx db.TxManager,
	logger zerolog.Logger,
) *DocumentService {
	return &DocumentService{
		docRepo:     docRepo,
		studentRepo: studentRepo,
		storage:     storage,
		audit:       audit,
		tx:          tx,
		logger:      logger,
		now:         time.Now,
	}
}

// Upload stores a document for the caller. The type is detected from the
// content; the client supplied name and MIME type are not trusted.
func (s *DocumentService) Upload(ctx context.Context, userID int64, docType models.DocumentType, fileName string, content io.Reader) (*models.Document, error) {
	docType = models.DocumentType(strings.ToUpper(string(docType)))
	if !documentTypes[docType] {
		return nil, apperrors.NewValidationError("unknown document type")
	}

	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, apperrors.NewBadRequestError("file is empty")
	}
	if len(data) > MaxDocumentSize {
		return nil, apperrors.ErrFileTooLarge
	}

	mime := mimetype.Detect(data)
	var ext string
	for allowed, e := range allowedDocumentTypes {
		if mime.Is(allowed) {
			ext = e
			break
		}
	}
	if ext == "" {
		s.logger.Warn().Int64("studentID", student.ID).Str("detected", mime.String()).Msg("Rejected document upload")
		return nil, apperrors.ErrUnsupportedFileType
	}

	stored, err := s.storage.Save(bytes.NewReader(data), fmt.Sprintf("documents/%d", student.ID), ext)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		StudentID:    student.ID,
		DocumentType: docType,
		OriginalName: cleanFileName(fileName, ext),
		StorageKey:   stored.Key,
		MimeType:     strings.SplitN(mime.String(), ";", 2)[0],
		SizeBytes:    stored.Size,
		Status:       models.DocumentPending,
	}
	if _, err := s.docRepo.Create(ctx, doc); err != nil {
		if delErr := s.storage.Delete(stored.Key); delErr != nil {
			s.logger.Error().Err(delErr).Str("key", stored.Key).Msg("Failed to remove orphaned upload")
		}
		return nil, err
	}
	s.logger.Info().Int64("studentID", student.ID).Int64("documentID", doc.ID).Str("type", string(docType)).Msg("Document uploaded")
	return s.docRepo.GetByID(ctx, doc.ID)
}

const maxFileNameBytes = 255

// cleanFileName keeps only the base name, falling back to a generic one
func cleanFileName(name, ext string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "document" + ext
	}
	if len(name) > maxFileNameBytes {
		cut := len(name) - maxFileNameBytes
		for cut < len(name) && !utf8.RuneStart(name[cut]) {
			cut++
		}
		name = name[cut:]
	}
	return name
}

// MyDocuments lists the caller's uploads
func (s *DocumentService) MyDocuments(ctx context.Context, userID int64) ([]*models.Document, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, _, err := s.docRepo.List(ctx, models.DocumentFilter{StudentID: &student.ID}, 0, 0)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Document{}
	}
	return items, nil
}

// DeleteOwn removes one of the caller's documents while it is still pending
func (s *DocumentService) DeleteOwn(ctx context.Context, userID, id int64) error {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.StudentID != student.ID {
		return apperrors.ErrDocumentNotFound
	}
	if doc.Status != models.DocumentPending {
		return apperrors.ErrDocumentNotPending
	}
	if err := s.docRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.storage.Delete(doc.StorageKey); err != nil {
		s.logger.Error().Err(err).Str("key", doc.StorageKey).Msg("Failed to remove document file")
	}
	return nil
}

// Open returns a document and its content. Admins may open any document,
// students only their own; everyone else gets ErrDocumentNotFound.
func (s *DocumentService) Open(ctx context.Context, actor Actor, id int64) (*models.Document, io.ReadCloser, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleStudent:
		student, err := s.studentRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, nil, err
		}
		if doc.StudentID != student.ID {
			return nil, nil, apperrors.ErrDocumentNotFound
		}
	default:
		return nil, nil, apperrors.ErrDocumentNotFound
	}
	rc, err := s.storage.Open(doc.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

// ListDocuments returns a page of documents for review
func (s *DocumentService) ListDocuments(ctx context.Context, filter models.DocumentFilter, p PageRequest) (*dto.PaginatedResponse, error) {
	offset, limit := p.bounds()
	items, total, err := s.docRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}
	if items == nil {
		items = []*models.Document{}
	}
	return paginated(items, total, p), nil
}

// Review verifies or rejects a pending document
func (s *DocumentService) Review(ctx context.Context, actor Actor, id int64, req *dto.ReviewRequest) (*models.Document, error) {
	status := models.DocumentStatus(strings.ToUpper(req.Status))
	action := models.ActionDocumentVerify
	switch status {
	case models.DocumentVerified:
	case models.DocumentRejected:
		action = models.ActionDocumentReject
	default:
		return nil, apperrors.NewValidationError("status must be VERIFIED or REJECTED")
	}
	remarks := optionalString(req.Remarks)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.docRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if doc.Status != models.DocumentPending {
			return apperrors.ErrDocumentNotPending
		}
		if err := s.docRepo.UpdateStatus(ctx, id, status, remarks, actor.UserID, s.now()); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, action, models.EntityDocument, int64Ptr(id), map[string]interface{}{
			"studentId":    doc.StudentID,
			"documentType": doc.DocumentType,
			"remarks":      remarks,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.docRepo.GetByID(ctx, id)
}
