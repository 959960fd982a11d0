package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/services"
	"github.com/yigit/schoolportal/internal/middleware"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/helpers"
)

// multipartOverhead leaves room for form fields around the file part
const multipartOverhead = 1 << 20

// DocumentController handles requirement uploads and their verification
type DocumentController struct {
	documents *services.DocumentService
}

// NewDocumentController creates a new DocumentController
func NewDocumentController(documents *services.DocumentService) *DocumentController {
	return &DocumentController{documents: documents}
}

// Upload stores a document for the calling student
// @Summary Upload a document
// @Tags student
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param documentType formData string true "BIRTH_CERTIFICATE, REPORT_CARD, GOOD_MORAL, ID_PHOTO, TRANSCRIPT or OTHER"
// @Param file formData file true "PDF, JPEG or PNG up to 10 MiB"
// @Success 201 {object} dto.APIResponse{data=models.Document}
// @Failure 413 {object} dto.ErrorResponse "File too large"
// @Failure 415 {object} dto.ErrorResponse "Unsupported file type"
// @Router /student/documents [post]
func (c *DocumentController) Upload(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, services.MaxDocumentSize+multipartOverhead)

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.HandleAPIError(ctx, apperrors.ErrFileTooLarge)
			return
		}
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "A file is required").WithField("file")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}
	if fileHeader.Size > services.MaxDocumentSize {
		middleware.HandleAPIError(ctx, apperrors.ErrFileTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		middleware.HandleAPIError(ctx, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer file.Close()

	docType := models.DocumentType(ctx.PostForm("documentType"))
	doc, err := c.documents.Upload(ctx.Request.Context(), middleware.CurrentUserID(ctx), docType, fileHeader.Filename, file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	created(ctx, doc, "Document uploaded")
}

// MyDocuments lists the caller's uploads
func (c *DocumentController) MyDocuments(ctx *gin.Context) {
	docs, err := c.documents.MyDocuments(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, docs, "")
}

// DeleteOwn removes a pending upload of the caller
func (c *DocumentController) DeleteOwn(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	if err := c.documents.DeleteOwn(ctx.Request.Context(), middleware.CurrentUserID(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, nil, "Document deleted")
}

// Download streams a stored document
func (c *DocumentController) Download(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	doc, content, err := c.documents.Open(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer content.Close()

	ctx.DataFromReader(http.StatusOK, doc.SizeBytes, doc.MimeType, content, map[string]string{
		"Content-Disposition": attachment(doc.OriginalName),
	})
}

// ListDocuments is the admin verification queue
func (c *DocumentController) ListDocuments(ctx *gin.Context) {
	filter := models.DocumentFilter{StudentID: helpers.ParseOptionalInt64Query(ctx, "studentId")}
	if status := strings.ToUpper(ctx.Query("status")); status != "" {
		s := models.DocumentStatus(status)
		filter.Status = &s
	}
	if docType := strings.ToUpper(ctx.Query("documentType")); docType != "" {
		t := models.DocumentType(docType)
		filter.DocumentType = &t
	}
	docs, err := c.documents.ListDocuments(ctx.Request.Context(), filter, pageFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, docs, "")
}

// Review verifies or rejects a pending document
// @Summary Review a document
// @Tags admin-documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param request body dto.ReviewRequest true "VERIFIED or REJECTED with remarks"
// @Success 200 {object} dto.APIResponse{data=models.Document}
// @Failure 409 {object} dto.ErrorResponse "Already reviewed"
// @Router /admin/documents/{id}/review [post]
func (c *DocumentController) Review(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.ReviewRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	doc, err := c.documents.Review(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, doc, "Document "+strings.ToLower(string(doc.Status)))
}
