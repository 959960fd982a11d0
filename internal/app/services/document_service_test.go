package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/filestorage"
)

var pdfContent = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func newDocumentService(t *testing.T, env *testEnv) (*DocumentService, *filestorage.LocalStorage) {
	t.Helper()
	storage, err := filestorage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewDocumentService(env.store.Documents(), env.store.Students(), storage, env.audit, env.store.TxManager(), zerolog.Nop()), storage
}

func TestUploadDocument(t *testing.T) {
	env := newTestEnv(t)
	svc, storage := newDocumentService(t, env)
	ctx := context.Background()
	user := env.createUser(t, "docs@school.test", models.RoleStudent)

	doc, err := svc.Upload(ctx, user.ID, "birth_certificate", `C:\Users\juan\psa.pdf`, bytes.NewReader(pdfContent))
	require.NoError(t, err)
	assert.Equal(t, models.DocumentBirthCertificate, doc.DocumentType)
	assert.Equal(t, "psa.pdf", doc.OriginalName)
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.Equal(t, int64(len(pdfContent)), doc.SizeBytes)
	assert.Equal(t, models.DocumentPending, doc.Status)
	assert.True(t, strings.HasSuffix(doc.StorageKey, ".pdf"))

	rc, err := storage.Open(doc.StorageKey)
	require.NoError(t, err)
	stored, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, pdfContent, stored)
}

func TestUploadRejectsBadContent(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newDocumentService(t, env)
	ctx := context.Background()
	user := env.createUser(t, "bad@school.test", models.RoleStudent)

	_, err := svc.Upload(ctx, user.ID, models.DocumentReportCard, "card.pdf", strings.NewReader("just some text pretending to be a pdf"))
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFileType)

	_, err = svc.Upload(ctx, user.ID, models.DocumentReportCard, "huge.pdf", bytes.NewReader(make([]byte, MaxDocumentSize+1)))
	assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)

	_, err = svc.Upload(ctx, user.ID, "DIPLOMA", "x.pdf", bytes.NewReader(pdfContent))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.Upload(ctx, user.ID, models.DocumentOther, "empty.pdf", bytes.NewReader(nil))
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestDeleteOwnDocument(t *testing.T) {
	env := newTestEnv(t)
	svc, storage := newDocumentService(t, env)
	ctx := context.Background()
	owner := env.createUser(t, "owner@school.test", models.RoleStudent)
	other := env.createUser(t, "other@school.test", models.RoleStudent)

	doc, err := svc.Upload(ctx, owner.ID, models.DocumentGoodMoral, "gm.pdf", bytes.NewReader(pdfContent))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteOwn(ctx, other.ID, doc.ID), apperrors.ErrDocumentNotFound)

	require.NoError(t, svc.DeleteOwn(ctx, owner.ID, doc.ID))
	_, err = storage.Open(doc.StorageKey)
	assert.Error(t, err)

	docs, err := svc.MyDocuments(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestReviewDocument(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newDocumentService(t, env)
	ctx := context.Background()
	user := env.createUser(t, "review@school.test", models.RoleStudent)

	doc, err := svc.Upload(ctx, user.ID, models.DocumentTranscript, "tor.pdf", bytes.NewReader(pdfContent))
	require.NoError(t, err)

	_, err = svc.Review(ctx, env.admin, doc.ID, &dto.ReviewRequest{Status: "APPROVED"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	reviewed, err := svc.Review(ctx, env.admin, doc.ID, &dto.ReviewRequest{Status: "verified", Remarks: "ok"})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentVerified, reviewed.Status)
	assert.Equal(t, env.admin.UserID, *reviewed.ReviewedBy)

	_, err = svc.Review(ctx, env.admin, doc.ID, &dto.ReviewRequest{Status: "REJECTED"})
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotPending)
	assert.ErrorIs(t, svc.DeleteOwn(ctx, user.ID, doc.ID), apperrors.ErrDocumentNotPending)

	_, rc, err := svc.Open(ctx, Actor{UserID: user.ID, Role: models.RoleStudent}, doc.ID)
	require.NoError(t, err)
	rc.Close()

	stranger := env.createUser(t, "stranger@school.test", models.RoleStudent)
	_, _, err = svc.Open(ctx, Actor{UserID: stranger.ID, Role: models.RoleStudent}, doc.ID)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestOpenDocumentAccess(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newDocumentService(t, env)
	ctx := context.Background()
	user := env.createUser(t, "owner@school.test", models.RoleStudent)

	doc, err := svc.Upload(ctx, user.ID, models.DocumentBirthCertificate, "psa.pdf", bytes.NewReader(pdfContent))
	require.NoError(t, err)

	_, rc, err := svc.Open(ctx, env.admin, doc.ID)
	require.NoError(t, err)
	rc.Close()

	_, rc, err = svc.Open(ctx, env.teacher(t, "teacher@school.test"), doc.ID)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	assert.Nil(t, rc)
}

func TestCleanFileName(t *testing.T) {
	assert.Equal(t, "report.pdf", cleanFileName("../../etc/report.pdf", ".pdf"))
	assert.Equal(t, "document.png", cleanFileName("  ", ".png"))

	long := strings.Repeat("ñ", 200) + ".pdf"
	got := cleanFileName(long, ".pdf")
	assert.LessOrEqual(t, len(got), 255)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "ñ.pdf"))
}
