package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
	"rentacar-backend/internal/security"
	"rentacar-backend/internal/storage"
)

type UploadDocumentInput struct {
	Filename string
	Type     domain.DocumentType
	Size     int64
	Content  io.Reader
}

type documentService struct {
	store    repository.Store
	files    storage.FileStorage
	activity *ActivityRecorder
	maxSize  int64
}

// NewDocumentService returns the identity document service. maxSize of 0
// means domain.MaxDocumentSize.
func NewDocumentService(store repository.Store, files storage.FileStorage, activity *ActivityRecorder, maxSize int64) DocumentService {
	if maxSize <= 0 {
		maxSize = domain.MaxDocumentSize
	}
	return &documentService{store: store, files: files, activity: activity, maxSize: maxSize}
}

func (s *documentService) UploadDocument(ctx context.Context, actor domain.Actor, in UploadDocumentInput) (*domain.Document, error) {
	logger.EnterMethod("documentService.UploadDocument", "actorID", actor.UserID, "type", in.Type, "size", in.Size)

	if err := security.Authorize(actor, security.ActionUploadDocument, security.Owned(actor.UserID)); err != nil {
		return nil, err
	}
	fields := map[string]string{}
	if !in.Type.IsValid() {
		fields["type"] = "type must be one of vozacka_dozvola, licna_karta, pasos"
	}
	if _, ok := domain.DocumentContentType(in.Filename); !ok {
		fields["file"] = "only jpg, jpeg, png and pdf files are accepted"
	}
	if in.Size > s.maxSize {
		fields["file"] = fmt.Sprintf("file must not exceed %d MB", s.maxSize>>20)
	}
	if in.Content == nil {
		fields["file"] = "file is required"
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError("INVALID_DOCUMENT", "invalid document upload", fields)
	}

	key := storage.NewKey(in.Filename)
	if _, err := s.files.Save(ctx, key, in.Content, s.maxSize); err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, domain.NewFieldError("file", fmt.Sprintf("file must not exceed %d MB", s.maxSize>>20))
		}
		logger.ExitMethodWithError("documentService.UploadDocument", err)
		return nil, domain.NewPersistenceError(err)
	}

	doc := &domain.Document{
		UserID:     actor.UserID,
		Name:       filepath.Base(in.Filename),
		StorageKey: key,
		Type:       in.Type,
		Status:     domain.DocumentStatusPending,
	}
	err := s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		if err := tx.Documents().Create(ctx, doc); err != nil {
			return err
		}
		return record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionDocumentUploaded,
			Severity: domain.SeverityInfo,
			Detail:   fmt.Sprintf("Document #%d (%s) uploaded: %s", doc.ID, doc.Type, doc.Name),
		})
	})
	if err != nil {
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			logger.Error("Failed to remove orphaned document file", "key", key, "error", delErr)
		}
		logger.ExitMethodWithError("documentService.UploadDocument", err)
		return nil, err
	}

	logger.ExitMethod("documentService.UploadDocument", "documentID", doc.ID)
	return doc, nil
}

func (s *documentService) ListMyDocuments(ctx context.Context, actor domain.Actor, page domain.PageRequest) (domain.Page[domain.Document], error) {
	uid := actor.UserID
	return s.list(ctx, domain.DocumentFilter{UserID: &uid}, page)
}

func (s *documentService) ListAllDocuments(ctx context.Context, actor domain.Actor, filter domain.DocumentFilter, page domain.PageRequest) (domain.Page[domain.Document], error) {
	if err := security.Authorize(actor, security.ActionReviewDocuments, security.Resource{}); err != nil {
		return domain.Page[domain.Document]{}, err
	}
	return s.list(ctx, filter, page)
}

func (s *documentService) list(ctx context.Context, filter domain.DocumentFilter, page domain.PageRequest) (domain.Page[domain.Document], error) {
	page = page.Normalize()
	items, total, err := s.store.Documents().List(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.Document]{}, err
	}
	return domain.NewPage(items, total, page), nil
}

func (s *documentService) DeleteDocument(ctx context.Context, actor domain.Actor, id int64) error {
	doc, err := s.store.Documents().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := security.Authorize(actor, security.ActionDeleteDocument, security.Owned(doc.UserID)); err != nil {
		return err
	}
	if err := s.store.Documents().Delete(ctx, id); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, doc.StorageKey); err != nil {
		logger.Error("Failed to delete document file", "documentID", id, "key", doc.StorageKey, "error", err)
	}
	return nil
}

func (s *documentService) ReviewDocument(ctx context.Context, actor domain.Actor, id int64, approve bool) (*domain.Document, error) {
	logger.EnterMethod("documentService.ReviewDocument", "actorID", actor.UserID, "documentID", id, "approve", approve)

	if err := security.Authorize(actor, security.ActionReviewDocuments, security.Resource{}); err != nil {
		return nil, err
	}

	var doc *domain.Document
	err := s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		var err error
		doc, err = tx.Documents().GetByID(ctx, id)
		if err != nil {
			return err
		}

		ev := domain.ActivityEvent{Actor: actor}
		if approve {
			doc.Status, doc.Verified = domain.DocumentStatusApproved, true
			ev.Action, ev.Severity = domain.ActionDocumentApproved, domain.SeveritySuccess
		} else {
			doc.Status, doc.Verified = domain.DocumentStatusRejected, false
			ev.Action, ev.Severity = domain.ActionDocumentRejected, domain.SeverityWarning
		}
		ev.Detail = fmt.Sprintf("Document #%d (%s) of user #%d set to %s", doc.ID, doc.Type, doc.UserID, doc.Status)

		if err := tx.Documents().UpdateStatus(ctx, doc); err != nil {
			return err
		}
		return record(ev)
	})
	if err != nil {
		logger.ExitMethodWithError("documentService.ReviewDocument", err, "documentID", id)
		return nil, err
	}

	logger.ExitMethod("documentService.ReviewDocument", "documentID", id, "status", doc.Status)
	return doc, nil
}

// OpenDocumentFile returns the stored file behind key for its owner or staff.
func (s *documentService) OpenDocumentFile(ctx context.Context, actor domain.Actor, key string) (io.ReadCloser, *domain.Document, error) {
	doc, err := s.store.Documents().GetByStorageKey(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	if err := security.Authorize(actor, security.ActionViewDocument, security.Owned(doc.UserID)); err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, &domain.Error{Kind: domain.ErrorKindNotFound, Code: "NOT_FOUND", Message: "file not found"}
	}
	if err != nil {
		return nil, nil, domain.NewPersistenceError(err)
	}
	return rc, doc, nil
}
