package core

// lifecycle.go owns the state machine for one uploaded file:
//
//	pending → processing → {completed | failed | rejected}
//
// pending is set on acceptance, before any parsing. processing is set
// immediately before validation. rejected stores the validation failure
// verbatim and persists no rows. failed stores the processing fault and
// keeps batches committed before it. completed is reached whenever the
// processor returns normally, regardless of row-level failures. All
// transitions are monotonic; transition legality is enforced here, not in
// storage.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/engagehub/submission/internal/tabular"
	"github.com/google/uuid"
)

// UploadRequest is one raw upload as delivered by the transport layer.
type UploadRequest struct {
	Filename    string
	ContentType string
	Data        []byte
	TemplateID  uuid.UUID // uuid.Nil when no template was requested
}

// UploadOutcome is the caller-visible result of an accepted upload.
type UploadOutcome struct {
	File       *UploadedFile     `json:"file"`
	Processing *ProcessingResult `json:"processing,omitempty"`
}

// AcceptUpload runs the full pipeline for one file: guard, transport
// checks, blob storage, lifecycle record, validation, processing. It blocks
// until the file reaches a terminal state. The returned error is non-nil
// for rejections and failures; the upload record reflects the terminal
// state either way.
func (s *Service) AcceptUpload(ctx context.Context, ident Identity, req UploadRequest) (*UploadOutcome, error) {
	if err := Require(ident.Role, RoleAdmin, RoleExecutive, RoleStaff, RolePublic); err != nil {
		return nil, err
	}

	ext, err := s.checkTransport(req)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	file := &UploadedFile{
		ID:               uuid.New(),
		OriginalFilename: sanitizeFilename(req.Filename),
		FileType:         ext,
		MimeType:         req.ContentType,
		FileSize:         int64(len(req.Data)),
		Status:           StatusPending,
		UploadedBy:       ident.UserID,
		UploadedAt:       time.Now().UTC(),
	}
	file.StoredFilename = file.ID.String() + "." + ext

	if err := s.stores.Blobs.Put(ctx, file.StoredFilename, req.Data, req.ContentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	if err := s.stores.Uploads.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("create upload record: %w", err)
	}

	s.audit.Record(ctx, AuditParams{
		UserID:    ident.UserID,
		Action:    ActionFileUploaded,
		TableName: "uploaded_files",
		RecordID:  file.ID,
		NewValues: map[string]any{
			"filename": file.OriginalFilename,
			"size":     file.FileSize,
		},
	})

	if err := s.transition(ctx, file, StatusProcessing); err != nil {
		return nil, err
	}

	result, err := s.runPipeline(ctx, file, req)
	if err != nil {
		return nil, err
	}

	return &UploadOutcome{File: file, Processing: result}, nil
}

// runPipeline validates and processes a file already in the processing
// state, driving it to its terminal status.
func (s *Service) runPipeline(ctx context.Context, file *UploadedFile, req UploadRequest) (*ProcessingResult, error) {
	log := slog.With("file_id", file.ID, "filename", file.OriginalFilename)

	tbl, readErr := tabular.Read(req.Data, file.FileType)
	if readErr != nil {
		log.Warn("upload could not be parsed", "error", readErr)
		tbl = nil // validator reports the empty-file failure
	}

	tmpl, err := s.resolveTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	rules, err := s.activeRules(ctx)
	if err != nil {
		return nil, err
	}

	validation, err := s.validator.Validate(tbl, tmpl, rules)
	if err != nil {
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			return nil, err
		}
		file.ErrorMessage = vErr.Detail
		if tErr := s.transition(ctx, file, StatusRejected); tErr != nil {
			return nil, tErr
		}
		log.Info("upload rejected", "code", vErr.Code, "detail", vErr.Detail)
		return nil, vErr
	}

	if len(validation.Notes) > 0 {
		file.ValidationNotes = strings.Join(validation.Notes, "; ")
	}

	result, procErr := s.processor.Process(ctx, tbl, file.ID)
	if procErr != nil {
		file.ErrorMessage = procErr.Error()
		if tErr := s.transition(ctx, file, StatusFailed); tErr != nil {
			return nil, tErr
		}
		log.Error("upload processing failed", "error", procErr)
		return result, procErr
	}

	now := time.Now().UTC()
	file.ProcessedAt = &now
	file.RowsProcessed = result.RowsProcessed
	file.RowsFailed = result.RowsFailed
	if file.ValidationNotes != "" {
		file.ValidationNotes += "; " + result.Notes
	} else {
		file.ValidationNotes = result.Notes
	}
	if err := s.transition(ctx, file, StatusCompleted); err != nil {
		return nil, err
	}

	log.Info("upload completed",
		"rows_processed", result.RowsProcessed,
		"rows_failed", result.RowsFailed,
	)
	return result, nil
}

// transition moves the file to the next lifecycle state, enforcing the
// monotonic state machine before persisting.
func (s *Service) transition(ctx context.Context, file *UploadedFile, next UploadStatus) error {
	if !file.Status.CanTransition(next) {
		return fmt.Errorf("illegal status transition %s -> %s for upload %s",
			file.Status, next, file.ID)
	}
	file.Status = next
	if err := s.stores.Uploads.Update(ctx, file); err != nil {
		return fmt.Errorf("persist status %s: %w", next, err)
	}
	return nil
}

// checkTransport enforces the extension allow-list and byte ceiling before
// any record is created.
func (s *Service) checkTransport(req UploadRequest) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(req.Filename), "."))
	allowed := false
	for _, a := range s.opts.AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", &ValidationError{
			Code: CodeFileType,
			Detail: fmt.Sprintf("File type not allowed. Allowed types: %s",
				strings.Join(s.opts.AllowedExtensions, ", ")),
		}
	}

	if len(req.Data) == 0 {
		return "", &ValidationError{Code: CodeEmptyFile, Detail: "No file content provided"}
	}
	if int64(len(req.Data)) > s.opts.MaxFileSize {
		return "", &ValidationError{
			Code: CodeFileTooLarge,
			Detail: fmt.Sprintf("File exceeds the %d byte limit", s.opts.MaxFileSize),
		}
	}
	return ext, nil
}

// resolveTemplate looks up an active template when one was requested. A
// missing or inactive template falls back to the minimum-header policy
// rather than rejecting the upload.
func (s *Service) resolveTemplate(ctx context.Context, id uuid.UUID) (*UploadTemplate, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	tmpl, err := s.stores.Templates.GetActive(ctx, id)
	if errors.Is(err, ErrNotFound) {
		slog.Warn("requested template not found, using minimum headers", "template_id", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve template: %w", err)
	}
	return tmpl, nil
}

func (s *Service) activeRules(ctx context.Context) ([]ValidationRule, error) {
	if s.stores.Rules == nil {
		return nil, nil
	}
	rules, err := s.stores.Rules.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load validation rules: %w", err)
	}
	return rules, nil
}

// GetUpload returns one upload with its derived-record count. Callers that
// cannot view all rows see only their own uploads.
func (s *Service) GetUpload(ctx context.Context, ident Identity, id uuid.UUID) (*UploadedFile, int64, error) {
	file, err := s.stores.Uploads.Get(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	if !CanViewAll(ident.Role) && file.UploadedBy != ident.UserID {
		return nil, 0, &PermissionError{
			Required: []Role{RoleAdmin, RoleExecutive},
			Actual:   ident.Role,
		}
	}

	count, err := s.stores.Records.CountByFile(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}
	return file, count, nil
}

// ListUploads returns a page of uploads, narrowed to the caller's own rows
// unless the role may view all.
func (s *Service) ListUploads(ctx context.Context, ident Identity, filter UploadFilter) (*UploadPage, error) {
	if !CanViewAll(ident.Role) {
		filter.UploadedBy = ident.UserID
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	total, items, err := s.stores.Uploads.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}

	return &UploadPage{
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		Uploads: items,
	}, nil
}

// DeleteUpload removes an upload, its engagement records (cascade), and its
// stored blob. Admin and executive only. Emits exactly one FILE_DELETED
// audit entry; a denied caller produces neither audit entry nor mutation.
func (s *Service) DeleteUpload(ctx context.Context, ident Identity, id uuid.UUID) error {
	if err := Require(ident.Role, RoleAdmin, RoleExecutive); err != nil {
		return err
	}

	file, err := s.stores.Uploads.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.stores.Uploads.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}

	if err := s.stores.Blobs.Delete(ctx, file.StoredFilename); err != nil {
		slog.Warn("stored file removal failed", "key", file.StoredFilename, "error", err)
	}

	s.audit.Record(ctx, AuditParams{
		UserID:    ident.UserID,
		Action:    ActionFileDeleted,
		TableName: "uploaded_files",
		RecordID:  file.ID,
		OldValues: map[string]any{"filename": file.OriginalFilename},
	})

	slog.Info("upload deleted", "file_id", file.ID, "filename", file.OriginalFilename)
	return nil
}

// ListRecords returns the engagement records extracted from one upload,
// subject to the same ownership narrowing as GetUpload.
func (s *Service) ListRecords(ctx context.Context, ident Identity, fileID uuid.UUID, limit, offset int) ([]EngagementRecord, error) {
	file, err := s.stores.Uploads.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !CanViewAll(ident.Role) && file.UploadedBy != ident.UserID {
		return nil, &PermissionError{
			Required: []Role{RoleAdmin, RoleExecutive},
			Actual:   ident.Role,
		}
	}
	if limit <= 0 {
		limit = 100
	}
	return s.stores.Records.ListByFile(ctx, fileID, limit, offset)
}

// ListTemplates returns the active upload templates.
func (s *Service) ListTemplates(ctx context.Context) ([]UploadTemplate, error) {
	return s.stores.Templates.ListActive(ctx)
}

// GetTemplate returns one active template by id.
func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*UploadTemplate, error) {
	return s.stores.Templates.GetActive(ctx, id)
}

// sanitizeFilename keeps only the base name of a client-supplied path.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return path.Base(strings.TrimSpace(name))
}
