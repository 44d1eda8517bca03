package core

// In-memory store fakes backing the pipeline tests. They mirror the
// Postgres implementations' contracts: the record fake can fail individual
// rows (isolated) or whole batches (fatal) on demand.

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type memUploadStore struct {
	mu    sync.Mutex
	files map[uuid.UUID]*UploadedFile

	// cascade emulates the FK cascade from uploads to engagement records.
	cascade func(uuid.UUID)
}

func newMemUploadStore() *memUploadStore {
	return &memUploadStore{files: make(map[uuid.UUID]*UploadedFile)}
}

func (s *memUploadStore) Create(_ context.Context, f *UploadedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	s.files[f.ID] = &cp
	return nil
}

func (s *memUploadStore) Get(_ context.Context, id uuid.UUID) (*UploadedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *memUploadStore) List(_ context.Context, filter UploadFilter) (int64, []UploadedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []UploadedFile
	for _, f := range s.files {
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		if filter.UploadedBy != uuid.Nil && f.UploadedBy != filter.UploadedBy {
			continue
		}
		items = append(items, *f)
	}
	total := int64(len(items))
	if filter.Offset > 0 && filter.Offset < len(items) {
		items = items[filter.Offset:]
	} else if filter.Offset >= len(items) {
		items = nil
	}
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return total, items, nil
}

func (s *memUploadStore) Update(_ context.Context, f *UploadedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[f.ID]; !ok {
		return ErrNotFound
	}
	cp := *f
	s.files[f.ID] = &cp
	return nil
}

func (s *memUploadStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return ErrNotFound
	}
	delete(s.files, id)
	if s.cascade != nil {
		s.cascade(id)
	}
	return nil
}

type memRecordStore struct {
	mu   sync.Mutex
	recs []EngagementRecord

	// failRow fails the numbered source rows in isolation.
	failRow map[int]error
	// failOnBatch makes the numbered InsertBatch call (1-based) fail fatally.
	failOnBatch int
	batches     int
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{failRow: make(map[int]error)}
}

func (s *memRecordStore) InsertBatch(_ context.Context, recs []EngagementRecord) ([]BatchRowError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	if s.failOnBatch > 0 && s.batches == s.failOnBatch {
		return nil, errors.New("connection lost")
	}
	var failed []BatchRowError
	for _, r := range recs {
		if err, ok := s.failRow[r.RowNumber]; ok {
			failed = append(failed, BatchRowError{RowNumber: r.RowNumber, Err: err})
			continue
		}
		s.recs = append(s.recs, r)
	}
	return failed, nil
}

func (s *memRecordStore) CountByFile(_ context.Context, fileID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.recs {
		if r.FileID == fileID {
			n++
		}
	}
	return n, nil
}

func (s *memRecordStore) ListByFile(_ context.Context, fileID uuid.UUID, limit, offset int) ([]EngagementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []EngagementRecord
	for _, r := range s.recs {
		if r.FileID == fileID {
			out = append(out, r)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memRecordStore) deleteByFile(fileID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.recs[:0]
	for _, r := range s.recs {
		if r.FileID != fileID {
			kept = append(kept, r)
		}
	}
	s.recs = kept
}

type memTemplateStore struct {
	templates map[uuid.UUID]*UploadTemplate
}

func newMemTemplateStore() *memTemplateStore {
	return &memTemplateStore{templates: make(map[uuid.UUID]*UploadTemplate)}
}

func (s *memTemplateStore) GetActive(_ context.Context, id uuid.UUID) (*UploadTemplate, error) {
	t, ok := s.templates[id]
	if !ok || !t.IsActive {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memTemplateStore) ListActive(_ context.Context) ([]UploadTemplate, error) {
	var out []UploadTemplate
	for _, t := range s.templates {
		if t.IsActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

type memRuleStore struct {
	rules []ValidationRule
}

func (s *memRuleStore) ListActive(_ context.Context) ([]ValidationRule, error) {
	return s.rules, nil
}

type memAuditStore struct {
	mu      sync.Mutex
	entries []AuditLogEntry
	fail    bool
}

func (s *memAuditStore) Insert(_ context.Context, e *AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("audit storage unavailable")
	}
	s.entries = append(s.entries, *e)
	return nil
}

func (s *memAuditStore) byAction(action AuditAction) []AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AuditLogEntry
	for _, e := range s.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string][]byte)}
}

func (s *memBlobStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("object %s not found", key)
	}
	delete(s.objects, key)
	return nil
}

// testEnv bundles a service with its fakes for lifecycle tests.
type testEnv struct {
	service   *Service
	uploads   *memUploadStore
	records   *memRecordStore
	templates *memTemplateStore
	rules     *memRuleStore
	audit     *memAuditStore
	blobs     *memBlobStore
}

func newTestEnv(opts Options) *testEnv {
	env := &testEnv{
		uploads:   newMemUploadStore(),
		records:   newMemRecordStore(),
		templates: newMemTemplateStore(),
		rules:     &memRuleStore{},
		audit:     &memAuditStore{},
		blobs:     newMemBlobStore(),
	}
	env.uploads.cascade = env.records.deleteByFile
	env.service = NewService(Stores{
		Uploads:   env.uploads,
		Records:   env.records,
		Templates: env.templates,
		Rules:     env.rules,
		Audit:     env.audit,
		Blobs:     env.blobs,
	}, opts)
	return env
}

func staffIdentity() Identity {
	return Identity{UserID: uuid.New(), Username: "staffer", Role: RoleStaff}
}

func adminIdentity() Identity {
	return Identity{UserID: uuid.New(), Username: "admin", Role: RoleAdmin}
}
