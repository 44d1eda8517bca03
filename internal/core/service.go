package core

import (
	"time"
)

// Options carries the externally configured pipeline limits.
type Options struct {
	// MaxFileSize is the upload byte ceiling (default 10 MiB).
	MaxFileSize int64
	// MaxRows is the validation row ceiling (default 10000).
	MaxRows int
	// BatchSize is rows committed per transaction (default 100).
	BatchSize int
	// AllowedExtensions is the filename extension allow-list.
	AllowedExtensions []string
	// MaxConcurrent bounds parallel upload pipelines.
	MaxConcurrent int
	// MaxWaitTime is how long an upload waits for a pipeline slot.
	MaxWaitTime time.Duration
}

// DefaultMaxFileSize is the default upload byte ceiling (10 MiB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// DefaultAllowedExtensions is the default filename extension allow-list.
var DefaultAllowedExtensions = []string{"xlsx", "xls", "csv", "tsv"}

func (o Options) withDefaults() Options {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.MaxRows <= 0 {
		o.MaxRows = DefaultMaxRows
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if len(o.AllowedExtensions) == 0 {
		o.AllowedExtensions = DefaultAllowedExtensions
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = DefaultMaxConcurrentUploads
	}
	if o.MaxWaitTime <= 0 {
		o.MaxWaitTime = DefaultMaxWaitTime
	}
	return o
}

// Stores bundles the persistence contracts the service writes through.
type Stores struct {
	Uploads   UploadStore
	Records   RecordStore
	Templates TemplateStore
	Rules     RuleStore
	Audit     AuditStore
	Blobs     BlobStore
}

// Service owns the upload lifecycle: it runs the access guard, the
// validator, and the processor in order, and persists every status
// transition. One Service instance serves all concurrent uploads; each
// pipeline run is independent and carries its own request context.
type Service struct {
	stores    Stores
	validator *Validator
	processor *Processor
	audit     *Recorder
	limiter   *UploadLimiter
	opts      Options
}

// NewService wires the pipeline components together.
func NewService(stores Stores, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		stores:    stores,
		validator: NewValidator(opts.MaxRows),
		processor: NewProcessor(stores.Records, opts.BatchSize),
		audit:     NewRecorder(stores.Audit),
		limiter:   NewUploadLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
		opts:      opts,
	}
}

// Limiter exposes the upload limiter for shutdown draining.
func (s *Service) Limiter() *UploadLimiter {
	return s.limiter
}
