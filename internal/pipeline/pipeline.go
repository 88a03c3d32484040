// Package pipeline runs the document ingestion and verification jobs
// triggered by storage finalize events.
package pipeline

import (
	"context"
	"time"

	"github.com/policytrack/renewal-backend/internal/models"
	"github.com/policytrack/renewal-backend/internal/proclog"
)

// Extractor is the multimodal model call. Implemented by extract.Client.
type Extractor interface {
	ExtractPremiumList(ctx context.Context, pdf []byte) ([]models.ExtractedPolicy, error)
	ExtractReceipt(ctx context.Context, image []byte, mimeType string) (*models.ReceiptExtraction, error)
}

// PolicyStore is the subset of the repository the pipelines mutate.
type PolicyStore interface {
	GetPolicy(ctx context.Context, policyID string) (*models.PolicyRecord, error)
	BulkInsertPolicies(ctx context.Context, records []models.PolicyRecord) (int, error)
	MarkVerified(ctx context.Context, policyID string, method models.VerificationMethod, number, name, receiptKey string) error
}

// Fetcher retrieves an uploaded object's bytes. The cleanup func removes any
// transient local copy and must be called on every exit path.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, func(), error)
}

// Options carries per-run tunables.
type Options struct {
	// DefaultDueDate is stamped on bulk-imported records; the premium-due
	// list document does not carry per-row due dates.
	DefaultDueDate string
	// PDFTimeout bounds one premium-list run (multi-page analysis is slow).
	PDFTimeout time.Duration
	// ReceiptTimeout bounds one receipt verification run.
	ReceiptTimeout time.Duration
}

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.PDFTimeout <= 0 {
		opts.PDFTimeout = 180 * time.Second
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = 60 * time.Second
	}
	return opts
}

// Pipelines wires the collaborators shared by both jobs. Collaborators are
// injected so tests can substitute fakes.
type Pipelines struct {
	Fetcher   Fetcher
	Extractor Extractor
	Policies  PolicyStore
	Logs      proclog.Store
	Opts      Options
}

// New constructs the pipeline set.
func New(f Fetcher, e Extractor, p PolicyStore, l proclog.Store, opts Options) *Pipelines {
	return &Pipelines{Fetcher: f, Extractor: e, Policies: p, Logs: l, Opts: opts.withDefaults()}
}
