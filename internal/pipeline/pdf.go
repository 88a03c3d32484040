package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/policytrack/renewal-backend/internal/models"
	"github.com/policytrack/renewal-backend/internal/proclog"
	"github.com/policytrack/renewal-backend/internal/s3io"

	"github.com/oklog/ulid/v2"
)

// RunPDF executes the premium-list ingestion pipeline for one finalized PDF.
//
// Re-delivery of the same finalize event re-runs the pipeline and creates
// duplicate records; every record carries its upload id so a dedupe check can
// be retrofitted where at-least-once delivery matters.
func (p *Pipelines) RunPDF(ctx context.Context, bucket, key string) error {
	uploadID, ok := s3io.ParsePolicyUploadKey(key)
	if !ok {
		return fmt.Errorf("not a premium-list upload key: %q", key)
	}

	ctx, cancel := context.WithTimeout(ctx, p.Opts.PDFTimeout)
	defer cancel()

	tr, err := proclog.Begin(ctx, p.Logs, &proclog.Entry{
		UploadID: uploadID,
		Type:     proclog.TypePDF,
		Stage:    proclog.StageProcessing,
		Message:  "Processing premium due list",
	})
	if err != nil {
		return err
	}

	return p.runGuarded(ctx, tr, func() error {
		return p.runPDF(ctx, tr, bucket, key, uploadID)
	})
}

// runGuarded is the outermost handler: whatever fn does — error or panic —
// the log reaches a terminal stage before the invocation ends.
func (p *Pipelines) runGuarded(ctx context.Context, tr *proclog.Tracker, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
		if err != nil {
			// The run context may already be expired; the terminal write
			// must still go through.
			failCtx := context.WithoutCancel(ctx)
			if ferr := tr.Fail(failCtx, err.Error()); ferr != nil {
				log.Printf("pipeline: terminal log write failed for %s: %v", tr.Entry().UploadID, ferr)
			}
		}
	}()
	return fn()
}

func (p *Pipelines) runPDF(ctx context.Context, tr *proclog.Tracker, bucket, key, uploadID string) error {
	data, cleanup, err := p.Fetcher.Fetch(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("fetch upload: %w", err)
	}
	defer cleanup()

	if err := tr.Advance(ctx, proclog.StageParsing, "Extracting policy data from document"); err != nil {
		return err
	}

	rows, err := p.Extractor.ExtractPremiumList(ctx, data)
	if err != nil {
		return err
	}

	valid := filterRows(rows)
	if len(valid) == 0 {
		zero := 0
		tr.Entry().PoliciesFound = &zero
		return tr.Complete(ctx, proclog.StatusWarning,
			fmt.Sprintf("No valid policy rows found (%d rows extracted)", len(rows)))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	records := make([]models.PolicyRecord, 0, len(valid))
	for _, row := range valid {
		records = append(records, models.PolicyRecord{
			PolicyID:     ulid.Make().String(),
			Kind:         models.KindRenewal,
			PolicyNumber: row.PolicyNumber,
			CustomerName: row.CustomerName,
			Amount:       row.Amount,
			Commission:   row.Commission,
			Mode:         row.Mod,
			FollowUpDate: row.Fup,
			DueDate:      p.Opts.DefaultDueDate,
			Status:       models.RenewalPending,
			UploadID:     uploadID,
			CreatedAt:    now,
		})
	}

	written, err := p.Policies.BulkInsertPolicies(ctx, records)
	if err != nil {
		// Chunks committed before the failure stay committed.
		return fmt.Errorf("bulk insert (%d of %d written): %w", written, len(records), err)
	}

	tr.Entry().PoliciesFound = &written
	return tr.Complete(ctx, proclog.StatusSuccess, fmt.Sprintf("Imported %d policies", written))
}

// filterRows drops rows missing a required field or with a non-positive
// amount. Partial bad data never rejects the whole batch.
func filterRows(rows []models.ExtractedPolicy) []models.ExtractedPolicy {
	valid := make([]models.ExtractedPolicy, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.PolicyNumber) == "" ||
			strings.TrimSpace(row.CustomerName) == "" ||
			strings.TrimSpace(row.Mod) == "" ||
			strings.TrimSpace(row.Fup) == "" ||
			row.Amount <= 0 {
			continue
		}
		valid = append(valid, row)
	}
	return valid
}
