package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/policytrack/renewal-backend/internal/models"
	"github.com/policytrack/renewal-backend/internal/proclog"
	"github.com/policytrack/renewal-backend/internal/s3io"
)

// RunReceipt executes the auto-verification pipeline for one receipt photo.
func (p *Pipelines) RunReceipt(ctx context.Context, bucket, key string) error {
	policyID, uploadID, ok := s3io.ParseReceiptKey(key)
	if !ok {
		// No upload id could be derived, so no progress entry exists to
		// fail; log locally and abort.
		log.Printf("receipt: unparseable key %q, aborting", key)
		return fmt.Errorf("not a receipt key: %q", key)
	}

	ctx, cancel := context.WithTimeout(ctx, p.Opts.ReceiptTimeout)
	defer cancel()

	tr, err := proclog.Begin(ctx, p.Logs, &proclog.Entry{
		UploadID: uploadID,
		Type:     proclog.TypeReceipt,
		PolicyID: policyID,
		Stage:    proclog.StageUploading,
		Message:  "Receipt uploaded",
	})
	if err != nil {
		return err
	}

	return p.runGuarded(ctx, tr, func() error {
		return p.runReceipt(ctx, tr, bucket, key, policyID)
	})
}

func (p *Pipelines) runReceipt(ctx context.Context, tr *proclog.Tracker, bucket, key, policyID string) error {
	if err := tr.Advance(ctx, proclog.StageProcessing, "Analyzing receipt"); err != nil {
		return err
	}

	// Cheap referential check before the expensive model call.
	policy, err := p.Policies.GetPolicy(ctx, policyID)
	if err != nil {
		return fmt.Errorf("policy not found: %s", policyID)
	}

	data, cleanup, err := p.Fetcher.Fetch(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("fetch receipt: %w", err)
	}
	defer cleanup()

	extracted, err := p.Extractor.ExtractReceipt(ctx, data, s3io.ReceiptMIMEType(key))
	if err != nil {
		return err
	}

	extNumber := strDeref(extracted.PolicyNumber)
	extName := strDeref(extracted.CustomerName)
	if err := tr.Advance(ctx, proclog.StageVerifying,
		fmt.Sprintf("Verifying extracted number=%q name=%q", extNumber, extName)); err != nil {
		return err
	}

	numberOK := extNumber != "" && extNumber == policy.PolicyNumber
	nameOK := NameMatch(extName, policy.CustomerName)
	passed := numberOK && nameOK

	e := tr.Entry()
	e.PolicyNumberMatch = &numberOK
	e.CustomerNameMatch = &nameOK
	e.VerificationPassed = &passed

	if !passed {
		// A mismatch is a normal outcome, not a pipeline failure. The
		// record stays pending so the user may retry with a clearer photo.
		return tr.Complete(ctx, proclog.StatusError, mismatchMessage(numberOK, nameOK))
	}

	if err := p.Policies.MarkVerified(ctx, policyID, models.VerifyAuto, extNumber, extName, key); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return tr.Complete(ctx, proclog.StatusSuccess, "Receipt verified automatically")
}

// NameMatch applies the deliberately permissive fuzzy rule: case-insensitive
// equality, or either name containing the other. Containment absorbs OCR
// truncation and extra honorifics without edit-distance scoring.
func NameMatch(extracted, expected string) bool {
	a := strings.ToLower(strings.TrimSpace(extracted))
	b := strings.ToLower(strings.TrimSpace(expected))
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

func mismatchMessage(numberOK, nameOK bool) string {
	var failures []string
	if !numberOK {
		failures = append(failures, "policy number mismatch")
	}
	if !nameOK {
		failures = append(failures, "customer name mismatch")
	}
	return "Verification failed: " + strings.Join(failures, ", ")
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
