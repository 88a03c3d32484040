// Package proclog is the durable progress log for pipeline invocations.
// One entry is minted per upload; the pipeline is its sole writer and any
// number of clients read it by upload id.
package proclog

import (
	"context"
	"fmt"
	"time"
)

// Stage is the pipeline position recorded on an entry.
type Stage string

// Pipeline stages, in order. Completed and Failed are terminal.
const (
	StageUploading  Stage = "uploading"
	StageProcessing Stage = "processing"
	StageParsing    Stage = "parsing"
	StageVerifying  Stage = "verifying"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// Status is the coarse outcome classification, independent of stage.
type Status string

// Possible values for Status
const (
	StatusInProgress Status = "in_progress"
	StatusSuccess    Status = "success"
	StatusWarning    Status = "warning"
	StatusError      Status = "error"
)

// JobType distinguishes the two pipelines sharing the log contract.
type JobType string

// Possible values for JobType
const (
	TypePDF     JobType = "pdf"
	TypeReceipt JobType = "receipt"
)

// Entry is one pipeline invocation's lifecycle record.
type Entry struct {
	// DynamoDB keys
	PK string `dynamodbav:"PK" json:"-"` // UPLOAD#<uploadID>
	SK string `dynamodbav:"SK" json:"-"` // PROGRESS

	UploadID string  `dynamodbav:"upload_id" json:"upload_id"`
	Type     JobType `dynamodbav:"type" json:"type"`
	Stage    Stage   `dynamodbav:"stage" json:"stage"`
	Status   Status  `dynamodbav:"status" json:"status"`
	Message  string  `dynamodbav:"message" json:"message"`

	PolicyID      string `dynamodbav:"policy_id,omitempty" json:"policy_id,omitempty"`
	PoliciesFound *int   `dynamodbav:"policies_found,omitempty" json:"policies_found,omitempty"`

	VerificationPassed *bool `dynamodbav:"verification_passed,omitempty" json:"verification_passed,omitempty"`
	PolicyNumberMatch  *bool `dynamodbav:"policy_number_match,omitempty" json:"policy_number_match,omitempty"`
	CustomerNameMatch  *bool `dynamodbav:"customer_name_match,omitempty" json:"customer_name_match,omitempty"`

	Error string `dynamodbav:"error,omitempty" json:"error,omitempty"`

	StartedAt   int64  `dynamodbav:"started_at" json:"started_at"`
	CompletedAt *int64 `dynamodbav:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Terminal reports whether s permits no further transitions.
func Terminal(s Stage) bool {
	return s == StageCompleted || s == StageFailed
}

// transitions is the legal stage graph. Any non-terminal stage may jump
// straight to failed.
var transitions = map[Stage][]Stage{
	StageUploading:  {StageProcessing, StageFailed},
	StageProcessing: {StageParsing, StageVerifying, StageFailed},
	StageParsing:    {StageCompleted, StageFailed},
	StageVerifying:  {StageCompleted, StageFailed},
	StageCompleted:  {},
	StageFailed:     {},
}

// CanTransition reports whether moving from one stage to the next is legal.
func CanTransition(from, to Stage) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Store persists entries. Implemented by ddb.Repo; faked in tests.
type Store interface {
	PutEntry(ctx context.Context, e *Entry) error
	UpdateEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, uploadID string) (*Entry, error)
}

// Tracker owns one entry's lifecycle and enforces the transition table, so a
// bug cannot resurrect a terminal log.
type Tracker struct {
	store Store
	entry *Entry
}

// Begin persists the entry template at its initial stage before any fallible
// pipeline work, so observers see progress instead of silence. Status and
// StartedAt are stamped here.
func Begin(ctx context.Context, store Store, e *Entry) (*Tracker, error) {
	e.Status = StatusInProgress
	e.StartedAt = time.Now().UnixMilli()
	if err := store.PutEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("create progress entry %s: %w", e.UploadID, err)
	}
	return &Tracker{store: store, entry: e}, nil
}

// Entry returns the tracked entry's current state.
func (t *Tracker) Entry() *Entry { return t.entry }

// Advance moves the entry to a non-terminal stage with a new message.
func (t *Tracker) Advance(ctx context.Context, stage Stage, message string) error {
	if !CanTransition(t.entry.Stage, stage) {
		return fmt.Errorf("illegal stage transition %s -> %s", t.entry.Stage, stage)
	}
	t.entry.Stage = stage
	t.entry.Message = message
	return t.store.UpdateEntry(ctx, t.entry)
}

// Complete moves the entry to the completed terminal stage. Status must be
// success, warning or error (a failed verification completes with error).
func (t *Tracker) Complete(ctx context.Context, status Status, message string) error {
	if !CanTransition(t.entry.Stage, StageCompleted) {
		return fmt.Errorf("illegal stage transition %s -> %s", t.entry.Stage, StageCompleted)
	}
	now := time.Now().UnixMilli()
	t.entry.Stage = StageCompleted
	t.entry.Status = status
	t.entry.Message = message
	t.entry.CompletedAt = &now
	return t.store.UpdateEntry(ctx, t.entry)
}

// Fail moves the entry to the failed terminal stage. It is legal from every
// non-terminal stage and is the outermost handler's last resort; once the
// entry is already terminal it is a no-op.
func (t *Tracker) Fail(ctx context.Context, message string) error {
	if Terminal(t.entry.Stage) {
		return nil
	}
	now := time.Now().UnixMilli()
	t.entry.Stage = StageFailed
	t.entry.Status = StatusError
	t.entry.Message = message
	t.entry.Error = message
	t.entry.CompletedAt = &now
	return t.store.UpdateEntry(ctx, t.entry)
}
