package pipeline

import (
	"context"
	"errors"

	"github.com/policytrack/renewal-backend/internal/models"
	"github.com/policytrack/renewal-backend/internal/proclog"
)

// Common test errors
var (
	errMockFetch   = errors.New("mock fetch error")
	errMockExtract = errors.New("mock extract error")
	errMockStore   = errors.New("mock store error")
)

// fakeFetcher implements Fetcher for testing.
type fakeFetcher struct {
	FetchFunc func(ctx context.Context, bucket, key string) ([]byte, func(), error)
	Calls     int
	Cleanups  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, bucket, key string) ([]byte, func(), error) {
	f.Calls++
	cleanup := func() { f.Cleanups++ }
	if f.FetchFunc != nil {
		data, _, err := f.FetchFunc(ctx, bucket, key)
		return data, cleanup, err
	}
	return []byte("payload"), cleanup, nil
}

// fakeExtractor implements Extractor for testing.
type fakeExtractor struct {
	PremiumFunc  func(ctx context.Context, pdf []byte) ([]models.ExtractedPolicy, error)
	ReceiptFunc  func(ctx context.Context, image []byte, mimeType string) (*models.ReceiptExtraction, error)
	PremiumCalls int
	ReceiptCalls int
}

func (f *fakeExtractor) ExtractPremiumList(ctx context.Context, pdf []byte) ([]models.ExtractedPolicy, error) {
	f.PremiumCalls++
	if f.PremiumFunc != nil {
		return f.PremiumFunc(ctx, pdf)
	}
	return nil, nil
}

func (f *fakeExtractor) ExtractReceipt(ctx context.Context, image []byte, mimeType string) (*models.ReceiptExtraction, error) {
	f.ReceiptCalls++
	if f.ReceiptFunc != nil {
		return f.ReceiptFunc(ctx, image, mimeType)
	}
	return &models.ReceiptExtraction{}, nil
}

// fakePolicyStore implements PolicyStore for testing.
type fakePolicyStore struct {
	GetFunc    func(ctx context.Context, policyID string) (*models.PolicyRecord, error)
	BulkFunc   func(ctx context.Context, records []models.PolicyRecord) (int, error)
	VerifyFunc func(ctx context.Context, policyID string) error

	Inserted    []models.PolicyRecord
	VerifyCalls int
	VerifiedID  string
	VerifiedNum string
}

func (f *fakePolicyStore) GetPolicy(ctx context.Context, policyID string) (*models.PolicyRecord, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, policyID)
	}
	return nil, errors.New("not found")
}

func (f *fakePolicyStore) BulkInsertPolicies(ctx context.Context, records []models.PolicyRecord) (int, error) {
	if f.BulkFunc != nil {
		return f.BulkFunc(ctx, records)
	}
	f.Inserted = append(f.Inserted, records...)
	return len(records), nil
}

func (f *fakePolicyStore) MarkVerified(ctx context.Context, policyID string, method models.VerificationMethod, number, name, receiptKey string) error {
	f.VerifyCalls++
	f.VerifiedID = policyID
	f.VerifiedNum = number
	if f.VerifyFunc != nil {
		return f.VerifyFunc(ctx, policyID)
	}
	return nil
}

// fakeLogStore implements proclog.Store, keeping the latest entry state.
type fakeLogStore struct {
	PutFunc func(ctx context.Context, e *proclog.Entry) error
	Puts    int
	Updates int
	Last    proclog.Entry
	History []proclog.Entry
}

func (f *fakeLogStore) PutEntry(ctx context.Context, e *proclog.Entry) error {
	f.Puts++
	f.Last = *e
	f.History = append(f.History, *e)
	if f.PutFunc != nil {
		return f.PutFunc(ctx, e)
	}
	return nil
}

func (f *fakeLogStore) UpdateEntry(ctx context.Context, e *proclog.Entry) error {
	f.Updates++
	f.Last = *e
	f.History = append(f.History, *e)
	return nil
}

func (f *fakeLogStore) GetEntry(ctx context.Context, uploadID string) (*proclog.Entry, error) {
	e := f.Last
	return &e, nil
}

func newTestPipelines(fetcher *fakeFetcher, ex *fakeExtractor, store *fakePolicyStore, logs *fakeLogStore) *Pipelines {
	return New(fetcher, ex, store, logs, Options{DefaultDueDate: "2026-03-25"})
}

func validRow(num string) models.ExtractedPolicy {
	return models.ExtractedPolicy{
		PolicyNumber: num,
		CustomerName: "JOHN DOE",
		Mod:          "qly",
		Fup:          "03/2026",
		Amount:       4520,
		Commission:   113,
	}
}
