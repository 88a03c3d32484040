package pipeline

import (
	"context"
	"strings"

	"github.com/policytrack/renewal-backend/internal/s3io"
)

// Route pairs a key predicate with the pipeline it triggers. Routes are
// evaluated in order; adding a new document type means adding a pair here.
type Route struct {
	Name  string
	Match func(key string) bool
	Run   func(ctx context.Context, bucket, key string) error
}

// Routes returns the dispatch table for finalized objects.
func (p *Pipelines) Routes() []Route {
	return []Route{
		{
			Name: "premium-list-pdf",
			Match: func(key string) bool {
				_, ok := s3io.ParsePolicyUploadKey(key)
				return ok
			},
			Run: p.RunPDF,
		},
		{
			Name: "receipt",
			Match: func(key string) bool {
				return strings.HasPrefix(key, s3io.ReceiptPrefix)
			},
			Run: p.RunReceipt,
		},
	}
}

// Dispatch runs the first matching route for a finalized object. An object
// outside every recognized pattern is a no-op, not an error.
func (p *Pipelines) Dispatch(ctx context.Context, bucket, key string) (matched bool, err error) {
	for _, route := range p.Routes() {
		if route.Match(key) {
			return true, route.Run(ctx, bucket, key)
		}
	}
	return false, nil
}
