package pipeline

import (
	"context"
	"testing"
)

func TestDispatchIgnoresUnknownPaths(t *testing.T) {
	keys := []string{
		"avatars/user1.png",
		"policy-uploads/list.txt",
		"policy-uploads/",
		"exports/policies.csv",
		"receipt/pol1_123.jpg", // wrong prefix, singular
	}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			logs := &fakeLogStore{}
			store := &fakePolicyStore{}
			ex := &fakeExtractor{}
			p := newTestPipelines(&fakeFetcher{}, ex, store, logs)

			matched, err := p.Dispatch(context.Background(), "b", key)
			if err != nil {
				t.Fatal(err)
			}
			if matched {
				t.Fatalf("key %q matched a route", key)
			}
			if logs.Puts != 0 || logs.Updates != 0 {
				t.Error("progress log written for unknown path")
			}
			if len(store.Inserted) != 0 || store.VerifyCalls != 0 {
				t.Error("store mutated for unknown path")
			}
			if ex.PremiumCalls != 0 || ex.ReceiptCalls != 0 {
				t.Error("model called for unknown path")
			}
		})
	}
}

func TestDispatchRoutesByPrefix(t *testing.T) {
	p := newTestPipelines(&fakeFetcher{}, &fakeExtractor{}, &fakePolicyStore{}, &fakeLogStore{})
	routes := p.Routes()
	if len(routes) != 2 {
		t.Fatalf("routes = %d, want 2", len(routes))
	}
	if !routes[0].Match(pdfKey) || routes[0].Match(receiptKey) {
		t.Error("premium-list route predicate wrong")
	}
	if !routes[1].Match(receiptKey) || routes[1].Match(pdfKey) {
		t.Error("receipt route predicate wrong")
	}
}
