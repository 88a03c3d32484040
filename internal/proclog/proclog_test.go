package proclog

import (
	"context"
	"errors"
	"testing"
)

// fakeStore records entry writes in memory.
type fakeStore struct {
	PutFunc    func(ctx context.Context, e *Entry) error
	UpdateFunc func(ctx context.Context, e *Entry) error
	Puts       int
	Updates    int
	Last       Entry
}

func (f *fakeStore) PutEntry(ctx context.Context, e *Entry) error {
	f.Puts++
	f.Last = *e
	if f.PutFunc != nil {
		return f.PutFunc(ctx, e)
	}
	return nil
}

func (f *fakeStore) UpdateEntry(ctx context.Context, e *Entry) error {
	f.Updates++
	f.Last = *e
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, e)
	}
	return nil
}

func (f *fakeStore) GetEntry(ctx context.Context, uploadID string) (*Entry, error) {
	e := f.Last
	return &e, nil
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Stage
		want     bool
	}{
		{StageUploading, StageProcessing, true},
		{StageUploading, StageFailed, true},
		{StageProcessing, StageParsing, true},
		{StageProcessing, StageVerifying, true},
		{StageProcessing, StageFailed, true},
		{StageParsing, StageCompleted, true},
		{StageVerifying, StageCompleted, true},
		{StageParsing, StageFailed, true},
		{StageVerifying, StageFailed, true},

		{StageUploading, StageParsing, false},
		{StageUploading, StageCompleted, false},
		{StageParsing, StageVerifying, false},
		{StageProcessing, StageCompleted, false},
		{StageCompleted, StageFailed, false},
		{StageCompleted, StageProcessing, false},
		{StageFailed, StageCompleted, false},
		{StageFailed, StageProcessing, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTrackerLifecycle(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}

	tr, err := Begin(ctx, store, &Entry{UploadID: "u1", Type: TypePDF, Stage: StageProcessing, Message: "start"})
	if err != nil {
		t.Fatal(err)
	}
	if store.Puts != 1 {
		t.Fatalf("Begin should persist immediately, puts=%d", store.Puts)
	}
	if store.Last.Status != StatusInProgress || store.Last.StartedAt == 0 {
		t.Fatalf("Begin did not stamp status/startedAt: %+v", store.Last)
	}

	if err := tr.Advance(ctx, StageParsing, "parsing"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Complete(ctx, StatusSuccess, "done"); err != nil {
		t.Fatal(err)
	}
	if store.Last.Stage != StageCompleted || store.Last.Status != StatusSuccess {
		t.Fatalf("unexpected terminal state: %+v", store.Last)
	}
	if store.Last.CompletedAt == nil {
		t.Fatal("Complete did not stamp completedAt")
	}
}

func TestTrackerRejectsIllegalTransition(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	tr, _ := Begin(ctx, store, &Entry{UploadID: "u1", Type: TypePDF, Stage: StageProcessing})

	if err := tr.Advance(ctx, StageCompleted, "skip"); err == nil {
		t.Fatal("expected error advancing processing -> completed")
	}
	if err := tr.Complete(ctx, StatusSuccess, "done"); err == nil {
		t.Fatal("expected error completing from processing")
	}
}

func TestTrackerFailFromAnyStage(t *testing.T) {
	ctx := context.Background()
	for _, stage := range []Stage{StageUploading, StageProcessing, StageParsing, StageVerifying} {
		store := &fakeStore{}
		tr, _ := Begin(ctx, store, &Entry{UploadID: "u1", Type: TypePDF, Stage: stage})
		if err := tr.Fail(ctx, "boom"); err != nil {
			t.Fatalf("Fail from %s: %v", stage, err)
		}
		if store.Last.Stage != StageFailed || store.Last.Status != StatusError || store.Last.Error != "boom" {
			t.Fatalf("Fail from %s left %+v", stage, store.Last)
		}
	}
}

func TestTrackerFailIsNoopOnTerminal(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	tr, _ := Begin(ctx, store, &Entry{UploadID: "u1", Type: TypeReceipt, Stage: StageVerifying})
	if err := tr.Complete(ctx, StatusError, "mismatch"); err != nil {
		t.Fatal(err)
	}
	updates := store.Updates

	if err := tr.Fail(ctx, "late failure"); err != nil {
		t.Fatal(err)
	}
	if store.Updates != updates {
		t.Fatal("Fail mutated a terminal entry")
	}
	if store.Last.Stage != StageCompleted {
		t.Fatalf("terminal stage overwritten: %s", store.Last.Stage)
	}
}

func TestBeginPropagatesStoreError(t *testing.T) {
	store := &fakeStore{PutFunc: func(ctx context.Context, e *Entry) error {
		return errors.New("ddb down")
	}}
	if _, err := Begin(context.Background(), store, &Entry{UploadID: "u1"}); err == nil {
		t.Fatal("expected error from Begin")
	}
}
