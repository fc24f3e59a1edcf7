package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if err := store.BeginRun(ctx, Run{ID: "r1", Input: "movie.sup", BaseName: "movie_subtitle"}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	run, err := store.GetRun(ctx, "r1")
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v %v", run, err)
	}
	if run.Status != StatusRunning || run.StartedAt.IsZero() || !run.FinishedAt.IsZero() {
		t.Fatalf("unexpected new run %+v", run)
	}

	if err := store.FinishRun(ctx, "r1", 12, 2, 1, nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	run, _ = store.GetRun(ctx, "r1")
	if run.Status != StatusCompleted || run.Packets != 12 || run.Frames != 2 || run.Errors != 1 {
		t.Fatalf("unexpected finished run %+v", run)
	}
	if run.FinishedAt.IsZero() {
		t.Fatal("expected finish time")
	}

	if err := store.BeginRun(ctx, Run{ID: "r2", Input: "b.sup", BaseName: "b"}); err != nil {
		t.Fatal(err)
	}
	if err := store.FinishRun(ctx, "r2", 1, 0, 0, errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	if run, _ := store.GetRun(ctx, "r2"); run.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", run.Status)
	}

	if run, err := store.GetRun(ctx, "missing"); err != nil || run != nil {
		t.Fatalf("missing run: %v %v", run, err)
	}
}

func TestFramesQueries(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	if err := store.BeginRun(ctx, Run{ID: "r1", Input: "a.sup", BaseName: "a"}); err != nil {
		t.Fatal(err)
	}
	frames := []Frame{
		{RunID: "r1", Index: 0, StartMS: 0, EndMS: 250, Width: 4, Height: 2, Image: "a00000.pgm"},
		{RunID: "r1", Index: 1, StartMS: 250, EndMS: 1000, Width: 4, Height: 2, Image: "a00001.pgm"},
	}
	for _, f := range frames {
		if err := store.RecordFrame(ctx, f); err != nil {
			t.Fatalf("RecordFrame: %v", err)
		}
	}

	got, err := store.Frames(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != frames[0] || got[1] != frames[1] {
		t.Fatalf("Frames = %+v", got)
	}

	at, err := store.FramesAt(ctx, 250)
	if err != nil {
		t.Fatal(err)
	}
	if len(at) != 1 || at[0].Index != 1 {
		t.Fatalf("FramesAt(250) = %+v", at)
	}
	if at, _ := store.FramesAt(ctx, 1000); len(at) != 0 {
		t.Fatalf("end is exclusive, got %+v", at)
	}
}

func TestRecordFrameRequiresRun(t *testing.T) {
	store := openTestStore(t)
	err := store.RecordFrame(context.Background(), Frame{RunID: "nope", Image: "x.pgm"})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.BeginRun(ctx, Run{ID: "r1", Input: "a.sup", BaseName: "a"}); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	store, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	if run, err := store.GetRun(ctx, "r1"); err != nil || run == nil {
		t.Fatalf("run lost after reopen: %v %v", run, err)
	}
	if store.Path() != path {
		t.Fatalf("path = %q", store.Path())
	}
}

func TestSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.db.ExecContext(ctx, "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	if _, err := Open(ctx, path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
