package history_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"textifier/internal/history"
	"textifier/internal/testsupport"
)

func TestBeginFinishRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	entry, err := store.Begin(ctx, "", history.KindTranscription, "/media/talk.mp4", "cuda:float16")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if len(entry.ID) != 36 {
		t.Fatalf("expected uuid id, got %q", entry.ID)
	}

	err = store.Finish(ctx, entry.ID, history.Completion{
		Status:  history.StatusSucceeded,
		Outputs: []string{"/out/talk.vtt", "/out/talk.srt"},
		Cues:    42,
	})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	got, err := store.Get(ctx, entry.ID)
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	if got.Status != history.StatusSucceeded || got.Cues != 42 || len(got.Outputs) != 2 || got.Device != "cuda:float16" {
		t.Fatalf("entry = %#v", got)
	}
	if got.FinishedAt.IsZero() || got.Duration() < 0 {
		t.Fatalf("finished_at = %v", got.FinishedAt)
	}
}

func TestFinishUnknownJob(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	err := store.Finish(context.Background(), "missing", history.Completion{Status: history.StatusFailed})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
	if err := store.Finish(context.Background(), "missing", history.Completion{}); err == nil {
		t.Fatal("expected error for empty status")
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for _, kind := range []history.Kind{history.KindTranscription, history.KindTranslation, history.KindTranslation} {
		entry, err := store.Begin(ctx, "", kind, "src", "cpu:int8")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, entry.ID)
	}
	if err := store.Finish(ctx, ids[1], history.Completion{Status: history.StatusFailed, ErrorKind: "model", ErrorMessage: "boom"}); err != nil {
		t.Fatal(err)
	}

	all, err := store.List(ctx, history.ListOptions{})
	if err != nil || len(all) != 3 {
		t.Fatalf("List all = %d, %v", len(all), err)
	}
	if all[0].ID != ids[2] {
		t.Fatalf("expected newest first, got %s", all[0].ID)
	}

	failed, err := store.List(ctx, history.ListOptions{Statuses: []history.Status{history.StatusFailed}})
	if err != nil || len(failed) != 1 || failed[0].ErrorKind != "model" {
		t.Fatalf("failed = %#v, %v", failed, err)
	}

	limited, err := store.List(ctx, history.ListOptions{Kinds: []history.Kind{history.KindTranslation}, Limit: 1})
	if err != nil || len(limited) != 1 || limited[0].Kind != history.KindTranslation {
		t.Fatalf("limited = %#v, %v", limited, err)
	}

	stats, err := store.Stats(ctx)
	if err != nil || stats[history.StatusRunning] != 2 || stats[history.StatusFailed] != 1 {
		t.Fatalf("stats = %v, %v", stats, err)
	}
}

func TestReopenMarksRunningInterrupted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	entry, err := store.Begin(ctx, "job-1", history.KindSave, "talk.vtt", "")
	if err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened := testsupport.MustOpenHistory(t, cfg)
	got, err := reopened.Get(ctx, entry.ID)
	if err != nil || got == nil || got.Status != history.StatusInterrupted {
		t.Fatalf("entry after reopen = %#v, %v", got, err)
	}

	removed, err := reopened.Clear(ctx, false)
	if err != nil || removed != 1 {
		t.Fatalf("Clear = %d, %v", removed, err)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := history.ParseStatus(" Failed "); !ok || status != history.StatusFailed {
		t.Fatalf("ParseStatus = %q %v", status, ok)
	}
	if _, ok := history.ParseStatus("bogus"); ok {
		t.Fatal("expected unknown status to fail")
	}
}
