package queue

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipforge/clipforge/internal/db"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database.Conn())
}

func testJob(id string) Job {
	return Job{
		ID:              id,
		Status:          StatusQueued,
		HookClipID:      "sv1_10",
		HookCaption:     "two lines\nof caption",
		BodyScript:      "a narrated body",
		CTATagline:      "Understand your audience.",
		OutputName:      id + ".mp4",
		SourceFile:      "/videos/source.mp4",
		StartSeconds:    10,
		DurationSeconds: 15,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	if err := store.Create(testJob("job1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get("job1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusQueued || got.HookClipID != "sv1_10" || got.StartSeconds != 10 {
		t.Fatalf("job = %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}
}

func TestStore_GetUnknown(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListMostRecentFirst(t *testing.T) {
	store := newTestStore(t)
	for _, id := range []string{"first", "second", "third"} {
		if err := store.Create(testJob(id)); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	jobs, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("jobs = %d, want 3", len(jobs))
	}
	if jobs[0].ID != "third" || jobs[2].ID != "first" {
		t.Fatalf("order = [%s %s %s], want newest first", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}
}

func TestStore_PendingInSubmissionOrder(t *testing.T) {
	store := newTestStore(t)
	for _, id := range []string{"a", "b"} {
		if err := store.Create(testJob(id)); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if err := store.SetStatus("a", StatusDone); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}

	pending, err := store.Pending()
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "b" {
		t.Fatalf("pending = %+v, want only b", pending)
	}
}

func TestStore_SetResultAndError(t *testing.T) {
	store := newTestStore(t)
	if err := store.Create(testJob("job1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.SetResult("job1", "/published/out.mp4"); err != nil {
		t.Fatalf("SetResult() error = %v", err)
	}
	got, _ := store.Get("job1")
	if got.Status != StatusDone || got.Result != "/published/out.mp4" {
		t.Fatalf("job = %+v, want done with result", got)
	}

	if err := store.SetError("job1", "boom"); err != nil {
		t.Fatalf("SetError() error = %v", err)
	}
	got, _ = store.Get("job1")
	if got.Status != StatusError || got.Error != "boom" {
		t.Fatalf("job = %+v, want error state", got)
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	if err := store.Create(testJob("job1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Delete("job1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get("job1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := store.Delete("job1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestStore_MarkInterrupted(t *testing.T) {
	store := newTestStore(t)
	running := testJob("stuck")
	running.Status = StatusRunning
	if err := store.Create(running); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Create(testJob("waiting")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	n, err := store.MarkInterrupted()
	if err != nil {
		t.Fatalf("MarkInterrupted() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("marked = %d, want 1", n)
	}

	got, _ := store.Get("stuck")
	if got.Status != StatusError || got.Error == "" {
		t.Fatalf("job = %+v, want error state with message", got)
	}
	queued, _ := store.Get("waiting")
	if queued.Status != StatusQueued {
		t.Fatalf("queued job status = %s, want queued untouched", queued.Status)
	}
}
