package sqlstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/comfyqueue/scheduler/job"
	"github.com/comfyqueue/scheduler/store"
	"github.com/comfyqueue/scheduler/store/sqlstore"
)

func TestUpsertAndLeaseNext(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := sqlstore.New(db)

	id, err := s.Upsert(ctx, store.UpsertData{
		ConfigName: "20260101_abcd123_0_foo",
		JobType:    job.TypeT2I,
		WorkflowID: "basic",
		Priority:   50,
		RetryLimit: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("expected nonzero id")
	}

	leased, err := s.LeaseNext(ctx, "worker-1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if leased == nil {
		t.Fatal("expected a leased job")
	}
	if leased.Status != job.Processing {
		t.Fatalf("expected Processing, got %v", leased.Status)
	}
	if leased.WorkerID != "worker-1" {
		t.Fatalf("expected worker-1, got %s", leased.WorkerID)
	}

	none, err := s.LeaseNext(ctx, "worker-2", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Fatal("expected no pending job left to lease")
	}
}

func TestUpsertIdempotentOnPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := sqlstore.New(db)

	data := store.UpsertData{ConfigName: "dup", JobType: job.TypeT2V, WorkflowID: "w", Priority: 10, RetryLimit: 1}
	id1, err := s.Upsert(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.Upsert(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("expected same row id on re-upsert, got %d and %d", id1, id2)
	}
}

func TestCompleteSuccess(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := sqlstore.New(db)

	_, err := s.Upsert(ctx, store.UpsertData{ConfigName: "c1", JobType: job.TypeAudio, WorkflowID: "w", Priority: 1, RetryLimit: 0})
	if err != nil {
		t.Fatal(err)
	}
	leased, err := s.LeaseNext(ctx, "worker-1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Complete(ctx, leased.ID, true, store.CompletionUpdate{Metadata: []byte(`{"ok":true}`)}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetByConfigName(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != job.Done {
		t.Fatalf("expected Done, got %v", got.Status)
	}
	if got.Duration == nil {
		t.Fatal("expected duration to be recorded")
	}
}

func TestCompleteFailureRetriesThenFails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := sqlstore.New(db)

	_, err := s.Upsert(ctx, store.UpsertData{ConfigName: "c2", JobType: job.TypeSpeech, WorkflowID: "w", Priority: 1, RetryLimit: 1})
	if err != nil {
		t.Fatal(err)
	}

	leased, err := s.LeaseNext(ctx, "worker-1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, leased.ID, false, store.CompletionUpdate{ErrorTrace: "boom"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetByConfigName(ctx, "c2")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != job.Pending {
		t.Fatalf("expected Pending after first failure, got %v", got.Status)
	}

	leased2, err := s.LeaseNext(ctx, "worker-1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, leased2.ID, false, store.CompletionUpdate{ErrorTrace: "boom again"}); err != nil {
		t.Fatal(err)
	}
	got2, err := s.GetByConfigName(ctx, "c2")
	if err != nil {
		t.Fatal(err)
	}
	if got2.Status != job.Failed {
		t.Fatalf("expected Failed after exceeding retry limit, got %v", got2.Status)
	}
}

func TestRecoverOrphans(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := sqlstore.New(db)

	_, err := s.Upsert(ctx, store.UpsertData{ConfigName: "orphan", JobType: job.Type3D, WorkflowID: "w", Priority: 1, RetryLimit: 0})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.LeaseNext(ctx, "worker-1", time.Millisecond); err != nil {
		t.Fatal(err)
	}

	time.Sleep(5 * time.Millisecond)

	count, err := s.RecoverOrphans(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 orphan recovered, got %d", count)
	}

	got, err := s.GetByConfigName(ctx, "orphan")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != job.Pending {
		t.Fatalf("expected Pending after recovery, got %v", got.Status)
	}
}

func TestPriorityOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := sqlstore.New(db)

	for _, cfg := range []struct {
		name     string
		priority int
	}{
		{"low", 900}, {"high", 1}, {"mid", 500},
	} {
		if _, err := s.Upsert(ctx, store.UpsertData{ConfigName: cfg.name, JobType: job.TypeT2I, WorkflowID: "w", Priority: cfg.priority}); err != nil {
			t.Fatal(err)
		}
	}

	first, err := s.LeaseNext(ctx, "w1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if first.ConfigName != "high" {
		t.Fatalf("expected high priority job leased first, got %s", first.ConfigName)
	}
}

func TestConcurrentLeaseExclusivity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := sqlstore.New(db)

	for i := 0; i < 10; i++ {
		if _, err := s.Upsert(ctx, store.UpsertData{ConfigName: string(rune('a' + i)), JobType: job.TypeT2I, WorkflowID: "w", Priority: i + 1}); err != nil {
			t.Fatal(err)
		}
	}

	var mu sync.Mutex
	seen := map[int64]bool{}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			j, err := s.LeaseNext(ctx, "worker", time.Minute)
			if err != nil || j == nil {
				return
			}
			mu.Lock()
			if seen[j.ID] {
				t.Errorf("job %d leased twice", j.ID)
			}
			seen[j.ID] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()
}

func TestUpsertReingestingDoneJobUpdatesOnlyPriority(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := sqlstore.New(db)

	_, err := s.Upsert(ctx, store.UpsertData{ConfigName: "done1", JobType: job.TypeT2I, WorkflowID: "w", Priority: 50, RetryLimit: 2})
	if err != nil {
		t.Fatal(err)
	}
	leased, err := s.LeaseNext(ctx, "worker-1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, leased.ID, true, store.CompletionUpdate{Metadata: []byte(`{"ok":true}`)}); err != nil {
		t.Fatal(err)
	}

	before, err := s.GetByConfigName(ctx, "done1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Upsert(ctx, store.UpsertData{ConfigName: "done1", JobType: job.TypeT2I, WorkflowID: "w", Priority: 5, RetryLimit: 2}); err != nil {
		t.Fatal(err)
	}

	after, err := s.GetByConfigName(ctx, "done1")
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != job.Done {
		t.Fatalf("expected Done job to remain Done on re-ingestion, got %v", after.Status)
	}
	if after.Priority != 5 {
		t.Fatalf("expected priority to update to 5, got %d", after.Priority)
	}
	if string(after.Metadata) != string(before.Metadata) {
		t.Fatalf("expected metadata to be preserved, got %s", after.Metadata)
	}
	if after.EndTime == nil || before.EndTime == nil || !after.EndTime.Equal(*before.EndTime) {
		t.Fatal("expected end_time to be preserved on re-ingestion of a done job")
	}
}

func TestUpsertReingestingFailedJobResetsForRetryButNotRetries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := sqlstore.New(db)

	_, err := s.Upsert(ctx, store.UpsertData{ConfigName: "failed1", JobType: job.TypeT2I, WorkflowID: "w", Priority: 50, RetryLimit: 0})
	if err != nil {
		t.Fatal(err)
	}
	leased, err := s.LeaseNext(ctx, "worker-1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, leased.ID, false, store.CompletionUpdate{ErrorTrace: "boom"}); err != nil {
		t.Fatal(err)
	}

	failed, err := s.GetByConfigName(ctx, "failed1")
	if err != nil {
		t.Fatal(err)
	}
	if failed.Status != job.Failed {
		t.Fatalf("expected Failed before re-ingestion, got %v", failed.Status)
	}

	if _, err := s.Upsert(ctx, store.UpsertData{ConfigName: "failed1", JobType: job.TypeT2I, WorkflowID: "w", Priority: 3, RetryLimit: 0}); err != nil {
		t.Fatal(err)
	}

	after, err := s.GetByConfigName(ctx, "failed1")
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != job.Pending {
		t.Fatalf("expected re-ingested Failed job to become Pending, got %v", after.Status)
	}
	if after.Priority != 3 {
		t.Fatalf("expected priority 3, got %d", after.Priority)
	}
	if after.RetriesAttempted != 0 {
		t.Fatalf("expected retries_attempted reset to 0, got %d", after.RetriesAttempted)
	}
}

func TestUpsertReingestingPendingDoesNotResetRetries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := sqlstore.New(db)

	_, err := s.Upsert(ctx, store.UpsertData{ConfigName: "p1", JobType: job.TypeT2I, WorkflowID: "w", Priority: 50, RetryLimit: 5})
	if err != nil {
		t.Fatal(err)
	}
	leased, err := s.LeaseNext(ctx, "worker-1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, leased.ID, false, store.CompletionUpdate{ErrorTrace: "transient"}); err != nil {
		t.Fatal(err)
	}

	pending, err := s.GetByConfigName(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if pending.Status != job.Pending || pending.RetriesAttempted != 1 {
		t.Fatalf("expected Pending with 1 retry attempted, got status=%v retries=%d", pending.Status, pending.RetriesAttempted)
	}

	// Re-observing the same (still Pending) config file must not let a
	// producer bypass retry_limit by resetting retries_attempted back to 0.
	if _, err := s.Upsert(ctx, store.UpsertData{ConfigName: "p1", JobType: job.TypeT2I, WorkflowID: "w", Priority: 50, RetryLimit: 5}); err != nil {
		t.Fatal(err)
	}

	after, err := s.GetByConfigName(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if after.RetriesAttempted != 1 {
		t.Fatalf("expected retries_attempted to remain 1 across re-ingestion, got %d", after.RetriesAttempted)
	}
}

func TestBulkRetryOnlyAffectsFailed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := sqlstore.New(db)

	id1, _ := s.Upsert(ctx, store.UpsertData{ConfigName: "f1", JobType: job.TypeT2I, WorkflowID: "w", Priority: 1})
	id2, _ := s.Upsert(ctx, store.UpsertData{ConfigName: "f2", JobType: job.TypeT2I, WorkflowID: "w", Priority: 1})

	l1, _ := s.LeaseNext(ctx, "w1", time.Minute)
	_ = s.Complete(ctx, l1.ID, false, store.CompletionUpdate{ErrorTrace: "x"})

	count, err := s.BulkRetry(ctx, []int64{id1, id2})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected only the failed job to be retried, got %d", count)
	}
}
