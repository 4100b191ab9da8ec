package fulfillment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"handoffd/clock"
)

type fakeStore struct {
	saves   int
	records []*Fulfillment
	loadErr error
	saveErr error
}

func (s *fakeStore) Load(context.Context) ([]*Fulfillment, error) {
	return s.records, s.loadErr
}

func (s *fakeStore) Save(_ context.Context, records []*Fulfillment) error {
	s.saves++
	s.records = records
	return s.saveErr
}

func newTestRepo(t *testing.T, now time.Time, secret string) (*Repository, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	seq := 0
	repo := NewRepository(context.Background(), store,
		WithClock(clock.NewFixed(now)),
		WithIdGenerator(func() string {
			seq++
			return fmt.Sprintf("handoff-%d", seq)
		}),
		WithSecretGenerator(func() (string, error) { return secret, nil }),
	)
	return repo, store
}

func TestRepository_Create(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	repo, store := newTestRepo(t, now, "654321")

	record, secret, err := repo.Create(ctx, "Laptop", "Alice", "Bob", "Carol")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if secret != "654321" {
		t.Fatalf("expected secret 654321, got %q", secret)
	}
	if record.Id != "handoff-1" {
		t.Fatalf("expected id handoff-1, got %q", record.Id)
	}
	if record.Status != StatusPending {
		t.Fatalf("expected status %s, got %s", StatusPending, record.Status)
	}
	if record.TransferTokenConsumed || record.SecretConsumed {
		t.Fatalf("expected both consumed flags false")
	}
	if record.SecretHash != NewSecretHasher().Hash(secret) {
		t.Fatalf("stored hash does not match the disclosed secret")
	}
	if record.SecretHash == secret {
		t.Fatalf("secret must not be stored in cleartext")
	}
	if !record.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at %v, got %v", now, record.CreatedAt)
	}

	if len(record.Timeline) != 3 {
		t.Fatalf("expected 3 timeline stages, got %d", len(record.Timeline))
	}
	if !record.Timeline[0].Completed || record.Timeline[0].CompletedAt == nil {
		t.Fatalf("expected Created stage completed with timestamp")
	}
	for i := 1; i < 3; i++ {
		if record.Timeline[i].Completed || record.Timeline[i].CompletedAt != nil {
			t.Fatalf("expected stage %d pending", i)
		}
	}

	if store.saves != 1 {
		t.Fatalf("expected 1 persist, got %d", store.saves)
	}
}

func TestRepository_ListOrdering(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	repo, _ := newTestRepo(t, now, "654321")

	for i := 0; i < 3; i++ {
		if _, _, err := repo.Create(ctx, "Item", "A", "B", "C"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list := repo.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 records, got %d", len(list))
	}
	// most-recent-first
	want := []string{"handoff-3", "handoff-2", "handoff-1"}
	for i, id := range want {
		if list[i].Id != id {
			t.Fatalf("expected list[%d] = %s, got %s", i, id, list[i].Id)
		}
	}
}

func TestRepository_ConfirmDropOff(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("succeeds exactly once", func(t *testing.T) {
		repo, _ := newTestRepo(t, now, "654321")
		record, _, _ := repo.Create(ctx, "Laptop", "Alice", "Bob", "Carol")

		res := repo.ConfirmDropOff(ctx, record.Id)
		if !res.OK {
			t.Fatalf("expected success, got kind=%s message=%q", res.Kind, res.Message)
		}
		if res.Record.Status != StatusInTransit {
			t.Fatalf("expected status %s, got %s", StatusInTransit, res.Record.Status)
		}
		if !res.Record.TransferTokenConsumed {
			t.Fatalf("expected transfer token consumed")
		}
		if !res.Record.Timeline[StageDroppedOff].Completed || res.Record.Timeline[StageDroppedOff].CompletedAt == nil {
			t.Fatalf("expected DroppedOff stage completed with timestamp")
		}

		res = repo.ConfirmDropOff(ctx, record.Id)
		if res.OK || res.Kind != KindTokenAlreadyUsed {
			t.Fatalf("expected %s, got ok=%v kind=%s", KindTokenAlreadyUsed, res.OK, res.Kind)
		}
	})

	t.Run("token input is trimmed and case-insensitive", func(t *testing.T) {
		repo, _ := newTestRepo(t, now, "654321")
		record, _, _ := repo.Create(ctx, "Laptop", "Alice", "Bob", "Carol")

		res := repo.ConfirmDropOff(ctx, "  HANDOFF-1 ")
		if !res.OK {
			t.Fatalf("expected normalized token %q to match %q: %s", "  HANDOFF-1 ", record.Id, res.Message)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		repo, _ := newTestRepo(t, now, "654321")

		res := repo.ConfirmDropOff(ctx, "no-such-token")
		if res.OK || res.Kind != KindNotFound {
			t.Fatalf("expected %s, got ok=%v kind=%s", KindNotFound, res.OK, res.Kind)
		}
	})
}

func TestRepository_ConfirmCollection(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("rejected before drop-off", func(t *testing.T) {
		repo, _ := newTestRepo(t, now, "654321")
		record, secret, _ := repo.Create(ctx, "Laptop", "Alice", "Bob", "Carol")

		res := repo.ConfirmCollection(ctx, record.Id, secret)
		if res.OK || res.Kind != KindInvalidState {
			t.Fatalf("expected %s, got ok=%v kind=%s", KindInvalidState, res.OK, res.Kind)
		}
		got, _ := repo.Get(record.Id)
		if got.Status != StatusPending {
			t.Fatalf("expected status unchanged %s, got %s", StatusPending, got.Status)
		}
	})

	t.Run("wrong secret never mutates state", func(t *testing.T) {
		repo, store := newTestRepo(t, now, "654321")
		record, _, _ := repo.Create(ctx, "Laptop", "Alice", "Bob", "Carol")
		repo.ConfirmDropOff(ctx, record.Id)
		savesBefore := store.saves

		res := repo.ConfirmCollection(ctx, record.Id, "000000")
		if res.OK || res.Kind != KindSecretMismatch {
			t.Fatalf("expected %s, got ok=%v kind=%s", KindSecretMismatch, res.OK, res.Kind)
		}
		got, _ := repo.Get(record.Id)
		if got.Status != StatusInTransit || got.SecretConsumed {
			t.Fatalf("expected state unchanged, got status=%s consumed=%v", got.Status, got.SecretConsumed)
		}
		if store.saves != savesBefore {
			t.Fatalf("expected no persist on rejected checkpoint")
		}
	})

	t.Run("correct secret succeeds exactly once", func(t *testing.T) {
		repo, _ := newTestRepo(t, now, "654321")
		record, secret, _ := repo.Create(ctx, "Laptop", "Alice", "Bob", "Carol")
		repo.ConfirmDropOff(ctx, record.Id)

		res := repo.ConfirmCollection(ctx, record.Id, " "+secret+" ")
		if !res.OK {
			t.Fatalf("expected success, got kind=%s message=%q", res.Kind, res.Message)
		}
		if res.Record.Status != StatusCompleted || !res.Record.SecretConsumed {
			t.Fatalf("expected completed+consumed, got status=%s consumed=%v", res.Record.Status, res.Record.SecretConsumed)
		}
		if !res.Record.Timeline[StageCollected].Completed || res.Record.Timeline[StageCollected].CompletedAt == nil {
			t.Fatalf("expected Collected stage completed with timestamp")
		}

		res = repo.ConfirmCollection(ctx, record.Id, secret)
		if res.OK || res.Kind != KindSecretAlreadyUsed {
			t.Fatalf("expected %s, got ok=%v kind=%s", KindSecretAlreadyUsed, res.OK, res.Kind)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		repo, _ := newTestRepo(t, now, "654321")

		res := repo.ConfirmCollection(ctx, "missing", "654321")
		if res.OK || res.Kind != KindNotFound {
			t.Fatalf("expected %s, got ok=%v kind=%s", KindNotFound, res.OK, res.Kind)
		}
	})
}

func TestRepository_AdvanceStatusUnchecked(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("moves status without consuming credentials", func(t *testing.T) {
		repo, _ := newTestRepo(t, now, "654321")
		record, _, _ := repo.Create(ctx, "Laptop", "Alice", "Bob", "Carol")

		res := repo.AdvanceStatusUnchecked(ctx, record.Id, StatusCompleted)
		if !res.OK {
			t.Fatalf("expected success, got kind=%s", res.Kind)
		}
		if res.Record.Status != StatusCompleted {
			t.Fatalf("expected status %s, got %s", StatusCompleted, res.Record.Status)
		}
		if res.Record.TransferTokenConsumed || res.Record.SecretConsumed {
			t.Fatalf("expected consumed flags untouched")
		}
		if !res.Record.Timeline[StageCollected].Completed {
			t.Fatalf("expected Collected stage completed")
		}
	})

	t.Run("rejects statuses without a matching stage", func(t *testing.T) {
		repo, _ := newTestRepo(t, now, "654321")
		record, _, _ := repo.Create(ctx, "Laptop", "Alice", "Bob", "Carol")

		res := repo.AdvanceStatusUnchecked(ctx, record.Id, StatusPending)
		if res.OK || res.Kind != KindInvalidState {
			t.Fatalf("expected %s, got ok=%v kind=%s", KindInvalidState, res.OK, res.Kind)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		repo, _ := newTestRepo(t, now, "654321")

		res := repo.AdvanceStatusUnchecked(ctx, "missing", StatusInTransit)
		if res.OK || res.Kind != KindNotFound {
			t.Fatalf("expected %s, got ok=%v kind=%s", KindNotFound, res.OK, res.Kind)
		}
	})
}

func TestRepository_Delete(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	repo, _ := newTestRepo(t, now, "654321")
	record, _, _ := repo.Create(ctx, "Laptop", "Alice", "Bob", "Carol")

	res := repo.Delete(ctx, record.Id)
	if !res.OK {
		t.Fatalf("expected success, got kind=%s", res.Kind)
	}
	if _, ok := repo.Get(record.Id); ok {
		t.Fatalf("expected record gone after delete")
	}

	res = repo.Delete(ctx, record.Id)
	if res.OK || res.Kind != KindNotFound {
		t.Fatalf("expected %s, got ok=%v kind=%s", KindNotFound, res.OK, res.Kind)
	}
}

func TestRepository_Subscribe(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	repo, _ := newTestRepo(t, now, "654321")

	updates, cancel := repo.Subscribe()

	if _, _, err := repo.Create(ctx, "Laptop", "Alice", "Bob", "Carol"); err != nil {
		t.Fatalf("create: %v", err)
	}

	select {
	case snapshot := <-updates:
		if len(snapshot) != 1 || snapshot[0].Id != "handoff-1" {
			t.Fatalf("unexpected snapshot: %+v", snapshot)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a snapshot after mutation")
	}

	// a second mutation replaces an unread snapshot instead of blocking
	repo.ConfirmDropOff(ctx, "handoff-1")
	repo.AdvanceStatusUnchecked(ctx, "handoff-1", StatusCompleted)
	select {
	case snapshot := <-updates:
		if snapshot[0].Status != StatusCompleted {
			t.Fatalf("expected latest snapshot, got status %s", snapshot[0].Status)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a snapshot after mutation")
	}

	cancel()
	if _, ok := <-updates; ok {
		t.Fatalf("expected channel closed after cancel")
	}
}

func TestRepository_LoadFailureStartsEmpty(t *testing.T) {
	store := &fakeStore{loadErr: fmt.Errorf("corrupt state")}
	repo := NewRepository(context.Background(), store)

	if got := repo.List(); len(got) != 0 {
		t.Fatalf("expected empty collection, got %d records", len(got))
	}
}

func TestRepository_ReturnedRecordsAreCopies(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	repo, _ := newTestRepo(t, now, "654321")
	record, _, _ := repo.Create(ctx, "Laptop", "Alice", "Bob", "Carol")

	record.Status = StatusCompleted
	record.Timeline[StageCollected].Completed = true

	got, _ := repo.Get(record.Id)
	if got.Status != StatusPending || got.Timeline[StageCollected].Completed {
		t.Fatalf("caller mutation leaked into repository state")
	}
}
