package pg

import (
	"context"
	"os"
	"testing"

	"handoffd/fulfillment"
	"handoffd/server/config"
	"handoffd/server/db"
)

// getTestStore connects to a local postgres, skipping the test when none is
// available.
func getTestStore(t *testing.T) *Store {
	t.Helper()
	host := os.Getenv("PG_HOST")
	if host == "" {
		t.Skip("PG_HOST not set, skipping postgres store test")
	}

	cm, err := db.NewConnectionManager(config.DbConfig{
		Host:          host,
		Port:          5432,
		Username:      os.Getenv("PG_USER"),
		Password:      os.Getenv("PG_PASSWORD"),
		DefaultDb:     os.Getenv("PG_DATABASE"),
		MaxConn:       2,
		ConnTimeoutMS: 3000,
	})
	if err != nil {
		t.Skipf("postgres not available, skipping test: %v", err)
	}

	store, err := NewStore(cm, "handoffd:test:fulfillments", true)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	return store
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := getTestStore(t)
	defer store.pool.Close()

	ctx := context.Background()
	records := []*fulfillment.Fulfillment{
		{Id: "handoff-1", ItemDescription: "Laptop", Status: fulfillment.StatusPending},
		{Id: "handoff-2", ItemDescription: "Keys", Status: fulfillment.StatusInTransit},
	}

	if err := store.Save(ctx, records); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Id != "handoff-1" || loaded[1].Id != "handoff-2" {
		t.Fatalf("unexpected records: %+v", loaded)
	}
}

func TestMergeTemplate(t *testing.T) {
	stmt, err := mergeTemplate("sql/get-state.tmpl", map[string]interface{}{"table": "handoff_state"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := "SELECT state FROM handoff_state WHERE key = $1 "
	if stmt != want {
		t.Fatalf("unexpected statement %q, want %q", stmt, want)
	}
}
