package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "bot.db")}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestUsersRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for _, u := range []User{
		{ID: 3, Username: "carol"},
		{ID: 1, Username: "alice", FirstName: "Alice"},
		{ID: 2},
	} {
		if err := st.UpsertUser(ctx, u); err != nil {
			t.Fatalf("UpsertUser(%d): %v", u.ID, err)
		}
	}
	// Re-registering must not duplicate.
	if err := st.UpsertUser(ctx, User{ID: 1, Username: "alice2"}); err != nil {
		t.Fatalf("UpsertUser repeat: %v", err)
	}

	n, err := st.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if n != 3 {
		t.Fatalf("CountUsers = %d, want 3", n)
	}

	ids, err := st.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("ListUserIDs: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("ListUserIDs = %v, want [1 2 3]", ids)
	}
}

func TestBroadcastRecordLifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.CreateBroadcast(ctx, 42, 120)
	if err != nil {
		t.Fatalf("CreateBroadcast: %v", err)
	}
	if id == 0 {
		t.Fatal("CreateBroadcast returned zero id")
	}

	// Batch deltas accumulate via in-database increments.
	if err := st.IncrementBroadcast(ctx, id, 48, 1, 1); err != nil {
		t.Fatalf("IncrementBroadcast: %v", err)
	}
	if err := st.IncrementBroadcast(ctx, id, 50, 0, 0); err != nil {
		t.Fatalf("IncrementBroadcast: %v", err)
	}
	if err := st.CompleteBroadcast(ctx, id); err != nil {
		t.Fatalf("CompleteBroadcast: %v", err)
	}

	recs, err := st.RecentBroadcasts(ctx, 5)
	if err != nil {
		t.Fatalf("RecentBroadcasts: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	r := recs[0]
	if r.AdminID != 42 || r.TotalUsers != 120 {
		t.Fatalf("record header = %+v", r)
	}
	if r.Success != 98 || r.Failed != 1 || r.Blocked != 1 {
		t.Fatalf("counters = %d/%d/%d, want 98/1/1", r.Success, r.Failed, r.Blocked)
	}
	if r.Status != BroadcastCompleted {
		t.Fatalf("status = %q, want %q", r.Status, BroadcastCompleted)
	}
	if r.CompletedAt.IsZero() || r.CreatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}
}

func TestRecentBroadcastsOrderAndLimit(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 4; i++ {
		id, err := st.CreateBroadcast(ctx, 42, i)
		if err != nil {
			t.Fatalf("CreateBroadcast: %v", err)
		}
		last = id
	}

	recs, err := st.RecentBroadcasts(ctx, 2)
	if err != nil {
		t.Fatalf("RecentBroadcasts: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0].ID != last {
		t.Fatalf("newest first: got id %d, want %d", recs[0].ID, last)
	}
}

func TestPruneBroadcastsKeepsRecentAndRunning(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	oldID, err := st.CreateBroadcast(ctx, 42, 10)
	if err != nil {
		t.Fatalf("CreateBroadcast: %v", err)
	}
	if err := st.CompleteBroadcast(ctx, oldID); err != nil {
		t.Fatalf("CompleteBroadcast: %v", err)
	}
	// Still running: must survive any cutoff.
	if _, err := st.CreateBroadcast(ctx, 42, 20); err != nil {
		t.Fatalf("CreateBroadcast: %v", err)
	}

	n, err := st.PruneBroadcasts(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("PruneBroadcasts: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned = %d, want 1", n)
	}

	recs, err := st.RecentBroadcasts(ctx, 10)
	if err != nil {
		t.Fatalf("RecentBroadcasts: %v", err)
	}
	if len(recs) != 1 || recs[0].Status != BroadcastInProgress {
		t.Fatalf("surviving records = %+v, want the in-progress one", recs)
	}

	// Nothing older than a cutoff in the past.
	n, err = st.PruneBroadcasts(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneBroadcasts: %v", err)
	}
	if n != 0 {
		t.Fatalf("pruned = %d, want 0", n)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for empty path")
	}
}
