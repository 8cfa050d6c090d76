package staff_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"staffsync/internal/model"
	"staffsync/internal/staff"
	"staffsync/internal/testutil"
)

// queueOffline creates records offline and brings the harness back online.
func queueOffline(t *testing.T, h *testutil.Harness, names ...string) []model.Record {
	t.Helper()

	h.Conn.Set(false)
	var out []model.Record
	for _, name := range names {
		rec, err := h.Repo.Create(context.Background(), testutil.SampleInput(name))
		if err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
		out = append(out, *rec)
	}
	h.Conn.Set(true)
	return out
}

func callStrings(calls []testutil.Call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

func TestFlush(t *testing.T) {
	ctx := context.Background()

	t.Run("empty log makes no remote calls", func(t *testing.T) {
		h := testutil.NewHarness(t, true)

		for i := 0; i < 2; i++ {
			res, err := h.Repo.Flush(ctx)
			if err != nil {
				t.Fatalf("Flush() error = %v", err)
			}
			if res.Replayed != 0 {
				t.Errorf("Replayed = %d, want 0", res.Replayed)
			}
		}
		if calls := h.Remote.Calls(); len(calls) != 0 {
			t.Errorf("remote calls = %v, want none", calls)
		}
	})

	t.Run("offline flush is refused", func(t *testing.T) {
		h := testutil.NewHarness(t, false)
		if _, err := h.Repo.Create(ctx, testutil.SampleInput("Ani")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if _, err := h.Repo.Flush(ctx); !errors.Is(err, staff.ErrOffline) {
			t.Errorf("Flush() error = %v, want ErrOffline", err)
		}
		if n, _ := h.Log.Len(); n != 1 {
			t.Errorf("action log length = %d, want 1", n)
		}
	})

	t.Run("replays in order and remaps client ids", func(t *testing.T) {
		h := testutil.NewHarness(t, true)
		h.Conn.Set(false)

		rec, err := h.Repo.Create(ctx, testutil.SampleInput("Ani"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		in := rec.Input()
		in.Degree = "Prof. Dr."
		if _, err := h.Repo.Update(ctx, rec.ID, in); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		h.Conn.Set(true)

		res, err := h.Repo.Flush(ctx)
		if err != nil {
			t.Fatalf("Flush() error = %v", err)
		}
		if res.Replayed != 2 {
			t.Errorf("Replayed = %d, want 2", res.Replayed)
		}
		if got := res.Remapped[rec.ID]; got != "srv-1" {
			t.Errorf("Remapped[%s] = %q, want %q", rec.ID, got, "srv-1")
		}

		want := []string{"Insert", "Patch(srv-1)", "List"}
		if got := callStrings(h.Remote.Calls()); !equalIDs(got, want) {
			t.Errorf("remote calls = %v, want %v", got, want)
		}

		if n, _ := h.Log.Len(); n != 0 {
			t.Errorf("action log length = %d, want 0", n)
		}
		cached, _ := h.Cache.Read()
		if len(cached) != 1 || cached[0].ID != "srv-1" || cached[0].Degree != "Prof. Dr." {
			t.Errorf("cache after flush = %+v, want srv-1 with updated degree", cached)
		}

		h.Remote.Reset()
		got, err := h.Repo.GetByID(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetByID(client id) error = %v", err)
		}
		if got.ID != "srv-1" {
			t.Errorf("GetByID(client id).ID = %q, want %q", got.ID, "srv-1")
		}
		if n := h.Remote.CallCount("Get"); n != 0 {
			t.Errorf("remote Get calls = %d, want 0", n)
		}

		st, _ := h.Repo.Status()
		if !st.LastSync.Equal(h.Clock.Now()) {
			t.Errorf("LastSync = %v, want %v", st.LastSync, h.Clock.Now())
		}
	})

	t.Run("aliases outlive the pass that learned them", func(t *testing.T) {
		h := testutil.NewHarness(t, true)
		created := queueOffline(t, h, "Ani")
		if _, err := h.Repo.Flush(ctx); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}

		// An edit queued against the old client id still reaches the server record.
		h.Conn.Set(false)
		in := created[0].Input()
		in.SerdosStatus = "Dalam Proses"
		if _, err := h.Repo.Update(ctx, created[0].ID, in); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		cached, _ := h.Cache.Read()
		if len(cached) != 1 || cached[0].ID != "srv-1" || cached[0].SerdosStatus != "Dalam Proses" {
			t.Errorf("cache after offline Update(client id) = %+v, want srv-1 patched", cached)
		}
		got, err := h.Repo.GetByID(ctx, created[0].ID)
		if err != nil {
			t.Fatalf("GetByID(client id) error = %v", err)
		}
		if got.SerdosStatus != "Dalam Proses" {
			t.Errorf("GetByID(client id).SerdosStatus = %q, want %q", got.SerdosStatus, "Dalam Proses")
		}
		h.Conn.Set(true)

		h.Remote.Reset()
		if _, err := h.Repo.Flush(ctx); err != nil {
			t.Fatalf("second Flush() error = %v", err)
		}
		if n := h.Remote.CallCount("Patch"); n != 1 {
			t.Fatalf("remote Patch calls = %d, want 1", n)
		}
		if c := h.Remote.Calls()[0]; c.ID != "srv-1" {
			t.Errorf("first call = %v, want Patch(srv-1)", c)
		}
	})

	t.Run("offline delete through an alias removes the server record", func(t *testing.T) {
		h := testutil.NewHarness(t, true)
		created := queueOffline(t, h, "Ani")
		if _, err := h.Repo.Flush(ctx); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}

		h.Conn.Set(false)
		if err := h.Repo.Delete(ctx, created[0].ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if cached, _ := h.Cache.Read(); len(cached) != 0 {
			t.Errorf("cache after offline Delete(client id) = %v, want empty", recordIDs(cached))
		}
		if _, err := h.Repo.GetByID(ctx, created[0].ID); !errors.Is(err, staff.ErrNotFound) {
			t.Errorf("GetByID(client id) error = %v, want ErrNotFound", err)
		}

		h.Conn.Set(true)
		if _, err := h.Repo.Flush(ctx); err != nil {
			t.Fatalf("second Flush() error = %v", err)
		}
		if h.Remote.Len() != 0 {
			t.Errorf("remote holds %d records, want 0", h.Remote.Len())
		}
	})

	t.Run("failed action aborts the pass and keeps the log", func(t *testing.T) {
		h := testutil.NewHarness(t, false)
		if err := h.Repo.Delete(ctx, "x"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		h.Conn.Set(true)

		_, err := h.Repo.Flush(ctx)
		var ferr *staff.FlushError
		if !errors.As(err, &ferr) {
			t.Fatalf("Flush() error = %v, want *FlushError", err)
		}
		if ferr.Index != 0 || ferr.Action.Kind != model.ActionDelete {
			t.Errorf("FlushError = %+v, want index 0 delete", ferr)
		}
		if !errors.Is(err, staff.ErrNotFound) {
			t.Errorf("Flush() error = %v, want it to wrap ErrNotFound", err)
		}

		pending, _ := h.Repo.Pending()
		if len(pending) != 1 || pending[0].RecordID != "x" {
			t.Errorf("Pending() = %+v, want the delete of x", pending)
		}
		st, _ := h.Repo.Status()
		if st.LastError == "" {
			t.Error("Status().LastError is empty after a failed flush")
		}
	})

	t.Run("failure later in the log keeps every action", func(t *testing.T) {
		h := testutil.NewHarness(t, false)
		if _, err := h.Repo.Create(ctx, testutil.SampleInput("Ani")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := h.Repo.Delete(ctx, "x"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		h.Conn.Set(true)

		_, err := h.Repo.Flush(ctx)
		var ferr *staff.FlushError
		if !errors.As(err, &ferr) || ferr.Index != 1 {
			t.Fatalf("Flush() error = %v, want *FlushError at index 1", err)
		}
		if n, _ := h.Log.Len(); n != 2 {
			t.Errorf("action log length = %d, want 2", n)
		}
	})

	t.Run("clear failure is reported", func(t *testing.T) {
		h := testutil.NewHarness(t, true)
		queueOffline(t, h, "Ani")
		h.Storage.FailPut(staff.ActionLogKey, true)

		if _, err := h.Repo.Flush(ctx); !errors.Is(err, testutil.ErrInjected) {
			t.Fatalf("Flush() error = %v, want ErrInjected", err)
		}
		if n, _ := h.Log.Len(); n != 1 {
			t.Errorf("action log length = %d, want 1", n)
		}
	})

	t.Run("refresh failure still reports the replay", func(t *testing.T) {
		h := testutil.NewHarness(t, true)
		queueOffline(t, h, "Ani")
		h.Remote.Fail("List", testutil.ErrInjected)

		res, err := h.Repo.Flush(ctx)
		if !errors.Is(err, testutil.ErrInjected) {
			t.Fatalf("Flush() error = %v, want ErrInjected", err)
		}
		if res == nil || res.Replayed != 1 {
			t.Errorf("Flush() result = %+v, want 1 replayed", res)
		}
		if n, _ := h.Log.Len(); n != 0 {
			t.Errorf("action log length = %d, want 0", n)
		}
	})

	t.Run("concurrent flushes replay once", func(t *testing.T) {
		h := testutil.NewHarness(t, true)
		queueOffline(t, h, "Ani")
		release := h.Remote.Hold()

		var wg sync.WaitGroup
		errs := make([]error, 3)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = h.Repo.Flush(ctx)
			}(i)
		}

		deadline := time.Now().Add(2 * time.Second)
		for h.Remote.CallCount("Insert") == 0 {
			if time.Now().After(deadline) {
				release()
				t.Fatal("flush never reached the remote")
			}
			time.Sleep(time.Millisecond)
		}
		release()
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Errorf("Flush() #%d error = %v", i, err)
			}
		}
		if n := h.Remote.CallCount("Insert"); n != 1 {
			t.Errorf("remote Insert calls = %d, want 1", n)
		}
		if h.Remote.Len() != 1 {
			t.Errorf("remote holds %d records, want 1", h.Remote.Len())
		}
	})
}

func TestRepository_Run(t *testing.T) {
	waitForEmptyLog := func(t *testing.T, h *testutil.Harness) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for {
			n, err := h.Log.Len()
			if err != nil {
				t.Fatalf("Len() error = %v", err)
			}
			if n == 0 {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("action log length = %d, want 0", n)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	t.Run("flushes when connectivity returns", func(t *testing.T) {
		h := testutil.NewHarness(t, false)
		if _, err := h.Repo.Create(context.Background(), testutil.SampleInput("Ani")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- h.Repo.Run(ctx) }()

		h.Conn.Set(true)
		waitForEmptyLog(t, h)

		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
		if h.Remote.Len() != 1 {
			t.Errorf("remote holds %d records, want 1", h.Remote.Len())
		}
	})

	t.Run("flushes at start when already online", func(t *testing.T) {
		h := testutil.NewHarness(t, true)
		queueOffline(t, h, "Ani", "Budi")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go h.Repo.Run(ctx)

		waitForEmptyLog(t, h)
		if h.Remote.Len() != 2 {
			t.Errorf("remote holds %d records, want 2", h.Remote.Len())
		}
	})

	t.Run("failed pass waits for the next transition", func(t *testing.T) {
		h := testutil.NewHarness(t, false)
		if _, err := h.Repo.Create(context.Background(), testutil.SampleInput("Ani")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		h.Remote.Fail("Insert", testutil.ErrInjected)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go h.Repo.Run(ctx)

		h.Conn.Set(true)
		deadline := time.Now().Add(2 * time.Second)
		for h.Remote.CallCount("Insert") == 0 {
			if time.Now().After(deadline) {
				t.Fatal("no flush attempted after reconnect")
			}
			time.Sleep(5 * time.Millisecond)
		}
		if n, _ := h.Log.Len(); n != 1 {
			t.Fatalf("action log length = %d after failed pass, want 1", n)
		}

		h.Remote.Fail("Insert", nil)
		h.Conn.Set(false)
		// Updates coalesce to the latest state, so let Run see the drop.
		time.Sleep(20 * time.Millisecond)
		h.Conn.Set(true)
		waitForEmptyLog(t, h)
	})
}
