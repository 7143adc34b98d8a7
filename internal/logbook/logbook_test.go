package logbook

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fishingCatchesLogger/internal/testutil"
	"fishingCatchesLogger/models"
	"fishingCatchesLogger/repository"
)

func newLogbook(t *testing.T) (*Logbook, *sql.DB) {
	t.Helper()
	d := testutil.OpenInMemoryDB(t)
	return New(repository.NewRecordRepository(d), zerolog.Nop()), d
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := models.ParseTimestamp(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func stock(t *testing.T, lb *Logbook, ctx context.Context) float64 {
	t.Helper()
	s, err := lb.TotalStock(ctx)
	if err != nil {
		t.Fatalf("total stock: %v", err)
	}
	return s
}

func TestAliceScenario(t *testing.T) {
	lb, d := newLogbook(t)
	ctx := testutil.CtxWithSession(context.Background(), testutil.SeedUser(t, d, "alice", "pw123"))

	c, err := lb.AddCatch(ctx, at(t, "2024-05-01T08:00:00"), 12.5, 51.5, -0.1)
	if err != nil {
		t.Fatalf("add catch: %v", err)
	}
	if got := stock(t, lb, ctx); got != 12.5 {
		t.Fatalf("stock after catch = %v, want 12.5", got)
	}
	if _, err := lb.AddSell(ctx, at(t, "2024-05-02T09:00:00"), 5.0, 40.0); err != nil {
		t.Fatalf("add sell: %v", err)
	}
	if got := stock(t, lb, ctx); got != 7.5 {
		t.Fatalf("stock after sell = %v, want 7.5", got)
	}
	if err := lb.EditWeight(ctx, c, 20); err != nil {
		t.Fatalf("edit weight: %v", err)
	}
	if c.Weight != 20 {
		t.Fatalf("edit not reflected: %+v", c)
	}
	if got := stock(t, lb, ctx); got != 15 {
		t.Fatalf("stock after edit = %v, want 15", got)
	}

	all, err := lb.ListAll(ctx)
	if err != nil || len(all) != 2 || all[0].Kind != models.RecordKindCatch || all[1].Kind != models.RecordKindSell {
		t.Fatalf("list all: %v %+v", err, all)
	}
}

func TestStockMovesByExactlyTheWeight(t *testing.T) {
	lb, d := newLogbook(t)
	ctx := testutil.CtxWithSession(context.Background(), testutil.SeedUser(t, d, "alice", "pw"))
	ts := at(t, "2024-06-01T10:00:00")

	for _, w := range []float64{0, 0.25, 3, 17.75} {
		before := stock(t, lb, ctx)
		if _, err := lb.AddCatch(ctx, ts, w, 10, 10); err != nil {
			t.Fatalf("add catch %v: %v", w, err)
		}
		if got := stock(t, lb, ctx); got != before+w {
			t.Fatalf("catch %v: stock %v -> %v", w, before, got)
		}
		before = stock(t, lb, ctx)
		if _, err := lb.AddSell(ctx, ts, w, 1); err != nil {
			t.Fatalf("add sell %v: %v", w, err)
		}
		if got := stock(t, lb, ctx); got != before-w {
			t.Fatalf("sell %v: stock %v -> %v", w, before, got)
		}
	}
}

func TestDeleteRemovesRecordAndDetail(t *testing.T) {
	lb, d := newLogbook(t)
	ctx := testutil.CtxWithSession(context.Background(), testutil.SeedUser(t, d, "alice", "pw"))
	ts := at(t, "2024-05-01T08:00:00")

	c, err := lb.AddCatch(ctx, ts, 3, 1, 2)
	if err != nil {
		t.Fatalf("add catch: %v", err)
	}
	s, err := lb.AddSell(ctx, ts, 1, 9)
	if err != nil {
		t.Fatalf("add sell: %v", err)
	}
	for _, id := range []int64{c.ID, s.ID} {
		if err := lb.Delete(ctx, id); err != nil {
			t.Fatalf("delete %d: %v", id, err)
		}
		if _, err := lb.FindByID(ctx, id); !errors.Is(err, models.ErrRecordNotFound) {
			t.Fatalf("find deleted %d: expected ErrRecordNotFound, got %v", id, err)
		}
	}
	if n := testutil.CountOrphans(t, d); n != 0 {
		t.Fatalf("orphans after delete: %d", n)
	}
	if err := lb.Delete(ctx, c.ID); !errors.Is(err, models.ErrRecordNotFound) {
		t.Fatalf("second delete: expected ErrRecordNotFound, got %v", err)
	}
}

func TestFailedEditsLeaveRecordUnchanged(t *testing.T) {
	lb, d := newLogbook(t)
	ctx := testutil.CtxWithSession(context.Background(), testutil.SeedUser(t, d, "alice", "pw"))
	ts := at(t, "2024-05-01T08:00:00")

	c, err := lb.AddCatch(ctx, ts, 3, 1, 2)
	if err != nil {
		t.Fatalf("add catch: %v", err)
	}
	s, err := lb.AddSell(ctx, ts, 1, 9)
	if err != nil {
		t.Fatalf("add sell: %v", err)
	}

	if err := lb.EditRevenue(ctx, c, 5); !errors.Is(err, models.ErrWrongRecordKind) {
		t.Fatalf("revenue on catch: expected ErrWrongRecordKind, got %v", err)
	}
	if err := lb.EditLocation(ctx, s, 5, 5); !errors.Is(err, models.ErrWrongRecordKind) {
		t.Fatalf("location on sell: expected ErrWrongRecordKind, got %v", err)
	}
	if err := lb.EditLocation(ctx, c, 91, 0); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("bad latitude: expected ErrValidation, got %v", err)
	}
	if err := lb.EditWeight(ctx, c, -1); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("negative weight: expected ErrValidation, got %v", err)
	}
	if c.Weight != 3 || c.Catch.Latitude != 1 || c.Catch.Longitude != 2 {
		t.Fatalf("catch mutated by failed edits: %+v %+v", c, c.Catch)
	}

	// A record that no longer exists cannot be edited.
	if err := lb.Delete(ctx, s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := lb.EditRevenue(ctx, s, 99); !errors.Is(err, models.ErrRecordNotFound) {
		t.Fatalf("edit deleted: expected ErrRecordNotFound, got %v", err)
	}
	if err := lb.EditDate(ctx, s, ts.Add(time.Hour)); !errors.Is(err, models.ErrRecordNotFound) {
		t.Fatalf("edit date of deleted: expected ErrRecordNotFound, got %v", err)
	}
	if s.Sell.Revenue != 9 || !s.Timestamp.Equal(ts) {
		t.Fatalf("sell mutated by failed edits: %+v", s)
	}
}

func TestEditsAreReflectedAndPersisted(t *testing.T) {
	lb, d := newLogbook(t)
	ctx := testutil.CtxWithSession(context.Background(), testutil.SeedUser(t, d, "alice", "pw"))
	c, err := lb.AddCatch(ctx, at(t, "2024-05-01T08:00:00"), 3, 1, 2)
	if err != nil {
		t.Fatalf("add catch: %v", err)
	}
	s, err := lb.AddSell(ctx, at(t, "2024-05-01T09:00:00"), 1, 9)
	if err != nil {
		t.Fatalf("add sell: %v", err)
	}

	newTS := at(t, "2024-07-04T12:30:00")
	if err := lb.EditDate(ctx, c, newTS); err != nil {
		t.Fatalf("edit date: %v", err)
	}
	if err := lb.EditLocation(ctx, c, -33.9, 18.4); err != nil {
		t.Fatalf("edit location: %v", err)
	}
	if err := lb.EditRevenue(ctx, s, 12.5); err != nil {
		t.Fatalf("edit revenue: %v", err)
	}

	got, err := lb.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("reload catch: %v", err)
	}
	if !got.Timestamp.Equal(newTS) || got.Catch.Latitude != -33.9 || got.Catch.Longitude != 18.4 {
		t.Fatalf("catch not persisted: %+v %+v", got, got.Catch)
	}
	if !c.Timestamp.Equal(newTS) || c.Catch.Latitude != -33.9 {
		t.Fatalf("catch not reflected: %+v", c)
	}
	bySell, err := lb.FindByRevenue(ctx, 12.5)
	if err != nil || len(bySell) != 1 || bySell[0].ID != s.ID || s.Sell.Revenue != 12.5 {
		t.Fatalf("revenue edit: %v %+v", err, bySell)
	}
	byDate, err := lb.FindByDate(ctx, newTS)
	if err != nil || len(byDate) != 1 || byDate[0].ID != c.ID {
		t.Fatalf("find by date: %v %+v", err, byDate)
	}
	byLoc, err := lb.FindByLocation(ctx, -33.9, 18.4)
	if err != nil || len(byLoc) != 1 {
		t.Fatalf("find by location: %v %+v", err, byLoc)
	}
}

func TestFindNear(t *testing.T) {
	lb, d := newLogbook(t)
	ctx := testutil.CtxWithSession(context.Background(), testutil.SeedUser(t, d, "alice", "pw"))
	ts := at(t, "2024-05-01T08:00:00")

	near, err := lb.AddCatch(ctx, ts, 1, 51.5, -0.1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := lb.AddCatch(ctx, ts, 1, 48.85, 2.35); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := lb.FindNear(ctx, 51.5001, -0.1001, 1)
	if err != nil || len(got) != 1 || got[0].ID != near.ID {
		t.Fatalf("find near: %v %+v", err, got)
	}
	if exact, _ := lb.FindByLocation(ctx, 51.5001, -0.1001); len(exact) != 0 {
		t.Fatalf("exact location matched an inexact point: %+v", exact)
	}
	if _, err := lb.FindNear(ctx, 0, 0, -1); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("negative radius: expected ErrValidation, got %v", err)
	}
}

func TestAddValidation(t *testing.T) {
	lb, d := newLogbook(t)
	ctx := testutil.CtxWithSession(context.Background(), testutil.SeedUser(t, d, "alice", "pw"))
	ts := at(t, "2024-05-01T08:00:00")

	cases := []struct {
		name  string
		field string
		run   func() error
	}{
		{"zero timestamp", "timestamp", func() error { _, err := lb.AddCatch(ctx, time.Time{}, 1, 0, 0); return err }},
		{"negative weight", "weight", func() error { _, err := lb.AddCatch(ctx, ts, -2, 0, 0); return err }},
		{"nan weight", "weight", func() error { _, err := lb.AddSell(ctx, ts, math.NaN(), 1); return err }},
		{"latitude", "latitude", func() error { _, err := lb.AddCatch(ctx, ts, 1, -90.5, 0); return err }},
		{"longitude", "longitude", func() error { _, err := lb.AddCatch(ctx, ts, 1, 0, 180.5); return err }},
		{"infinite revenue", "revenue", func() error { _, err := lb.AddSell(ctx, ts, 1, math.Inf(1)); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ve *models.ValidationError
			if err := tc.run(); !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
	if got := stock(t, lb, ctx); got != 0 {
		t.Fatalf("rejected input was stored: stock %v", got)
	}
}

func TestRecordsAreScopedToTheSessionUser(t *testing.T) {
	lb, d := newLogbook(t)
	alice := testutil.CtxWithSession(context.Background(), testutil.SeedUser(t, d, "alice", "pw"))
	bob := testutil.CtxWithSession(context.Background(), testutil.SeedUser(t, d, "bob", "pw"))

	c, err := lb.AddCatch(alice, at(t, "2024-05-01T08:00:00"), 4, 1, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := lb.FindByID(bob, c.ID); !errors.Is(err, models.ErrRecordNotFound) {
		t.Fatalf("bob sees alice's record: %v", err)
	}
	if recs, _ := lb.ListAll(bob); len(recs) != 0 {
		t.Fatalf("bob lists alice's records: %+v", recs)
	}
	foreign := *c
	if err := lb.EditWeight(bob, &foreign, 100); !errors.Is(err, models.ErrRecordNotFound) {
		t.Fatalf("bob edited alice's record: %v", err)
	}
	if err := lb.Delete(bob, c.ID); !errors.Is(err, models.ErrRecordNotFound) {
		t.Fatalf("bob deleted alice's record: %v", err)
	}
	if got := stock(t, lb, bob); got != 0 {
		t.Fatalf("bob's stock = %v", got)
	}
	if got := stock(t, lb, alice); got != 4 {
		t.Fatalf("alice's stock = %v", got)
	}
}

func TestOperationsRequireSession(t *testing.T) {
	lb, _ := newLogbook(t)
	ctx := context.Background()
	rec := models.NewCatch(time.Now(), 1, 0, 0)

	checks := map[string]error{}
	_, checks["AddCatch"] = lb.AddCatch(ctx, time.Now(), 1, 0, 0)
	_, checks["AddSell"] = lb.AddSell(ctx, time.Now(), 1, 1)
	_, checks["ListAll"] = lb.ListAll(ctx)
	_, checks["FindByID"] = lb.FindByID(ctx, 1)
	_, checks["FindByWeight"] = lb.FindByWeight(ctx, 1)
	_, checks["FindNear"] = lb.FindNear(ctx, 0, 0, 1)
	_, checks["TotalStock"] = lb.TotalStock(ctx)
	_, checks["ImportRecords"] = lb.ImportRecords(ctx, []models.Record{rec})
	checks["EditWeight"] = lb.EditWeight(ctx, &rec, 2)
	checks["Delete"] = lb.Delete(ctx, 1)

	for op, err := range checks {
		if !errors.Is(err, models.ErrNoSession) {
			t.Errorf("%s: expected ErrNoSession, got %v", op, err)
		}
	}
}

func TestImportRecordsIsAllOrNothing(t *testing.T) {
	lb, d := newLogbook(t)
	ctx := testutil.CtxWithSession(context.Background(), testutil.SeedUser(t, d, "alice", "pw"))
	ts := at(t, "2024-05-01T08:00:00")

	bad := []models.Record{models.NewCatch(ts, 1, 0, 0), models.NewSell(ts, 1, -5)}
	if _, err := lb.ImportRecords(ctx, bad); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if got := stock(t, lb, ctx); got != 0 {
		t.Fatalf("partial import stored: stock %v", got)
	}

	good := []models.Record{models.NewCatch(ts, 6, 0, 0), models.NewSell(ts, 2, 5)}
	good[0].ID = 42
	n, err := lb.ImportRecords(ctx, good)
	if err != nil || n != 2 {
		t.Fatalf("import: n=%d err=%v", n, err)
	}
	if good[0].ID == 42 || good[0].ID == 0 {
		t.Fatalf("imported record kept its old id: %+v", good[0])
	}
	if got := stock(t, lb, ctx); got != 4 {
		t.Fatalf("stock after import = %v, want 4", got)
	}
}
