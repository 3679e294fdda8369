package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/domain/lookups"
	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/errs"
)

func TestMaterialsCopyOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	s := New().Store()
	exp := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	m := &materials.Material{ID: "m1", Name: "Lead A", Serial: "S1", Quantity: 12, ExpiryDate: &exp}
	if err := s.Materials.Insert(ctx, m); err != nil {
		t.Fatalf("insert: %v", err)
	}
	m.Quantity = 99
	got, err := s.Materials.Get(ctx, "m1")
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.Quantity != 12 {
		t.Fatalf("stored quantity changed through caller pointer: %d", got.Quantity)
	}
	*got.ExpiryDate = got.ExpiryDate.AddDate(1, 0, 0)
	again, _ := s.Materials.Get(ctx, "m1")
	if !again.ExpiryDate.Equal(exp) {
		t.Fatalf("expiry aliased: %v", again.ExpiryDate)
	}
}

func TestMaterialsGetMissingAndUpdateMissing(t *testing.T) {
	ctx := context.Background()
	s := New().Store()
	got, err := s.Materials.Get(ctx, "nope")
	if got != nil || err != nil {
		t.Fatalf("Get missing = %v, %v; want nil, nil", got, err)
	}
	err = s.Materials.Update(ctx, &materials.Material{ID: "nope"})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Update missing err = %v", err)
	}
}

func TestHistoryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New().Store()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		e := &history.Entry{ID: id, Kind: history.KindStockIn, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.History.Insert(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	list, _ := s.History.List(ctx)
	if len(list) != 3 || list[0].ID != "c" || list[2].ID != "a" {
		t.Fatalf("order = %+v", list)
	}
	_ = s.History.Delete(ctx, "b")
	list, _ = s.History.List(ctx)
	if len(list) != 2 {
		t.Fatalf("after delete len = %d", len(list))
	}
}

func TestLookupsUniqueCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := New().Store()
	_ = s.Lookups.Insert(ctx, &lookups.Value{ID: "1", Type: lookups.TypeHospital, Value: "Ankara EAH"})
	_ = s.Lookups.Insert(ctx, &lookups.Value{ID: "2", Type: lookups.TypeHospital, Value: "ankara eah"})
	_ = s.Lookups.Insert(ctx, &lookups.Value{ID: "3", Type: lookups.TypeDoctor, Value: "Ankara EAH"})

	vals, _ := s.Lookups.List(ctx, lookups.TypeHospital)
	if len(vals) != 1 {
		t.Fatalf("hospital values = %+v", vals)
	}
	v, _ := s.Lookups.Find(ctx, lookups.TypeHospital, " ANKARA eah ")
	if v == nil || v.ID != "1" {
		t.Fatalf("find = %+v", v)
	}
}

func TestOnWriteHookAndSnapshot(t *testing.T) {
	ctx := context.Background()
	db := New()
	var calls int
	db.OnWrite(func(Snapshot) error { calls++; return nil })
	s := db.Store()
	_ = s.Materials.Insert(ctx, &materials.Material{ID: "m1", Name: "X", Quantity: 1})
	_ = s.Materials.Delete(ctx, "m1")
	if calls != 2 {
		t.Fatalf("hook calls = %d", calls)
	}

	_ = s.Materials.Insert(ctx, &materials.Material{ID: "m2", Name: "Y", Quantity: 4})
	snap := db.Export()
	other := New()
	other.Import(snap)
	got, _ := other.Store().Materials.Get(ctx, "m2")
	if got == nil || got.Quantity != 4 {
		t.Fatalf("imported = %+v", got)
	}
}

func TestFailedHookDiscardsMutation(t *testing.T) {
	ctx := context.Background()
	db := New()
	s := db.Store()
	if err := s.Materials.Insert(ctx, &materials.Material{ID: "m1", Name: "Lead A", Quantity: 12}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("disk full")
	var seen int
	db.OnWrite(func(snap Snapshot) error {
		seen = snap.Materials[0].Quantity
		return boom
	})
	if err := s.Materials.Update(ctx, &materials.Material{ID: "m1", Name: "Lead A", Quantity: 7}); !errors.Is(err, boom) {
		t.Fatalf("update err = %v", err)
	}
	if seen != 7 {
		t.Fatalf("hook saw quantity %d", seen)
	}
	if err := s.Materials.Delete(ctx, "m1"); !errors.Is(err, boom) {
		t.Fatalf("delete err = %v", err)
	}

	got, _ := s.Materials.Get(ctx, "m1")
	if got == nil || got.Quantity != 12 {
		t.Fatalf("after failed writes = %+v", got)
	}
}
