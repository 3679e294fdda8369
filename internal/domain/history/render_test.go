package history

import (
	"testing"
	"time"

	"github.com/stokapp/stok/internal/domain/materials"
)

func TestMaterialLine(t *testing.T) {
	exp := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in   materials.Used
		want string
	}{
		{materials.Used{Name: "Lead A", Serial: "S1", Lot: "L1", ExpiryDate: &exp, Quantity: 5}, "Lead A • Seri: S1 • SKT: 31.07.2026 • Adet: 5"},
		{materials.Used{Name: "Sheath", Lot: "L9", Quantity: 2}, "Sheath • Lot: L9 • Adet: 2"},
		{materials.Used{Name: "X", SerialOrLot: "legacy", Quantity: 1}, "X • legacy • Adet: 1"},
	}
	for _, c := range cases {
		if got := MaterialLine(c.in); got != c.want {
			t.Fatalf("MaterialLine = %q, want %q", got, c.want)
		}
	}
}

func TestSelectFilterAndSearch(t *testing.T) {
	entries := []Entry{
		{ID: "1", Kind: KindStockIn, Summary: "Stok girişi", Details: []materials.Used{{Name: "Lead A", Serial: "S1", Quantity: 3}}},
		{ID: "2", Kind: KindCase, Summary: "Vaka: Ali - EAH", Details: []materials.Used{{Name: "Sheath", Lot: "L2", Quantity: 1}}},
		{ID: "3", Kind: KindDelete, Summary: "Silindi"},
		{ID: "4", Kind: KindChecklist, Summary: "Kontrol listesi tamamlandı - 1/2", Details: []materials.Used{{Name: "Veli", SerialOrLot: "EAH • Tel: 05551234567", Quantity: 1}}},
	}

	if got := Select(entries, FilterStock, ""); len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Fatalf("stock filter = %+v", got)
	}
	if got := Select(entries, FilterAll, "seri: s1"); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("search on detail = %+v", got)
	}
	if got := Select(entries, FilterAll, "tamamlandı"); len(got) != 1 || got[0].ID != "4" {
		t.Fatalf("search on checklist = %+v", got)
	}
	if got := Select(entries, ParseFilter("case"), "ali"); len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("case filter = %+v", got)
	}
	if ParseFilter("bogus") != FilterAll {
		t.Fatal("unknown filter must default to All")
	}
}
