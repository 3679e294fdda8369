package importer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stokapp/stok/internal/domain/checklist"
	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/ledger"
	"github.com/stokapp/stok/internal/store/memory"
)

func TestParseDescription(t *testing.T) {
	got := ParseDescription("SERİ:AB-12/LOT:LT-7/SKT:31.07.2026")
	want := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	if got.Serial != "AB-12" || got.Lot != "LT-7" || got.Expiry == nil || !got.Expiry.Equal(want) {
		t.Fatalf("labels = %+v", got)
	}

	got = ParseDescription("seri = X9;lot\nexp: 1.2.2027\\ignored")
	if got.Serial != "X9" || got.Lot != "lot" || got.Expiry == nil || got.Expiry.Month() != time.February {
		t.Fatalf("labels = %+v", got)
	}

	got = ParseDescription("SKT: 2026-07-31")
	if got.Expiry != nil {
		t.Fatalf("unparsable expiry must be ignored, got %v", got.Expiry)
	}
}

func TestNormalizers(t *testing.T) {
	phones := map[string]string{
		"555 123 45 67":     "05551234567",
		"+90 (555) 1234567": "09055512345",
		"0532-000-00-00":    "05320000000",
		"":                  "",
		"yok":               "",
	}
	for in, want := range phones {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}

	hospitals := map[string]string{
		"Ankara Eğitim ve Araştırma Hastanesi": "Ankara EAH",
		"ANKARA EĞİTİM VE ARAŞTIRMA HASTANESİ": "ANKARA EAH",
		"Izmir Egitim ve Arastirma Hastanesi":  "Izmir EAH",
		"  Devlet Hastanesi ":                  "Devlet Hastanesi",
		"Eğitim ve Araştırma Merkezi":          "Eğitim ve Araştırma Merkezi",
	}
	for in, want := range hospitals {
		if got := NormalizeHospital(in); got != want {
			t.Errorf("NormalizeHospital(%q) = %q, want %q", in, got, want)
		}
	}

	times := map[string]time.Duration{
		"09:30": 9*time.Hour + 30*time.Minute,
		"9:05":  9*time.Hour + 5*time.Minute,
		"25:00": 0,
		"abc":   0,
		"9.30":  0,
	}
	for in, want := range times {
		if got := ParseTime(in); got != want {
			t.Errorf("ParseTime(%q) = %v, want %v", in, got, want)
		}
	}

	if ParseQuantity("12") != 12 || ParseQuantity(" 3 ") != 3 || ParseQuantity("on iki") != 0 {
		t.Error("ParseQuantity")
	}
}

func TestParseMaterialsHeaderSynonyms(t *testing.T) {
	tbl := Table{
		Header: []string{"MİKTAR", "Malzeme Açıklaması", "Malzeme", "Açıklama", "Kullanıcı"},
		Rows: [][]string{
			{"4", "Lead A", "LD-1", "SERİ:S1/SKT:31.07.2026", "ayse"},
			{"x", "", "LD-2"},
			{"2", "Sheath"},
		},
	}
	got, dropped := ParseMaterials(tbl)
	if dropped != 1 || len(got) != 2 {
		t.Fatalf("got %d materials, dropped %d", len(got), dropped)
	}
	if m := got[0]; m.Name != "Lead A" || m.Code != "LD-1" || m.Quantity != 4 || m.Serial != "S1" || m.OwnerUser != "ayse" || m.ExpiryDate == nil {
		t.Fatalf("first = %+v", m)
	}
	if m := got[1]; m.Name != "Sheath" || m.Quantity != 2 || m.OwnerUser != "" {
		t.Fatalf("second = %+v", m)
	}
}

func TestParseChecklist(t *testing.T) {
	tbl := Table{
		Header: []string{"SIRA", "Hasta", "Hastane", "Telefon", "Saat"},
		Rows: [][]string{
			{"2", "Ali", "Ankara Eğitim ve Araştırma Hastanesi", "555 123 45 67", "09:30"},
			{"3", "  "},
			{"x", "Veli", "", "", "later"},
		},
	}
	got, dropped := ParseChecklist(tbl)
	if dropped != 1 || len(got) != 2 {
		t.Fatalf("got %+v dropped %d", got, dropped)
	}
	want := checklist.Entry{OrderNo: 2, Patient: "Ali", Hospital: "Ankara EAH", Phone: "05551234567", Time: 9*time.Hour + 30*time.Minute, Status: checklist.StatusNotYet}
	if got[0] != want {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].OrderNo != 0 || got[1].Time != 0 {
		t.Fatalf("second = %+v", got[1])
	}
}

type counter map[string]int

func (c counter) ImportRow(kind, outcome string) { c[kind+"/"+outcome]++ }

func TestImportMaterialsSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.New(memory.New().Store().Materials, log)
	if _, err := l.Create(ctx, materials.Material{Name: "Lead A", Serial: "S1", Quantity: 1}); err != nil {
		t.Fatal(err)
	}
	imp := New(l, log, "Depo")
	c := counter{}
	imp.SetObserver(c)

	tbl := Table{
		Header: []string{"name", "qty", "description"},
		Rows: [][]string{
			{"LEAD A", "3", "seri: s1"},
			{"Lead A", "2", "SERİ:S1"},
			{"Lead A", "5", "SERİ:S2"},
			{"lead a", "5", "SERİ:S2"},
			{"", "1"},
		},
	}
	res, err := imp.ImportMaterials(ctx, tbl, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Accepted) != 1 || res.Accepted[0].Serial != "S2" || res.Accepted[0].OwnerUser != "Depo" {
		t.Fatalf("accepted = %+v", res.Accepted)
	}
	if len(res.Duplicates) != 1 || res.Duplicates[0] != "LEAD A" {
		t.Fatalf("duplicates = %v", res.Duplicates)
	}
	if c["materials/duplicate"] != 3 || c["materials/accepted"] != 1 || c["materials/dropped"] != 1 {
		t.Fatalf("observer = %v", c)
	}
	all, _ := l.List(ctx)
	if len(all) != 2 {
		t.Fatalf("materials = %d, want 2", len(all))
	}
}
