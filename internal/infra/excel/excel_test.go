package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/stokapp/stok/internal/domain/checklist"
	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/importer"
)

func TestReadTableSkipsBlankRows(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows := [][]any{
		{"Malzeme Açıklaması", "Miktar", "Açıklama"},
		{"Lead A", 4, "SERİ:S1/LOT:L1"},
		{},
		{"Sheath", "2"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	tbl, err := ReadTable(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(tbl.Header) != 3 || len(tbl.Rows) != 2 {
		t.Fatalf("table = %+v", tbl)
	}
	ms, _ := importer.ParseMaterials(tbl)
	if len(ms) != 2 || ms[0].Quantity != 4 || ms[0].Serial != "S1" || ms[1].Name != "Sheath" {
		t.Fatalf("materials = %+v", ms)
	}
}

func TestReadTableRejectsGarbage(t *testing.T) {
	if _, err := ReadTable(bytes.NewReader([]byte("not a workbook"))); err == nil {
		t.Fatal("expected error")
	}
}

func TestWriteAllHasFourSheets(t *testing.T) {
	exp := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	d := Data{
		Materials: []materials.Material{{Name: "Lead A", Serial: "S1", ExpiryDate: &exp, Quantity: 7, OwnerUser: "Depo"}},
		History: []history.Entry{{
			Kind: history.KindCase, Summary: "Vaka: Ali - EAH", CreatedAt: time.Now(), CreatedBy: "Depo",
			Details: []materials.Used{{Name: "Lead A", SerialOrLot: "S1", ExpiryDate: &exp, Quantity: 5}},
		}},
		Checklist: []checklist.Entry{{OrderNo: 1, Patient: "Ali", Time: 9*time.Hour + 5*time.Minute, Status: checklist.StatusDone}},
	}
	var buf bytes.Buffer
	if err := WriteAll(&buf, d); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	want := []string{"Materials", "Cases", "History", "Checklist"}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sheets = %v, want %v", got, want)
		}
	}
	if v, _ := f.GetCellValue("Materials", "E2"); v != "31.07.2026" {
		t.Fatalf("expiry cell = %q", v)
	}
	if v, _ := f.GetCellValue("History", "E2"); v != "Lead A (S1) SKT:31.07.2026 Qty:5" {
		t.Fatalf("details cell = %q", v)
	}
	if v, _ := f.GetCellValue("Checklist", "E2"); v != "09:05" {
		t.Fatalf("time cell = %q", v)
	}
}
