package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stokapp/stok/internal/domain/catalog"
	"github.com/stokapp/stok/internal/domain/checklist"
	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/errs"
	"github.com/stokapp/stok/internal/importer"
	"github.com/stokapp/stok/internal/infra/excel"
	"github.com/stokapp/stok/internal/infra/metrics"
	"github.com/stokapp/stok/internal/store/memory"
	"github.com/stokapp/stok/internal/transactions"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return New(memory.New().Store(), slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		WarehouseActor: "Depo",
		Categories:     []catalog.Category{{Name: "Lead", Keywords: []string{"solia"}}},
		Metrics:        metrics.New(prometheus.NewRegistry()),
	})
}

func TestCaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	lead, err := s.CreateMaterial(ctx, materials.Material{Name: "Solia S 60", Serial: "S1", Quantity: 12})
	if err != nil {
		t.Fatal(err)
	}

	rec, err := s.ConsumeForCase(ctx, transactions.CaseRequest{
		Hospital: "Ankara EAH", Doctor: "Dr. Kaya", Patient: "Ali",
		Lines: []transactions.CaseLine{{SerialOrLot: "S1", Quantity: 5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	list, _ := s.ListMaterials(ctx, catalog.Query{Category: "Lead"})
	if len(list) != 1 || list[0].Quantity != 7 {
		t.Fatalf("materials = %+v", list)
	}

	entries, err := s.ListHistory(ctx, history.FilterCase, "ali")
	if err != nil || len(entries) != 1 || entries[0].ReferenceID != rec.ID {
		t.Fatalf("history = %+v, %v", entries, err)
	}
	ok, err := s.CanUndo(ctx, entries[0].ID)
	if err != nil || !ok {
		t.Fatalf("CanUndo = %v, %v", ok, err)
	}
	if _, err := s.Undo(ctx, entries[0].ID); err != nil {
		t.Fatal(err)
	}

	m, _ := s.Ledger().Get(ctx, lead.ID)
	if m.Quantity != 12 {
		t.Fatalf("quantity after undo = %d", m.Quantity)
	}
	if cs, _ := s.ListCases(ctx); len(cs) != 0 {
		t.Fatalf("cases = %+v", cs)
	}
	if hs, _ := s.ListHistory(ctx, history.FilterAll, ""); len(hs) != 0 {
		t.Fatalf("history = %+v", hs)
	}
	if _, err := s.Undo(ctx, entries[0].ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second undo err = %v", err)
	}
}

func TestStockOutOverAvailable(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	m, _ := s.CreateMaterial(ctx, materials.Material{Name: "Lead A", Serial: "S1", Quantity: 7})
	_, err := s.AdjustStock(ctx, transactions.AdjustRequest{MaterialID: m.ID, Quantity: 20, Direction: transactions.DirectionOut})
	if !errors.Is(err, errs.ErrInsufficientStock) {
		t.Fatalf("err = %v", err)
	}
	if hs, _ := s.ListHistory(ctx, history.FilterAll, ""); len(hs) != 0 {
		t.Fatal("no history entry may be written")
	}
}

func TestImportThenExportAll(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	res, err := s.ImportMaterials(ctx, importer.Table{
		Header: []string{"Name", "Quantity", "Description"},
		Rows:   [][]string{{"Probe X", "3", "LOT:L1"}, {"Probe X", "3", "lot=l1"}},
	}, "ayse")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Accepted) != 1 || len(res.Duplicates) != 1 || res.Accepted[0].OwnerUser != "ayse" {
		t.Fatalf("import = %+v", res)
	}

	items := s.ImportChecklist(importer.Table{Header: []string{"Hasta", "Saat"}, Rows: [][]string{{"Ali", "08:15"}}})
	items[0].Status = checklist.StatusDone
	if _, err := s.SaveChecklist(ctx, items, "ayse"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DeleteMaterial(ctx, res.Accepted[0].ID, "ayse"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.ExportAll(ctx, &buf); err != nil {
		t.Fatal(err)
	}
	tbl, err := excel.ReadTable(&buf)
	if err != nil {
		t.Fatal(err)
	}
	// first sheet is Materials; the only material was deleted
	if len(tbl.Header) != 7 || len(tbl.Rows) != 0 {
		t.Fatalf("materials sheet = %+v", tbl)
	}
	stock, _ := s.ListHistory(ctx, history.FilterStock, "")
	if len(stock) != 1 || stock[0].Kind != history.KindDelete {
		t.Fatalf("stock history = %+v", stock)
	}
}
