package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/stokapp/stok/internal/domain/catalog"
	"github.com/stokapp/stok/internal/service"
	"github.com/stokapp/stok/internal/store/memory"
)

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(memory.New().Store(), log, service.Options{
		WarehouseActor: "Depo",
		Categories:     []catalog.Category{{Name: "Lead", Keywords: []string{"solia"}}},
	})
	return New(":0", false, NewAPI(svc, log)).srv.Handler
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(UserHeader, "ayse")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newHandler(t), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestCaseAndUndoOverHTTP(t *testing.T) {
	h := newHandler(t)

	rec := do(t, h, http.MethodPost, "/api/materials", map[string]any{"name": "Solia S 60", "serial": "S1", "quantity": 3, "expiryDate": "2027-01-31"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	var m materialDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if m.OwnerUser != "ayse" || m.ExpiryDate == nil || *m.ExpiryDate != "2027-01-31" {
		t.Fatalf("material = %+v", m)
	}

	caseBody := map[string]any{
		"hospital": "Ankara EAH", "patient": "Ali",
		"lines": []map[string]any{{"serialOrLot": "s1", "quantity": 5}},
	}
	if rec := do(t, h, http.MethodPost, "/api/cases", caseBody); rec.Code != http.StatusConflict {
		t.Fatalf("over-consume = %d %s", rec.Code, rec.Body.String())
	}
	caseBody["lines"] = []map[string]any{{"serialOrLot": "s1", "quantity": 2}}
	if rec := do(t, h, http.MethodPost, "/api/cases", caseBody); rec.Code != http.StatusCreated {
		t.Fatalf("case = %d %s", rec.Code, rec.Body.String())
	}
	caseBody["lines"] = []map[string]any{{"serialOrLot": "nope", "quantity": 1}}
	if rec := do(t, h, http.MethodPost, "/api/cases", caseBody); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown serial = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/history?filter=case", nil)
	var hist []entryDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 || !hist[0].CanUndo || hist[0].CreatedBy != "ayse" {
		t.Fatalf("history = %+v", hist)
	}

	if rec := do(t, h, http.MethodPost, "/api/history/"+hist[0].ID+"/undo", nil); rec.Code != http.StatusOK {
		t.Fatalf("undo = %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodPost, "/api/history/"+hist[0].ID+"/undo", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second undo = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/materials?category=Lead", nil)
	var list []materialDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Quantity != 3 {
		t.Fatalf("after undo = %+v", list)
	}
}

func TestValidationIsBadRequest(t *testing.T) {
	h := newHandler(t)
	if rec := do(t, h, http.MethodPost, "/api/stock/adjust", map[string]any{"materialId": "x", "quantity": 0}); rec.Code != http.StatusBadRequest {
		t.Fatalf("adjust = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/lookups/nurses", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("lookup = %d", rec.Code)
	}
}

func TestImportAndExport(t *testing.T) {
	h := newHandler(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows := [][]any{
		{"Malzeme Açıklaması", "Miktar", "Açıklama"},
		{"Solia S 53", 4, "SERİ:A1/LOT:L1"},
		{"Solia S 53", 4, "SERİ:A1/LOT:L1"},
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

	req := httptest.NewRequest(http.MethodPost, "/api/import/materials", &buf)
	req.Header.Set("Content-Type", xlsxType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import = %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Accepted   []materialDTO `json:"accepted"`
		Duplicates []string      `json:"duplicates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Accepted) != 1 || len(res.Duplicates) != 1 {
		t.Fatalf("import result = %+v", res)
	}

	rec = do(t, h, http.MethodGet, "/api/export/all", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != xlsxType {
		t.Fatalf("export = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment;") {
		t.Fatalf("disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	x, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got := x.GetSheetList(); len(got) != 4 {
		t.Fatalf("sheets = %v", got)
	}

	if rec := do(t, h, http.MethodGet, "/api/export/bogus", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("bogus export = %d", rec.Code)
	}
}
