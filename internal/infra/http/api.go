package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/stokapp/stok/internal/domain/catalog"
	"github.com/stokapp/stok/internal/domain/checklist"
	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/domain/lookups"
	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/errs"
	"github.com/stokapp/stok/internal/importer"
	"github.com/stokapp/stok/internal/infra/excel"
	"github.com/stokapp/stok/internal/ledger"
	"github.com/stokapp/stok/internal/service"
	"github.com/stokapp/stok/internal/transactions"
	"github.com/stokapp/stok/internal/undo"
)

// UserHeader carries the acting user; authentication happens upstream.
const UserHeader = "X-User"

const (
	maxUpload = 20 << 20
	xlsxType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type API struct {
	svc *service.Service
	log *slog.Logger
	mux *http.ServeMux
}

func NewAPI(svc *service.Service, log *slog.Logger) *API {
	a := &API{svc: svc, log: log, mux: http.NewServeMux()}
	a.mux.HandleFunc("GET /api/materials", a.listMaterials)
	a.mux.HandleFunc("POST /api/materials", a.createMaterial)
	a.mux.HandleFunc("PATCH /api/materials/{id}", a.editMaterial)
	a.mux.HandleFunc("DELETE /api/materials/{id}", a.deleteMaterial)
	a.mux.HandleFunc("GET /api/device-counts", a.deviceCounts)
	a.mux.HandleFunc("POST /api/cases", a.consumeForCase)
	a.mux.HandleFunc("POST /api/stock/adjust", a.adjustStock)
	a.mux.HandleFunc("GET /api/checklist", a.listChecklist)
	a.mux.HandleFunc("POST /api/checklist", a.saveChecklist)
	a.mux.HandleFunc("GET /api/history", a.listHistory)
	a.mux.HandleFunc("POST /api/history/{id}/undo", a.undo)
	a.mux.HandleFunc("GET /api/lookups/{type}", a.lookupValues)
	a.mux.HandleFunc("POST /api/lookups/{type}", a.addLookup)
	a.mux.HandleFunc("DELETE /api/lookups/{type}", a.removeLookup)
	a.mux.HandleFunc("POST /api/import/materials", a.importMaterials)
	a.mux.HandleFunc("POST /api/import/checklist", a.importChecklist)
	a.mux.HandleFunc("GET /api/export/{kind}", a.export)
	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) { a.mux.ServeHTTP(w, r) }

func user(r *http.Request) string { return strings.TrimSpace(r.Header.Get(UserHeader)) }

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("encode response", "err", err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrAmbiguousMatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrInsufficientStock), errors.Is(err, errs.ErrNotReversible), errors.Is(err, errs.ErrDuplicate):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		a.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return errs.Validation("invalid JSON body: %v", err)
	}
	return nil
}

type materialDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Code       string  `json:"code,omitempty"`
	Serial     string  `json:"serial,omitempty"`
	Lot        string  `json:"lot,omitempty"`
	ExpiryDate *string `json:"expiryDate,omitempty"` // yyyy-mm-dd
	Quantity   int     `json:"quantity"`
	OwnerUser  string  `json:"ownerUser"`
}

func toMaterialDTO(m materials.Material) materialDTO {
	d := materialDTO{ID: m.ID, Name: m.Name, Code: m.Code, Serial: m.Serial, Lot: m.Lot, Quantity: m.Quantity, OwnerUser: m.OwnerUser}
	if m.ExpiryDate != nil {
		s := m.ExpiryDate.Format(time.DateOnly)
		d.ExpiryDate = &s
	}
	return d
}

func toMaterialDTOs(ms []materials.Material) []materialDTO {
	out := make([]materialDTO, len(ms))
	for i, m := range ms {
		out[i] = toMaterialDTO(m)
	}
	return out
}

func (a *API) listMaterials(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ms, err := a.svc.ListMaterials(r.Context(), catalog.Query{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Expiry:   catalog.ParseSort(q.Get("expiry")),
		Quantity: catalog.ParseSort(q.Get("quantity")),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toMaterialDTOs(ms))
}

func (a *API) createMaterial(w http.ResponseWriter, r *http.Request) {
	var in materialDTO
	if err := decode(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	m := materials.Material{Name: in.Name, Code: in.Code, Serial: in.Serial, Lot: in.Lot, Quantity: in.Quantity, OwnerUser: in.OwnerUser}
	if m.OwnerUser == "" {
		m.OwnerUser = user(r)
	}
	if in.ExpiryDate != nil && *in.ExpiryDate != "" {
		d, err := time.Parse(time.DateOnly, *in.ExpiryDate)
		if err != nil {
			a.fail(w, r, errs.Validation("expiryDate must be yyyy-mm-dd"))
			return
		}
		m.ExpiryDate = &d
	}
	created, err := a.svc.CreateMaterial(r.Context(), m)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toMaterialDTO(*created))
}

func (a *API) editMaterial(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name      *string `json:"name"`
		Quantity  *int    `json:"quantity"`
		OwnerUser *string `json:"ownerUser"`
	}
	if err := decode(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	m, err := a.svc.EditMaterial(r.Context(), r.PathValue("id"), ledger.Patch{Name: in.Name, Quantity: in.Quantity, OwnerUser: in.OwnerUser})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toMaterialDTO(*m))
}

func (a *API) deleteMaterial(w http.ResponseWriter, r *http.Request) {
	entry, err := a.svc.DeleteMaterial(r.Context(), r.PathValue("id"), user(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

func (a *API) deviceCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := a.svc.DeviceCounts(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	type model struct {
		Name  string        `json:"name"`
		Total int           `json:"total"`
		Items []materialDTO `json:"items"`
	}
	type category struct {
		Category string  `json:"category"`
		Total    int     `json:"total"`
		Models   []model `json:"models"`
	}
	out := make([]category, 0, len(counts))
	for _, c := range counts {
		cat := category{Category: c.Category, Total: c.Total, Models: make([]model, 0, len(c.Models))}
		for _, m := range c.Models {
			cat.Models = append(cat.Models, model{Name: m.Name, Total: m.Total, Items: toMaterialDTOs(m.Items)})
		}
		out = append(out, cat)
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) consumeForCase(w http.ResponseWriter, r *http.Request) {
	var req transactions.CaseRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	req.User = user(r)
	rec, err := a.svc.ConsumeForCase(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{
		"id":            rec.ID,
		"hospital":      rec.Hospital,
		"doctor":        rec.Doctor,
		"patient":       rec.Patient,
		"note":          rec.Note,
		"usedMaterials": rec.UsedMaterials,
		"createdAt":     rec.CreatedAt,
		"createdBy":     rec.CreatedBy,
	})
}

func (a *API) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req transactions.AdjustRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	req.User = user(r)
	req.Direction = transactions.ParseDirection(string(req.Direction))
	m, err := a.svc.AdjustStock(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toMaterialDTO(*m))
}

type checklistDTO struct {
	ID       string `json:"id,omitempty"`
	OrderNo  int    `json:"orderNo"`
	Patient  string `json:"patient"`
	Hospital string `json:"hospital"`
	Phone    string `json:"phone"`
	Time     string `json:"time"` // HH:mm
	Done     bool   `json:"done"`
}

func toChecklistDTOs(es []checklist.Entry) []checklistDTO {
	out := make([]checklistDTO, len(es))
	for i, e := range es {
		out[i] = checklistDTO{ID: e.ID, OrderNo: e.OrderNo, Patient: e.Patient, Hospital: e.Hospital, Phone: e.Phone, Time: e.TimeDisplay(), Done: e.Done()}
	}
	return out
}

func (a *API) listChecklist(w http.ResponseWriter, r *http.Request) {
	es, err := a.svc.ListChecklist(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toChecklistDTOs(es))
}

func (a *API) saveChecklist(w http.ResponseWriter, r *http.Request) {
	var in []checklistDTO
	if err := decode(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	entries := make([]checklist.Entry, len(in))
	for i, d := range in {
		status := checklist.StatusNotYet
		if d.Done {
			status = checklist.StatusDone
		}
		entries[i] = checklist.Entry{
			OrderNo:  d.OrderNo,
			Patient:  d.Patient,
			Hospital: d.Hospital,
			Phone:    d.Phone,
			Time:     importer.ParseTime(d.Time),
			Status:   status,
		}
	}
	entry, err := a.svc.SaveChecklist(r.Context(), entries, user(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

type entryDTO struct {
	ID          string           `json:"id"`
	Kind        history.Kind     `json:"kind"`
	Summary     string           `json:"summary"`
	Details     []materials.Used `json:"details"`
	Lines       []string         `json:"lines"`
	CreatedAt   time.Time        `json:"createdAt"`
	CreatedBy   string           `json:"createdBy"`
	Reversible  bool             `json:"reversible"`
	CanUndo     bool             `json:"canUndo"`
	ReferenceID string           `json:"referenceId,omitempty"`
}

func toEntryDTO(e history.Entry) entryDTO {
	return entryDTO{
		ID: e.ID, Kind: e.Kind, Summary: e.Summary, Details: e.Details, Lines: e.DetailLines(),
		CreatedAt: e.CreatedAt, CreatedBy: e.CreatedBy, Reversible: e.Reversible,
		CanUndo: undo.CanUndo(&e), ReferenceID: e.ReferenceID,
	}
}

func (a *API) listHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hs, err := a.svc.ListHistory(r.Context(), history.ParseFilter(q.Get("filter")), q.Get("search"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]entryDTO, len(hs))
	for i, h := range hs {
		out[i] = toEntryDTO(h)
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) undo(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.Undo(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"entryId":  res.Entry.ID,
		"kind":     res.Entry.Kind,
		"touched":  toMaterialDTOs(res.Touched),
		"created":  toMaterialDTOs(res.Created),
		"skipped":  len(res.Skipped),
		"caseGone": res.CaseGone,
	})
}

func lookupType(r *http.Request) (lookups.Type, error) {
	switch strings.ToLower(r.PathValue("type")) {
	case "hospital", "hospitals":
		return lookups.TypeHospital, nil
	case "doctor", "doctors":
		return lookups.TypeDoctor, nil
	}
	return "", errs.Validation("unknown lookup type %q", r.PathValue("type"))
}

func (a *API) lookupValues(w http.ResponseWriter, r *http.Request) {
	t, err := lookupType(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	vals, err := a.svc.LookupValues(r.Context(), t, r.URL.Query().Get("q"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, vals)
}

func (a *API) lookupBody(w http.ResponseWriter, r *http.Request) (lookups.Type, string, bool) {
	t, err := lookupType(r)
	if err != nil {
		a.fail(w, r, err)
		return "", "", false
	}
	var in struct {
		Value string `json:"value"`
	}
	if err := decode(r, &in); err != nil {
		a.fail(w, r, err)
		return "", "", false
	}
	return t, in.Value, true
}

func (a *API) addLookup(w http.ResponseWriter, r *http.Request) {
	t, v, ok := a.lookupBody(w, r)
	if !ok {
		return
	}
	if err := a.svc.AddLookup(r.Context(), t, v); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) removeLookup(w http.ResponseWriter, r *http.Request) {
	t, v, ok := a.lookupBody(w, r)
	if !ok {
		return
	}
	if err := a.svc.RemoveLookup(r.Context(), t, v); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readTable accepts a multipart "file" field or a raw xlsx body.
func readTable(w http.ResponseWriter, r *http.Request) (importer.Table, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		f, _, err := r.FormFile("file")
		if err != nil {
			return importer.Table{}, errs.Validation("missing file field: %v", err)
		}
		defer func() { _ = f.Close() }()
		t, err := excel.ReadTable(f)
		if err != nil {
			return importer.Table{}, errs.Validation("%v", err)
		}
		return t, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return importer.Table{}, errs.Validation("read body: %v", err)
	}
	t, err := excel.ReadTable(bytes.NewReader(data))
	if err != nil {
		return importer.Table{}, errs.Validation("%v", err)
	}
	return t, nil
}

func (a *API) importMaterials(w http.ResponseWriter, r *http.Request) {
	t, err := readTable(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.svc.ImportMaterials(r.Context(), t, user(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"accepted":   toMaterialDTOs(res.Accepted),
		"duplicates": res.Duplicates,
		"dropped":    res.Dropped,
	})
}

// importChecklist parses only; the client saves the reviewed rows via POST /api/checklist.
func (a *API) importChecklist(w http.ResponseWriter, r *http.Request) {
	t, err := readTable(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toChecklistDTOs(a.svc.ImportChecklist(t)))
}

func (a *API) export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	kind := r.PathValue("kind")
	var buf bytes.Buffer
	var err error
	switch kind {
	case "all":
		err = a.svc.ExportAll(ctx, &buf)
	case "materials":
		err = a.svc.ExportMaterials(ctx, &buf, catalog.Query{Search: q.Get("search"), Category: q.Get("category")})
	case "cases":
		err = a.svc.ExportCases(ctx, &buf)
	case "history":
		err = a.svc.ExportHistory(ctx, &buf, history.ParseFilter(q.Get("filter")), q.Get("search"))
	case "checklist":
		err = a.svc.ExportChecklist(ctx, &buf)
	default:
		err = errs.NotFound("export", kind)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	name := fmt.Sprintf("stok_%s_%s.xlsx", kind, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(buf.Bytes())
}
