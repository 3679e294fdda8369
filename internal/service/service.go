// Package service is the entry point for callers: it wires the ledger,
// transaction builders, undo engine, importer and lookup cache over one
// record store.
package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stokapp/stok/internal/domain/cases"
	"github.com/stokapp/stok/internal/domain/catalog"
	"github.com/stokapp/stok/internal/domain/checklist"
	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/domain/lookups"
	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/errs"
	"github.com/stokapp/stok/internal/importer"
	"github.com/stokapp/stok/internal/infra/excel"
	"github.com/stokapp/stok/internal/infra/metrics"
	"github.com/stokapp/stok/internal/ledger"
	"github.com/stokapp/stok/internal/lookup"
	"github.com/stokapp/stok/internal/store"
	"github.com/stokapp/stok/internal/transactions"
	"github.com/stokapp/stok/internal/undo"
)

type Options struct {
	WarehouseActor string
	Categories     []catalog.Category
	Metrics        *metrics.Metrics // optional
}

type Service struct {
	store      store.Store
	log        *slog.Logger
	ledger     *ledger.Ledger
	tx         *transactions.Builder
	undo       *undo.Engine
	importer   *importer.Importer
	lookups    *lookup.Cache
	categories []catalog.Category
}

func New(st store.Store, log *slog.Logger, opts Options) *Service {
	l := ledger.New(st.Materials, log)
	lc := lookup.New(st.Lookups)
	u := undo.New(l, st, log)
	imp := importer.New(l, log, opts.WarehouseActor)
	if opts.Metrics != nil {
		l.SetObserver(opts.Metrics)
		u.SetObserver(opts.Metrics)
		imp.SetObserver(opts.Metrics)
	}
	return &Service{
		store:      st,
		log:        log,
		ledger:     l,
		tx:         transactions.New(l, st, lc, log, opts.WarehouseActor),
		undo:       u,
		importer:   imp,
		lookups:    lc,
		categories: opts.Categories,
	}
}

// Ledger exposes change subscriptions and read access.
func (s *Service) Ledger() *ledger.Ledger { return s.ledger }

func (s *Service) ConsumeForCase(ctx context.Context, req transactions.CaseRequest) (*cases.Record, error) {
	rec, _, err := s.tx.ConsumeForCase(ctx, req)
	return rec, err
}

func (s *Service) AdjustStock(ctx context.Context, req transactions.AdjustRequest) (*materials.Material, error) {
	m, _, err := s.tx.AdjustStock(ctx, req)
	return m, err
}

func (s *Service) SaveChecklist(ctx context.Context, entries []checklist.Entry, user string) (*history.Entry, error) {
	return s.tx.SaveChecklist(ctx, entries, user)
}

// ListHistory returns entries newest first, narrowed by filter and search.
func (s *Service) ListHistory(ctx context.Context, f history.Filter, search string) ([]history.Entry, error) {
	all, err := s.store.History.List(ctx)
	if err != nil {
		return nil, err
	}
	return history.Select(all, f, search), nil
}

func (s *Service) CanUndo(ctx context.Context, id string) (bool, error) {
	e, err := s.store.History.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if e == nil {
		return false, errs.NotFound("history entry", id)
	}
	return undo.CanUndo(e), nil
}

func (s *Service) Undo(ctx context.Context, id string) (*undo.Result, error) {
	return s.undo.Undo(ctx, id)
}

func (s *Service) ImportMaterials(ctx context.Context, t importer.Table, user string) (*importer.MaterialsResult, error) {
	return s.importer.ImportMaterials(ctx, t, user)
}

func (s *Service) ImportChecklist(t importer.Table) []checklist.Entry {
	return s.importer.ImportChecklist(t)
}

func (s *Service) ListMaterials(ctx context.Context, q catalog.Query) ([]materials.Material, error) {
	all, err := s.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Select(all, s.categories, q), nil
}

func (s *Service) DeviceCounts(ctx context.Context) ([]catalog.DeviceCount, error) {
	all, err := s.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.DeviceCounts(all, s.categories), nil
}

func (s *Service) Categories() []catalog.Category { return s.categories }

func (s *Service) CreateMaterial(ctx context.Context, m materials.Material) (*materials.Material, error) {
	return s.ledger.Create(ctx, m)
}

func (s *Service) EditMaterial(ctx context.Context, id string, p ledger.Patch) (*materials.Material, error) {
	return s.ledger.Edit(ctx, id, p)
}

func (s *Service) DeleteMaterial(ctx context.Context, id, user string) (*history.Entry, error) {
	return s.tx.DeleteMaterial(ctx, id, user)
}

func (s *Service) ListCases(ctx context.Context) ([]cases.Record, error) {
	return s.store.Cases.List(ctx)
}

func (s *Service) ListChecklist(ctx context.Context) ([]checklist.Entry, error) {
	return s.store.Checklist.List(ctx)
}

func (s *Service) LookupValues(ctx context.Context, t lookups.Type, filter string) ([]string, error) {
	return s.lookups.GetValues(ctx, t, filter)
}

func (s *Service) AddLookup(ctx context.Context, t lookups.Type, value string) error {
	_, err := s.lookups.Add(ctx, t, value)
	return err
}

func (s *Service) RemoveLookup(ctx context.Context, t lookups.Type, value string) error {
	return s.lookups.Remove(ctx, t, value)
}

// ExportAll writes every collection into one workbook.
func (s *Service) ExportAll(ctx context.Context, w io.Writer) error {
	var d excel.Data
	var err error
	if d.Materials, err = s.ledger.List(ctx); err != nil {
		return err
	}
	if d.Cases, err = s.store.Cases.List(ctx); err != nil {
		return err
	}
	if d.History, err = s.store.History.List(ctx); err != nil {
		return err
	}
	if d.Checklist, err = s.store.Checklist.List(ctx); err != nil {
		return err
	}
	return excel.WriteAll(w, d)
}

func (s *Service) ExportMaterials(ctx context.Context, w io.Writer, q catalog.Query) error {
	ms, err := s.ListMaterials(ctx, q)
	if err != nil {
		return err
	}
	return excel.WriteMaterials(w, ms)
}

func (s *Service) ExportCases(ctx context.Context, w io.Writer) error {
	cs, err := s.store.Cases.List(ctx)
	if err != nil {
		return err
	}
	return excel.WriteCases(w, cs)
}

func (s *Service) ExportHistory(ctx context.Context, w io.Writer, f history.Filter, search string) error {
	hs, err := s.ListHistory(ctx, f, search)
	if err != nil {
		return err
	}
	return excel.WriteHistory(w, hs)
}

func (s *Service) ExportChecklist(ctx context.Context, w io.Writer) error {
	es, err := s.store.Checklist.List(ctx)
	if err != nil {
		return err
	}
	return excel.WriteChecklist(w, es)
}
