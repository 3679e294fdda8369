// Package importer turns spreadsheet tables into materials and checklist
// entries, dropping unusable rows and skipping duplicate materials.
package importer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/stokapp/stok/internal/domain/checklist"
	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/ledger"
)

var (
	nameCols        = []string{"name", "malzeme açıklaması", "material"}
	codeCols        = []string{"code", "malzeme"}
	quantityCols    = []string{"quantity", "miktar", "qty"}
	ownerCols       = []string{"owner", "owneruser", "kullanıcı"}
	descriptionCols = []string{"açıklama", "description"}

	orderCols    = []string{"order", "sıra", "no", "index"}
	patientCols  = []string{"patient", "hasta"}
	hospitalCols = []string{"hospital", "hastane"}
	phoneCols    = []string{"phone", "telefon"}
	timeCols     = []string{"time", "saat"}
)

// Row outcomes reported to the observer.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeDropped   = "dropped"
)

type Observer interface {
	ImportRow(kind, outcome string)
}

// ParseMaterials maps a table to materials. Rows without a name are
// dropped; dropped counts them. Owner is left empty when the column is
// missing or blank.
func ParseMaterials(t Table) (out []materials.Material, dropped int) {
	name, code, qty := t.column(nameCols...), t.column(codeCols...), t.column(quantityCols...)
	owner, desc := t.column(ownerCols...), t.column(descriptionCols...)
	for _, row := range t.Rows {
		var m materials.Material
		m.Name, _ = cell(row, name)
		m.Name = strings.TrimSpace(m.Name)
		m.Code, _ = cell(row, code)
		m.Code = strings.TrimSpace(m.Code)
		q, _ := cell(row, qty)
		m.Quantity = ParseQuantity(q)
		o, _ := cell(row, owner)
		m.OwnerUser = strings.TrimSpace(o)
		if d, ok := cell(row, desc); ok {
			labels := ParseDescription(d)
			m.Serial, m.Lot, m.ExpiryDate = labels.Serial, labels.Lot, labels.Expiry
		}
		if m.Name == "" {
			dropped++
			continue
		}
		out = append(out, m)
	}
	return out, dropped
}

// ParseChecklist maps a table to checklist entries, all NotYet. Rows
// without a patient are dropped.
func ParseChecklist(t Table) (out []checklist.Entry, dropped int) {
	order, patient, hospital := t.column(orderCols...), t.column(patientCols...), t.column(hospitalCols...)
	phone, at := t.column(phoneCols...), t.column(timeCols...)
	for _, row := range t.Rows {
		p, _ := cell(row, patient)
		p = strings.TrimSpace(p)
		if p == "" {
			dropped++
			continue
		}
		o, _ := cell(row, order)
		h, _ := cell(row, hospital)
		ph, _ := cell(row, phone)
		tm, _ := cell(row, at)
		out = append(out, checklist.Entry{
			OrderNo:  ParseQuantity(o),
			Patient:  p,
			Hospital: NormalizeHospital(h),
			Phone:    NormalizePhone(ph),
			Time:     ParseTime(tm),
			Status:   checklist.StatusNotYet,
		})
	}
	return out, dropped
}

type Importer struct {
	ledger    *ledger.Ledger
	log       *slog.Logger
	observer  Observer
	warehouse string
}

func New(l *ledger.Ledger, log *slog.Logger, warehouseActor string) *Importer {
	if warehouseActor == "" {
		warehouseActor = "Depo"
	}
	return &Importer{ledger: l, log: log, warehouse: warehouseActor}
}

func (i *Importer) SetObserver(o Observer) { i.observer = o }

func (i *Importer) row(kind, outcome string, n int) {
	if i.observer == nil {
		return
	}
	for ; n > 0; n-- {
		i.observer.ImportRow(kind, outcome)
	}
}

type MaterialsResult struct {
	Accepted   []materials.Material
	Duplicates []string // distinct names of skipped rows
	Dropped    int
}

// ImportMaterials creates every parsed material that does not match an
// existing one (or an earlier row) on the case-insensitive
// (name, serial, lot) triple. Blank owners default to user, then the
// warehouse actor.
func (i *Importer) ImportMaterials(ctx context.Context, t Table, user string) (*MaterialsResult, error) {
	parsed, dropped := ParseMaterials(t)
	res := &MaterialsResult{Accepted: []materials.Material{}, Duplicates: []string{}, Dropped: dropped}
	i.row("materials", OutcomeDropped, dropped)

	existing, err := i.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[materials.Key]bool, len(existing))
	for _, m := range existing {
		seen[m.DedupKey()] = true
	}
	dupNames := map[string]bool{}

	owner := strings.TrimSpace(user)
	if owner == "" {
		owner = i.warehouse
	}
	for _, m := range parsed {
		key := m.DedupKey()
		if seen[key] {
			i.row("materials", OutcomeDuplicate, 1)
			if n := strings.ToLower(m.Name); !dupNames[n] {
				dupNames[n] = true
				res.Duplicates = append(res.Duplicates, m.Name)
			}
			continue
		}
		if m.OwnerUser == "" {
			m.OwnerUser = owner
		}
		if m.Quantity < 0 {
			m.Quantity = 0
		}
		created, err := i.ledger.Create(ctx, m)
		if err != nil {
			i.log.Error("material import stopped", "imported", len(res.Accepted), "total", len(parsed), "err", err)
			return res, err
		}
		seen[key] = true
		res.Accepted = append(res.Accepted, *created)
		i.row("materials", OutcomeAccepted, 1)
	}
	i.log.Info("materials imported", "accepted", len(res.Accepted), "duplicates", len(res.Duplicates), "dropped", dropped)
	return res, nil
}

// ImportChecklist parses rows only; saving goes through the checklist transaction.
func (i *Importer) ImportChecklist(t Table) []checklist.Entry {
	entries, dropped := ParseChecklist(t)
	i.row("checklist", OutcomeDropped, dropped)
	i.row("checklist", OutcomeAccepted, len(entries))
	if entries == nil {
		entries = []checklist.Entry{}
	}
	return entries
}
