package history

import (
	"fmt"
	"strings"

	"github.com/stokapp/stok/internal/domain/materials"
)

type Filter string

const (
	FilterAll       Filter = "All"
	FilterStock     Filter = "Stock"
	FilterCase      Filter = "Case"
	FilterChecklist Filter = "Checklist"
)

// ParseFilter falls back to FilterAll for unknown names.
func ParseFilter(s string) Filter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stock":
		return FilterStock
	case "case":
		return FilterCase
	case "checklist":
		return FilterChecklist
	}
	return FilterAll
}

func (f Filter) Match(k Kind) bool {
	switch f {
	case FilterStock:
		return k == KindStockIn || k == KindStockOut || k == KindDelete
	case FilterCase:
		return k == KindCase
	case FilterChecklist:
		return k == KindChecklist
	}
	return true
}

// Select keeps entries matching the filter whose summary or rendered
// detail lines contain search (case-insensitive). Order is preserved.
func Select(entries []Entry, f Filter, search string) []Entry {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !f.Match(e.Kind) {
			continue
		}
		if needle != "" && !e.contains(needle) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (e Entry) contains(needle string) bool {
	if strings.Contains(strings.ToLower(e.Summary), needle) {
		return true
	}
	for _, l := range e.DetailLines() {
		if strings.Contains(strings.ToLower(l), needle) {
			return true
		}
	}
	return false
}

// DetailLines renders Details for display.
func (e Entry) DetailLines() []string {
	out := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		if e.Kind == KindChecklist {
			out = append(out, checklistLine(d))
			continue
		}
		out = append(out, MaterialLine(d))
	}
	return out
}

// MaterialLine formats "Name • Seri: X • SKT: dd.MM.yyyy • Adet: N".
func MaterialLine(d materials.Used) string {
	parts := []string{d.Name}
	switch {
	case d.Serial != "":
		parts = append(parts, "Seri: "+d.Serial)
	case d.Lot != "":
		parts = append(parts, "Lot: "+d.Lot)
	case d.SerialOrLot != "":
		parts = append(parts, d.SerialOrLot)
	}
	if d.ExpiryDate != nil {
		parts = append(parts, "SKT: "+d.ExpiryDate.Format("02.01.2006"))
	}
	parts = append(parts, fmt.Sprintf("Adet: %d", d.Quantity))
	return strings.Join(parts, " • ")
}

func checklistLine(d materials.Used) string {
	status := "Beklemede"
	if d.Quantity > 0 {
		status = "Tamamlandı"
	}
	return strings.Join([]string{d.Name, d.SerialOrLot, status}, " • ")
}
