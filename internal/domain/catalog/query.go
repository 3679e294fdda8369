package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/stokapp/stok/internal/domain/materials"
)

// Select applies q to ms. Expiry sort, then quantity sort, then name;
// without sort keys the order is by name. Missing expiry sorts last
// ascending and last descending.
func Select(ms []materials.Material, categories []Category, q Query) []materials.Material {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	var cat *Category
	for i := range categories {
		if strings.EqualFold(categories[i].Name, q.Category) {
			cat = &categories[i]
			break
		}
	}

	out := make([]materials.Material, 0, len(ms))
	for _, m := range ms {
		if needle != "" && !containsAny(needle, m.Name, m.Serial, m.Lot) {
			continue
		}
		if cat != nil && !cat.Matches(m.Name) {
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.Expiry != SortNone {
			ea, eb := expiryKey(a, q.Expiry), expiryKey(b, q.Expiry)
			if !ea.Equal(eb) {
				if q.Expiry == SortAsc {
					return ea.Before(eb)
				}
				return ea.After(eb)
			}
		}
		if q.Quantity != SortNone && a.Quantity != b.Quantity {
			if q.Quantity == SortAsc {
				return a.Quantity < b.Quantity
			}
			return a.Quantity > b.Quantity
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	return out
}

var (
	farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	farPast   = time.Time{}
)

func expiryKey(m materials.Material, order SortOrder) time.Time {
	if m.ExpiryDate != nil {
		return *m.ExpiryDate
	}
	if order == SortAsc {
		return farFuture
	}
	return farPast
}

func containsAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// DeviceCounts groups matching materials per category by name
// (case-insensitive), in category order with models sorted by name.
func DeviceCounts(ms []materials.Material, categories []Category) []DeviceCount {
	out := make([]DeviceCount, 0, len(categories))
	for _, c := range categories {
		dc := DeviceCount{Category: c.Name, Models: []Model{}}
		index := map[string]int{}
		for _, m := range ms {
			if !c.Matches(m.Name) {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(m.Name))
			i, ok := index[key]
			if !ok {
				i = len(dc.Models)
				index[key] = i
				dc.Models = append(dc.Models, Model{Name: m.Name})
			}
			dc.Models[i].Items = append(dc.Models[i].Items, m)
			dc.Models[i].Total += m.Quantity
			dc.Total += m.Quantity
		}
		sort.SliceStable(dc.Models, func(i, j int) bool {
			return strings.ToLower(dc.Models[i].Name) < strings.ToLower(dc.Models[j].Name)
		})
		out = append(out, dc)
	}
	return out
}
