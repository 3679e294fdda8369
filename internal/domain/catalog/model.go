package catalog

import (
	"strings"

	"github.com/stokapp/stok/internal/domain/materials"
)

// Category groups device models by name keywords, e.g. Pacemaker: edora, enitra.
type Category struct {
	Name     string
	Keywords []string
}

// Matches reports whether name contains any keyword, case-insensitively.
func (c Category) Matches(name string) bool {
	n := strings.ToLower(name)
	for _, k := range c.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" && strings.Contains(n, k) {
			return true
		}
	}
	return false
}

type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func ParseSort(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return SortAsc
	case "desc":
		return SortDesc
	}
	return SortNone
}

// Query filters and orders a material listing.
type Query struct {
	Search   string // substring of name, serial or lot
	Category string // category name; empty for all
	Expiry   SortOrder
	Quantity SortOrder
}

// Model is one device name within a category with its stock rows.
type Model struct {
	Name  string
	Total int
	Items []materials.Material
}

type DeviceCount struct {
	Category string
	Total    int
	Models   []Model
}
