package history

import (
	"time"

	"github.com/stokapp/stok/internal/domain/materials"
)

type Kind string

const (
	KindStockIn   Kind = "StockIn"
	KindStockOut  Kind = "StockOut"
	KindDelete    Kind = "Delete"
	KindCase      Kind = "Case"
	KindChecklist Kind = "Checklist"
)

func (k Kind) Valid() bool {
	switch k {
	case KindStockIn, KindStockOut, KindDelete, KindCase, KindChecklist:
		return true
	}
	return false
}

// Entry is written once per completed transaction and removed only by a
// successful undo.
type Entry struct {
	ID          string
	Kind        Kind
	Summary     string
	Details     []materials.Used
	CreatedAt   time.Time
	CreatedBy   string
	Reversible  bool
	ReferenceID string // case record id for KindCase
}
