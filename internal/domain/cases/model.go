package cases

import (
	"time"

	"github.com/stokapp/stok/internal/domain/materials"
)

// Record is one clinical case with the materials consumed during it.
type Record struct {
	ID            string
	Hospital      string
	Doctor        string
	Patient       string
	Note          string
	UsedMaterials []materials.Used
	CreatedAt     time.Time
	CreatedBy     string
}
