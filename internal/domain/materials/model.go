package materials

import (
	"strings"
	"time"
)

type Material struct {
	ID         string
	Name       string
	Code       string
	Serial     string
	Lot        string
	ExpiryDate *time.Time
	Quantity   int // never negative
	OwnerUser  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Key is the case-insensitive (name, serial, lot) triple used to reject duplicate imports.
type Key struct {
	Name   string
	Serial string
	Lot    string
}

func (m Material) DedupKey() Key {
	return Key{
		Name:   strings.ToLower(strings.TrimSpace(m.Name)),
		Serial: strings.ToLower(strings.TrimSpace(m.Serial)),
		Lot:    strings.ToLower(strings.TrimSpace(m.Lot)),
	}
}

// Snapshot captures the material as a history/case detail line.
func (m Material) Snapshot(qty int) Used {
	return Used{
		MaterialID:  m.ID,
		Name:        m.Name,
		SerialOrLot: firstNonEmpty(m.Serial, m.Lot),
		Serial:      m.Serial,
		Lot:         m.Lot,
		ExpiryDate:  m.ExpiryDate,
		Quantity:    qty,
	}
}

// MatchesSerialOrLot reports a case-insensitive equality on serial or lot.
func (m Material) MatchesSerialOrLot(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	return (m.Serial != "" && strings.EqualFold(m.Serial, key)) ||
		(m.Lot != "" && strings.EqualFold(m.Lot, key))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
