package materials

import (
	"encoding/json"
	"time"
)

// Used is an immutable snapshot of a material line captured at transaction
// time, embedded in case records and history entries.
//
// Stored as a JSON array in used_materials/details columns:
//
//	[{"materialId":"…","name":"…","serialOrLot":"…","serial":"…","lot":"…","expiryDate":"2026-07-31T00:00:00Z","quantity":5}]
type Used struct {
	MaterialID  string     `json:"materialId,omitempty"`
	Name        string     `json:"name"`
	SerialOrLot string     `json:"serialOrLot,omitempty"`
	Serial      string     `json:"serial,omitempty"`
	Lot         string     `json:"lot,omitempty"`
	ExpiryDate  *time.Time `json:"expiryDate,omitempty"`
	Quantity    int        `json:"quantity"`
}

func EncodeUsed(lines []Used) ([]byte, error) {
	if lines == nil {
		lines = []Used{}
	}
	return json.Marshal(lines)
}

// DecodeUsed never fails: empty or malformed payloads decode to an empty list.
func DecodeUsed(raw []byte) []Used {
	out := []Used{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return []Used{}
	}
	return out
}
