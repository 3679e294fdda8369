package lookups

type Type string

const (
	TypeHospital Type = "Hospital"
	TypeDoctor   Type = "Doctor"
)

// Value is unique per (Type, lower(Value)).
type Value struct {
	ID    string
	Type  Type
	Value string
}
