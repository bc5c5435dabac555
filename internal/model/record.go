package model

// Reserved metadata keys set on every transformed record.
const (
	ProcessedKey = "__processed"
	TimestampKey = "__timestamp"
)

// Record is one loosely-structured input row.
type Record map[string]Value

// RecordFromMap classifies every value of a decoded map.
func RecordFromMap(m map[string]any) Record {
	rec := make(Record, len(m))
	for k, v := range m {
		rec[k] = FromAny(v)
	}
	return rec
}

// Clone returns a shallow copy; Values are immutable so this is sufficient.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Map unwraps the record into plain Go values.
func (r Record) Map() map[string]any {
	return toMap(r)
}

// TransformedRecord is a normalized record carrying the processing metadata.
type TransformedRecord map[string]Value

// Processed reports the value of the processed marker.
func (t TransformedRecord) Processed() bool {
	b, ok := t[ProcessedKey].Any().(bool)
	return ok && b
}

// Timestamp returns the processing time in epoch seconds.
func (t TransformedRecord) Timestamp() int64 {
	n, _ := t[TimestampKey].Number()
	return int64(n)
}

func (t TransformedRecord) Has(name string) bool {
	_, ok := t[name]
	return ok
}

// Record drops the named type, keeping every field including metadata.
func (t TransformedRecord) Record() Record {
	return Record(t).Clone()
}

func (t TransformedRecord) Map() map[string]any {
	return toMap(t)
}

func toMap[R ~map[string]Value](r R) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Any()
	}
	return out
}
