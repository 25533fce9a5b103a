package progress

import (
	"encoding/json"

	"github.com/roach88/readtrack/internal/ir"
)

// ToValue converts an entity to a host value. ok is false when the entity
// fails its own JSON encoding or produces something ir cannot represent
// (a float, for instance).
func ToValue[T any](entity T) (v ir.Value, ok bool) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, false
	}
	v, err = ir.ParseValue(data)
	if err != nil {
		return nil, false
	}
	return v, true
}

// FromValue converts a host value to an entity. Null and nil never convert.
func FromValue[T any](v ir.Value) (entity T, ok bool) {
	var zero T
	switch v.(type) {
	case nil, ir.Null:
		return zero, false
	}
	data, err := ir.MarshalValue(v)
	if err != nil {
		return zero, false
	}
	if err := json.Unmarshal(data, &entity); err != nil {
		return zero, false
	}
	return entity, true
}

// collectValues converts items in order, skipping any that fail to convert.
func collectValues[T any](items []T) (out []ir.Value, dropped int) {
	out = make([]ir.Value, 0, len(items))
	for _, item := range items {
		v, ok := ToValue(item)
		if !ok {
			dropped++
			continue
		}
		out = append(out, v)
	}
	return out, dropped
}
