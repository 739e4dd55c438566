package ecs

import (
	"encoding/json"
	"fmt"
)

// Serializer converts a component value to and from plain data (maps,
// slices, strings, numbers, bools, nil) that any snapshot codec can encode.
type Serializer interface {
	Serialize(v any) (any, error)
	Deserialize(data any) (any, error)
}

// SerializerFuncs adapts a pair of functions to Serializer.
type SerializerFuncs struct {
	SerializeFunc   func(v any) (any, error)
	DeserializeFunc func(data any) (any, error)
}

func (f SerializerFuncs) Serialize(v any) (any, error) {
	return f.SerializeFunc(v)
}

func (f SerializerFuncs) Deserialize(data any) (any, error) {
	return f.DeserializeFunc(data)
}

// jsonSerializer is the default for Component[T]: values go through their
// JSON form, so T decides its own shape via json tags or custom marshalers.
type jsonSerializer[T any] struct{}

func (jsonSerializer[T]) Serialize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var plain any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, err
	}
	return plain, nil
}

func (jsonSerializer[T]) Deserialize(data any) (any, error) {
	var out T
	if data == nil {
		return out, nil
	}
	raw, err := json.Marshal(normalizePlain(data))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizePlain rewrites map[any]any nodes (which some YAML decoders
// produce) into map[string]any so encoding/json accepts them.
func normalizePlain(data any) any {
	switch v := data.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = normalizePlain(val)
		}
		return out
	case map[string]any:
		for k, val := range v {
			v[k] = normalizePlain(val)
		}
		return v
	case []any:
		for i, val := range v {
			v[i] = normalizePlain(val)
		}
		return v
	}
	return data
}

// entityIDFromPlain accepts the numeric forms JSON and YAML decoders produce.
func entityIDFromPlain(data any) (EntityID, error) {
	switch v := data.(type) {
	case EntityID:
		return v, nil
	case float64:
		return EntityID(uint32(v)), nil
	case int:
		return EntityID(uint32(v)), nil
	case int64:
		return EntityID(uint32(v)), nil
	case uint64:
		return EntityID(uint32(v)), nil
	case uint32:
		return EntityID(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return NoEntity, err
		}
		return EntityID(uint32(n)), nil
	}
	return NoEntity, fmt.Errorf("cannot read entity id from %T", data)
}

// relationSerializer encodes a relation value as a number (single target)
// or a list of numbers (target set).
type relationSerializer struct{}

func (relationSerializer) Serialize(v any) (any, error) {
	switch rv := v.(type) {
	case nil:
		return nil, nil
	case EntityID:
		return uint32(rv), nil
	case *Targets:
		ids := make([]any, 0, rv.Len())
		for _, id := range rv.Items() {
			ids = append(ids, uint32(id))
		}
		return ids, nil
	}
	return nil, fmt.Errorf("unexpected relation value %T", v)
}

func (relationSerializer) Deserialize(data any) (any, error) {
	switch dv := data.(type) {
	case nil:
		return nil, nil
	case []any:
		targets := newTargets(len(dv))
		for _, item := range dv {
			id, err := entityIDFromPlain(item)
			if err != nil {
				return nil, err
			}
			targets.Add(id)
		}
		return targets, nil
	}
	return entityIDFromPlain(data)
}
