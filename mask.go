package ecs

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/TheBitDrifter/mask"
)

// MaxComponents is the number of distinct component ids a World can register.
// It is the width of mask.Mask: 64 by default, larger with the mask
// package's m256, m512 or m1024 build tags.
const MaxComponents = mask.MaxBits

// ComponentID identifies a component type. Ids are chosen by the caller and
// must stay stable for as long as snapshots written with them are loaded.
type ComponentID uint32

// Mask is the set of components an archetype holds.
type Mask = mask.Mask

var emptyMask Mask

// MaskOf builds a mask with the given component bits set. It panics with
// ComponentRangeError for ids of MaxComponents or more.
func MaskOf(ids ...ComponentID) Mask {
	var m Mask
	for _, id := range ids {
		markID(&m, id)
	}
	return m
}

func markID(m *Mask, id ComponentID) {
	if id >= MaxComponents {
		panic(ComponentRangeError{Component: id})
	}
	m.Mark(uint32(id))
}

func bitMask(id ComponentID) Mask {
	var m Mask
	m.Mark(uint32(id))
	return m
}

// MaskHas reports whether bit id is set in m.
func MaskHas(m Mask, id ComponentID) bool {
	if id >= MaxComponents {
		return false
	}
	return m.ContainsAll(bitMask(id))
}

func maskEmpty(m Mask) bool {
	return m == emptyMask
}

func maskUnion(a, b Mask) Mask {
	out := a
	for i := range out {
		out[i] |= b[i]
	}
	return out
}

// MaskIDs lists the set bits of m in ascending order.
func MaskIDs(m Mask) []ComponentID {
	var ids []ComponentID
	for i, word := range m {
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			ids = append(ids, ComponentID(i*64+bit))
			word &= word - 1
		}
	}
	return ids
}

// formatMask renders a mask as a comma separated id list, "" for the empty mask.
func formatMask(m Mask) string {
	ids := MaskIDs(m)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}

func parseMask(s string) (Mask, error) {
	var m Mask
	s = strings.TrimSpace(s)
	if s == "" {
		return m, nil
	}
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return m, fmt.Errorf("invalid mask %q: %w", s, err)
		}
		if v >= MaxComponents {
			return m, fmt.Errorf("invalid mask %q: component id %d out of range", s, v)
		}
		m.Mark(uint32(v))
	}
	return m, nil
}
