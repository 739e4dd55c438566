package ecs

import "fmt"

// Aspect is an immutable structural filter. An archetype matches when its
// mask holds every bit of all, none of exclude, and at least one bit of one
// (if one is non-empty). The zero Aspect matches every archetype.
//
// Aspects are comparable and are used directly as query cache keys.
type Aspect struct {
	all     Mask
	one     Mask
	exclude Mask
}

func AllOf(ids ...ComponentID) Aspect {
	return Aspect{all: MaskOf(ids...)}
}

func OneOf(ids ...ComponentID) Aspect {
	return Aspect{one: MaskOf(ids...)}
}

func NoneOf(ids ...ComponentID) Aspect {
	return Aspect{exclude: MaskOf(ids...)}
}

// And combines two aspects by OR-ing each of their masks.
func (a Aspect) And(other Aspect) Aspect {
	return Aspect{
		all:     maskUnion(a.all, other.all),
		one:     maskUnion(a.one, other.one),
		exclude: maskUnion(a.exclude, other.exclude),
	}
}

// ButNot adds ids to the exclusion mask. Like MaskOf it panics on ids of
// MaxComponents or more.
func (a Aspect) ButNot(ids ...ComponentID) Aspect {
	out := a
	for _, id := range ids {
		markID(&out.exclude, id)
	}
	return out
}

func (a Aspect) Matches(m Mask) bool {
	if !m.ContainsAll(a.all) {
		return false
	}
	// mask.ContainsNone is false for an empty argument.
	if !maskEmpty(a.exclude) && !m.ContainsNone(a.exclude) {
		return false
	}
	return maskEmpty(a.one) || m.ContainsAny(a.one)
}

func (a Aspect) All() Mask     { return a.all }
func (a Aspect) One() Mask     { return a.one }
func (a Aspect) Exclude() Mask { return a.exclude }

func (a Aspect) String() string {
	return fmt.Sprintf("Aspect{all:[%s] one:[%s] exclude:[%s]}",
		formatMask(a.all), formatMask(a.one), formatMask(a.exclude))
}
