package ecs

import "go.uber.org/multierr"

// identified is anything carrying a component id, such as Component[T].
type identified interface {
	ID() ComponentID
}

// QueryBuilder assembles an Aspect from component ids, typed component
// handles and other Aspects.
//
//	aspect := ecs.Factory.NewQuery().
//		And(position, velocity).
//		Not(frozen).
//		Aspect()
//
// Items that cannot be expressed are skipped and reported by Err.
type QueryBuilder struct {
	aspect Aspect
	err    error
}

// And requires every listed component. Aspect items are merged in whole.
func (q *QueryBuilder) And(items ...any) *QueryBuilder {
	ids, nested := q.processItems(items...)
	q.aspect = q.aspect.And(AllOf(ids...))
	for _, a := range nested {
		q.aspect = q.aspect.And(a)
	}
	return q
}

// Or requires at least one of the listed components. Repeated calls widen
// the same any-of set. A nested Aspect contributes its required set; one
// with its own any-of or excluded set is rejected.
func (q *QueryBuilder) Or(items ...any) *QueryBuilder {
	ids, nested := q.processItems(items...)
	ids = append(ids, q.flatten("Or", nested)...)
	q.aspect = q.aspect.And(OneOf(ids...))
	return q
}

// Not excludes every listed component, with the same nesting rule as Or.
func (q *QueryBuilder) Not(items ...any) *QueryBuilder {
	ids, nested := q.processItems(items...)
	ids = append(ids, q.flatten("Not", nested)...)
	q.aspect = q.aspect.ButNot(ids...)
	return q
}

// flatten reduces nested aspects to their required ids for Or and Not.
func (q *QueryBuilder) flatten(op string, nested []Aspect) []ComponentID {
	var ids []ComponentID
	for _, a := range nested {
		if !maskEmpty(a.one) || !maskEmpty(a.exclude) {
			q.err = multierr.Append(q.err, QueryItemError{Op: op, Item: a, Reason: "nested aspect has any-of or excluded components"})
			continue
		}
		ids = append(ids, MaskIDs(a.all)...)
	}
	return ids
}

func (q *QueryBuilder) processItems(items ...any) ([]ComponentID, []Aspect) {
	ids := make([]ComponentID, 0, len(items))
	var nested []Aspect
	for _, item := range items {
		switch v := item.(type) {
		case ComponentID:
			ids = append(ids, v)
		case []ComponentID:
			ids = append(ids, v...)
		case identified:
			ids = append(ids, v.ID())
		case Aspect:
			nested = append(nested, v)
		case *QueryBuilder:
			nested = append(nested, v.aspect)
			q.err = multierr.Append(q.err, v.err)
		default:
			q.err = multierr.Append(q.err, QueryItemError{Item: item, Reason: "unsupported item type"})
		}
	}
	return ids, nested
}

// Aspect returns the filter built so far.
func (q *QueryBuilder) Aspect() Aspect {
	return q.aspect
}

// Err returns the problems found while building, or nil.
func (q *QueryBuilder) Err() error {
	return q.err
}

// Evaluate reports whether an archetype matches the filter built so far.
func (q *QueryBuilder) Evaluate(a Archetype) bool {
	return q.aspect.Matches(a.Mask())
}
