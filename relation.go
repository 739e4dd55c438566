package ecs

import (
	"slices"

	"github.com/kamstrup/intmap"
)

// Targets is the value of a non-exclusive relation holding more than one
// target.
type Targets struct {
	*Bag[EntityID]
}

func newTargets(capacity int) *Targets {
	return &Targets{Bag: NewBag[EntityID](capacity)}
}

// incoming records, for one target entity, which subjects point at it
// through which relation.
type incoming struct {
	byRelation map[ComponentID]*Bag[EntityID]
}

// relationIndex tracks entity-to-entity edges stored in relation
// components, plus the target→subjects back-index used to clean up edges
// when a target is deleted.
type relationIndex struct {
	store     *componentStore
	entities  *entityRegistry
	relations []ComponentID
	back      *intmap.Map[EntityID, *incoming]
}

func newRelationIndex(store *componentStore, entities *entityRegistry) *relationIndex {
	return &relationIndex{
		store:    store,
		entities: entities,
		back:     intmap.New[EntityID, *incoming](64),
	}
}

func (r *relationIndex) registered(cid ComponentID) {
	idx, found := slices.BinarySearch(r.relations, cid)
	if !found {
		r.relations = slices.Insert(r.relations, idx, cid)
	}
}

func (r *relationIndex) relationInfo(rel ComponentID) (*componentInfo, error) {
	info, ok := r.store.info(rel)
	if !ok {
		return nil, UnknownComponentError{Component: rel}
	}
	if !info.relation {
		return nil, NotRelationError{Component: rel}
	}
	return info, nil
}

// add creates the edge subject -rel-> target. Exclusive relations replace
// their previous target; non-exclusive ones upgrade a single target to a
// Targets set on the second distinct target.
func (r *relationIndex) add(subject EntityID, rel ComponentID, target EntityID) error {
	info, err := r.relationInfo(rel)
	if err != nil {
		return err
	}
	if !r.entities.isValid(subject) {
		return InvalidEntityError{Entity: subject}
	}
	if !r.entities.isValid(target) {
		return InvalidEntityError{Entity: target}
	}
	current, has := r.store.value(subject, rel)
	if !has {
		m, _ := r.store.maskOf(subject)
		m.Mark(uint32(rel))
		if err := r.store.transmute(subject, m, rel, target, true); err != nil {
			return err
		}
		r.track(target, rel, subject)
		return nil
	}

	switch v := current.(type) {
	case EntityID:
		if v == target {
			return nil
		}
		if info.exclusive {
			r.untrack(v, rel, subject)
			if err := r.store.setValue(subject, rel, target); err != nil {
				return err
			}
			r.track(target, rel, subject)
			return nil
		}
		set := newTargets(4)
		set.Add(v)
		set.Add(target)
		if err := r.store.setValue(subject, rel, set); err != nil {
			return err
		}
		r.track(target, rel, subject)
	case *Targets:
		if v.Add(target) {
			r.track(target, rel, subject)
		}
	default:
		if err := r.store.setValue(subject, rel, target); err != nil {
			return err
		}
		r.track(target, rel, subject)
	}
	return nil
}

// remove deletes one edge, or every edge of rel when target is NoEntity.
// The relation component is dropped once no targets remain.
func (r *relationIndex) remove(subject EntityID, rel ComponentID, target EntityID) error {
	if _, err := r.relationInfo(rel); err != nil {
		return err
	}
	current, has := r.store.value(subject, rel)
	if !has {
		return nil
	}
	switch v := current.(type) {
	case EntityID:
		if target != NoEntity && v != target {
			return nil
		}
		r.untrack(v, rel, subject)
	case *Targets:
		if target != NoEntity {
			if !v.Remove(target) {
				return nil
			}
			r.untrack(target, rel, subject)
			if v.Len() > 0 {
				return nil
			}
			break
		}
		for _, t := range v.Items() {
			r.untrack(t, rel, subject)
		}
	}
	m, _ := r.store.maskOf(subject)
	m.Unmark(uint32(rel))
	return r.store.transmute(subject, m, 0, nil, false)
}

// targets returns the live targets of subject's rel edges.
func (r *relationIndex) targets(subject EntityID, rel ComponentID) []EntityID {
	current, has := r.store.value(subject, rel)
	if !has {
		return nil
	}
	var out []EntityID
	switch v := current.(type) {
	case EntityID:
		if r.entities.isValid(v) {
			out = append(out, v)
		}
	case *Targets:
		for _, t := range v.Items() {
			if r.entities.isValid(t) {
				out = append(out, t)
			}
		}
	}
	return out
}

// subjects returns every entity with a rel edge pointing at target.
func (r *relationIndex) subjects(target EntityID, rel ComponentID) []EntityID {
	in, ok := r.back.Get(target)
	if !ok {
		return nil
	}
	bag, ok := in.byRelation[rel]
	if !ok {
		return nil
	}
	return slices.Clone(bag.Items())
}

// cleanup removes every edge pointing at deleted. It only visits the
// incoming edges recorded in the back-index.
func (r *relationIndex) cleanup(deleted EntityID) error {
	in, ok := r.back.Get(deleted)
	if !ok {
		return nil
	}
	rels := make([]ComponentID, 0, len(in.byRelation))
	for rel := range in.byRelation {
		rels = append(rels, rel)
	}
	slices.Sort(rels)
	for _, rel := range rels {
		bag, ok := in.byRelation[rel]
		if !ok {
			continue
		}
		for _, subject := range slices.Clone(bag.Items()) {
			if !r.entities.isValid(subject) {
				continue
			}
			if err := r.remove(subject, rel, deleted); err != nil {
				return err
			}
		}
	}
	r.back.Del(deleted)
	return nil
}

// untrackSubject drops the back-index entries for deleted's own edges.
func (r *relationIndex) untrackSubject(deleted EntityID) {
	loc, ok := r.entities.location(deleted)
	if !ok {
		return
	}
	for _, rel := range r.relations {
		if !loc.archetype.Has(rel) {
			continue
		}
		r.forEachTarget(loc.archetype.Value(rel, loc.row), func(t EntityID) {
			r.untrack(t, rel, deleted)
		})
	}
}

// rebuild recomputes the back-index from the relation columns.
func (r *relationIndex) rebuild() {
	r.back = intmap.New[EntityID, *incoming](64)
	for _, arch := range r.store.all() {
		for _, rel := range r.relations {
			if !arch.Has(rel) {
				continue
			}
			for row, subject := range arch.Entities() {
				r.forEachTarget(arch.Value(rel, row), func(t EntityID) {
					if r.entities.isValid(t) {
						r.track(t, rel, subject)
					}
				})
			}
		}
	}
}

func (r *relationIndex) forEachTarget(value any, fn func(EntityID)) {
	switch v := value.(type) {
	case EntityID:
		if v != NoEntity {
			fn(v)
		}
	case *Targets:
		for _, t := range slices.Clone(v.Items()) {
			fn(t)
		}
	}
}

func (r *relationIndex) track(target EntityID, rel ComponentID, subject EntityID) {
	in, ok := r.back.Get(target)
	if !ok {
		in = &incoming{byRelation: make(map[ComponentID]*Bag[EntityID], 1)}
		r.back.Put(target, in)
	}
	bag, ok := in.byRelation[rel]
	if !ok {
		bag = NewBag[EntityID](4)
		in.byRelation[rel] = bag
	}
	bag.Add(subject)
}

func (r *relationIndex) untrack(target EntityID, rel ComponentID, subject EntityID) {
	in, ok := r.back.Get(target)
	if !ok {
		return
	}
	bag, ok := in.byRelation[rel]
	if !ok {
		return
	}
	bag.Remove(subject)
	if bag.Len() == 0 {
		delete(in.byRelation, rel)
	}
	if len(in.byRelation) == 0 {
		r.back.Del(target)
	}
}

// tracked reports whether target has any incoming edges recorded.
func (r *relationIndex) tracked(target EntityID) bool {
	return r.back.Has(target)
}

func (r *relationIndex) reset() {
	r.back.Clear()
}
