package ecs

import "fmt"

// Batch accumulates component adds and removes for one entity and applies
// them with a single structural move on Commit.
type Batch struct {
	world   *World
	entity  EntityID
	adds    map[ComponentID]any
	removes map[ComponentID]struct{}
	err     error
}

// Edit starts a batch for e. Errors (such as an invalid entity) surface on
// Commit.
func (w *World) Edit(e EntityID) *Batch {
	b := &Batch{
		world:   w,
		entity:  e,
		adds:    make(map[ComponentID]any, 4),
		removes: make(map[ComponentID]struct{}, 4),
	}
	if !w.registry.isValid(e) {
		b.err = InvalidEntityError{Entity: e}
	}
	return b
}

// Add records that cid should be present with value v. A later Remove of
// the same component cancels it.
func (b *Batch) Add(cid ComponentID, v any) *Batch {
	if b.err != nil {
		return b
	}
	if err := b.world.store.checkValue(cid, v); err != nil {
		b.err = err
		return b
	}
	if info, _ := b.world.store.info(cid); info.relation {
		b.err = fmt.Errorf("component %d is a relation: %w", cid, errRelationWrite)
		return b
	}
	b.adds[cid] = v
	delete(b.removes, cid)
	return b
}

// Remove records that cid should be absent.
func (b *Batch) Remove(cid ComponentID) *Batch {
	if b.err != nil {
		return b
	}
	info, ok := b.world.store.info(cid)
	if !ok {
		b.err = UnknownComponentError{Component: cid}
		return b
	}
	if info.relation {
		b.err = fmt.Errorf("component %d is a relation: %w", cid, errRelationWrite)
		return b
	}
	b.removes[cid] = struct{}{}
	delete(b.adds, cid)
	return b
}

// Mask is the mask the entity would have if the batch were committed now.
func (b *Batch) Mask() Mask {
	m, _ := b.rebase()
	return m
}

// Commit applies every pending change with one call into the store. While
// the world is locked the batch is queued until the tick barrier.
func (b *Batch) Commit() error {
	if b.err != nil {
		return b.err
	}
	w := b.world
	if w.locked {
		w.opQueue.enqueueBatch(b)
		return nil
	}
	m, ok := b.rebase()
	if !ok {
		return InvalidEntityError{Entity: b.entity}
	}
	return w.store.applyBatchChanges(b.entity, m, b.adds)
}

// rebase applies the recorded adds and removes to the entity's current
// mask, so changes made between Edit and Commit are kept.
func (b *Batch) rebase() (Mask, bool) {
	m, ok := b.world.store.maskOf(b.entity)
	if !ok {
		return m, false
	}
	for cid := range b.adds {
		m.Mark(uint32(cid))
	}
	for cid := range b.removes {
		m.Unmark(uint32(cid))
	}
	return m, true
}
