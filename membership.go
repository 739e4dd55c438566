package ecs

import "slices"

// Membership keeps the set of entities matching an Aspect up to date from
// mask-change notifications, so a system can walk its members without
// rescanning archetypes. Entity creation is not structural, so an aspect
// that matches the empty mask only picks up entities once their mask
// changes.
type Membership struct {
	world   *World
	aspect  Aspect
	members *Bag[EntityID]
	handle  Handle

	onEnter []func(EntityID)
	onExit  []func(EntityID)
}

// NewMembership starts tracking aspect, seeded with the current matches.
func NewMembership(w *World, aspect Aspect) *Membership {
	m := &Membership{
		world:   w,
		aspect:  aspect,
		members: NewBag[EntityID](64),
	}
	for e := range w.Entities(aspect) {
		m.members.Add(e)
	}
	m.handle = w.OnMaskChange(m.maskChanged)
	return m
}

func (m *Membership) maskChanged(e EntityID, oldMask, newMask Mask) {
	was := m.members.Contains(e)
	is := m.world.registry.isValid(e) && m.aspect.Matches(newMask)
	switch {
	case !was && is:
		m.members.Add(e)
		for _, fn := range m.onEnter {
			fn(e)
		}
	case was && !is:
		m.members.Remove(e)
		for _, fn := range m.onExit {
			fn(e)
		}
	}
}

// OnEnter registers fn to run when an entity starts matching.
func (m *Membership) OnEnter(fn func(EntityID)) {
	m.onEnter = append(m.onEnter, fn)
}

// OnExit registers fn to run when an entity stops matching or is deleted.
func (m *Membership) OnExit(fn func(EntityID)) {
	m.onExit = append(m.onExit, fn)
}

func (m *Membership) Aspect() Aspect {
	return m.aspect
}

func (m *Membership) Contains(e EntityID) bool {
	return m.members.Contains(e)
}

func (m *Membership) Len() int {
	return m.members.Len()
}

// Members returns a copy of the current member list.
func (m *Membership) Members() []EntityID {
	return slices.Clone(m.members.Items())
}

// Close stops tracking. The member set is left as it was.
func (m *Membership) Close() {
	m.handle.Unsubscribe()
}
