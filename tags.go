package ecs

import "slices"

// Tag gives e a unique name. Re-tagging the same entity is a no-op; a name
// held by another live entity is a TagConflictError.
func (w *World) Tag(name string, e EntityID) error {
	if !w.registry.isValid(e) {
		return InvalidEntityError{Entity: e}
	}
	if holder, ok := w.tags[name]; ok && holder != e && w.registry.isValid(holder) {
		return TagConflictError{Tag: name, Holder: holder, Claimant: e}
	}
	w.tags[name] = e
	return nil
}

func (w *World) Untag(name string) {
	delete(w.tags, name)
}

// Tagged returns the entity holding name, or (NoEntity, false).
func (w *World) Tagged(name string) (EntityID, bool) {
	e, ok := w.tags[name]
	if !ok || !w.registry.isValid(e) {
		return NoEntity, false
	}
	return e, true
}

// Tags lists the tag names in use.
func (w *World) Tags() []string {
	names := make([]string, 0, len(w.tags))
	for name := range w.tags {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// AddToGroup adds e to the named group, creating it on first use.
func (w *World) AddToGroup(name string, e EntityID) error {
	if !w.registry.isValid(e) {
		return InvalidEntityError{Entity: e}
	}
	group, ok := w.groups[name]
	if !ok {
		group = NewBag[EntityID](8)
		w.groups[name] = group
	}
	group.Add(e)
	return nil
}

func (w *World) RemoveFromGroup(name string, e EntityID) bool {
	group, ok := w.groups[name]
	if !ok {
		return false
	}
	removed := group.Remove(e)
	if group.Len() == 0 {
		delete(w.groups, name)
	}
	return removed
}

// Group returns a copy of the group's members; unknown groups are empty.
func (w *World) Group(name string) []EntityID {
	group, ok := w.groups[name]
	if !ok {
		return nil
	}
	return slices.Clone(group.Items())
}

func (w *World) Groups() []string {
	names := make([]string, 0, len(w.groups))
	for name := range w.groups {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// dropLabels forgets e's tags and group memberships.
func (w *World) dropLabels(e EntityID) {
	for name, holder := range w.tags {
		if holder == e {
			delete(w.tags, name)
		}
	}
	for name, group := range w.groups {
		group.Remove(e)
		if group.Len() == 0 {
			delete(w.groups, name)
		}
	}
}
