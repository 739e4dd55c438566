/*
Package ecs provides an archetype-based Entity-Component-System runtime.

Entities with the same set of components share an archetype, which stores
each component in its own typed column. Components are identified by a
caller-chosen ComponentID and a world's component sets are bit masks, so
moving an entity between archetypes ("transmute") and matching queries are
mask operations.

Core Concepts:

  - Entity: a generational id. Deleted ids are recycled with a bumped
    generation, so stale ids stop being valid.
  - Component: typed data registered with RegisterComponent.
  - Archetype: all entities sharing one component mask.
  - Aspect: a query filter of required, any-of and excluded components.
  - Relation: a component whose value points at other entities, with a
    reverse index so deleting a target removes the edges pointing at it.
  - System: per-tick logic ordered by priority and before/after names.

Basic Usage:

	w := ecs.NewWorld(ecs.DefaultConfig())
	position := ecs.MustRegisterComponent[Position](w, 0, "position")
	velocity := ecs.MustRegisterComponent[Velocity](w, 1, "velocity")

	e, _ := w.CreateEntity()
	w.Edit(e).Add(position.ID(), Position{}).Add(velocity.ID(), Velocity{X: 1}).Commit()

	cursor := w.Cursor(ecs.AllOf(position.ID(), velocity.ID()))
	for cursor.Next() {
		pos := position.FromCursor(cursor)
		vel := velocity.FromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}

While a cursor is iterating, or during a scheduler tick, the world is locked:
structural changes are queued and applied when the lock is released.
Snapshots written with Save restore the same entity ids, component values,
tags and groups with Load.
*/
package ecs
