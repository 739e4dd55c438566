package ecs

import (
	"reflect"
	"testing"
)

type Position struct {
	X float64
	Y float64
}

type Velocity struct {
	X float64
	Y float64
}

type Health struct {
	Current int
	Max     int
}

type Name struct {
	Value string
}

const (
	positionID ComponentID = iota
	velocityID
	healthID
	nameID
	childOfID
	targetsID
)

type testComponents struct {
	position Component[Position]
	velocity Component[Velocity]
	health   Component[Health]
	name     Component[Name]
}

// newTestWorld registers the shared test components plus an exclusive
// childOf relation and a non-exclusive targets relation.
func newTestWorld(t testing.TB) (*World, testComponents) {
	t.Helper()
	w := NewWorld(DefaultConfig())
	c := testComponents{
		position: MustRegisterComponent[Position](w, positionID, "position"),
		velocity: MustRegisterComponent[Velocity](w, velocityID, "velocity"),
		health:   MustRegisterComponent[Health](w, healthID, "health"),
		name:     MustRegisterComponent[Name](w, nameID, "name"),
	}
	if err := RegisterRelation(w, childOfID, "childOf", true); err != nil {
		t.Fatalf("register childOf: %v", err)
	}
	if err := RegisterRelation(w, targetsID, "targets", false); err != nil {
		t.Fatalf("register targets: %v", err)
	}
	return w, c
}

func mustCreate(t testing.TB, w *World) EntityID {
	t.Helper()
	e, err := w.CreateEntity()
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}
	return e
}

func mustAdd(t testing.TB, w *World, e EntityID, cid ComponentID, v any) {
	t.Helper()
	if err := w.AddComponent(e, cid, v); err != nil {
		t.Fatalf("add component %d to %v: %v", cid, e, err)
	}
}

// checkLocations asserts every live entity's location points back at it.
func checkLocations(t testing.TB, w *World) {
	t.Helper()
	for _, arch := range w.store.all() {
		entities := arch.Entities()
		if len(entities) != arch.Len() {
			t.Fatalf("archetype %d: entity column length %d, table length %d", arch.id, len(entities), arch.Len())
		}
		for i, col := range arch.columns {
			row, err := arch.table.Row(col.ElementType())
			if err != nil {
				t.Fatalf("archetype %d: component %d: %v", arch.id, arch.components[i], err)
			}
			if n := reflect.Value(row).Len(); n != arch.Len() {
				t.Fatalf("archetype %d: component %d has %d rows, table length %d", arch.id, arch.components[i], n, arch.Len())
			}
		}
		for row, e := range entities {
			loc, ok := w.registry.location(e)
			if !ok {
				t.Fatalf("entity %v in archetype %d is not valid", e, arch.id)
			}
			if loc.archetype != arch || loc.row != row {
				t.Fatalf("entity %v location (%d,%d), stored at (%d,%d)", e, loc.archetype.id, loc.row, arch.id, row)
			}
		}
	}
}
