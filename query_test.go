package ecs

import (
	"errors"
	"testing"

	iter_util "github.com/TheBitDrifter/util/iter"
)

func TestAspectMatches(t *testing.T) {
	tests := []struct {
		name   string
		aspect Aspect
		mask   Mask
		want   bool
	}{
		{"empty aspect matches empty mask", Aspect{}, emptyMask, true},
		{"empty aspect matches anything", Aspect{}, MaskOf(positionID, healthID), true},
		{"all exact", AllOf(positionID, velocityID), MaskOf(positionID, velocityID), true},
		{"none only", NoneOf(healthID), MaskOf(positionID), true},
		{"none only on empty mask", NoneOf(healthID), emptyMask, true},
		{"all satisfied", AllOf(positionID, velocityID), MaskOf(positionID, velocityID, healthID), true},
		{"all missing one", AllOf(positionID, velocityID), MaskOf(positionID), false},
		{"one satisfied", OneOf(velocityID, healthID), MaskOf(healthID), true},
		{"one unsatisfied", OneOf(velocityID, healthID), MaskOf(positionID), false},
		{"exclude hit", AllOf(positionID).ButNot(healthID), MaskOf(positionID, healthID), false},
		{"exclude miss", AllOf(positionID).ButNot(healthID), MaskOf(positionID), true},
		{"combined", AllOf(positionID).And(OneOf(velocityID)).And(NoneOf(nameID)), MaskOf(positionID, velocityID), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.aspect.Matches(tt.mask); got != tt.want {
				t.Errorf("%v.Matches({%s}) = %v, want %v", tt.aspect, formatMask(tt.mask), got, tt.want)
			}
		})
	}
}

func TestQueryBuilder(t *testing.T) {
	w, c := newTestWorld(t)

	moving := Factory.NewQuery().And(c.position, c.velocity).Not(healthID)
	if moving.Aspect() != AllOf(positionID, velocityID).ButNot(healthID) {
		t.Errorf("aspect = %v", moving.Aspect())
	}

	named := Factory.NewQuery().Or(c.name, []ComponentID{healthID}).And(moving)
	want := OneOf(nameID, healthID).And(AllOf(positionID, velocityID)).And(NoneOf(healthID))
	if named.Aspect() != want {
		t.Errorf("aspect = %v, want %v", named.Aspect(), want)
	}

	e := mustCreate(t, w)
	mustAdd(t, w, e, positionID, Position{})
	mustAdd(t, w, e, velocityID, Velocity{})
	loc, _ := w.registry.location(e)
	if !moving.Evaluate(loc.archetype) {
		t.Error("moving query should match a position+velocity archetype")
	}
}

func TestQueryBuilderRejectsNestedFilters(t *testing.T) {
	plain := AllOf(positionID, velocityID)
	withNone := AllOf(positionID).ButNot(healthID)
	withOne := OneOf(nameID, healthID)

	q := Factory.NewQuery().Or(plain)
	if q.Err() != nil {
		t.Fatalf("a required-only aspect nests cleanly: %v", q.Err())
	}
	if q.Aspect() != OneOf(positionID, velocityID) {
		t.Errorf("aspect = %v", q.Aspect())
	}

	for name, build := range map[string]func() *QueryBuilder{
		"or with excluded":  func() *QueryBuilder { return Factory.NewQuery().And(nameID).Or(withNone) },
		"not with any-of":   func() *QueryBuilder { return Factory.NewQuery().And(nameID).Not(withOne) },
		"nested builder":    func() *QueryBuilder { return Factory.NewQuery().And(nameID).Not(Factory.NewQuery().Or(withNone)) },
		"unsupported value": func() *QueryBuilder { return Factory.NewQuery().And(nameID, "position") },
	} {
		t.Run(name, func(t *testing.T) {
			q := build()
			var itemErr QueryItemError
			if !errors.As(q.Err(), &itemErr) {
				t.Fatalf("Err() = %v, want QueryItemError", q.Err())
			}
			if q.Aspect() != AllOf(nameID) {
				t.Errorf("rejected items must not change the aspect, got %v", q.Aspect())
			}
		})
	}
}

// TestQueryCacheIncremental checks that archetypes created after a query
// was first cached are appended to its entry.
func TestQueryCacheIncremental(t *testing.T) {
	w, _ := newTestWorld(t)
	aspect := AllOf(positionID)

	if got := len(w.Query(aspect)); got != 0 {
		t.Fatalf("initial matches = %d, want 0", got)
	}
	if w.cache.Len() != 1 {
		t.Fatalf("cache entries = %d, want 1", w.cache.Len())
	}

	e := mustCreate(t, w)
	mustAdd(t, w, e, positionID, Position{})
	mustAdd(t, w, e, velocityID, Velocity{})

	if got := len(w.Query(aspect)); got != 2 {
		t.Errorf("matches after growth = %d, want 2 (position, position+velocity)", got)
	}
	if got := w.Count(aspect); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}

	for _, arch := range w.Query(aspect) {
		if !aspect.Matches(arch.Mask()) {
			t.Errorf("cached archetype {%s} does not match", formatMask(arch.Mask()))
		}
	}
}

func TestCursorIteration(t *testing.T) {
	w, c := newTestWorld(t)
	for i := 0; i < 5; i++ {
		e := mustCreate(t, w)
		mustAdd(t, w, e, positionID, Position{})
		mustAdd(t, w, e, velocityID, Velocity{X: 1, Y: 2})
	}
	for i := 0; i < 3; i++ {
		mustAdd(t, w, mustCreate(t, w), positionID, Position{})
	}

	cursor := w.Cursor(AllOf(positionID, velocityID))
	if cursor.TotalMatched() != 5 {
		t.Fatalf("TotalMatched = %d, want 5", cursor.TotalMatched())
	}
	visited := 0
	for cursor.Next() {
		pos := c.position.FromCursor(cursor)
		vel := c.velocity.FromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
		if _, ok := c.health.FromCursorSafe(cursor); ok {
			t.Error("health is not part of the archetype")
		}
		visited++
	}
	if visited != 5 {
		t.Errorf("visited %d entities, want 5", visited)
	}
	if w.Locked() {
		t.Error("exhausted cursor must release the lock")
	}
	for e := range w.Entities(AllOf(velocityID)) {
		if pos, _ := c.position.Value(w, e); pos.X != 1 || pos.Y != 2 {
			t.Errorf("position of %v = %+v", e, pos)
		}
	}
}

func TestCursorEntitiesIterator(t *testing.T) {
	w, _ := newTestWorld(t)
	var want []EntityID
	for i := 0; i < 4; i++ {
		e := mustCreate(t, w)
		mustAdd(t, w, e, nameID, Name{})
		want = append(want, e)
	}

	cursor := Factory.NewCursor(AllOf(nameID), w)
	var got []EntityID
	for _, e := range cursor.Entities() {
		got = append(got, e)
		if len(got) == 2 {
			break
		}
	}
	if len(got) != 2 || w.Locked() {
		t.Fatalf("early break: got %d entities, locked %v", len(got), w.Locked())
	}

	all := iter_util.Collect(w.Entities(AllOf(nameID)))
	if len(all) != len(want) {
		t.Errorf("collected %d entities, want %d", len(all), len(want))
	}
}

// TestCursorDefersDeletes deletes every visited entity during iteration;
// nothing may be skipped or visited twice.
func TestCursorDefersDeletes(t *testing.T) {
	w, _ := newTestWorld(t)
	for i := 0; i < 6; i++ {
		mustAdd(t, w, mustCreate(t, w), healthID, Health{})
	}

	cursor := w.Cursor(AllOf(healthID))
	seen := make(map[EntityID]bool)
	for cursor.Next() {
		e := cursor.Entity()
		if seen[e] {
			t.Fatalf("entity %v visited twice", e)
		}
		seen[e] = true
		if err := w.DeleteEntity(e); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := w.AddComponent(e, nameID, Name{Value: "ghost"}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if len(seen) != 6 {
		t.Errorf("visited %d entities, want 6", len(seen))
	}
	if w.Len() != 0 {
		t.Errorf("%d entities left after deferred deletes", w.Len())
	}
	if w.Count(AllOf(nameID)) != 0 {
		t.Error("ops on entities pending destruction must be dropped")
	}
}

func TestNestedLocks(t *testing.T) {
	w, _ := newTestWorld(t)
	e := mustCreate(t, w)

	w.Lock()
	w.Lock()
	mustAdd(t, w, e, positionID, Position{})
	if err := w.Unlock(); err != nil {
		t.Fatalf("inner unlock: %v", err)
	}
	if w.HasComponent(e, positionID) {
		t.Error("inner unlock must not flush")
	}
	if err := w.Unlock(); err != nil {
		t.Fatalf("outer unlock: %v", err)
	}
	if !w.HasComponent(e, positionID) {
		t.Error("outer unlock must flush")
	}
	if err := w.Unlock(); err != nil {
		t.Errorf("extra unlock should be a no-op, got %v", err)
	}
}

func TestCursorErrReportsFlushFailure(t *testing.T) {
	w, _ := newTestWorld(t)
	e := mustCreate(t, w)
	mustAdd(t, w, e, positionID, Position{})

	cursor := w.Cursor(AllOf(positionID))
	for cursor.Next() {
		// positionID is not a relation, so the deferred unrelate fails.
		w.opQueue.enqueueComponentOp(operation{typ: opUnrelate, entity: cursor.Entity(), comp: positionID})
	}
	var notRelation NotRelationError
	if err := cursor.Err(); !errors.As(err, &notRelation) {
		t.Fatalf("Err() = %v, want NotRelationError", err)
	}
	if w.Locked() {
		t.Error("world still locked after iteration")
	}

	for cursor.Next() {
	}
	if err := cursor.Err(); err != nil {
		t.Errorf("Err() after a clean pass = %v, want nil", err)
	}
}

func TestAddRelationValidatesTargetWhileLocked(t *testing.T) {
	w, _ := newTestWorld(t)
	subject := mustCreate(t, w)
	target := mustCreate(t, w)
	if err := w.DeleteEntity(target); err != nil {
		t.Fatalf("delete: %v", err)
	}

	w.Lock()
	err := w.AddComponent(subject, targetsID, target)
	var invalid InvalidEntityError
	if !errors.As(err, &invalid) || invalid.Entity != target {
		t.Fatalf("AddComponent = %v, want InvalidEntityError for %v", err, target)
	}
	if err := w.AddComponent(subject, targetsID, "not an entity"); err == nil {
		t.Error("expected a type error for a non-entity relation value")
	}
	if err := w.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if w.HasComponent(subject, targetsID) {
		t.Error("rejected relation must not be applied at flush")
	}
}
