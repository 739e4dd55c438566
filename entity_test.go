package ecs

import (
	"errors"
	"testing"
)

func TestEntityIDPacking(t *testing.T) {
	tests := []struct {
		name       string
		index      uint32
		generation uint8
	}{
		{"first", 0, 1},
		{"mid", 12345, 77},
		{"max index", maxEntities - 1, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := newEntityID(tt.index, tt.generation)
			if id.Index() != tt.index {
				t.Errorf("Index() = %d, want %d", id.Index(), tt.index)
			}
			if id.Generation() != tt.generation {
				t.Errorf("Generation() = %d, want %d", id.Generation(), tt.generation)
			}
			if id.IsZero() {
				t.Error("packed id must not be the NoEntity sentinel")
			}
		})
	}
}

func TestNextGenerationSkipsZero(t *testing.T) {
	if got := nextGeneration(1); got != 2 {
		t.Errorf("nextGeneration(1) = %d, want 2", got)
	}
	if got := nextGeneration(255); got != 1 {
		t.Errorf("nextGeneration(255) = %d, want 1", got)
	}
}

func TestEntityRecycling(t *testing.T) {
	w, _ := newTestWorld(t)

	first := mustCreate(t, w)
	if first.Generation() != 1 {
		t.Fatalf("fresh entity generation = %d, want 1", first.Generation())
	}
	if err := w.DeleteEntity(first); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if w.IsValid(first) {
		t.Fatal("deleted entity is still valid")
	}

	second := mustCreate(t, w)
	if second.Index() != first.Index() {
		t.Fatalf("recycled index = %d, want %d", second.Index(), first.Index())
	}
	if second.Generation() != 2 {
		t.Fatalf("recycled generation = %d, want 2", second.Generation())
	}
	if second == first {
		t.Fatal("recycled id must differ from the stale id")
	}
	if w.IsValid(first) {
		t.Fatal("stale id became valid after recycling")
	}
	if !w.IsValid(second) {
		t.Fatal("recycled id is not valid")
	}
}

func TestGenerationWraps(t *testing.T) {
	w, _ := newTestWorld(t)

	e := mustCreate(t, w)
	index := e.Index()
	for i := 0; i < 254; i++ {
		if err := w.DeleteEntity(e); err != nil {
			t.Fatalf("delete: %v", err)
		}
		e = mustCreate(t, w)
	}
	if e.Index() != index || e.Generation() != 255 {
		t.Fatalf("after 254 recycles got index %d generation %d, want %d/255", e.Index(), e.Generation(), index)
	}
	if err := w.DeleteEntity(e); err != nil {
		t.Fatalf("delete: %v", err)
	}
	e = mustCreate(t, w)
	if e.Generation() != 1 {
		t.Fatalf("generation after 255 = %d, want 1", e.Generation())
	}
}

func TestInvalidEntityOperations(t *testing.T) {
	w, c := newTestWorld(t)

	e := mustCreate(t, w)
	if err := w.DeleteEntity(e); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var invalid InvalidEntityError
	if err := w.AddComponent(e, positionID, Position{}); !errors.As(err, &invalid) {
		t.Errorf("AddComponent on stale id: got %v, want InvalidEntityError", err)
	}
	if err := w.RemoveComponent(e, positionID); !errors.As(err, &invalid) {
		t.Errorf("RemoveComponent on stale id: got %v, want InvalidEntityError", err)
	}
	if _, ok := c.position.Get(w, e); ok {
		t.Error("Get on stale id should report absence")
	}
	if err := w.DeleteEntity(e); err != nil {
		t.Errorf("deleting twice should be a no-op, got %v", err)
	}
	if w.IsValid(NoEntity) {
		t.Error("NoEntity must never be valid")
	}
}

func TestRegistryRestore(t *testing.T) {
	r := newEntityRegistry(8)
	free := []EntityID{newEntityID(1, 3)}
	if err := checkRestore(3, []int{1, 3, 7}, free, map[uint32]struct{}{0: {}, 2: {}}); err != nil {
		t.Fatalf("check restore: %v", err)
	}
	r.restore(3, []int{1, 3, 7}, free)
	id, err := r.create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != newEntityID(1, 3) {
		t.Errorf("create after restore = %v, want the free id %v", id, newEntityID(1, 3))
	}
	id, err = r.create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id.Index() != 3 || id.Generation() != 1 {
		t.Errorf("fresh id after restore = %v, want index 3 generation 1", id)
	}
}

func TestCheckRestoreRejects(t *testing.T) {
	tests := []struct {
		name        string
		next        int
		generations []int
		free        []EntityID
		live        []uint32
	}{
		{"length mismatch", 2, []int{1}, nil, nil},
		{"zero generation", 1, []int{0}, nil, nil},
		{"generation past wrap", 1, []int{256}, nil, nil},
		{"free beyond next", 1, []int{1}, []EntityID{newEntityID(4, 1)}, nil},
		{"free with stale generation", 2, []int{1, 2}, []EntityID{newEntityID(1, 1)}, nil},
		{"free aliases a live entity", 1, []int{1}, []EntityID{newEntityID(0, 1)}, []uint32{0}},
		{"free listed twice", 2, []int{1, 2}, []EntityID{newEntityID(1, 2), newEntityID(1, 2)}, nil},
		{"negative next index", -1, nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live := make(map[uint32]struct{}, len(tt.live))
			for _, idx := range tt.live {
				live[idx] = struct{}{}
			}
			if err := checkRestore(tt.next, tt.generations, tt.free, live); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
