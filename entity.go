package ecs

import "fmt"

const (
	indexBits     = 24
	indexMask     = 1<<indexBits - 1
	maxEntities   = 1 << indexBits
	maxGeneration = 255
)

// EntityID encodes a 24-bit index in the lower bits and an 8-bit generation
// in the upper bits. The zero value never refers to an entity.
type EntityID uint32

// NoEntity is the sentinel "no entity" id.
const NoEntity EntityID = 0

func newEntityID(index uint32, generation uint8) EntityID {
	return EntityID(uint32(generation)<<indexBits | index&indexMask)
}

func (id EntityID) Index() uint32     { return uint32(id) & indexMask }
func (id EntityID) Generation() uint8 { return uint8(uint32(id) >> indexBits) }
func (id EntityID) IsZero() bool      { return id == NoEntity }

func (id EntityID) String() string {
	return fmt.Sprintf("%d:%d", id.Index(), id.Generation())
}

// nextGeneration wraps 255 back to 1; 0 is reserved.
func nextGeneration(g uint8) uint8 {
	if g >= maxGeneration {
		return 1
	}
	return g + 1
}

// location is where an entity's row currently lives.
type location struct {
	archetype *archetype
	row       int
}

// entityRegistry allocates entity ids and maps them to locations.
type entityRegistry struct {
	generations []uint8
	locations   []location
	live        []bool
	free        *Bag[EntityID]
	nextIndex   uint32
	alive       int
}

func newEntityRegistry(capacity int) *entityRegistry {
	return &entityRegistry{
		generations: make([]uint8, 0, capacity),
		locations:   make([]location, 0, capacity),
		live:        make([]bool, 0, capacity),
		free:        NewBag[EntityID](capacity / 4),
	}
}

// create pops a recycled id, or allocates the next index at generation 1.
// The returned id has no location until setLocation is called.
func (r *entityRegistry) create() (EntityID, error) {
	if id, ok := r.free.Pop(); ok {
		return id, nil
	}
	if r.nextIndex >= maxEntities {
		return NoEntity, EntityLimitError{Limit: maxEntities}
	}
	idx := r.nextIndex
	r.nextIndex++
	r.generations = append(r.generations, 1)
	r.locations = append(r.locations, location{})
	r.live = append(r.live, false)
	return newEntityID(idx, 1), nil
}

// recycle invalidates id and returns its index to the free pool.
func (r *entityRegistry) recycle(id EntityID) {
	idx := id.Index()
	if idx >= r.nextIndex || r.generations[idx] != id.Generation() {
		return
	}
	gen := nextGeneration(r.generations[idx])
	r.generations[idx] = gen
	if r.live[idx] {
		r.alive--
	}
	r.live[idx] = false
	r.locations[idx] = location{}
	r.free.Add(newEntityID(idx, gen))
}

// isValid requires both a generation match and a live location.
func (r *entityRegistry) isValid(id EntityID) bool {
	if id.IsZero() {
		return false
	}
	idx := id.Index()
	if idx >= r.nextIndex {
		return false
	}
	return r.generations[idx] == id.Generation() && r.live[idx]
}

func (r *entityRegistry) location(id EntityID) (location, bool) {
	if !r.isValid(id) {
		return location{}, false
	}
	return r.locations[id.Index()], true
}

func (r *entityRegistry) setLocation(id EntityID, loc location) {
	idx := id.Index()
	if !r.live[idx] {
		r.alive++
	}
	r.live[idx] = true
	r.locations[idx] = loc
}

func (r *entityRegistry) setRow(id EntityID, row int) {
	r.locations[id.Index()].row = row
}

func (r *entityRegistry) reset() {
	r.generations = r.generations[:0]
	r.locations = r.locations[:0]
	r.live = r.live[:0]
	r.free.Clear()
	r.nextIndex = 0
	r.alive = 0
}

// checkRestore validates snapshot registry state without touching any
// registry. live holds the indices the snapshot places in archetypes.
func checkRestore(nextIndex int, generations []int, free []EntityID, live map[uint32]struct{}) error {
	if nextIndex < 0 || nextIndex > maxEntities {
		return EntityLimitError{Limit: maxEntities}
	}
	if len(generations) != nextIndex {
		return fmt.Errorf("generation table has %d entries, expected %d", len(generations), nextIndex)
	}
	for idx, g := range generations {
		if g < 1 || g > maxGeneration {
			return fmt.Errorf("generation %d of index %d out of range", g, idx)
		}
	}
	seen := make(map[uint32]struct{}, len(free))
	for _, id := range free {
		idx := id.Index()
		if id.IsZero() || idx >= uint32(nextIndex) {
			return fmt.Errorf("free id %v beyond next index %d", id, nextIndex)
		}
		if generations[idx] != int(id.Generation()) {
			return fmt.Errorf("free id %v does not match generation %d", id, generations[idx])
		}
		if _, ok := live[idx]; ok {
			return fmt.Errorf("free id %v is also a live entity", id)
		}
		if _, dup := seen[idx]; dup {
			return fmt.Errorf("free id %v listed twice", id)
		}
		seen[idx] = struct{}{}
	}
	return nil
}

// restore loads generation and free-pool state that checkRestore accepted.
// Locations are filled in afterwards as archetype rows are loaded.
func (r *entityRegistry) restore(nextIndex int, generations []int, free []EntityID) {
	r.reset()
	r.nextIndex = uint32(nextIndex)
	for _, g := range generations {
		r.generations = append(r.generations, uint8(g))
		r.locations = append(r.locations, location{})
		r.live = append(r.live, false)
	}
	for _, id := range free {
		r.free.Add(id)
	}
}

// recycleAll invalidates every live id, keeping generations so stale
// handles stay invalid after a world reset.
func (r *entityRegistry) recycleAll() {
	for idx := uint32(0); idx < r.nextIndex; idx++ {
		if r.live[idx] {
			r.recycle(newEntityID(idx, r.generations[idx]))
		}
	}
}
