package ecs

import "iter"

var _ iCursor = &Cursor{}

// Cursor walks every entity matching an Aspect, archetype by archetype.
// The world is locked while a cursor is active, so structural changes made
// during iteration are deferred until the cursor finishes or is Reset.
type Cursor struct {
	aspect Aspect
	world  *World

	currentArchetype *archetype
	storageIndex     int
	entityIndex      int
	remaining        int

	initialized     bool
	locked          bool
	matchedStorages []*archetype
	err             error
}

func newCursor(aspect Aspect, world *World) *Cursor {
	return &Cursor{
		aspect: aspect,
		world:  world,
	}
}

// Next advances to the next matching entity.
func (c *Cursor) Next() bool {
	if c.entityIndex < c.remaining {
		c.entityIndex++
		return true
	}
	return c.advance()
}

func (c *Cursor) advance() bool {
	if !c.initialized {
		c.initialize()
	}
	for c.storageIndex < len(c.matchedStorages) {
		c.currentArchetype = c.matchedStorages[c.storageIndex]
		c.remaining = c.currentArchetype.Len()

		if c.entityIndex < c.remaining {
			c.entityIndex++
			return true
		}
		c.storageIndex++
		c.entityIndex = 0
	}
	c.Reset()
	return false
}

// Entities yields (row, entity) pairs; the current archetype is available
// through Archetype during the loop body.
func (c *Cursor) Entities() iter.Seq2[int, EntityID] {
	return func(yield func(int, EntityID) bool) {
		c.initialize()

		for c.storageIndex < len(c.matchedStorages) {
			c.currentArchetype = c.matchedStorages[c.storageIndex]
			c.remaining = c.currentArchetype.Len()

			for c.entityIndex < c.remaining {
				c.entityIndex++
				if !yield(c.entityIndex-1, c.currentArchetype.Entity(c.entityIndex-1)) {
					c.Reset()
					return
				}
			}
			c.entityIndex = 0
			c.storageIndex++
		}
		c.Reset()
	}
}

func (c *Cursor) initialize() {
	if c.initialized {
		return
	}
	c.matchedStorages = c.world.archetypesFor(c.aspect)
	if len(c.matchedStorages) > 0 {
		c.storageIndex = 0
		c.currentArchetype = c.matchedStorages[0]
		c.remaining = c.currentArchetype.Len()
	}
	c.world.Lock()
	c.locked = true
	c.initialized = true
	c.err = nil
}

// Reset rewinds the cursor and releases its world lock, which flushes any
// structural changes queued during iteration. The flush error is returned
// and also kept for Err.
func (c *Cursor) Reset() error {
	c.storageIndex = 0
	c.entityIndex = 0
	c.remaining = 0
	c.matchedStorages = nil
	c.currentArchetype = nil
	c.initialized = false
	if c.locked {
		c.locked = false
		c.err = c.world.Unlock()
		return c.err
	}
	return nil
}

// Err reports the error from flushing deferred operations when iteration
// last ended, whether through Next returning false or the range loop
// finishing. It is cleared when iteration starts again.
func (c *Cursor) Err() error {
	return c.err
}

func (c *Cursor) row() int {
	return c.entityIndex - 1
}

// Row is the current row within Archetype.
func (c *Cursor) Row() int {
	return c.row()
}

// Entity returns the entity at the cursor.
func (c *Cursor) Entity() EntityID {
	return c.currentArchetype.Entity(c.row())
}

// Archetype returns the archetype being iterated.
func (c *Cursor) Archetype() Archetype {
	return c.currentArchetype
}

func (c *Cursor) RemainingInArchetype() int {
	return c.remaining - c.entityIndex
}

// TotalMatched counts matching entities without moving the cursor.
func (c *Cursor) TotalMatched() int {
	total := 0
	for _, arch := range c.world.archetypesFor(c.aspect) {
		total += arch.Len()
	}
	return total
}
