package ecs

// queryCache memoizes the archetypes matching each Aspect. Archetypes are
// never destroyed and their masks never change, so entries only grow: a new
// archetype is tested against every cached Aspect once, at creation.
type queryCache struct {
	entries map[Aspect]*queryEntry
	order   []*queryEntry
}

type queryEntry struct {
	aspect     Aspect
	archetypes []*archetype
}

func newQueryCache() *queryCache {
	return &queryCache{
		entries: make(map[Aspect]*queryEntry),
	}
}

// get returns the matching archetypes for aspect, scanning all once on a miss.
func (c *queryCache) get(aspect Aspect, all []*archetype) []*archetype {
	if entry, ok := c.entries[aspect]; ok {
		return entry.archetypes
	}
	entry := &queryEntry{aspect: aspect}
	for _, arch := range all {
		if aspect.Matches(arch.mask) {
			entry.archetypes = append(entry.archetypes, arch)
		}
	}
	c.entries[aspect] = entry
	c.order = append(c.order, entry)
	return entry.archetypes
}

// archetypeCreated is the store's creation hook.
func (c *queryCache) archetypeCreated(arch *archetype) {
	for _, entry := range c.order {
		if entry.aspect.Matches(arch.mask) {
			entry.archetypes = append(entry.archetypes, arch)
		}
	}
}

func (c *queryCache) Len() int {
	return len(c.order)
}

func (c *queryCache) reset() {
	clear(c.entries)
	c.order = c.order[:0]
}
