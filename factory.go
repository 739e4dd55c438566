package ecs

type factory struct{}

var Factory factory

// NewWorld creates a world from cfg.
func (f factory) NewWorld(cfg Config, opts ...Option) *World {
	return NewWorld(cfg, opts...)
}

// NewCursor creates a cursor over the entities of w matching aspect.
func (f factory) NewCursor(aspect Aspect, w *World) *Cursor {
	return newCursor(aspect, w)
}

// NewQuery starts an empty query; with no clauses it matches every archetype.
func (f factory) NewQuery() *QueryBuilder {
	return &QueryBuilder{}
}

func (f factory) NewScheduler(w *World) *Scheduler {
	return newScheduler(w)
}

func FactoryNewCache[T any](cap int) Cache[T] {
	return &SimpleCache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: cap,
	}
}
