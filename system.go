package ecs

import "time"

var _ System = systemFunc{}

type systemFunc struct {
	config SystemConfig
	update func(w *World, dt time.Duration) error
}

// NewSystem builds a System from a config and an update function.
func NewSystem(cfg SystemConfig, update func(w *World, dt time.Duration) error) System {
	return systemFunc{config: cfg, update: update}
}

func (s systemFunc) Config() SystemConfig {
	return s.config
}

func (s systemFunc) Update(w *World, dt time.Duration) error {
	return s.update(w, dt)
}

// Each calls fn for every entity matching the system's aspect. It is a
// convenience for system bodies that do not need a Cursor.
func Each(w *World, aspect Aspect, fn func(e EntityID, a Archetype, row int)) {
	for _, arch := range w.archetypesFor(aspect) {
		for row := 0; row < arch.Len(); row++ {
			fn(arch.Entity(row), arch, row)
		}
	}
}
