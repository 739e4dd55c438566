package ecs

import (
	"iter"
	"time"
)

// Archetype is the read-only view of one component-set bucket handed to
// queries and systems. Row indices are only stable until the next
// structural change.
type Archetype interface {
	ID() uint32
	Mask() Mask
	Len() int
	Entity(row int) EntityID
	Entities() []EntityID
	Components() []ComponentID
	Has(ComponentID) bool
	Value(cid ComponentID, row int) any
}

// System is per-tick logic run by the Scheduler.
type System interface {
	Config() SystemConfig
	Update(w *World, dt time.Duration) error
}

// SystemConfig declares a system's name, matching filter and ordering.
type SystemConfig struct {
	Name   string
	Aspect Aspect
	// Priority orders systems before constraints are applied; lower runs
	// earlier. Zero is the default and sits in the middle of the range.
	Priority int
	// Before and After name systems this one must run before or after.
	Before []string
	After  []string
}

type iCursor interface {
	Entities() iter.Seq2[int, EntityID]
	Next() bool
	Reset() error
}

type Cache[T any] interface {
	GetIndex(string) (int, bool)
	GetItem(int) *T
	Lookup(string) (T, bool)
	Register(string, T) (int, error)
}
