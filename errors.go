package ecs

import (
	"errors"
	"fmt"
	"strings"
)

// errRelationWrite is returned when relation columns are written directly
// instead of through Relate and Unrelate.
var errRelationWrite = errors.New("use Relate and Unrelate for relation components")

type LockedWorldError struct{}

func (e LockedWorldError) Error() string {
	return "world is currently locked"
}

// MissingColumnError is raised (as a panic) when code assumes a component
// column that the archetype's mask proves does not exist.
type MissingColumnError struct {
	Component ComponentID
	Mask      string
}

func (e MissingColumnError) Error() string {
	return fmt.Sprintf("archetype {%s} has no column for component %d", e.Mask, e.Component)
}

type ComponentTypeError struct {
	Component ComponentID
	Value     any
}

func (e ComponentTypeError) Error() string {
	return fmt.Sprintf("value of type %T cannot be stored in component %d", e.Value, e.Component)
}

type UnknownComponentError struct {
	Component ComponentID
}

func (e UnknownComponentError) Error() string {
	return fmt.Sprintf("component %d is not registered", e.Component)
}

type ComponentRegisteredError struct {
	Component ComponentID
	Name      string
}

func (e ComponentRegisteredError) Error() string {
	return fmt.Sprintf("component id %d already registered as %q", e.Component, e.Name)
}

type ComponentRangeError struct {
	Component ComponentID
}

func (e ComponentRangeError) Error() string {
	return fmt.Sprintf("component id %d exceeds maximum (%d)", e.Component, MaxComponents-1)
}

// ElementTypeLimitError means the process has used up the table package's
// element type ids, which are bounded by the mask width.
type ElementTypeLimitError struct {
	Component ComponentID
	Type      string
}

func (e ElementTypeLimitError) Error() string {
	return fmt.Sprintf("component %d (%s): no table element type left, limit is %d", e.Component, e.Type, MaxComponents)
}

type InvalidEntityError struct {
	Entity EntityID
}

func (e InvalidEntityError) Error() string {
	return fmt.Sprintf("entity %v is not valid", e.Entity)
}

type EntityLimitError struct {
	Limit int
}

func (e EntityLimitError) Error() string {
	return fmt.Sprintf("entity limit of %d reached", e.Limit)
}

type TagConflictError struct {
	Tag      string
	Holder   EntityID
	Claimant EntityID
}

func (e TagConflictError) Error() string {
	return fmt.Sprintf("tag %q already held by %v, cannot assign to %v", e.Tag, e.Holder, e.Claimant)
}

type NotRelationError struct {
	Component ComponentID
}

func (e NotRelationError) Error() string {
	return fmt.Sprintf("component %d is not a relation", e.Component)
}

// QueryItemError reports a QueryBuilder item that was skipped.
type QueryItemError struct {
	Op     string
	Item   any
	Reason string
}

func (e QueryItemError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("query item %v (%T): %s", e.Item, e.Item, e.Reason)
	}
	return fmt.Sprintf("query %s item %v: %s", e.Op, e.Item, e.Reason)
}

type CycleError struct {
	Systems []string
}

func (e CycleError) Error() string {
	return fmt.Sprintf("circular system ordering: %s", strings.Join(e.Systems, " -> "))
}

type DuplicateSystemError struct {
	Name string
}

func (e DuplicateSystemError) Error() string {
	return fmt.Sprintf("system %q already registered", e.Name)
}

type SnapshotVersionError struct {
	Got, Want int
}

func (e SnapshotVersionError) Error() string {
	return fmt.Sprintf("unsupported snapshot version %d (want %d)", e.Got, e.Want)
}

type SerializationError struct {
	Component ComponentID
	Err       error
}

func (e SerializationError) Error() string {
	return fmt.Sprintf("component %d: %v", e.Component, e.Err)
}

func (e SerializationError) Unwrap() error {
	return e.Err
}
