package ecs

// Component is a typed handle to a registered component id. Values live in
// archetype tables and are read through a table.Accessor, so reads and
// in-place writes avoid boxing.
type Component[T any] struct {
	id     ComponentID
	column *typedColumn[T]
}

// ComponentOption customizes a component registration.
type ComponentOption func(*componentInfo)

// WithSerializer replaces the default JSON-based serializer.
func WithSerializer(s Serializer) ComponentOption {
	return func(info *componentInfo) {
		info.serializer = s
	}
}

// RegisterComponent registers T under id. The id is part of the snapshot
// format and must not be reassigned once snapshots exist.
func RegisterComponent[T any](w *World, id ComponentID, name string, opts ...ComponentOption) (Component[T], error) {
	if id >= MaxComponents {
		return Component[T]{}, ComponentRangeError{Component: id}
	}
	col, err := newTypedColumn[T](id)
	if err != nil {
		return Component[T]{}, err
	}
	info := &componentInfo{
		id:         id,
		name:       name,
		column:     col,
		serializer: jsonSerializer[T]{},
	}
	for _, opt := range opts {
		opt(info)
	}
	if err := w.store.register(info); err != nil {
		return Component[T]{}, err
	}
	return Component[T]{id: id, column: col}, nil
}

// MustRegisterComponent is RegisterComponent for package-level setup code.
func MustRegisterComponent[T any](w *World, id ComponentID, name string, opts ...ComponentOption) Component[T] {
	c, err := RegisterComponent[T](w, id, name, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// RegisterRelation registers a relation component. Exclusive relations hold
// one target; others hold any number.
func RegisterRelation(w *World, id ComponentID, name string, exclusive bool) error {
	if id >= MaxComponents {
		return ComponentRangeError{Component: id}
	}
	col, err := newBoxedColumn(id, acceptsRelationValue)
	if err != nil {
		return err
	}
	info := &componentInfo{
		id:         id,
		name:       name,
		column:     col,
		serializer: relationSerializer{},
		relation:   true,
		exclusive:  exclusive,
	}
	if err := w.store.register(info); err != nil {
		return err
	}
	w.relations.registered(id)
	return nil
}

func acceptsRelationValue(v any) bool {
	switch v.(type) {
	case nil, EntityID, *Targets:
		return true
	}
	return false
}

func (c Component[T]) ID() ComponentID {
	return c.id
}

// Get returns a pointer to e's value. The pointer is only valid until the
// next structural change to the world.
func (c Component[T]) Get(w *World, e EntityID) (*T, bool) {
	loc, ok := w.registry.location(e)
	if !ok || !loc.archetype.Has(c.id) {
		return nil, false
	}
	return c.at(loc.archetype, loc.row), true
}

// Value returns a copy of e's value.
func (c Component[T]) Value(w *World, e EntityID) (T, bool) {
	ptr, ok := c.Get(w, e)
	if !ok {
		var zero T
		return zero, false
	}
	return *ptr, true
}

func (c Component[T]) Has(w *World, e EntityID) bool {
	return w.HasComponent(e, c.id)
}

// Add attaches the component or overwrites it in place if already present.
func (c Component[T]) Add(w *World, e EntityID, v T) error {
	return w.AddComponent(e, c.id, v)
}

func (c Component[T]) Set(w *World, e EntityID, v T) error {
	return w.SetComponent(e, c.id, v)
}

func (c Component[T]) Remove(w *World, e EntityID) error {
	return w.RemoveComponent(e, c.id)
}

// FromCursor returns the value for the cursor's current row. The cursor's
// aspect must guarantee the component, otherwise it panics.
func (c Component[T]) FromCursor(cursor *Cursor) *T {
	return c.at(cursor.currentArchetype, cursor.row())
}

// FromCursorSafe is FromCursor for components the aspect does not require.
func (c Component[T]) FromCursorSafe(cursor *Cursor) (*T, bool) {
	if cursor.currentArchetype == nil || !cursor.currentArchetype.Has(c.id) {
		return nil, false
	}
	return c.FromCursor(cursor), true
}

// Column returns the archetype's typed row for direct iteration. The slice
// aliases table storage until the next structural change.
func (c Component[T]) Column(a Archetype) []T {
	arch := a.(*archetype)
	if !arch.Has(c.id) {
		panic(MissingColumnError{Component: c.id, Mask: formatMask(arch.mask)})
	}
	return c.column.slice(arch.table)
}

func (c Component[T]) at(arch *archetype, row int) *T {
	if !arch.Has(c.id) {
		panic(MissingColumnError{Component: c.id, Mask: formatMask(arch.mask)})
	}
	return c.column.ptr(arch.table, row)
}
