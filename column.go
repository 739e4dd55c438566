package ecs

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
)

// column reads and writes one component's row of an archetype table. It
// holds no data itself and is shared by every archetype with the component.
type column interface {
	ElementType() table.ElementType
	Get(tbl table.Table, row int) any
	// Set writes v, or the zero value when v is nil.
	Set(tbl table.Table, row int, v any) error
	Accepts(v any) bool
}

// Element types are numbered process-wide by the table package and a table
// can only hold ids up to the mask width, so they are shared by every World
// and keyed by component id and Go type.
type elementKey struct {
	id  ComponentID
	typ reflect.Type
}

var (
	elementTypesMu sync.Mutex
	elementTypes   = make(map[elementKey]table.ElementType)
)

// entityElement is the hidden column every archetype table carries. It maps
// rows back to entity ids.
var (
	entityElement  = table.FactoryNewElementType[EntityID]()
	entityAccessor = table.FactoryNewAccessor[EntityID](entityElement)
)

func elementTypeFor[T any](id ComponentID) (table.ElementType, error) {
	typ := reflect.TypeFor[T]()
	switch typ.Kind() {
	case reflect.Pointer, reflect.Interface:
		return nil, fmt.Errorf("component %d: type %v must be a value type", id, typ)
	}
	key := elementKey{id: id, typ: typ}

	elementTypesMu.Lock()
	defer elementTypesMu.Unlock()
	if et, ok := elementTypes[key]; ok {
		return et, nil
	}
	et := table.FactoryNewElementType[T]()
	if int(et.ID()) > mask.MaxBits {
		return nil, ElementTypeLimitError{Component: id, Type: typ.String()}
	}
	elementTypes[key] = et
	return et, nil
}

// rowSlice exposes a table row as its typed slice. The slice aliases table
// storage until the next structural change.
func rowSlice[T any](tbl table.Table, et table.ElementType) []T {
	row, err := tbl.Row(et)
	if err != nil {
		return nil
	}
	return row.Interface().([]T)
}

type typedColumn[T any] struct {
	id       ComponentID
	element  table.ElementType
	accessor table.Accessor[T]
}

func newTypedColumn[T any](id ComponentID) (*typedColumn[T], error) {
	et, err := elementTypeFor[T](id)
	if err != nil {
		return nil, err
	}
	return &typedColumn[T]{
		id:       id,
		element:  et,
		accessor: table.FactoryNewAccessor[T](et),
	}, nil
}

func (c *typedColumn[T]) ElementType() table.ElementType {
	return c.element
}

func (c *typedColumn[T]) Get(tbl table.Table, row int) any {
	return *c.ptr(tbl, row)
}

func (c *typedColumn[T]) Set(tbl table.Table, row int, v any) error {
	if v == nil {
		var zero T
		*c.ptr(tbl, row) = zero
		return nil
	}
	tv, err := c.convert(v)
	if err != nil {
		return err
	}
	*c.ptr(tbl, row) = tv
	return nil
}

func (c *typedColumn[T]) Accepts(v any) bool {
	return accepts[T](v)
}

// ptr returns the address of a row; valid until the next structural change.
func (c *typedColumn[T]) ptr(tbl table.Table, row int) *T {
	return c.accessor.Get(row, tbl)
}

func (c *typedColumn[T]) slice(tbl table.Table) []T {
	return rowSlice[T](tbl, c.element)
}

func (c *typedColumn[T]) convert(v any) (T, error) {
	switch tv := v.(type) {
	case T:
		return tv, nil
	case *T:
		if tv != nil {
			return *tv, nil
		}
	}
	var zero T
	return zero, ComponentTypeError{Component: c.id, Value: v}
}

// accepts reports whether v can be stored in a column of T.
func accepts[T any](v any) bool {
	if v == nil {
		return true
	}
	switch tv := v.(type) {
	case T:
		return true
	case *T:
		return tv != nil
	}
	return false
}

// boxed holds a value whose dynamic type varies per row, such as a relation
// that is either one target or a Targets set.
type boxed struct {
	value any
}

type boxedColumn struct {
	id       ComponentID
	element  table.ElementType
	accessor table.Accessor[boxed]
	accepts  func(any) bool
}

func newBoxedColumn(id ComponentID, accepts func(any) bool) (*boxedColumn, error) {
	et, err := elementTypeFor[boxed](id)
	if err != nil {
		return nil, err
	}
	return &boxedColumn{
		id:       id,
		element:  et,
		accessor: table.FactoryNewAccessor[boxed](et),
		accepts:  accepts,
	}, nil
}

func (c *boxedColumn) ElementType() table.ElementType {
	return c.element
}

func (c *boxedColumn) Get(tbl table.Table, row int) any {
	return c.accessor.Get(row, tbl).value
}

func (c *boxedColumn) Set(tbl table.Table, row int, v any) error {
	if !c.accepts(v) {
		return ComponentTypeError{Component: c.id, Value: v}
	}
	c.accessor.Get(row, tbl).value = v
	return nil
}

func (c *boxedColumn) Accepts(v any) bool {
	return c.accepts(v)
}
