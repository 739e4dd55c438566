package ecs

import (
	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
)

type archetypeID uint32

var (
	_ Archetype     = &archetype{}
	_ mask.Maskable = &archetype{}
)

// archetype stores every entity that has exactly one component set in a
// table. Besides one row per component the table carries the entity id
// column, so table index i and Entity(i) describe the same entity.
type archetype struct {
	id         archetypeID
	mask       Mask
	components []ComponentID
	columns    []column
	slots      [MaxComponents]int16
	table      table.Table
}

func newArchetype(id archetypeID, m Mask, components []ComponentID, columnOf func(ComponentID) column, schema table.Schema, entries table.EntryIndex) (*archetype, error) {
	a := &archetype{
		id:         id,
		mask:       m,
		components: components,
		columns:    make([]column, len(components)),
	}
	for i := range a.slots {
		a.slots[i] = -1
	}
	elementTypes := make([]table.ElementType, 0, len(components)+1)
	elementTypes = append(elementTypes, entityElement)
	for i, cid := range components {
		a.slots[cid] = int16(i)
		a.columns[i] = columnOf(cid)
		elementTypes = append(elementTypes, a.columns[i].ElementType())
	}
	tbl, err := table.NewTableBuilder().
		WithSchema(schema).
		WithEntryIndex(entries).
		WithElementTypes(elementTypes...).
		Build()
	if err != nil {
		return nil, err
	}
	a.table = tbl
	return a, nil
}

func (a *archetype) ID() uint32 {
	return uint32(a.id)
}

func (a *archetype) Mask() Mask {
	return a.mask
}

func (a *archetype) Table() table.Table {
	return a.table
}

func (a *archetype) Len() int {
	return a.table.Length()
}

func (a *archetype) Entity(row int) EntityID {
	return *entityAccessor.Get(row, a.table)
}

// Entities returns the live entity column. Rows shift on structural
// changes, so the slice must not be retained across them.
func (a *archetype) Entities() []EntityID {
	return rowSlice[EntityID](a.table, entityElement)
}

// Components lists the archetype's component ids in ascending order.
func (a *archetype) Components() []ComponentID {
	return a.components
}

func (a *archetype) Has(cid ComponentID) bool {
	return cid < MaxComponents && a.slots[cid] >= 0
}

// Value returns the component value at row. It panics with MissingColumnError
// if the archetype has no such column.
func (a *archetype) Value(cid ComponentID, row int) any {
	return a.column(cid).Get(a.table, row)
}

func (a *archetype) column(cid ComponentID) column {
	if !a.Has(cid) {
		panic(MissingColumnError{Component: cid, Mask: formatMask(a.mask)})
	}
	return a.columns[a.slots[cid]]
}

// addEntity appends a row, taking values from the map and zero values for
// any column the map does not cover. Values are checked before the row is
// created.
func (a *archetype) addEntity(id EntityID, values map[ComponentID]any) (int, error) {
	for i, cid := range a.components {
		if v := values[cid]; !a.columns[i].Accepts(v) {
			return -1, ComponentTypeError{Component: cid, Value: v}
		}
	}
	entries, err := a.table.NewEntries(1)
	if err != nil {
		return -1, err
	}
	row := entries[0].Index()
	*entityAccessor.Get(row, a.table) = id
	for i, cid := range a.components {
		if err := a.columns[i].Set(a.table, row, values[cid]); err != nil {
			a.table.DeleteEntries(row)
			return -1, err
		}
	}
	return row, nil
}

// removeEntity deletes row; the table fills the hole with its last row.
// When another entity was moved that way it is returned with ok set, and
// the caller must fix its location.
func (a *archetype) removeEntity(row int) (moved EntityID, ok bool, err error) {
	last := a.Len() - 1
	if _, err := a.table.DeleteEntries(row); err != nil {
		return NoEntity, false, err
	}
	if row != last {
		return a.Entity(row), true, nil
	}
	return NoEntity, false, nil
}

// transferTo moves row into dest, copying every shared column. Columns only
// dest has are left for the caller to fill. moved reports the entity that
// took over row in a, as in removeEntity.
func (a *archetype) transferTo(dest *archetype, row int) (destRow int, moved EntityID, ok bool, err error) {
	last := a.Len() - 1
	destRow = dest.Len()
	if err := a.table.TransferEntries(dest.table, row); err != nil {
		return -1, NoEntity, false, err
	}
	if row != last {
		return destRow, a.Entity(row), true, nil
	}
	return destRow, NoEntity, false, nil
}

func (a *archetype) setValue(cid ComponentID, row int, v any) error {
	return a.column(cid).Set(a.table, row, v)
}

// reset deletes every row; the table itself is kept.
func (a *archetype) reset() error {
	n := a.Len()
	if n == 0 {
		return nil
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	_, err := a.table.DeleteEntries(rows...)
	return err
}
