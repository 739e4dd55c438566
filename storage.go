package ecs

import (
	"fmt"
	"slices"

	"github.com/TheBitDrifter/table"
	"go.uber.org/zap"
)

// componentInfo is everything the store knows about a registered component.
type componentInfo struct {
	id         ComponentID
	name       string
	column     column
	serializer Serializer
	relation   bool
	exclusive  bool
}

// componentStore owns the archetypes, executes structural moves and fires
// observers. Every archetype table shares the store's schema and entry
// index, which lets the table package transfer rows between them.
type componentStore struct {
	log      *zap.Logger
	entities *entityRegistry

	infos      [MaxComponents]*componentInfo
	registered Mask
	sorted     []ComponentID
	names      *SimpleCache[ComponentID]

	schema     table.Schema
	entryIndex table.EntryIndex
	archetypes *archetypes
	onCreate   []func(*archetype)

	onAdd        [MaxComponents]observerList[ComponentObserver]
	onRemove     [MaxComponents]observerList[ComponentObserver]
	onMask       observerList[MaskObserver]
	bitObservers int
	scratch      map[ComponentID]any
	scratchInUse bool
}

type archetypes struct {
	nextID           archetypeID
	asSlice          []*archetype
	idsGroupedByMask map[Mask]*archetype
}

func newComponentStore(entities *entityRegistry, log *zap.Logger) *componentStore {
	return &componentStore{
		log:        log,
		entities:   entities,
		names:      FactoryNewCache[ComponentID](MaxComponents).(*SimpleCache[ComponentID]),
		schema:     table.Factory.NewSchema(),
		entryIndex: table.Factory.NewEntryIndex(),
		archetypes: &archetypes{
			nextID:           1,
			idsGroupedByMask: make(map[Mask]*archetype),
		},
		scratch: make(map[ComponentID]any, 16),
	}
}

func (s *componentStore) register(info *componentInfo) error {
	if info.id >= MaxComponents {
		return ComponentRangeError{Component: info.id}
	}
	if existing := s.infos[info.id]; existing != nil {
		return ComponentRegisteredError{Component: info.id, Name: existing.name}
	}
	if _, err := s.names.Register(info.name, info.id); err != nil {
		return fmt.Errorf("register component %q: %w", info.name, err)
	}
	s.infos[info.id] = info
	s.registered.Mark(uint32(info.id))
	idx, _ := slices.BinarySearch(s.sorted, info.id)
	s.sorted = slices.Insert(s.sorted, idx, info.id)
	return nil
}

func (s *componentStore) info(cid ComponentID) (*componentInfo, bool) {
	if cid >= MaxComponents || s.infos[cid] == nil {
		return nil, false
	}
	return s.infos[cid], true
}

// byName resolves a registered component name to its id.
func (s *componentStore) byName(name string) (ComponentID, bool) {
	return s.names.Lookup(name)
}

func (s *componentStore) columnOf(cid ComponentID) column {
	return s.infos[cid].column
}

// checkMask rejects masks that reference unregistered components.
func (s *componentStore) checkMask(m Mask) error {
	if s.registered.ContainsAll(m) {
		return nil
	}
	for _, cid := range MaskIDs(m) {
		if s.infos[cid] == nil {
			return UnknownComponentError{Component: cid}
		}
	}
	return nil
}

func (s *componentStore) checkValue(cid ComponentID, v any) error {
	info, ok := s.info(cid)
	if !ok {
		return UnknownComponentError{Component: cid}
	}
	if !info.column.Accepts(v) {
		return ComponentTypeError{Component: cid, Value: v}
	}
	return nil
}

// archetypeFor returns the archetype for m, creating it on first use.
func (s *componentStore) archetypeFor(m Mask) (*archetype, error) {
	if arch, found := s.archetypes.idsGroupedByMask[m]; found {
		return arch, nil
	}
	components := make([]ComponentID, 0, 8)
	for _, cid := range s.sorted {
		if MaskHas(m, cid) {
			components = append(components, cid)
		}
	}
	created, err := newArchetype(s.archetypes.nextID, m, components, s.columnOf, s.schema, s.entryIndex)
	if err != nil {
		return nil, fmt.Errorf("create archetype {%s}: %w", formatMask(m), err)
	}
	s.archetypes.asSlice = append(s.archetypes.asSlice, created)
	s.archetypes.idsGroupedByMask[m] = created
	s.archetypes.nextID++
	if ce := s.log.Check(zap.DebugLevel, "archetype created"); ce != nil {
		ce.Write(zap.Uint32("id", created.ID()), zap.String("mask", formatMask(m)))
	}
	for _, hook := range s.onCreate {
		hook(created)
	}
	return created, nil
}

func (s *componentStore) all() []*archetype {
	return s.archetypes.asSlice
}

// place puts a freshly allocated entity into the empty archetype.
func (s *componentStore) place(e EntityID) error {
	return s.insert(e, emptyMask, nil)
}

// insert places e directly into the archetype for m with the given values.
// Used for new entities and when restoring snapshots; no observers fire.
func (s *componentStore) insert(e EntityID, m Mask, values map[ComponentID]any) error {
	arch, err := s.archetypeFor(m)
	if err != nil {
		return err
	}
	row, err := arch.addEntity(e, values)
	if err != nil {
		return err
	}
	s.entities.setLocation(e, location{archetype: arch, row: row})
	return nil
}

// detach deletes a row and repairs the location of the entity that was
// moved into it.
func (s *componentStore) detach(arch *archetype, row int) error {
	moved, ok, err := arch.removeEntity(row)
	if err != nil {
		return err
	}
	if ok {
		s.entities.setRow(moved, row)
	}
	return nil
}

// acquireScratch hands out the shared value map unless an observer callback
// re-entered the store while it was in use.
func (s *componentStore) acquireScratch() (map[ComponentID]any, bool) {
	if s.scratchInUse {
		return make(map[ComponentID]any, 16), false
	}
	s.scratchInUse = true
	return s.scratch, true
}

func (s *componentStore) releaseScratch(m map[ComponentID]any, pooled bool) {
	clear(m)
	if pooled {
		s.scratchInUse = false
	}
}

// transmute moves e into the archetype for newMask. Values of components
// absent from newMask are dropped; added, when hasAdded is set, supplies the
// value for one new component.
func (s *componentStore) transmute(e EntityID, newMask Mask, added ComponentID, value any, hasAdded bool) error {
	loc, ok := s.entities.location(e)
	if !ok {
		return InvalidEntityError{Entity: e}
	}
	if err := s.checkMask(newMask); err != nil {
		return err
	}
	if hasAdded {
		if err := s.checkValue(added, value); err != nil {
			return err
		}
	}
	oldMask := loc.archetype.mask
	if oldMask == newMask {
		if hasAdded && MaskHas(newMask, added) {
			return loc.archetype.setValue(added, loc.row, value)
		}
		return nil
	}

	values, pooled := s.acquireScratch()
	if hasAdded {
		values[added] = value
	}
	err := s.move(e, loc, newMask, values)
	s.releaseScratch(values, pooled)
	if err != nil {
		return err
	}
	s.notify(e, oldMask, newMask)
	return nil
}

// applyBatchChanges performs at most one structural move for a set of adds
// and removes whose combined result is finalMask. When the mask does not
// change the adds are written in place.
func (s *componentStore) applyBatchChanges(e EntityID, finalMask Mask, adds map[ComponentID]any) error {
	loc, ok := s.entities.location(e)
	if !ok {
		return InvalidEntityError{Entity: e}
	}
	if err := s.checkMask(finalMask); err != nil {
		return err
	}
	ids := sortedKeys(adds)
	for _, cid := range ids {
		if err := s.checkValue(cid, adds[cid]); err != nil {
			return err
		}
	}
	oldMask := loc.archetype.mask
	if oldMask == finalMask {
		for _, cid := range ids {
			if !MaskHas(finalMask, cid) {
				continue
			}
			if err := loc.archetype.setValue(cid, loc.row, adds[cid]); err != nil {
				return err
			}
		}
		return nil
	}
	if err := s.move(e, loc, finalMask, adds); err != nil {
		return err
	}
	s.notify(e, oldMask, finalMask)
	return nil
}

// move transfers e's row into the archetype for m. Shared columns travel
// with the row; every other column of the target is written from adds, or
// zeroed when adds has no value. Callers check the values beforehand.
func (s *componentStore) move(e EntityID, loc location, m Mask, adds map[ComponentID]any) error {
	target, err := s.archetypeFor(m)
	if err != nil {
		return err
	}
	origin := loc.archetype
	row, moved, shifted, err := origin.transferTo(target, loc.row)
	if err != nil {
		return fmt.Errorf("move %v to {%s}: %w", e, formatMask(m), err)
	}
	if shifted {
		s.entities.setRow(moved, loc.row)
	}
	s.entities.setLocation(e, location{archetype: target, row: row})
	for i, cid := range target.components {
		v, ok := adds[cid]
		if !ok && origin.Has(cid) {
			continue
		}
		if err := target.columns[i].Set(target.table, row, v); err != nil {
			return err
		}
	}
	return nil
}

// destroy removes e from its archetype, recycles its id and fires remove
// observers for every component it held.
func (s *componentStore) destroy(e EntityID) error {
	loc, ok := s.entities.location(e)
	if !ok {
		return InvalidEntityError{Entity: e}
	}
	oldMask := loc.archetype.mask
	if err := s.detach(loc.archetype, loc.row); err != nil {
		return err
	}
	s.entities.recycle(e)
	s.notify(e, oldMask, emptyMask)
	return nil
}

func (s *componentStore) setValue(e EntityID, cid ComponentID, v any) error {
	loc, ok := s.entities.location(e)
	if !ok {
		return InvalidEntityError{Entity: e}
	}
	if err := s.checkValue(cid, v); err != nil {
		return err
	}
	if !loc.archetype.Has(cid) {
		return fmt.Errorf("entity %v has no component %d", e, cid)
	}
	return loc.archetype.setValue(cid, loc.row, v)
}

func (s *componentStore) value(e EntityID, cid ComponentID) (any, bool) {
	loc, ok := s.entities.location(e)
	if !ok || !loc.archetype.Has(cid) {
		return nil, false
	}
	return loc.archetype.Value(cid, loc.row), true
}

func (s *componentStore) maskOf(e EntityID) (Mask, bool) {
	loc, ok := s.entities.location(e)
	if !ok {
		return emptyMask, false
	}
	return loc.archetype.mask, true
}

// notify fires add/remove observers for each differing bit in ascending
// component order, then the mask-change stream.
func (s *componentStore) notify(e EntityID, oldMask, newMask Mask) {
	if oldMask == newMask {
		return
	}
	if s.bitObservers > 0 {
		for _, cid := range s.sorted {
			had, has := MaskHas(oldMask, cid), MaskHas(newMask, cid)
			switch {
			case !had && has:
				for _, obs := range s.onAdd[cid].snapshot() {
					obs.fn(e, cid)
				}
			case had && !has:
				for _, obs := range s.onRemove[cid].snapshot() {
					obs.fn(e, cid)
				}
			}
		}
	}
	for _, obs := range s.onMask.snapshot() {
		obs.fn(e, oldMask, newMask)
	}
}

func (s *componentStore) observeAdd(cid ComponentID, fn ComponentObserver) Handle {
	return s.countedHandle(s.onAdd[cid].add(fn))
}

func (s *componentStore) observeRemove(cid ComponentID, fn ComponentObserver) Handle {
	return s.countedHandle(s.onRemove[cid].add(fn))
}

func (s *componentStore) countedHandle(h Handle) Handle {
	s.bitObservers++
	done := false
	return Handle{unsubscribe: func() {
		if done {
			return
		}
		done = true
		s.bitObservers--
		h.Unsubscribe()
	}}
}

func (s *componentStore) observeMask(fn MaskObserver) Handle {
	return s.onMask.add(fn)
}

// reset empties every archetype. Archetypes themselves are kept.
func (s *componentStore) reset() error {
	for _, arch := range s.archetypes.asSlice {
		if err := arch.reset(); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[ComponentID]V) []ComponentID {
	ids := make([]ComponentID, 0, len(m))
	for cid := range m {
		ids = append(ids, cid)
	}
	slices.Sort(ids)
	return ids
}
